package product

import (
	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/core/common/validation"
)

// CreateProductDTO is the request payload for adding a catalog item.
type CreateProductDTO struct {
	SKU            string `json:"sku"`
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	CategoryID     int64  `json:"category_id"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Currency       string `json:"currency,omitempty"`
}

func (dto CreateProductDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("sku", dto.SKU).Required().MaxLength(64)
	v.Field("name", dto.Name).Required().MaxLength(255)
	v.Field("category_id", dto.CategoryID).MinInt(1, internal.ErrCodeValidationFailed)
	v.Field("unit_price_cents", dto.UnitPriceCents).MinInt(1, internal.ErrCodeValidationFailed)
	if dto.Currency != "" {
		v.Field("currency", dto.Currency).MinLength(3).MaxLength(3)
	}
	return errOrNil(v.Validate())
}

// UpdateProductDTO carries partial updates; nil pointers leave fields
// untouched. SKU is immutable after creation.
type UpdateProductDTO struct {
	Name           *string `json:"name,omitempty"`
	Description    *string `json:"description,omitempty"`
	CategoryID     *int64  `json:"category_id,omitempty"`
	UnitPriceCents *int64  `json:"unit_price_cents,omitempty"`
	Currency       *string `json:"currency,omitempty"`
}

func (dto UpdateProductDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", *dto.Name).Required().MaxLength(255)
	}
	if dto.CategoryID != nil {
		v.Field("category_id", *dto.CategoryID).MinInt(1, internal.ErrCodeValidationFailed)
	}
	if dto.UnitPriceCents != nil {
		v.Field("unit_price_cents", *dto.UnitPriceCents).MinInt(1, internal.ErrCodeValidationFailed)
	}
	if dto.Currency != nil {
		v.Field("currency", *dto.Currency).MinLength(3).MaxLength(3)
	}
	return errOrNil(v.Validate())
}

// CreateCategoryDTO is the request payload for a catalog category.
type CreateCategoryDTO struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

func (dto CreateCategoryDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(128)
	return errOrNil(v.Validate())
}

// SetPriceTiersDTO replaces a product's quantity-break pricing wholesale.
type SetPriceTiersDTO struct {
	Tiers []PriceTierInput `json:"tiers"`
}

type PriceTierInput struct {
	MinQuantity    int64 `json:"min_quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

func (dto SetPriceTiersDTO) Validate() error {
	v := validation.NewValidator()
	seen := make(map[int64]bool, len(dto.Tiers))
	for _, t := range dto.Tiers {
		v.Field("min_quantity", t.MinQuantity).MinInt(2, internal.ErrCodeValidationFailed)
		v.Field("unit_price_cents", t.UnitPriceCents).MinInt(1, internal.ErrCodeValidationFailed)
		if seen[t.MinQuantity] {
			return internal.NewValidationFieldError("min_quantity", "duplicate tier quantity", internal.ErrCodeValidationFailed)
		}
		seen[t.MinQuantity] = true
	}
	return errOrNil(v.Validate())
}

// AdjustInventoryDTO applies a signed delta to quantity on hand. A nil
// ReorderLevel keeps the current threshold.
type AdjustInventoryDTO struct {
	Delta        int64  `json:"delta"`
	ReorderLevel *int64 `json:"reorder_level,omitempty"`
}

func (dto AdjustInventoryDTO) Validate() error {
	if dto.Delta == 0 && dto.ReorderLevel == nil {
		return internal.NewValidationFieldError("delta", "adjustment must change quantity or reorder level", internal.ErrCodeValidationFailed)
	}
	if dto.ReorderLevel != nil && *dto.ReorderLevel < 0 {
		return internal.NewValidationFieldError("reorder_level", "reorder_level must not be negative", internal.ErrCodeValidationFailed)
	}
	return nil
}

// PriceQuote is the response to a PriceFor lookup.
type PriceQuote struct {
	ProductID      int64  `json:"product_id"`
	Quantity       int64  `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	TotalCents     int64  `json:"total_cents"`
	Currency       string `json:"currency"`
}

// ProductResponse pairs a product with its category and inventory state.
type ProductResponse struct {
	*Product
	Category  *Category  `json:"category,omitempty"`
	Inventory *Inventory `json:"inventory,omitempty"`
}

// ListFilter narrows List results.
type ListFilter struct {
	CategoryID int64
	Search     string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// errOrNil keeps the typed-nil *AppError out of the error interface.
func errOrNil(err *internal.AppError) error {
	if err != nil {
		return err
	}
	return nil
}
