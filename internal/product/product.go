package product

import (
	"strings"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	productDatamodel "github.com/krwhynot/pantry-crm/internal/core/datamodel/product"
)

// Domain aliases for the shared sentinels.
var (
	ErrNotFound         = internal.ErrProductNotFound
	ErrDuplicateSKU     = internal.ErrDuplicateSKU
	ErrCategoryNotFound = internal.ErrCategoryNotFound
	ErrNegativeStock    = internal.ErrNegativeStock
)

const DefaultCurrency = "USD"

type Product struct {
	ID             int64      `json:"id"`
	SKU            string     `json:"sku"`
	Name           string     `json:"name"`
	Description    string     `json:"description,omitempty"`
	CategoryID     int64      `json:"category_id"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Currency       string     `json:"currency"`
	IsActive       bool       `json:"is_active"`
	CreatedBy      int64      `json:"created_by"`
	UpdatedBy      int64      `json:"updated_by"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	DeletedAt      *time.Time `json:"deleted_at,omitempty"`
}

func (p *Product) Deactivate(actor int64) {
	now := time.Now()
	p.IsActive = false
	p.UpdatedBy = actor
	p.UpdatedAt = now
	p.DeletedAt = &now
}

type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PriceTier grants a lower unit price at or above MinQuantity. The tier with
// the highest MinQuantity not exceeding the requested quantity wins.
type PriceTier struct {
	ID             int64     `json:"id"`
	ProductID      int64     `json:"product_id"`
	MinQuantity    int64     `json:"min_quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	CreatedAt      time.Time `json:"created_at"`
}

type Inventory struct {
	ProductID      int64     `json:"product_id"`
	QuantityOnHand int64     `json:"quantity_on_hand"`
	ReorderLevel   int64     `json:"reorder_level"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// LowStock reports whether quantity on hand has fallen to the reorder level.
func (i *Inventory) LowStock() bool {
	return i.QuantityOnHand <= i.ReorderLevel
}

// NormalizeSKU is the canonical form used for uniqueness: uppercased with
// surrounding whitespace stripped.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// BestPrice resolves the unit price for a quantity against the product's
// tiers. Tiers whose MinQuantity exceeds the quantity are ignored; among the
// rest the highest MinQuantity applies. With no applicable tier the base
// price stands.
func BestPrice(p *Product, tiers []*PriceTier, quantity int64) int64 {
	price := p.UnitPriceCents
	bestMin := int64(0)
	for _, t := range tiers {
		if t.MinQuantity <= quantity && t.MinQuantity > bestMin {
			bestMin = t.MinQuantity
			price = t.UnitPriceCents
		}
	}
	return price
}

func ToDataModel(p *Product) *productDatamodel.Product {
	dm := &productDatamodel.Product{
		ID:             p.ID,
		SKU:            p.SKU,
		Name:           p.Name,
		Description:    p.Description,
		CategoryID:     p.CategoryID,
		UnitPriceCents: p.UnitPriceCents,
		Currency:       p.Currency,
		IsActive:       p.IsActive,
		CreatedBy:      p.CreatedBy,
		UpdatedBy:      p.UpdatedBy,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if p.DeletedAt != nil {
		dm.DeletedAt.Time = *p.DeletedAt
		dm.DeletedAt.Valid = true
	}
	return dm
}

func FromDataModel(dm *productDatamodel.Product) *Product {
	p := &Product{
		ID:             dm.ID,
		SKU:            dm.SKU,
		Name:           dm.Name,
		Description:    dm.Description,
		CategoryID:     dm.CategoryID,
		UnitPriceCents: dm.UnitPriceCents,
		Currency:       dm.Currency,
		IsActive:       dm.IsActive,
		CreatedBy:      dm.CreatedBy,
		UpdatedBy:      dm.UpdatedBy,
		CreatedAt:      dm.CreatedAt,
		UpdatedAt:      dm.UpdatedAt,
	}
	if dm.DeletedAt.Valid {
		t := dm.DeletedAt.Time
		p.DeletedAt = &t
	}
	return p
}

func FromDataModelSlice(dms []*productDatamodel.Product) []*Product {
	result := make([]*Product, len(dms))
	for i, dm := range dms {
		result[i] = FromDataModel(dm)
	}
	return result
}

func CategoryToDataModel(c *Category) *productDatamodel.Category {
	return &productDatamodel.Category{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		IsActive:    c.IsActive,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func CategoryFromDataModel(dm *productDatamodel.Category) *Category {
	return &Category{
		ID:          dm.ID,
		Name:        dm.Name,
		Description: dm.Description,
		IsActive:    dm.IsActive,
		CreatedAt:   dm.CreatedAt,
		UpdatedAt:   dm.UpdatedAt,
	}
}

func TierFromDataModel(dm *productDatamodel.PriceTier) *PriceTier {
	return &PriceTier{
		ID:             dm.ID,
		ProductID:      dm.ProductID,
		MinQuantity:    dm.MinQuantity,
		UnitPriceCents: dm.UnitPriceCents,
		CreatedAt:      dm.CreatedAt,
	}
}

func TierToDataModel(t *PriceTier) *productDatamodel.PriceTier {
	return &productDatamodel.PriceTier{
		ID:             t.ID,
		ProductID:      t.ProductID,
		MinQuantity:    t.MinQuantity,
		UnitPriceCents: t.UnitPriceCents,
		CreatedAt:      t.CreatedAt,
	}
}

func InventoryFromDataModel(dm *productDatamodel.Inventory) *Inventory {
	return &Inventory{
		ProductID:      dm.ProductID,
		QuantityOnHand: dm.QuantityOnHand,
		ReorderLevel:   dm.ReorderLevel,
		UpdatedAt:      dm.UpdatedAt,
	}
}
