package product

import (
	"log/slog"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
)

// RepositoryAPI defines the data access methods for the product catalog.
type RepositoryAPI interface {
	Create(p *Product) error
	GetByID(id int64) (*Product, error)
	GetBySKU(sku string) (*Product, error)
	List(filter ListFilter) ([]*Product, error)
	Update(p *Product) error
	SoftDelete(id int64, actor int64) error

	CreateCategory(c *Category) error
	GetCategory(id int64) (*Category, error)
	ListCategories(activeOnly bool) ([]*Category, error)
	UpdateCategory(c *Category) error

	TiersForProduct(productID int64) ([]*PriceTier, error)
	ReplaceTiers(productID int64, tiers []*PriceTier) error

	GetInventory(productID int64) (*Inventory, error)
	UpsertInventory(inv *Inventory) error
	ListLowStock(limit int) ([]*Inventory, error)
}

// Service handles product catalog business logic.
type Service struct {
	repo   RepositoryAPI
	logger *slog.Logger
}

func NewService(repo RepositoryAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

func (s *Service) CreateProduct(dto CreateProductDTO, actor int64) (*Product, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("product validation failed", "error", err, "actor", actor)
		return nil, err
	}

	sku := NormalizeSKU(dto.SKU)
	if existing, err := s.repo.GetBySKU(sku); err == nil && existing != nil {
		s.logger.Warn("rejected duplicate SKU", "sku", sku, "existing_id", existing.ID)
		return nil, ErrDuplicateSKU
	}

	category, err := s.repo.GetCategory(dto.CategoryID)
	if err != nil {
		return nil, ErrCategoryNotFound
	}
	if !category.IsActive {
		return nil, ErrCategoryNotFound
	}

	currency := dto.Currency
	if currency == "" {
		currency = DefaultCurrency
	}

	now := time.Now()
	p := &Product{
		SKU:            sku,
		Name:           dto.Name,
		Description:    dto.Description,
		CategoryID:     dto.CategoryID,
		UnitPriceCents: dto.UnitPriceCents,
		Currency:       currency,
		IsActive:       true,
		CreatedBy:      actor,
		UpdatedBy:      actor,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.repo.Create(p); err != nil {
		s.logger.Error("failed to create product", "error", err, "sku", sku)
		return nil, internal.NewInternalError("failed to create product", err)
	}

	s.logger.Info("product created",
		"product_id", p.ID,
		"sku", p.SKU,
		"category_id", p.CategoryID,
		"actor", actor)

	return p, nil
}

func (s *Service) GetProduct(id int64) (*ProductResponse, error) {
	p, err := s.repo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get product", "error", err, "product_id", id)
		return nil, ErrNotFound
	}

	resp := &ProductResponse{Product: p}

	if category, err := s.repo.GetCategory(p.CategoryID); err == nil {
		resp.Category = category
	}
	if inv, err := s.repo.GetInventory(id); err == nil {
		resp.Inventory = inv
	}

	return resp, nil
}

func (s *Service) ListProducts(filter ListFilter) ([]*Product, error) {
	if filter.Limit <= 0 || filter.Limit > 100 {
		filter.Limit = 20
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, err := s.repo.List(filter)
	if err != nil {
		s.logger.Error("failed to list products", "error", err)
		return nil, internal.NewInternalError("failed to list products", err)
	}
	return products, nil
}

func (s *Service) UpdateProduct(id int64, dto UpdateProductDTO, actor int64) (*Product, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	p, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	if dto.CategoryID != nil && *dto.CategoryID != p.CategoryID {
		category, err := s.repo.GetCategory(*dto.CategoryID)
		if err != nil || !category.IsActive {
			return nil, ErrCategoryNotFound
		}
		p.CategoryID = *dto.CategoryID
	}
	if dto.Name != nil {
		p.Name = *dto.Name
	}
	if dto.Description != nil {
		p.Description = *dto.Description
	}
	if dto.UnitPriceCents != nil {
		p.UnitPriceCents = *dto.UnitPriceCents
	}
	if dto.Currency != nil {
		p.Currency = *dto.Currency
	}
	p.UpdatedBy = actor
	p.UpdatedAt = time.Now()

	if err := s.repo.Update(p); err != nil {
		s.logger.Error("failed to update product", "error", err, "product_id", id)
		return nil, internal.NewInternalError("failed to update product", err)
	}

	return p, nil
}

func (s *Service) DeleteProduct(id int64, actor int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return ErrNotFound
	}

	if err := s.repo.SoftDelete(id, actor); err != nil {
		s.logger.Error("failed to delete product", "error", err, "product_id", id)
		return internal.NewInternalError("failed to delete product", err)
	}

	s.logger.Info("product soft-deleted", "product_id", id, "actor", actor)
	return nil
}

func (s *Service) CreateCategory(dto CreateCategoryDTO) (*Category, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	now := time.Now()
	c := &Category{
		Name:        dto.Name,
		Description: dto.Description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.CreateCategory(c); err != nil {
		s.logger.Error("failed to create category", "error", err, "name", dto.Name)
		return nil, internal.NewInternalError("failed to create category", err)
	}

	s.logger.Info("product category created", "category_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *Service) ListCategories(activeOnly bool) ([]*Category, error) {
	categories, err := s.repo.ListCategories(activeOnly)
	if err != nil {
		s.logger.Error("failed to list categories", "error", err)
		return nil, internal.NewInternalError("failed to list categories", err)
	}
	return categories, nil
}

func (s *Service) DeactivateCategory(id int64) (*Category, error) {
	c, err := s.repo.GetCategory(id)
	if err != nil {
		return nil, ErrCategoryNotFound
	}

	c.IsActive = false
	c.UpdatedAt = time.Now()

	if err := s.repo.UpdateCategory(c); err != nil {
		s.logger.Error("failed to deactivate category", "error", err, "category_id", id)
		return nil, internal.NewInternalError("failed to deactivate category", err)
	}
	return c, nil
}

// SetPriceTiers replaces the product's quantity-break tiers in one shot.
func (s *Service) SetPriceTiers(productID int64, dto SetPriceTiersDTO) ([]*PriceTier, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(productID); err != nil {
		return nil, ErrNotFound
	}

	now := time.Now()
	tiers := make([]*PriceTier, len(dto.Tiers))
	for i, t := range dto.Tiers {
		tiers[i] = &PriceTier{
			ProductID:      productID,
			MinQuantity:    t.MinQuantity,
			UnitPriceCents: t.UnitPriceCents,
			CreatedAt:      now,
		}
	}

	if err := s.repo.ReplaceTiers(productID, tiers); err != nil {
		s.logger.Error("failed to replace price tiers", "error", err, "product_id", productID)
		return nil, internal.NewInternalError("failed to replace price tiers", err)
	}

	s.logger.Info("price tiers replaced", "product_id", productID, "tiers", len(tiers))
	return tiers, nil
}

func (s *Service) GetPriceTiers(productID int64) ([]*PriceTier, error) {
	if _, err := s.repo.GetByID(productID); err != nil {
		return nil, ErrNotFound
	}

	tiers, err := s.repo.TiersForProduct(productID)
	if err != nil {
		s.logger.Error("failed to load price tiers", "error", err, "product_id", productID)
		return nil, internal.NewInternalError("failed to load price tiers", err)
	}
	return tiers, nil
}

// PriceFor quotes the unit price for a quantity, applying the best matching
// tier or falling back to the base price.
func (s *Service) PriceFor(productID int64, quantity int64) (*PriceQuote, error) {
	if quantity < 1 {
		return nil, internal.NewValidationFieldError("quantity", "quantity must be at least 1", internal.ErrCodeValidationFailed)
	}

	p, err := s.repo.GetByID(productID)
	if err != nil {
		return nil, ErrNotFound
	}

	tiers, err := s.repo.TiersForProduct(productID)
	if err != nil {
		s.logger.Error("failed to load price tiers", "error", err, "product_id", productID)
		return nil, internal.NewInternalError("failed to load price tiers", err)
	}

	unit := BestPrice(p, tiers, quantity)
	return &PriceQuote{
		ProductID:      productID,
		Quantity:       quantity,
		UnitPriceCents: unit,
		TotalCents:     unit * quantity,
		Currency:       p.Currency,
	}, nil
}

func (s *Service) GetInventory(productID int64) (*Inventory, error) {
	if _, err := s.repo.GetByID(productID); err != nil {
		return nil, ErrNotFound
	}

	inv, err := s.repo.GetInventory(productID)
	if err != nil {
		// no record yet reads as an empty shelf
		return &Inventory{ProductID: productID, UpdatedAt: time.Now()}, nil
	}
	return inv, nil
}

// AdjustInventory applies a signed delta to quantity on hand. The adjustment
// is rejected rather than clamped when it would drive the quantity negative.
func (s *Service) AdjustInventory(productID int64, dto AdjustInventoryDTO) (*Inventory, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetByID(productID); err != nil {
		return nil, ErrNotFound
	}

	inv, err := s.repo.GetInventory(productID)
	if err != nil {
		inv = &Inventory{ProductID: productID}
	}

	next := inv.QuantityOnHand + dto.Delta
	if next < 0 {
		s.logger.Warn("rejected negative inventory adjustment",
			"product_id", productID,
			"on_hand", inv.QuantityOnHand,
			"delta", dto.Delta)
		return nil, ErrNegativeStock
	}

	inv.QuantityOnHand = next
	if dto.ReorderLevel != nil {
		inv.ReorderLevel = *dto.ReorderLevel
	}
	inv.UpdatedAt = time.Now()

	if err := s.repo.UpsertInventory(inv); err != nil {
		s.logger.Error("failed to adjust inventory", "error", err, "product_id", productID)
		return nil, internal.NewInternalError("failed to adjust inventory", err)
	}

	s.logger.Info("inventory adjusted",
		"product_id", productID,
		"delta", dto.Delta,
		"on_hand", inv.QuantityOnHand)

	return inv, nil
}

// ListLowStock returns inventory records at or below their reorder level.
func (s *Service) ListLowStock(limit int) ([]*Inventory, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	records, err := s.repo.ListLowStock(limit)
	if err != nil {
		s.logger.Error("failed to list low stock", "error", err)
		return nil, internal.NewInternalError("failed to list low stock", err)
	}
	return records, nil
}
