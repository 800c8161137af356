package postgres

import (
	"time"

	productDatamodel "github.com/krwhynot/pantry-crm/internal/core/datamodel/product"
	"github.com/krwhynot/pantry-crm/internal/product"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRepository implements product.RepositoryAPI using GORM.
type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) product.RepositoryAPI {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) Create(p *product.Product) error {
	dm := product.ToDataModel(p)
	if err := r.db.Create(dm).Error; err != nil {
		return err
	}
	p.ID = dm.ID
	return nil
}

func (r *ProductRepository) GetByID(id int64) (*product.Product, error) {
	var dm productDatamodel.Product
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	return product.FromDataModel(&dm), nil
}

func (r *ProductRepository) GetBySKU(sku string) (*product.Product, error) {
	var dm productDatamodel.Product
	err := r.db.Where("sku = ?", sku).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	return product.FromDataModel(&dm), nil
}

func (r *ProductRepository) List(filter product.ListFilter) ([]*product.Product, error) {
	var dms []*productDatamodel.Product

	q := r.db.Model(&productDatamodel.Product{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if filter.CategoryID != 0 {
		q = q.Where("category_id = ?", filter.CategoryID)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		q = q.Where("name ILIKE ? OR sku ILIKE ?", like, like)
	}

	err := q.Order("name ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return product.FromDataModelSlice(dms), nil
}

func (r *ProductRepository) Update(p *product.Product) error {
	p.UpdatedAt = time.Now()
	return r.db.Save(product.ToDataModel(p)).Error
}

func (r *ProductRepository) SoftDelete(id int64, actor int64) error {
	now := time.Now()
	return r.db.Model(&productDatamodel.Product{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"deleted_at": now,
			"updated_by": actor,
			"updated_at": now,
		}).Error
}

func (r *ProductRepository) CreateCategory(c *product.Category) error {
	dm := product.CategoryToDataModel(c)
	if err := r.db.Create(dm).Error; err != nil {
		return err
	}
	c.ID = dm.ID
	return nil
}

func (r *ProductRepository) GetCategory(id int64) (*product.Category, error) {
	var dm productDatamodel.Category
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, product.ErrCategoryNotFound
		}
		return nil, err
	}
	return product.CategoryFromDataModel(&dm), nil
}

func (r *ProductRepository) ListCategories(activeOnly bool) ([]*product.Category, error) {
	var dms []*productDatamodel.Category

	q := r.db.Model(&productDatamodel.Category{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	if err := q.Order("name ASC").Find(&dms).Error; err != nil {
		return nil, err
	}

	categories := make([]*product.Category, len(dms))
	for i, dm := range dms {
		categories[i] = product.CategoryFromDataModel(dm)
	}
	return categories, nil
}

func (r *ProductRepository) UpdateCategory(c *product.Category) error {
	c.UpdatedAt = time.Now()
	return r.db.Save(product.CategoryToDataModel(c)).Error
}

func (r *ProductRepository) TiersForProduct(productID int64) ([]*product.PriceTier, error) {
	var dms []*productDatamodel.PriceTier
	err := r.db.Where("product_id = ?", productID).
		Order("min_quantity ASC").
		Find(&dms).Error
	if err != nil {
		return nil, err
	}

	tiers := make([]*product.PriceTier, len(dms))
	for i, dm := range dms {
		tiers[i] = product.TierFromDataModel(dm)
	}
	return tiers, nil
}

// ReplaceTiers swaps the product's tiers wholesale inside one transaction.
func (r *ProductRepository) ReplaceTiers(productID int64, tiers []*product.PriceTier) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", productID).
			Delete(&productDatamodel.PriceTier{}).Error; err != nil {
			return err
		}
		for _, t := range tiers {
			dm := product.TierToDataModel(t)
			if err := tx.Create(dm).Error; err != nil {
				return err
			}
			t.ID = dm.ID
		}
		return nil
	})
}

func (r *ProductRepository) GetInventory(productID int64) (*product.Inventory, error) {
	var dm productDatamodel.Inventory
	err := r.db.Where("product_id = ?", productID).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	return product.InventoryFromDataModel(&dm), nil
}

func (r *ProductRepository) UpsertInventory(inv *product.Inventory) error {
	dm := &productDatamodel.Inventory{
		ProductID:      inv.ProductID,
		QuantityOnHand: inv.QuantityOnHand,
		ReorderLevel:   inv.ReorderLevel,
		UpdatedAt:      inv.UpdatedAt,
	}
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "product_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"quantity_on_hand", "reorder_level", "updated_at"}),
	}).Create(dm).Error
}

func (r *ProductRepository) ListLowStock(limit int) ([]*product.Inventory, error) {
	var dms []*productDatamodel.Inventory
	err := r.db.Where("quantity_on_hand <= reorder_level").
		Order("quantity_on_hand ASC").
		Limit(limit).
		Find(&dms).Error
	if err != nil {
		return nil, err
	}

	records := make([]*product.Inventory, len(dms))
	for i, dm := range dms {
		records[i] = product.InventoryFromDataModel(dm)
	}
	return records, nil
}
