package product

import (
	"time"

	"gorm.io/gorm"
)

type Product struct {
	ID             int64          `gorm:"primaryKey;autoIncrement"`
	SKU            string         `gorm:"column:sku;uniqueIndex"`
	Name           string         `gorm:"column:name"`
	Description    string         `gorm:"column:description"`
	CategoryID     int64          `gorm:"column:category_id;index"`
	UnitPriceCents int64          `gorm:"column:unit_price_cents"`
	Currency       string         `gorm:"column:currency"`
	IsActive       bool           `gorm:"column:is_active"`
	CreatedBy      int64          `gorm:"column:created_by"`
	UpdatedBy      int64          `gorm:"column:updated_by"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Product) TableName() string {
	return "products"
}

type Category struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"column:name;uniqueIndex"`
	Description string    `gorm:"column:description"`
	IsActive    bool      `gorm:"column:is_active"`
	CreatedAt   time.Time `gorm:"column:created_at"`
	UpdatedAt   time.Time `gorm:"column:updated_at"`
}

func (Category) TableName() string {
	return "product_categories"
}

type PriceTier struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ProductID      int64     `gorm:"column:product_id;index"`
	MinQuantity    int64     `gorm:"column:min_quantity"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (PriceTier) TableName() string {
	return "product_price_tiers"
}

type Inventory struct {
	ProductID      int64     `gorm:"primaryKey;column:product_id"`
	QuantityOnHand int64     `gorm:"column:quantity_on_hand"`
	ReorderLevel   int64     `gorm:"column:reorder_level"`
	UpdatedAt      time.Time `gorm:"column:updated_at"`
}

func (Inventory) TableName() string {
	return "product_inventory"
}
