package organization

import (
	"time"

	"gorm.io/gorm"
)

// Organization is the persistence model for the organizations table.
type Organization struct {
	ID        int64          `gorm:"primaryKey"`
	Name      string         `gorm:"column:name;not null"`
	Type      string         `gorm:"column:org_type;not null"`
	Priority  string         `gorm:"column:priority;not null;default:C"`
	Segment   string         `gorm:"column:segment"`
	ParentID  *int64         `gorm:"column:parent_id"`
	Notes     string         `gorm:"column:notes"`
	IsActive  bool           `gorm:"column:is_active;default:true"`
	CreatedBy int64          `gorm:"column:created_by"`
	UpdatedBy int64          `gorm:"column:updated_by"`
	CreatedAt time.Time      `gorm:"column:created_at"`
	UpdatedAt time.Time      `gorm:"column:updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"column:deleted_at;index"`
}

func (Organization) TableName() string {
	return "organizations"
}
