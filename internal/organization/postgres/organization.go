package postgres

import (
	"time"

	orgDatamodel "github.com/krwhynot/pantry-crm/internal/core/datamodel/organization"
	"github.com/krwhynot/pantry-crm/internal/organization"
	"gorm.io/gorm"
)

// OrganizationRepository implements organization.RepositoryAPI using GORM.
type OrganizationRepository struct {
	db *gorm.DB
}

func NewOrganizationRepository(db *gorm.DB) organization.RepositoryAPI {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) Create(org *organization.Organization) error {
	dm := organization.ToDataModel(org)
	if err := r.db.Create(dm).Error; err != nil {
		return err
	}
	org.ID = dm.ID
	return nil
}

func (r *OrganizationRepository) GetByID(id int64) (*organization.Organization, error) {
	var dm orgDatamodel.Organization
	err := r.db.Where("id = ?", id).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, organization.ErrNotFound
		}
		return nil, err
	}
	return organization.FromDataModel(&dm), nil
}

func (r *OrganizationRepository) List(filter organization.ListFilter) ([]*organization.Organization, error) {
	var dms []*orgDatamodel.Organization

	q := r.db.Where("is_active = ?", true)
	if filter.Type != "" {
		q = q.Where("org_type = ?", filter.Type)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.Segment != "" {
		q = q.Where("segment = ?", filter.Segment)
	}
	if filter.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+organization.NormalizeName(filter.Search)+"%")
	}

	err := q.Order("priority ASC, name ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return organization.FromDataModelSlice(dms), nil
}

func (r *OrganizationRepository) Update(org *organization.Organization) error {
	org.UpdatedAt = time.Now()
	return r.db.Save(organization.ToDataModel(org)).Error
}

func (r *OrganizationRepository) SoftDelete(id int64, actor int64) error {
	now := time.Now()
	return r.db.Model(&orgDatamodel.Organization{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"deleted_at": now,
			"updated_by": actor,
			"updated_at": now,
		}).Error
}

func (r *OrganizationRepository) CountChildren(id int64) (int64, error) {
	var count int64
	err := r.db.Model(&orgDatamodel.Organization{}).
		Where("parent_id = ? AND is_active = ?", id, true).
		Count(&count).Error
	return count, err
}

func (r *OrganizationRepository) FindByNormalizedName(normalized string) ([]*organization.Organization, error) {
	var dms []*orgDatamodel.Organization
	err := r.db.Where("LOWER(name) = ?", normalized).Find(&dms).Error
	if err != nil {
		return nil, err
	}
	return organization.FromDataModelSlice(dms), nil
}

// ReassignRelated moves contacts, interactions and opportunities from one
// organization to another inside a single transaction.
func (r *OrganizationRepository) ReassignRelated(fromOrgID, toOrgID int64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Table("contacts").
			Where("organization_id = ?", fromOrgID).
			Update("organization_id", toOrgID).Error; err != nil {
			return err
		}
		if err := tx.Table("interactions").
			Where("organization_id = ?", fromOrgID).
			Update("organization_id", toOrgID).Error; err != nil {
			return err
		}
		if err := tx.Table("opportunities").
			Where("organization_id = ?", fromOrgID).
			Update("organization_id", toOrgID).Error; err != nil {
			return err
		}
		return tx.Table("organizations").
			Where("parent_id = ?", fromOrgID).
			Update("parent_id", toOrgID).Error
	})
}
