package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal/contact"
)

type ContactRepository struct {
	db *gorm.DB
}

func NewContactRepository(db *gorm.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(c *contact.Contact) error {
	return r.db.Create(c).Error
}

func (r *ContactRepository) GetByID(id int64) (*contact.Contact, error) {
	var c contact.Contact
	if err := r.db.Where("id = ? AND is_active = ?", id, true).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contact.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) List(filter contact.ListFilter) ([]*contact.Contact, error) {
	query := r.db.Model(&contact.Contact{}).Where("is_active = ?", true)

	if filter.OrganizationID > 0 {
		query = query.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.PrimaryOnly {
		query = query.Where("is_primary = ?", true)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("first_name LIKE ? OR last_name LIKE ? OR email LIKE ?", pattern, pattern, pattern)
	}

	var contacts []*contact.Contact
	err := query.
		Order("is_primary DESC, last_name ASC, first_name ASC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

func (r *ContactRepository) Update(c *contact.Contact) error {
	return r.db.Save(c).Error
}

func (r *ContactRepository) SoftDelete(id int64, actor int64) error {
	now := time.Now()
	result := r.db.Model(&contact.Contact{}).
		Where("id = ? AND is_active = ?", id, true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"deleted_at": now,
			"updated_by": actor,
			"updated_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return contact.ErrNotFound
	}
	return nil
}

func (r *ContactRepository) PrimaryForOrganization(orgID int64) (*contact.Contact, error) {
	var c contact.Contact
	err := r.db.
		Where("organization_id = ? AND is_primary = ? AND is_active = ?", orgID, true, true).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, contact.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// PromotePrimary demotes any current primary and promotes the given contact
// in one transaction.
func (r *ContactRepository) PromotePrimary(orgID, contactID int64, actor int64) error {
	now := time.Now()
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&contact.Contact{}).
			Where("organization_id = ? AND is_primary = ? AND id <> ?", orgID, true, contactID).
			Updates(map[string]interface{}{
				"is_primary": false,
				"updated_by": actor,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		result := tx.Model(&contact.Contact{}).
			Where("id = ? AND organization_id = ? AND is_active = ?", contactID, orgID, true).
			Updates(map[string]interface{}{
				"is_primary": true,
				"updated_by": actor,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return contact.ErrNotFound
		}
		return nil
	})
}
