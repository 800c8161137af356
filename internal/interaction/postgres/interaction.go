package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal/interaction"
)

type InteractionRepository struct {
	db *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{db: db}
}

func (r *InteractionRepository) Create(i *interaction.Interaction) error {
	return r.db.Create(i).Error
}

func (r *InteractionRepository) GetByID(id int64) (*interaction.Interaction, error) {
	var i interaction.Interaction
	if err := r.db.Where("id = ? AND is_active = ?", id, true).First(&i).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, interaction.ErrNotFound
		}
		return nil, err
	}
	return &i, nil
}

func (r *InteractionRepository) List(filter interaction.ListFilter) ([]*interaction.Interaction, error) {
	query := r.db.Model(&interaction.Interaction{}).Where("is_active = ?", true)

	if filter.OrganizationID > 0 {
		query = query.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.ContactID > 0 {
		query = query.Where("contact_id = ?", filter.ContactID)
	}
	if filter.OpportunityID > 0 {
		query = query.Where("opportunity_id = ?", filter.OpportunityID)
	}
	if filter.OwnerID > 0 {
		query = query.Where("created_by = ?", filter.OwnerID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("interaction_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("interaction_at < ?", *filter.To)
	}

	var interactions []*interaction.Interaction
	err := query.
		Order("interaction_at DESC, id DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&interactions).Error
	if err != nil {
		return nil, err
	}
	return interactions, nil
}

func (r *InteractionRepository) Update(i *interaction.Interaction) error {
	return r.db.Save(i).Error
}

func (r *InteractionRepository) SoftDelete(id int64, actor int64) error {
	now := time.Now()
	result := r.db.Model(&interaction.Interaction{}).
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
		return interaction.ErrNotFound
	}
	return nil
}
