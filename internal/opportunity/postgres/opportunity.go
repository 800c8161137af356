package postgres

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/krwhynot/pantry-crm/internal/opportunity"
)

type OpportunityRepository struct {
	db *gorm.DB
}

func NewOpportunityRepository(db *gorm.DB) *OpportunityRepository {
	return &OpportunityRepository{db: db}
}

func (r *OpportunityRepository) Create(o *opportunity.Opportunity) error {
	return r.db.Create(o).Error
}

func (r *OpportunityRepository) GetByID(id int64) (*opportunity.Opportunity, error) {
	var o opportunity.Opportunity
	if err := r.db.Where("id = ? AND is_active = ?", id, true).First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, opportunity.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (r *OpportunityRepository) List(filter opportunity.ListFilter) ([]*opportunity.Opportunity, error) {
	query := r.db.Model(&opportunity.Opportunity{}).Where("is_active = ?", true)

	if filter.OrganizationID > 0 {
		query = query.Where("organization_id = ?", filter.OrganizationID)
	}
	if filter.Stage != "" {
		query = query.Where("stage = ?", filter.Stage)
	}
	if filter.OwnerID > 0 {
		query = query.Where("created_by = ?", filter.OwnerID)
	}
	if filter.OpenOnly {
		query = query.Where("stage NOT IN ?", []string{opportunity.StageClosedWon, opportunity.StageClosedLost})
	}

	var opportunities []*opportunity.Opportunity
	err := query.
		Order("expected_close_date ASC NULLS LAST, value_cents DESC").
		Limit(filter.Limit).
		Offset(filter.Offset).
		Find(&opportunities).Error
	if err != nil {
		return nil, err
	}
	return opportunities, nil
}

func (r *OpportunityRepository) Update(o *opportunity.Opportunity) error {
	return r.db.Save(o).Error
}

func (r *OpportunityRepository) SoftDelete(id int64, actor int64) error {
	now := time.Now()
	result := r.db.Model(&opportunity.Opportunity{}).
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
		return opportunity.ErrNotFound
	}
	return nil
}

// ChangeStage persists the stage move and its history row atomically.
func (r *OpportunityRepository) ChangeStage(o *opportunity.Opportunity, history *opportunity.StageHistory) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(o).Error; err != nil {
			return err
		}
		return tx.Create(history).Error
	})
}

func (r *OpportunityRepository) StageHistory(opportunityID int64) ([]*opportunity.StageHistory, error) {
	var history []*opportunity.StageHistory
	err := r.db.
		Where("opportunity_id = ?", opportunityID).
		Order("changed_at ASC, id ASC").
		Find(&history).Error
	if err != nil {
		return nil, err
	}
	return history, nil
}
