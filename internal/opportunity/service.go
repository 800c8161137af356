package opportunity

import (
	"context"
	"log/slog"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/core/events"
	"github.com/krwhynot/pantry-crm/internal/organization"
)

type RepositoryAPI interface {
	Create(o *Opportunity) error
	GetByID(id int64) (*Opportunity, error)
	List(filter ListFilter) ([]*Opportunity, error)
	Update(o *Opportunity) error
	SoftDelete(id int64, actor int64) error
	ChangeStage(o *Opportunity, history *StageHistory) error
	StageHistory(opportunityID int64) ([]*StageHistory, error)
}

// OrganizationAPI is the slice of the organization service opportunities need.
type OrganizationAPI interface {
	GetOrganization(id int64) (*organization.OrganizationResponse, error)
}

// ContactVerifier confirms a contact belongs to an organization before it is
// attached to an opportunity.
type ContactVerifier interface {
	VerifyInOrganization(contactID, orgID int64) error
}

// EventPublisher decouples the service from the event bus.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo     RepositoryAPI
	orgs     OrganizationAPI
	contacts ContactVerifier
	bus      EventPublisher
	logger   *slog.Logger
}

func NewService(repo RepositoryAPI, orgs OrganizationAPI, contacts ContactVerifier, bus EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		orgs:     orgs,
		contacts: contacts,
		bus:      bus,
		logger:   logger,
	}
}

// CreateOpportunity opens a deal against an organization. The stage defaults
// to prospecting and the probability always comes from the stage table.
func (s *Service) CreateOpportunity(dto CreateOpportunityDTO, actor int64) (*Opportunity, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	org, err := s.orgs.GetOrganization(dto.OrganizationID)
	if err != nil {
		return nil, organization.ErrNotFound
	}
	if !org.IsActive {
		return nil, organization.ErrNotFound
	}

	if dto.ContactID != nil {
		if err := s.contacts.VerifyInOrganization(*dto.ContactID, dto.OrganizationID); err != nil {
			return nil, err
		}
	}

	stage := dto.Stage
	if stage == "" {
		stage = StageProspecting
	}
	probability, ok := ProbabilityForStage(stage)
	if !ok {
		return nil, ErrInvalidStage
	}

	now := time.Now()
	o := &Opportunity{
		OrganizationID:    dto.OrganizationID,
		ContactID:         dto.ContactID,
		Name:              dto.Name,
		Stage:             stage,
		Probability:       probability,
		ValueCents:        dto.ValueCents,
		ExpectedCloseDate: dto.ExpectedCloseDate,
		Notes:             dto.Notes,
		IsActive:          true,
		CreatedBy:         actor,
		UpdatedBy:         actor,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if IsClosedStage(stage) {
		o.ActualCloseDate = &now
	}

	if err := s.repo.Create(o); err != nil {
		s.logger.Error("CreateOpportunity: failed to persist", "error", err, "organization_id", dto.OrganizationID)
		return nil, internal.NewInternalError("failed to create opportunity", err)
	}

	s.logger.Info("opportunity created",
		"opportunity_id", o.ID,
		"organization_id", o.OrganizationID,
		"stage", o.Stage,
		"created_by", actor)
	return o, nil
}

func (s *Service) GetOpportunity(id int64) (*Opportunity, error) {
	o, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	return o, nil
}

func (s *Service) ListOpportunities(filter ListFilter) ([]*Opportunity, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	opportunities, err := s.repo.List(filter)
	if err != nil {
		s.logger.Error("ListOpportunities: failed", "error", err)
		return nil, internal.NewInternalError("failed to list opportunities", err)
	}
	return opportunities, nil
}

func (s *Service) UpdateOpportunity(id int64, dto UpdateOpportunityDTO, actor int64) (*Opportunity, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if o.IsClosed() {
		return nil, ErrClosed
	}

	if dto.ContactID != nil {
		if err := s.contacts.VerifyInOrganization(*dto.ContactID, o.OrganizationID); err != nil {
			return nil, err
		}
		o.ContactID = dto.ContactID
	}
	if dto.Name != nil {
		o.Name = *dto.Name
	}
	if dto.ValueCents != nil {
		o.ValueCents = *dto.ValueCents
	}
	if dto.ExpectedCloseDate != nil {
		o.ExpectedCloseDate = dto.ExpectedCloseDate
	}
	if dto.Notes != nil {
		o.Notes = *dto.Notes
	}
	o.UpdatedBy = actor
	o.UpdatedAt = time.Now()

	if err := s.repo.Update(o); err != nil {
		s.logger.Error("UpdateOpportunity: failed", "error", err, "opportunity_id", id)
		return nil, internal.NewInternalError("failed to update opportunity", err)
	}
	return o, nil
}

// ChangeStage moves the deal to a new stage. The probability is taken from
// the stage table, a history row is appended in the same transaction, and
// closing stages stamp the actual close date. Closed deals never move again.
func (s *Service) ChangeStage(id int64, dto ChangeStageDTO, actor int64) (*Opportunity, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if o.IsClosed() {
		return nil, ErrClosed
	}

	probability, ok := ProbabilityForStage(dto.Stage)
	if !ok {
		return nil, ErrInvalidStage
	}

	if o.Stage == dto.Stage {
		return o, nil
	}

	now := time.Now()
	fromStage := o.Stage

	o.Stage = dto.Stage
	o.Probability = probability
	o.UpdatedBy = actor
	o.UpdatedAt = now
	if IsClosedStage(dto.Stage) {
		o.ActualCloseDate = &now
	}

	history := &StageHistory{
		OpportunityID: o.ID,
		FromStage:     fromStage,
		ToStage:       dto.Stage,
		Reason:        dto.Reason,
		Probability:   probability,
		ChangedBy:     actor,
		ChangedAt:     now,
	}

	if err := s.repo.ChangeStage(o, history); err != nil {
		s.logger.Error("ChangeStage: failed", "error", err, "opportunity_id", id)
		return nil, internal.NewInternalError("failed to change stage", err)
	}

	s.logger.Info("opportunity stage changed",
		"opportunity_id", o.ID,
		"from_stage", fromStage,
		"to_stage", o.Stage,
		"probability", probability,
		"changed_by", actor)

	if s.bus != nil {
		ctx := context.Background()
		_ = s.bus.Publish(ctx, events.NewOpportunityStageChangedEvent(o.ID, fromStage, o.Stage, probability, actor))
		if o.Stage == StageClosedWon {
			_ = s.bus.Publish(ctx, events.NewOpportunityWonEvent(o.ID, o.OrganizationID, o.ValueCents, actor))
		}
	}

	return o, nil
}

// GetStageHistory returns the transition log, oldest first.
func (s *Service) GetStageHistory(id int64) ([]*StageHistory, error) {
	if _, err := s.repo.GetByID(id); err != nil {
		return nil, ErrNotFound
	}

	history, err := s.repo.StageHistory(id)
	if err != nil {
		s.logger.Error("GetStageHistory: failed", "error", err, "opportunity_id", id)
		return nil, internal.NewInternalError("failed to load stage history", err)
	}
	return history, nil
}

func (s *Service) DeleteOpportunity(id int64, actor int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return ErrNotFound
	}

	if err := s.repo.SoftDelete(id, actor); err != nil {
		s.logger.Error("DeleteOpportunity: failed", "error", err, "opportunity_id", id)
		return internal.NewInternalError("failed to delete opportunity", err)
	}

	s.logger.Info("opportunity deleted", "opportunity_id", id, "deleted_by", actor)
	return nil
}

// VerifyInOrganization checks that an opportunity belongs to the given
// organization before another record links to it.
func (s *Service) VerifyInOrganization(opportunityID, orgID int64) error {
	o, err := s.repo.GetByID(opportunityID)
	if err != nil {
		return ErrNotFound
	}
	if o.OrganizationID != orgID {
		return internal.NewValidationError("opportunity does not belong to the organization", internal.ErrCodeValidationFailed)
	}
	return nil
}
