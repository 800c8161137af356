package interaction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/contact"
	"github.com/krwhynot/pantry-crm/internal/core/events"
	"github.com/krwhynot/pantry-crm/internal/opportunity"
	"github.com/krwhynot/pantry-crm/internal/organization"
)

type RepositoryAPI interface {
	Create(i *Interaction) error
	GetByID(id int64) (*Interaction, error)
	List(filter ListFilter) ([]*Interaction, error)
	Update(i *Interaction) error
	SoftDelete(id int64, actor int64) error
}

type OrganizationAPI interface {
	GetOrganization(id int64) (*organization.OrganizationResponse, error)
}

type ContactAPI interface {
	GetContact(id int64) (*contact.Contact, error)
	VerifyInOrganization(contactID, orgID int64) error
}

type OpportunityAPI interface {
	GetOpportunity(id int64) (*opportunity.Opportunity, error)
	VerifyInOrganization(opportunityID, orgID int64) error
}

// ReminderScheduler queues the background reminder for a follow-up.
type ReminderScheduler interface {
	ScheduleFollowUpReminder(interactionID, userID int64, dueAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Service struct {
	repo          RepositoryAPI
	orgs          OrganizationAPI
	contacts      ContactAPI
	opportunities OpportunityAPI
	reminders     ReminderScheduler
	bus           EventPublisher
	logger        *slog.Logger
}

func NewService(repo RepositoryAPI, orgs OrganizationAPI, contacts ContactAPI, opportunities OpportunityAPI, reminders ReminderScheduler, bus EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:          repo,
		orgs:          orgs,
		contacts:      contacts,
		opportunities: opportunities,
		reminders:     reminders,
		bus:           bus,
		logger:        logger,
	}
}

// CreateInteraction records an activity against an organization. Linked
// contacts and opportunities must belong to the same organization. A
// follow-up schedules its reminder after the row is committed.
func (s *Service) CreateInteraction(dto CreateInteractionDTO, actor int64) (*Interaction, error) {
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
	if dto.OpportunityID != nil {
		if err := s.opportunities.VerifyInOrganization(*dto.OpportunityID, dto.OrganizationID); err != nil {
			return nil, err
		}
	}

	now := time.Now()
	interactionAt := now
	if dto.InteractionAt != nil {
		interactionAt = *dto.InteractionAt
	}

	i := &Interaction{
		OrganizationID:   dto.OrganizationID,
		ContactID:        dto.ContactID,
		OpportunityID:    dto.OpportunityID,
		Type:             dto.Type,
		Subject:          dto.Subject,
		Description:      dto.Description,
		Status:           StatusScheduled,
		InteractionAt:    interactionAt,
		DurationMinutes:  dto.DurationMinutes,
		FollowUpRequired: dto.FollowUpRequired,
		FollowUpDate:     dto.FollowUpDate,
		IsActive:         true,
		CreatedBy:        actor,
		UpdatedBy:        actor,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.repo.Create(i); err != nil {
		s.logger.Error("CreateInteraction: failed to persist", "error", err, "organization_id", dto.OrganizationID)
		return nil, internal.NewInternalError("failed to create interaction", err)
	}

	if i.FollowUpRequired && i.FollowUpDate != nil && s.reminders != nil {
		if err := s.reminders.ScheduleFollowUpReminder(i.ID, actor, *i.FollowUpDate); err != nil {
			s.logger.Warn("failed to schedule follow-up reminder", "error", err, "interaction_id", i.ID)
		} else if s.bus != nil {
			_ = s.bus.Publish(context.Background(), events.NewFollowUpScheduledEvent(i.ID, actor, *i.FollowUpDate))
		}
	}

	s.logger.Info("interaction created",
		"interaction_id", i.ID,
		"organization_id", i.OrganizationID,
		"type", i.Type,
		"created_by", actor)
	return i, nil
}

// GetInteraction returns the interaction with its linked records. The linked
// organization, contact and opportunity load concurrently; a failed side
// lookup leaves that field nil rather than failing the request.
func (s *Service) GetInteraction(id int64) (*InteractionDetail, error) {
	i, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}

	detail := &InteractionDetail{Interaction: i}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		org, err := s.orgs.GetOrganization(i.OrganizationID)
		if err != nil {
			s.logger.Warn("failed to enrich interaction with organization", "error", err, "interaction_id", i.ID)
			return
		}
		detail.Organization = org.ToSummary()
	}()

	if i.ContactID != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := s.contacts.GetContact(*i.ContactID)
			if err != nil {
				s.logger.Warn("failed to enrich interaction with contact", "error", err, "interaction_id", i.ID)
				return
			}
			detail.Contact = c
		}()
	}

	if i.OpportunityID != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			o, err := s.opportunities.GetOpportunity(*i.OpportunityID)
			if err != nil {
				s.logger.Warn("failed to enrich interaction with opportunity", "error", err, "interaction_id", i.ID)
				return
			}
			detail.Opportunity = o
		}()
	}

	wg.Wait()
	return detail, nil
}

func (s *Service) ListInteractions(filter ListFilter) ([]*Interaction, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}

	interactions, err := s.repo.List(filter)
	if err != nil {
		s.logger.Error("ListInteractions: failed", "error", err)
		return nil, internal.NewInternalError("failed to list interactions", err)
	}
	return interactions, nil
}

// UpdateInteraction edits a scheduled interaction. Completed and cancelled
// interactions are immutable.
func (s *Service) UpdateInteraction(id int64, dto UpdateInteractionDTO, actor int64) (*Interaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	i, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if i.IsFinal() {
		return nil, ErrFinal
	}

	if dto.Subject != nil {
		i.Subject = *dto.Subject
	}
	if dto.Description != nil {
		i.Description = *dto.Description
	}
	if dto.InteractionAt != nil {
		i.InteractionAt = *dto.InteractionAt
	}
	if dto.DurationMinutes != nil {
		i.DurationMinutes = *dto.DurationMinutes
	}
	if dto.FollowUpDate != nil {
		i.FollowUpDate = dto.FollowUpDate
		i.FollowUpRequired = true
		if s.reminders != nil {
			if err := s.reminders.ScheduleFollowUpReminder(i.ID, actor, *dto.FollowUpDate); err != nil {
				s.logger.Warn("failed to reschedule follow-up reminder", "error", err, "interaction_id", i.ID)
			}
		}
	}
	i.UpdatedBy = actor
	i.UpdatedAt = time.Now()

	if err := s.repo.Update(i); err != nil {
		s.logger.Error("UpdateInteraction: failed", "error", err, "interaction_id", id)
		return nil, internal.NewInternalError("failed to update interaction", err)
	}
	return i, nil
}

// Complete closes the interaction with an outcome. Once completed it cannot
// change again, and any pending follow-up reminder becomes a no-op.
func (s *Service) Complete(id int64, dto CompleteInteractionDTO, actor int64) (*Interaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	i, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if i.IsFinal() {
		return nil, ErrFinal
	}

	i.Status = StatusCompleted
	i.Outcome = dto.Outcome
	i.FollowUpRequired = false
	i.UpdatedBy = actor
	i.UpdatedAt = time.Now()

	if err := s.repo.Update(i); err != nil {
		s.logger.Error("Complete: failed", "error", err, "interaction_id", id)
		return nil, internal.NewInternalError("failed to complete interaction", err)
	}

	if s.bus != nil {
		_ = s.bus.Publish(context.Background(), events.NewInteractionCompletedEvent(i.ID, i.OrganizationID, i.Outcome, actor))
	}

	s.logger.Info("interaction completed", "interaction_id", i.ID, "completed_by", actor)
	return i, nil
}

// Cancel marks the interaction cancelled with a reason, recorded as the
// outcome. Completed or already cancelled interactions reject the call.
func (s *Service) Cancel(id int64, dto CancelInteractionDTO, actor int64) (*Interaction, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	i, err := s.repo.GetByID(id)
	if err != nil {
		return nil, ErrNotFound
	}
	if i.IsFinal() {
		return nil, ErrFinal
	}

	i.Status = StatusCancelled
	i.Outcome = dto.Reason
	i.FollowUpRequired = false
	i.UpdatedBy = actor
	i.UpdatedAt = time.Now()

	if err := s.repo.Update(i); err != nil {
		s.logger.Error("Cancel: failed", "error", err, "interaction_id", id)
		return nil, internal.NewInternalError("failed to cancel interaction", err)
	}

	s.logger.Info("interaction cancelled", "interaction_id", i.ID, "cancelled_by", actor)
	return i, nil
}

func (s *Service) DeleteInteraction(id int64, actor int64) error {
	if _, err := s.repo.GetByID(id); err != nil {
		return ErrNotFound
	}

	if err := s.repo.SoftDelete(id, actor); err != nil {
		s.logger.Error("DeleteInteraction: failed", "error", err, "interaction_id", id)
		return internal.NewInternalError("failed to delete interaction", err)
	}

	s.logger.Info("interaction deleted", "interaction_id", id, "deleted_by", actor)
	return nil
}

// FollowUpStillPending tells the reminder worker whether a follow-up is still
// live when its task fires.
func (s *Service) FollowUpStillPending(id int64) (bool, error) {
	i, err := s.repo.GetByID(id)
	if err != nil {
		return false, nil
	}
	return i.FollowUpRequired && !i.IsFinal(), nil
}
