package interaction

import (
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/contact"
	"github.com/krwhynot/pantry-crm/internal/core/common/validation"
	"github.com/krwhynot/pantry-crm/internal/opportunity"
	"github.com/krwhynot/pantry-crm/internal/organization"
)

type CreateInteractionDTO struct {
	OrganizationID   int64      `json:"organization_id"`
	ContactID        *int64     `json:"contact_id,omitempty"`
	OpportunityID    *int64     `json:"opportunity_id,omitempty"`
	Type             string     `json:"type"`
	Subject          string     `json:"subject"`
	Description      string     `json:"description,omitempty"`
	InteractionAt    *time.Time `json:"interaction_at,omitempty"`
	DurationMinutes  int        `json:"duration_minutes,omitempty"`
	FollowUpRequired bool       `json:"follow_up_required"`
	FollowUpDate     *time.Time `json:"follow_up_date,omitempty"`
}

func (d CreateInteractionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("organization_id", d.OrganizationID).Required()
	v.Field("type", d.Type).Required().OneOf(Types, internal.ErrCodeInvalidEnum)
	v.Field("subject", d.Subject).Required().MaxLength(255)
	v.Field("description", d.Description).MaxLength(5000)

	if IsSchedulable(d.Type) && d.InteractionAt != nil {
		v.Field("interaction_at", *d.InteractionAt).NotPast()
	}

	if d.FollowUpRequired && d.FollowUpDate == nil {
		v.Field("follow_up_date", "").Custom(func(interface{}) *internal.AppError {
			return internal.NewValidationFieldError("follow_up_date",
				"follow_up_date is required when follow_up_required is set",
				internal.ErrCodeValidationFailed)
		})
	}
	if d.FollowUpDate != nil {
		v.Field("follow_up_date", *d.FollowUpDate).NotPast()
	}

	return errOrNil(v.Validate())
}

type UpdateInteractionDTO struct {
	Subject         *string    `json:"subject,omitempty"`
	Description     *string    `json:"description,omitempty"`
	InteractionAt   *time.Time `json:"interaction_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	FollowUpDate    *time.Time `json:"follow_up_date,omitempty"`
}

func (d UpdateInteractionDTO) Validate() error {
	v := validation.NewValidator()
	if d.Subject != nil {
		v.Field("subject", *d.Subject).Required().MaxLength(255)
	}
	if d.Description != nil {
		v.Field("description", *d.Description).MaxLength(5000)
	}
	if d.FollowUpDate != nil {
		v.Field("follow_up_date", *d.FollowUpDate).NotPast()
	}
	return errOrNil(v.Validate())
}

type CompleteInteractionDTO struct {
	Outcome string `json:"outcome"`
}

func (d CompleteInteractionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("outcome", d.Outcome).Required().MaxLength(2000)
	return errOrNil(v.Validate())
}

type CancelInteractionDTO struct {
	Reason string `json:"reason"`
}

func (d CancelInteractionDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("reason", d.Reason).Required().MaxLength(2000)
	return errOrNil(v.Validate())
}

// InteractionDetail is the enriched read model returned by GetInteraction.
// Linked records are fetched concurrently and missing links stay nil.
type InteractionDetail struct {
	*Interaction
	Organization *organization.Summary    `json:"organization,omitempty"`
	Contact      *contact.Contact         `json:"contact,omitempty"`
	Opportunity  *opportunity.Opportunity `json:"opportunity,omitempty"`
}

type ListFilter struct {
	OrganizationID int64
	ContactID      int64
	OpportunityID  int64
	OwnerID        int64
	Type           string
	Status         string
	From           *time.Time
	To             *time.Time
	Limit          int
	Offset         int
}

func errOrNil(err *internal.AppError) error {
	if err == nil {
		return nil
	}
	return err
}
