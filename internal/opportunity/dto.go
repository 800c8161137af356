package opportunity

import (
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/core/common/validation"
)

type CreateOpportunityDTO struct {
	OrganizationID    int64      `json:"organization_id"`
	ContactID         *int64     `json:"contact_id,omitempty"`
	Name              string     `json:"name"`
	Stage             string     `json:"stage,omitempty"`
	ValueCents        int64      `json:"value_cents"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	Notes             string     `json:"notes,omitempty"`
}

func (d CreateOpportunityDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("organization_id", d.OrganizationID).Required()
	v.Field("name", d.Name).Required().MaxLength(255)
	v.Field("value_cents", d.ValueCents).MinInt(0, internal.ErrCodeValidationFailed)
	if d.Stage != "" {
		v.Field("stage", d.Stage).OneOf(Stages, internal.ErrCodeInvalidStage)
	}
	if d.ExpectedCloseDate != nil {
		v.Field("expected_close_date", *d.ExpectedCloseDate).Custom(func(value interface{}) *internal.AppError {
			t, ok := value.(time.Time)
			if !ok || t.IsZero() {
				return nil
			}
			if t.Before(time.Now().Truncate(24 * time.Hour)) {
				return internal.NewValidationFieldError("expected_close_date",
					"expected_close_date must be in the future",
					internal.ErrCodeCloseDateInPast)
			}
			return nil
		})
	}
	return errOrNil(v.Validate())
}

type UpdateOpportunityDTO struct {
	Name              *string    `json:"name,omitempty"`
	ContactID         *int64     `json:"contact_id,omitempty"`
	ValueCents        *int64     `json:"value_cents,omitempty"`
	ExpectedCloseDate *time.Time `json:"expected_close_date,omitempty"`
	Notes             *string    `json:"notes,omitempty"`
}

func (d UpdateOpportunityDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MaxLength(255)
	}
	if d.ValueCents != nil {
		v.Field("value_cents", *d.ValueCents).MinInt(0, internal.ErrCodeValidationFailed)
	}
	if d.ExpectedCloseDate != nil {
		v.Field("expected_close_date", *d.ExpectedCloseDate).Custom(func(value interface{}) *internal.AppError {
			t, ok := value.(time.Time)
			if !ok || t.IsZero() {
				return nil
			}
			if t.Before(time.Now().Truncate(24 * time.Hour)) {
				return internal.NewValidationFieldError("expected_close_date",
					"expected_close_date must be in the future",
					internal.ErrCodeCloseDateInPast)
			}
			return nil
		})
	}
	return errOrNil(v.Validate())
}

type ChangeStageDTO struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason,omitempty"`
}

func (d ChangeStageDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("stage", d.Stage).Required().OneOf(Stages, internal.ErrCodeInvalidStage)
	if d.Reason != "" {
		v.Field("reason", d.Reason).MaxLength(500)
	}
	return errOrNil(v.Validate())
}

type ListFilter struct {
	OrganizationID int64
	Stage          string
	OwnerID        int64
	OpenOnly       bool
	Limit          int
	Offset         int
}

func errOrNil(err *internal.AppError) error {
	if err == nil {
		return nil
	}
	return err
}
