package contact

import (
	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/core/common/validation"
)

type CreateContactDTO struct {
	OrganizationID  int64  `json:"organization_id"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Position        string `json:"position,omitempty"`
	IsPrimary       bool   `json:"is_primary"`
	IsDecisionMaker bool   `json:"is_decision_maker"`
	PreferredMethod string `json:"preferred_contact_method,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func (d CreateContactDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("organization_id", d.OrganizationID).Required()
	v.Field("first_name", d.FirstName).Required().MaxLength(100)
	v.Field("last_name", d.LastName).Required().MaxLength(100)
	v.Field("email", d.Email).Email()
	if d.PreferredMethod != "" {
		v.Field("preferred_contact_method", d.PreferredMethod).OneOf(ContactMethods, internal.ErrCodeValidationFailed)
	}
	v.Field("notes", d.Notes).MaxLength(2000)
	return errOrNil(v.Validate())
}

type UpdateContactDTO struct {
	FirstName       *string `json:"first_name,omitempty"`
	LastName        *string `json:"last_name,omitempty"`
	Email           *string `json:"email,omitempty"`
	Phone           *string `json:"phone,omitempty"`
	Position        *string `json:"position,omitempty"`
	IsDecisionMaker *bool   `json:"is_decision_maker,omitempty"`
	PreferredMethod *string `json:"preferred_contact_method,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

func (d UpdateContactDTO) Validate() error {
	v := validation.NewValidator()
	if d.FirstName != nil {
		v.Field("first_name", *d.FirstName).Required().MaxLength(100)
	}
	if d.LastName != nil {
		v.Field("last_name", *d.LastName).Required().MaxLength(100)
	}
	if d.Email != nil {
		v.Field("email", *d.Email).Email()
	}
	if d.PreferredMethod != nil && *d.PreferredMethod != "" {
		v.Field("preferred_contact_method", *d.PreferredMethod).OneOf(ContactMethods, internal.ErrCodeValidationFailed)
	}
	if d.Notes != nil {
		v.Field("notes", *d.Notes).MaxLength(2000)
	}
	return errOrNil(v.Validate())
}

type ListFilter struct {
	OrganizationID int64
	Search         string
	PrimaryOnly    bool
	Limit          int
	Offset         int
}

func errOrNil(err *internal.AppError) error {
	if err == nil {
		return nil
	}
	return err
}
