package organization

import (
	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/core/common/validation"
)

// CreateOrganizationDTO is the request payload for creating an organization.
type CreateOrganizationDTO struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
	Segment  string `json:"segment,omitempty"`
	ParentID *int64 `json:"parent_id,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

func (dto CreateOrganizationDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(255)
	v.Field("type", dto.Type).Required().OneOf(ValidTypes, internal.ErrCodeInvalidEnum)
	v.Field("priority", dto.Priority).Required().OneOf(ValidPriorities, internal.ErrCodeInvalidEnum)
	return errOrNil(v.Validate())
}

// UpdateOrganizationDTO carries partial updates; nil pointers leave fields
// untouched. Parent reassignment goes through SetParentDTO instead.
type UpdateOrganizationDTO struct {
	Name     *string `json:"name,omitempty"`
	Type     *string `json:"type,omitempty"`
	Priority *string `json:"priority,omitempty"`
	Segment  *string `json:"segment,omitempty"`
	Notes    *string `json:"notes,omitempty"`
}

func (dto UpdateOrganizationDTO) Validate() error {
	v := validation.NewValidator()
	if dto.Name != nil {
		v.Field("name", *dto.Name).Required().MaxLength(255)
	}
	if dto.Type != nil {
		v.Field("type", *dto.Type).OneOf(ValidTypes, internal.ErrCodeInvalidEnum)
	}
	if dto.Priority != nil {
		v.Field("priority", *dto.Priority).OneOf(ValidPriorities, internal.ErrCodeInvalidEnum)
	}
	return errOrNil(v.Validate())
}

// SetParentDTO reassigns the parent organization; a nil ParentID detaches.
type SetParentDTO struct {
	ParentID *int64 `json:"parent_id"`
}

// MergeDTO merges the source organization into the target.
type MergeDTO struct {
	SourceID int64 `json:"source_id"`
}

func (dto MergeDTO) Validate() error {
	if dto.SourceID == 0 {
		return internal.NewValidationFieldError("source_id", "source_id is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

// OrganizationResponse enriches an organization with hierarchy context.
type OrganizationResponse struct {
	*Organization
	Parent     *Summary `json:"parent,omitempty"`
	ChildCount int64    `json:"child_count"`
}

// Summary is the compact shape embedded in related responses.
type Summary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Priority string `json:"priority"`
}

func (o *Organization) ToSummary() *Summary {
	return &Summary{ID: o.ID, Name: o.Name, Type: o.Type, Priority: o.Priority}
}

// ListFilter narrows List results.
type ListFilter struct {
	Type     string
	Priority string
	Segment  string
	Search   string
	Limit    int
	Offset   int
}

// errOrNil keeps the typed-nil *AppError out of the error interface.
func errOrNil(err *internal.AppError) error {
	if err != nil {
		return err
	}
	return nil
}
