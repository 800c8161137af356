package user

import (
	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/core/common/validation"
	"github.com/krwhynot/pantry-crm/internal/rbac"
)

type CreateUserDTO struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Password  string `json:"password"`
	Territory string `json:"territory,omitempty"`
	RoleName  string `json:"role_name"`
}

func (d CreateUserDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("first_name", d.FirstName).Required().MaxLength(100)
	v.Field("last_name", d.LastName).Required().MaxLength(100)
	v.Field("password", d.Password).Required().MinLength(8)
	v.Field("role_name", d.RoleName).Required().
		OneOf([]string{rbac.RoleAdmin, rbac.RoleManager, rbac.RoleSalesRep}, internal.ErrCodeValidationFailed)
	return errOrNil(v.Validate())
}

type UpdateUserDTO struct {
	FirstName *string `json:"first_name,omitempty"`
	LastName  *string `json:"last_name,omitempty"`
	Territory *string `json:"territory,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	if d.FirstName != nil {
		v.Field("first_name", *d.FirstName).Required().MaxLength(100)
	}
	if d.LastName != nil {
		v.Field("last_name", *d.LastName).Required().MaxLength(100)
	}
	return errOrNil(v.Validate())
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (d ChangePasswordDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("current_password", d.CurrentPassword).Required()
	v.Field("new_password", d.NewPassword).Required().MinLength(8)
	return errOrNil(v.Validate())
}

type ListFilter struct {
	Territory string
	Active    *bool
	Search    string
	Limit     int
	Offset    int
}

func errOrNil(err *internal.AppError) error {
	if err == nil {
		return nil
	}
	return err
}
