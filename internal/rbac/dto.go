package rbac

import (
	"fmt"
	"time"

	"github.com/krwhynot/pantry-crm/internal"
	"github.com/krwhynot/pantry-crm/internal/core/common/validation"
)

type AssignRoleDTO struct {
	UserID    int64      `json:"user_id"`
	RoleName  string     `json:"role_name"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (d AssignRoleDTO) Validate() error {
	v := validation.NewValidator()

	v.Field("user_id", d.UserID).Required()
	v.Field("role_name", d.RoleName).Required().
		OneOf([]string{RoleAdmin, RoleManager, RoleSalesRep}, internal.ErrCodeValidationFailed)
	v.Field("expires_at", d.ExpiresAt).Custom(func(value interface{}) *internal.AppError {
		expiry, ok := value.(*time.Time)
		if !ok || expiry == nil {
			return nil
		}
		if !expiry.After(time.Now()) {
			return internal.NewValidationFieldError("expires_at",
				fmt.Sprintf("expires_at must be in the future, got %s", expiry.Format(time.RFC3339)),
				internal.ErrCodeInvalidDate)
		}
		return nil
	})

	return errOrNil(v.Validate())
}

type RevokeRoleDTO struct {
	UserID   int64  `json:"user_id"`
	RoleName string `json:"role_name"`
}

func (d RevokeRoleDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("user_id", d.UserID).Required()
	v.Field("role_name", d.RoleName).Required()
	return errOrNil(v.Validate())
}

func errOrNil(err *internal.AppError) error {
	if err == nil {
		return nil
	}
	return err
}
