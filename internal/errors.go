package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidEnum      ErrorCode = "INVALID_ENUM_VALUE"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"
	ErrCodeInvalidEmail     ErrorCode = "INVALID_EMAIL"

	ErrCodeOrganizationNotFound ErrorCode = "ORGANIZATION_NOT_FOUND"
	ErrCodeCircularReference    ErrorCode = "CIRCULAR_REFERENCE"
	ErrCodeSelfParent           ErrorCode = "SELF_PARENT"

	ErrCodeContactNotFound     ErrorCode = "CONTACT_NOT_FOUND"
	ErrCodeContactOrgMismatch  ErrorCode = "CONTACT_ORG_MISMATCH"
	ErrCodeInteractionNotFound ErrorCode = "INTERACTION_NOT_FOUND"
	ErrCodeInteractionFinal    ErrorCode = "INTERACTION_ALREADY_FINAL"

	ErrCodeOpportunityNotFound ErrorCode = "OPPORTUNITY_NOT_FOUND"
	ErrCodeOpportunityClosed   ErrorCode = "OPPORTUNITY_CLOSED"
	ErrCodeInvalidStage        ErrorCode = "INVALID_STAGE"
	ErrCodeCloseDateInPast     ErrorCode = "CLOSE_DATE_IN_PAST"

	ErrCodeProductNotFound  ErrorCode = "PRODUCT_NOT_FOUND"
	ErrCodeDuplicateSKU     ErrorCode = "DUPLICATE_SKU"
	ErrCodeCategoryNotFound ErrorCode = "CATEGORY_NOT_FOUND"
	ErrCodeNegativeStock    ErrorCode = "NEGATIVE_STOCK"

	ErrCodeRoleNotFound       ErrorCode = "ROLE_NOT_FOUND"
	ErrCodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeUserInactive       ErrorCode = "USER_INACTIVE"
	ErrCodeUserNotFound       ErrorCode = "USER_NOT_FOUND"
	ErrCodeDuplicateEmail     ErrorCode = "DUPLICATE_EMAIL"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeSessionNotFound    ErrorCode = "SESSION_NOT_FOUND"
	ErrCodeSessionInvalidated ErrorCode = "SESSION_INVALIDATED"
	ErrCodeSessionIPMismatch  ErrorCode = "SESSION_IP_MISMATCH"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrOrganizationNotFound = NewNotFoundError("organization not found", ErrCodeOrganizationNotFound)
	ErrCircularReference    = NewValidationError("circular reference in organization hierarchy", ErrCodeCircularReference)
	ErrSelfParent           = NewValidationError("organization cannot be its own parent", ErrCodeSelfParent)

	ErrContactNotFound     = NewNotFoundError("contact not found", ErrCodeContactNotFound)
	ErrContactOrgMismatch  = NewValidationError("contact does not belong to the organization", ErrCodeContactOrgMismatch)
	ErrInteractionNotFound = NewNotFoundError("interaction not found", ErrCodeInteractionNotFound)
	ErrInteractionFinal    = NewValidationError("interaction is already completed or cancelled", ErrCodeInteractionFinal)

	ErrOpportunityNotFound = NewNotFoundError("opportunity not found", ErrCodeOpportunityNotFound)
	ErrOpportunityClosed   = NewValidationError("opportunity is closed and cannot change stage", ErrCodeOpportunityClosed)
	ErrInvalidStage        = NewValidationError("invalid opportunity stage", ErrCodeInvalidStage)
	ErrCloseDateInPast     = NewValidationError("expected close date must be in the future", ErrCodeCloseDateInPast)

	ErrProductNotFound  = NewNotFoundError("product not found", ErrCodeProductNotFound)
	ErrDuplicateSKU     = NewConflictError("product SKU already exists", ErrCodeDuplicateSKU)
	ErrCategoryNotFound = NewNotFoundError("product category not found", ErrCodeCategoryNotFound)
	ErrNegativeStock    = NewValidationError("inventory adjustment would drive quantity negative", ErrCodeNegativeStock)

	ErrRoleNotFound       = NewNotFoundError("role not found", ErrCodeRoleNotFound)
	ErrPermissionDenied   = NewForbiddenError("insufficient permissions", ErrCodePermissionDenied)
	ErrInvalidCredentials = NewUnauthorizedError("invalid email or password", ErrCodeInvalidCredentials)
	ErrUserInactive       = NewForbiddenError("user account is inactive", ErrCodeUserInactive)
	ErrUserNotFound       = NewNotFoundError("user not found", ErrCodeUserNotFound)
	ErrInvalidToken       = NewUnauthorizedError("invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("token has expired", ErrCodeTokenExpired)
	ErrSessionNotFound    = NewUnauthorizedError("session not found", ErrCodeSessionNotFound)
	ErrSessionInvalidated = NewUnauthorizedError("session has been invalidated", ErrCodeSessionInvalidated)
	ErrSessionIPMismatch  = NewUnauthorizedError("session IP address mismatch", ErrCodeSessionIPMismatch)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
