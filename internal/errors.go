package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal     ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrCodeConfig         ErrorCode = "CONFIG_ERROR"
	ErrCodeUpstreamAuth   ErrorCode = "UPSTREAM_AUTH_ERROR"
	ErrCodeUserLookup     ErrorCode = "USER_LOOKUP_ERROR"
	ErrCodeSession        ErrorCode = "SESSION_ERROR"
	ErrCodePersistence    ErrorCode = "PERSISTENCE_ERROR"

	ErrCodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	ErrCodeLevelNotFound    ErrorCode = "LEVEL_NOT_FOUND"
	ErrCodeMemberNotFound   ErrorCode = "MEMBER_NOT_FOUND"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeEmailExists        ErrorCode = "EMAIL_EXISTS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
	ErrCodeStateMismatch      ErrorCode = "STATE_MISMATCH"
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
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
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

func NewInternalError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
	}
}

// NewUpstreamError reports an external provider failure with the upstream
// response body preserved so operators can diagnose rejections verbatim.
func NewUpstreamError(message string, code ErrorCode, upstreamBody string) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       code,
		Message:    message,
		Details:    map[string]string{"upstream": upstreamBody},
		StatusCode: http.StatusBadGateway,
	}
}

var (
	ErrInvalidRequest   = NewValidationError("either code or access_token with merchant_id is required", ErrCodeInvalidRequest)
	ErrConfig           = NewInternalError("server is missing provider credentials", ErrCodeConfig)
	ErrUserLookup       = NewInternalError("could not resolve existing account for email", ErrCodeUserLookup)
	ErrSession          = NewInternalError("sign-in did not return a session", ErrCodeSession)
	ErrPersistence      = NewInternalError("failed to persist merchant link", ErrCodePersistence)
	ErrPermissionDenied = NewForbiddenError("administrative session required", ErrCodePermissionDenied)
	ErrLevelNotFound    = NewNotFoundError("permission level not found", ErrCodeLevelNotFound)
	ErrMemberNotFound   = NewNotFoundError("team member not found", ErrCodeMemberNotFound)
	ErrStateMismatch    = NewValidationError("oauth state did not match", ErrCodeStateMismatch)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrEmailExists        = NewConflictError("an account with this email already exists", ErrCodeEmailExists)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
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
