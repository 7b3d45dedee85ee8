package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodeValidation              ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInitToken        ErrorCode = "INVALID_INIT_TOKEN"
	ErrCodeUserExists              ErrorCode = "USER_EXISTS"
	ErrCodeInvalidReferral         ErrorCode = "INVALID_REFERRAL"
	ErrCodeInvalidCredentials      ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeNoToken                 ErrorCode = "NO_TOKEN"
	ErrCodeInvalidToken            ErrorCode = "INVALID_TOKEN"
	ErrCodeUserNotFound            ErrorCode = "USER_NOT_FOUND"
	ErrCodeAdminNotFound           ErrorCode = "ADMIN_NOT_FOUND"
	ErrCodeAccountSuspended        ErrorCode = "ACCOUNT_SUSPENDED"
	ErrCodeInsufficientPermissions ErrorCode = "INSUFFICIENT_PERMISSIONS"
	ErrCodeRateLimit               ErrorCode = "RATE_LIMIT_EXCEEDED"
	ErrCodeNotImplemented          ErrorCode = "NOT_IMPLEMENTED"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable      ErrorCode = "SERVICE_UNAVAILABLE"
)

// internalMessage is the only text a client ever sees for a 5xx.
const internalMessage = "Internal server error"

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
	Context    map[string]interface{}
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// PublicMessage is the message safe to return to a client.
func (e *AppError) PublicMessage() string {
	if e.HTTPStatus >= http.StatusInternalServerError {
		return internalMessage
	}
	return e.Message
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Context:    make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
		Context:    make(map[string]interface{}),
	}
}

// Common error constructors
func NewValidationError(message string) *AppError {
	return NewAppError(ErrCodeValidation, message, http.StatusBadRequest)
}

func NewInvalidInitTokenError() *AppError {
	return NewAppError(ErrCodeInvalidInitToken, "Invalid or expired initialization token. Please restart the app.", http.StatusBadRequest)
}

func NewUserExistsError() *AppError {
	return NewAppError(ErrCodeUserExists, "Email or phone already registered", http.StatusBadRequest)
}

func NewInvalidReferralError() *AppError {
	return NewAppError(ErrCodeInvalidReferral, "Invalid referral code", http.StatusBadRequest)
}

func NewInvalidCredentialsError() *AppError {
	return NewAppError(ErrCodeInvalidCredentials, "Invalid credentials", http.StatusUnauthorized)
}

func NewNoTokenError() *AppError {
	return NewAppError(ErrCodeNoToken, "No token provided", http.StatusUnauthorized)
}

func NewInvalidTokenError() *AppError {
	return NewAppError(ErrCodeInvalidToken, "Invalid or expired token", http.StatusUnauthorized)
}

func NewUserNotFoundError() *AppError {
	return NewAppError(ErrCodeUserNotFound, "User not found", http.StatusUnauthorized)
}

func NewAdminNotFoundError() *AppError {
	return NewAppError(ErrCodeAdminNotFound, "Admin not found", http.StatusUnauthorized)
}

func NewAccountSuspendedError() *AppError {
	return NewAppError(ErrCodeAccountSuspended, "Account is suspended or banned", http.StatusForbidden)
}

// NewInsufficientPermissionsError lists the roles that would have been accepted.
func NewInsufficientPermissionsError(allowedRoles []string) *AppError {
	return NewAppError(
		ErrCodeInsufficientPermissions,
		fmt.Sprintf("Requires one of these roles: %s", strings.Join(allowedRoles, ", ")),
		http.StatusForbidden,
	)
}

func NewRateLimitError() *AppError {
	return NewAppError(ErrCodeRateLimit, "Too many requests, please try again later", http.StatusTooManyRequests)
}

func NewNotImplementedError(message string) *AppError {
	return NewAppError(ErrCodeNotImplemented, message, http.StatusNotImplemented)
}

func NewInternalError(cause error) *AppError {
	return WrapError(cause, ErrCodeInternal, internalMessage, http.StatusInternalServerError)
}

func NewServiceUnavailableError(message string) *AppError {
	return NewAppError(ErrCodeServiceUnavailable, message, http.StatusServiceUnavailable)
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}
