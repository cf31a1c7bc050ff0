package apperrors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// AppError carries everything needed to render a failure: the HTTP status, and
// either a field-keyed message map or a single keyed message.
type AppError struct {
	Code     ErrorCode
	Key      string
	Message  string
	Fields   map[string][]string
	HTTPCode int
	Err      error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Body is the JSON payload written to the client.
func (e *AppError) Body() any {
	if len(e.Fields) > 0 {
		return e.Fields
	}
	key := e.Key
	if key == "" {
		key = KeyDetail
	}
	return map[string]string{key: e.Message}
}

// New is the base constructor.
func New(code ErrorCode, key, message string, httpCode int) *AppError {
	return &AppError{Code: code, Key: key, Message: message, HTTPCode: httpCode}
}

// Wrap attaches a cause to a new AppError.
func Wrap(err error, code ErrorCode, key, message string, httpCode int) *AppError {
	return &AppError{Code: code, Key: key, Message: message, HTTPCode: httpCode, Err: err}
}

func (e *AppError) WithError(err error) *AppError {
	e.Err = err
	return e
}

// Is compares by code so callers can match on a fresh constructor value.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !stderrors.As(target, &t) {
		return false
	}
	return t.Code == e.Code && (t.Key == "" || t.Key == e.Key)
}

// AsAppError unwraps err into an *AppError.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

func NotFound(message string) *AppError {
	return New(CodeNotFound, KeyDetail, message, http.StatusNotFound)
}

func Unauthorized(message string) *AppError {
	return New(CodeUnauthorized, KeyDetail, message, http.StatusUnauthorized)
}

// Forbidden is the generic gate rejection rendered as {"detail": ...}.
func Forbidden(message string) *AppError {
	return New(CodePermissionDenied, KeyDetail, message, http.StatusForbidden)
}

// PermissionDenied is rendered as {"PermissionDenied": ...}.
func PermissionDenied(message string) *AppError {
	return New(CodePermissionDenied, KeyPermissionDenied, message, http.StatusForbidden)
}

func TokenNotFound() *AppError {
	return New(CodeTokenNotFound, KeyTokenNotFound, "Given token was not found.", http.StatusForbidden)
}

func TokenExpired() *AppError {
	return New(CodeTokenExpired, KeyTokenExpired, "This token is expired.", http.StatusForbidden)
}

// AlreadyActive reports that a token for the same purpose is still inside its window.
func AlreadyActive(key, message string) *AppError {
	return New(CodeAlreadyActive, key, message, http.StatusForbidden)
}

// BadRequest is a keyed 400, e.g. {"UserDoesNotExist": ...}.
func BadRequest(key, message string) *AppError {
	return New(CodeBadRequest, key, message, http.StatusBadRequest)
}

// Validation renders a field-keyed map of messages.
func Validation(fields map[string][]string) *AppError {
	return &AppError{
		Code:     CodeValidationFailed,
		Message:  "Validation failed",
		Fields:   fields,
		HTTPCode: http.StatusBadRequest,
	}
}

// FieldError is Validation with a single field.
func FieldError(field, message string) *AppError {
	return Validation(map[string][]string{field: {message}})
}

// Conflict is a keyed 400 for references that do not resolve.
func Conflict(key, message string) *AppError {
	return New(CodeConflict, key, message, http.StatusBadRequest)
}

func DeliveryFailed(err error) *AppError {
	return Wrap(err, CodeDeliveryFailed, KeyEmailDeliveryFailed, "The email could not be sent. Please try again later.", http.StatusBadGateway)
}

func Unavailable(message string) *AppError {
	return New(CodeUnavailable, KeyDetail, message, http.StatusServiceUnavailable)
}

func Internal(err error) *AppError {
	return Wrap(err, CodeInternalError, KeyDetail, "Internal server error", http.StatusInternalServerError)
}
