package apperrors

// ErrorCode classifies an AppError independently of how it is rendered.
type ErrorCode string

const (
	CodeInternalError    ErrorCode = "INTERNAL_ERROR"
	CodeUnavailable      ErrorCode = "SERVICE_UNAVAILABLE"
	CodeDeliveryFailed   ErrorCode = "DELIVERY_FAILED"
	CodeNotFound         ErrorCode = "NOT_FOUND"
	CodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	CodeConflict         ErrorCode = "CONFLICT"
	CodeBadRequest       ErrorCode = "BAD_REQUEST"

	CodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	CodePermissionDenied ErrorCode = "PERMISSION_DENIED"
	CodeTokenNotFound    ErrorCode = "TOKEN_NOT_FOUND"
	CodeTokenExpired     ErrorCode = "TOKEN_EXPIRED"
	CodeAlreadyActive    ErrorCode = "ALREADY_ACTIVE"
)

// Body keys used by keyed error responses.
const (
	KeyDetail                     = "detail"
	KeyPermissionDenied           = "PermissionDenied"
	KeyTokenNotFound              = "TokenNotFound"
	KeyTokenExpired               = "TokenExpired"
	KeyVerificationAlreadyActive  = "VerificationAlreadyActive"
	KeyPasswordResetAlreadyActive = "PasswordResetAlreadyActive"
	KeyUserDoesNotExist           = "UserDoesNotExist"
	KeyEmailDeliveryFailed        = "EmailDeliveryFailed"
)

// Field error messages shared across validators and services.
const (
	MsgRequired = "This field is required."
	MsgNotBool  = "Value must be a bool."
)
