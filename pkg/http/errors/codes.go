package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidText      = "INVALID_TEXT"
	ErrCodeInvalidQuestion  = "INVALID_QUESTION"

	// Duplicate gate outcomes
	ErrCodeDuplicateExact = "DUPLICATE_EXACT"
	ErrCodeDuplicateNear  = "DUPLICATE_NEAR"

	// Resource errors
	ErrCodeNotFound = "not_found"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeStoreUnavailable   = "STORE_UNAVAILABLE"
	ErrCodeUpstreamError      = "upstream_error"

	// Analytics errors
	ErrCodeAnalyticsFailed = "analytics_failed"
)
