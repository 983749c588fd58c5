package handlers

// API error codes returned in JSON { "message": "...", "code": "..." } for stable client handling.
const (
	ErrCodeInvalidRequest     = "invalid_request"
	ErrCodeConflict           = "conflict"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeEmailNotVerified   = "email_not_verified"
	ErrCodeInvalidToken       = "invalid_or_expired_token"
	ErrCodeAlreadyVerified    = "already_verified"
	ErrCodeTooManyRequests    = "too_many_requests"
	ErrCodeUnauthorized       = "unauthorized"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodeInternal           = "internal_error"
)
