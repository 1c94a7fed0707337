package ports

import "errors"

// Standard application-level errors.
// Adapters should wrap underlying infrastructure errors with these standard errors.
var (
	// General Errors
	ErrUnknown            = errors.New("unknown error occurred")
	ErrInvalidRequest     = errors.New("invalid request parameters or format")
	ErrNotFound           = errors.New("resource not found")
	ErrTimeout            = errors.New("operation timed out")
	ErrContextCanceled    = errors.New("operation canceled via context")
	ErrConfigurationError = errors.New("invalid or missing configuration")

	// Rate Source Specific Errors
	ErrSourceUnavailable = errors.New("rates API is unavailable")
	ErrConnectionFailed  = errors.New("failed to connect to the rates service")
	ErrInvalidPayload    = errors.New("malformed or out-of-range payload from the rates service")
	ErrRateLimited       = errors.New("API rate limit exceeded")

	// Store Specific Errors
	ErrStoreUnavailable = errors.New("local store connection error")
	ErrQueryFailed      = errors.New("local store query failed")
	ErrUpdateFailed     = errors.New("local store update failed")
)
