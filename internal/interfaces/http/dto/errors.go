package dto

import "net/http"

// Error codes surfaced by the API. Domain errors carry these codes
// directly; the HTTP layer only maps them to status codes.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidInput is used for input that fails validation
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeBatchNotFound is used when a stock batch is not found
	ErrCodeBatchNotFound = "BATCH_NOT_FOUND"
	// ErrCodeAssetNotFound is used when a keg asset is not found
	ErrCodeAssetNotFound = "ASSET_NOT_FOUND"
	// ErrCodeAlreadyExists is used when creating a duplicate resource
	ErrCodeAlreadyExists = "ALREADY_EXISTS"
	// ErrCodeInsufficientStock is used when a FIFO allocation cannot be covered
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	// ErrCodeInvalidTransition is used when a keg state change is not allowed
	ErrCodeInvalidTransition = "INVALID_TRANSITION"
	// ErrCodeLockTimeout is used when a row lock could not be acquired in time
	ErrCodeLockTimeout = "LOCK_TIMEOUT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	// ErrCodeRateLimited is used when the rate limit is exceeded
	ErrCodeRateLimited = "RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:            http.StatusInternalServerError,
	ErrCodeBadRequest:          http.StatusBadRequest,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeBatchNotFound:       http.StatusNotFound,
	ErrCodeAssetNotFound:       http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeInsufficientStock:   http.StatusUnprocessableEntity,
	ErrCodeInvalidTransition:   http.StatusUnprocessableEntity,
	ErrCodeLockTimeout:         http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes map to 500 Internal Server Error.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
