package dto

import (
	"net/http"
	"strings"
)

// Transport-level error codes. Domain errors keep their own codes.
const (
	ErrCodeInternal      = "INTERNAL_ERROR"
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeBadRequest    = "BAD_REQUEST"
	ErrCodeInvalidJSON   = "INVALID_JSON"
	ErrCodeUnauthorized  = "UNAUTHORIZED"
	ErrCodeForbidden     = "FORBIDDEN"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeRateLimited   = "RATE_LIMIT_EXCEEDED"
	ErrCodeTooLarge      = "REQUEST_TOO_LARGE"
	ErrCodeTenantMissing = "TENANT_REQUIRED"
	ErrCodeUnavailable   = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps codes whose status the naming rules below would get wrong
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:      http.StatusInternalServerError,
	ErrCodeValidation:    http.StatusBadRequest,
	ErrCodeBadRequest:    http.StatusBadRequest,
	ErrCodeInvalidJSON:   http.StatusBadRequest,
	ErrCodeUnauthorized:  http.StatusUnauthorized,
	ErrCodeForbidden:     http.StatusForbidden,
	ErrCodeNotFound:      http.StatusNotFound,
	ErrCodeConflict:      http.StatusConflict,
	ErrCodeRateLimited:   http.StatusTooManyRequests,
	ErrCodeTooLarge:      http.StatusRequestEntityTooLarge,
	ErrCodeTenantMissing: http.StatusUnauthorized,
	ErrCodeUnavailable:   http.StatusServiceUnavailable,

	// auth
	"INVALID_CREDENTIALS": http.StatusUnauthorized,
	"INVALID_TOKEN":       http.StatusUnauthorized,
	"TOKEN_EXPIRED":       http.StatusUnauthorized,
	"TOKEN_REVOKED":       http.StatusUnauthorized,
	"REFRESH_LIMIT":       http.StatusUnauthorized,
	"ACCOUNT_DEACTIVATED": http.StatusForbidden,
	"TENANT_SUSPENDED":    http.StatusForbidden,
	"TENANT_MISMATCH":     http.StatusNotFound,

	// persistence and integrations
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"DB_ERROR":             http.StatusInternalServerError,
	"SAVE_FAILED":          http.StatusInternalServerError,
	"SEND_FAILED":          http.StatusBadGateway,
	"FETCH_FAILED":         http.StatusBadGateway,
	"VALIDATION_ERRORS":    http.StatusBadRequest,
	"UNKNOWN_PROJECTION":   http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status for a domain or transport code.
// Codes not listed follow their naming: *_NOT_FOUND is 404, *_TAKEN and
// DUPLICATE_* are 409, INVALID_* and *_REQUIRED are 400. Any other business
// rule is 422.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	switch {
	case code == "":
		return http.StatusInternalServerError
	case strings.HasSuffix(code, "_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "_TAKEN"), strings.HasPrefix(code, "DUPLICATE_"), strings.HasPrefix(code, "ALREADY_"):
		return http.StatusConflict
	case strings.HasPrefix(code, "INVALID_"), strings.HasSuffix(code, "_REQUIRED"):
		return http.StatusBadRequest
	default:
		return http.StatusUnprocessableEntity
	}
}
