package dto

import (
	"net/http"
	"strings"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/cashcustody"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeInvalidAmount is used when an amount is zero, negative or malformed
	ErrCodeInvalidAmount = "ERR_INVALID_AMOUNT"
	// ErrCodeInvalidDate is used when a business date is not YYYY-MM-DD
	ErrCodeInvalidDate = "ERR_INVALID_DATE"
	// ErrCodeRejectionReasonRequired is used when a rejection carries no reason
	ErrCodeRejectionReasonRequired = "ERR_REJECTION_REASON_REQUIRED"
	// ErrCodeCollectionLimitExceeded is used when a single collection is above the collector's ceiling
	ErrCodeCollectionLimitExceeded = "ERR_COLLECTION_LIMIT_EXCEEDED"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the user lacks permission
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	// ErrCodeTokenRevoked is used when the auth token was revoked
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
)

// Cash ledger error codes
const (
	ErrCodeFloatAlreadyIssued        = "ERR_FLOAT_ALREADY_ISSUED"
	ErrCodeDayAlreadyClosed          = "ERR_DAY_ALREADY_CLOSED"
	ErrCodeHandoverPending           = "ERR_HANDOVER_PENDING"
	ErrCodeInsufficientFunds         = "ERR_INSUFFICIENT_FUNDS"
	ErrCodeDailyCapExceeded          = "ERR_DAILY_CAP_EXCEEDED"
	ErrCodeFloatNotConfirmed         = "ERR_FLOAT_NOT_CONFIRMED"
	ErrCodeDisbursementLimitExceeded = "ERR_DISBURSEMENT_LIMIT_EXCEEDED"
	ErrCodeHandoverCashierMismatch   = "ERR_HANDOVER_CASHIER_MISMATCH"
	ErrCodeFloatNotFound             = "ERR_FLOAT_NOT_FOUND"
	ErrCodeHandoverNotFound          = "ERR_HANDOVER_NOT_FOUND"
	ErrCodeLoanNotFound              = "ERR_LOAN_NOT_FOUND"
	// ErrCodeLedgerBusy is returned once lock retries are exhausted; clients resubmit
	ErrCodeLedgerBusy = "ERR_LEDGER_BUSY"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:              http.StatusBadRequest,
	ErrCodeInvalidAmount:           http.StatusBadRequest,
	ErrCodeInvalidDate:             http.StatusBadRequest,
	ErrCodeRejectionReasonRequired: http.StatusBadRequest,
	ErrCodeCollectionLimitExceeded: http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound: http.StatusNotFound,
	ErrCodeConflict: http.StatusConflict,

	// State conflicts of the collector-day -> 409
	ErrCodeFloatAlreadyIssued: http.StatusConflict,
	ErrCodeDayAlreadyClosed:   http.StatusConflict,
	ErrCodeHandoverPending:    http.StatusConflict,

	// Refused by cash or authority limits -> 422
	ErrCodeInsufficientFunds:         http.StatusUnprocessableEntity,
	ErrCodeDailyCapExceeded:          http.StatusUnprocessableEntity,
	ErrCodeFloatNotConfirmed:         http.StatusUnprocessableEntity,
	ErrCodeDisbursementLimitExceeded: http.StatusUnprocessableEntity,

	ErrCodeHandoverCashierMismatch: http.StatusForbidden,

	ErrCodeFloatNotFound:    http.StatusNotFound,
	ErrCodeHandoverNotFound: http.StatusNotFound,
	ErrCodeLoanNotFound:     http.StatusNotFound,

	ErrCodeLedgerBusy: http.StatusServiceUnavailable,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unlisted ERR_INVALID_* codes are client input errors; anything else
// unknown is a 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	if strings.HasPrefix(code, "ERR_INVALID_") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes whose API name differs
// from the ERR_ prefixed form
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":        ErrCodeNotFound,
	"ALREADY_EXISTS":   ErrCodeConflict,
	"INVALID_INPUT":    ErrCodeInvalidInput,
	"INVALID_STATE":    ErrCodeConflict,
	"UNAUTHORIZED":     ErrCodeUnauthorized,
	"FORBIDDEN":        ErrCodeForbidden,
	"VALIDATION_ERROR": ErrCodeValidation,
	"BAD_REQUEST":      ErrCodeBadRequest,
	"INTERNAL_ERROR":   ErrCodeInternal,

	// Contention that escaped the retry loop is reported like exhaustion
	"OPTIMISTIC_LOCK_FAILED":   ErrCodeLedgerBusy,
	"CONCURRENCY_CONFLICT":     ErrCodeLedgerBusy,
	cashcustody.CodeInvalidGeo: ErrCodeValidation,
}

// NormalizeErrorCode converts a domain error code to its API form.
// Codes already carrying the ERR_ prefix are returned as-is.
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	if code == "" {
		return ErrCodeUnknown
	}
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	return "ERR_" + code
}
