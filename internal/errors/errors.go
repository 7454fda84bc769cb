// Package errors classifies failures into categories with HTTP status codes so handlers,
// retries and logs agree on what went wrong.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/portfolio-dashboard/internal/types"
)

// ErrorCategory represents the category of an error
type ErrorCategory string

const (
	CategoryUserInput  ErrorCategory = "user_input"
	CategoryValidation ErrorCategory = "validation"
	CategoryNotFound   ErrorCategory = "not_found"
	CategoryConflict   ErrorCategory = "conflict"
	CategoryRateLimit  ErrorCategory = "rate_limit"
	CategorySystem     ErrorCategory = "system"
	CategoryDatabase   ErrorCategory = "database"
	CategoryCache      ErrorCategory = "cache"
	CategoryProvider   ErrorCategory = "provider"
)

// CategorizedError represents an error with category and HTTP status code
type CategorizedError struct {
	Category   ErrorCategory
	StatusCode int
	Code       string
	Message    string
	Details    map[string]interface{}
	Cause      error
}

func (e *CategorizedError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CategorizedError) Unwrap() error {
	return e.Cause
}

// ToServiceError strips the category for the response body
func (e *CategorizedError) ToServiceError() *types.ServiceError {
	return types.NewServiceError(e.Code, e.Message, e.Details)
}

func newError(category ErrorCategory, status int, code, message string) *CategorizedError {
	return &CategorizedError{Category: category, StatusCode: status, Code: code, Message: message}
}

func (e *CategorizedError) with(details map[string]interface{}, cause error) *CategorizedError {
	e.Details = details
	e.Cause = cause
	return e
}

// NewInvalidParameterError reports a malformed request parameter
func NewInvalidParameterError(param, reason string) *CategorizedError {
	return newError(CategoryValidation, http.StatusBadRequest, types.CodeInvalidInput,
		fmt.Sprintf("invalid parameter '%s': %s", param, reason)).
		with(map[string]interface{}{"parameter": param, "reason": reason}, nil)
}

// NewNotFoundError reports a missing resource
func NewNotFoundError(resource, id string) *CategorizedError {
	return newError(CategoryNotFound, http.StatusNotFound, "NOT_FOUND",
		fmt.Sprintf("%s not found: %s", resource, id)).
		with(map[string]interface{}{"resource": resource, "id": id}, nil)
}

// NewConflictError reports a request that clashes with stored state
func NewConflictError(message string) *CategorizedError {
	return newError(CategoryConflict, http.StatusConflict, "CONFLICT", message)
}

// NewRateLimitError reports an API client over its request budget
func NewRateLimitError(retryAfterSeconds int) *CategorizedError {
	return newError(CategoryRateLimit, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "rate limit exceeded").
		with(map[string]interface{}{"retryAfter": retryAfterSeconds}, nil)
}

// NewSnapshotTooRecentError reports a refresh attempted inside the minimum interval
func NewSnapshotTooRecentError(hoursRemaining float64) *CategorizedError {
	return newError(CategoryRateLimit, http.StatusTooManyRequests, types.CodeSnapshotTooRecent,
		fmt.Sprintf("a snapshot was taken recently; next snapshot allowed in %.1f hours", hoursRemaining)).
		with(map[string]interface{}{"nextSnapshotAllowedIn": hoursRemaining}, nil)
}

// NewLimitReachedError reports a capped collection that is full. code is the service code
// for the collection, e.g. types.CodeJournalLimitReached.
func NewLimitReachedError(code, resource string, limit int) *CategorizedError {
	return newError(CategoryUserInput, http.StatusBadRequest, code,
		fmt.Sprintf("%s limit of %d reached", resource, limit)).
		with(map[string]interface{}{"resource": resource, "limit": limit}, nil)
}

// NewInternalError wraps an unexpected failure
func NewInternalError(message string, cause error) *CategorizedError {
	return newError(CategorySystem, http.StatusInternalServerError, "INTERNAL_ERROR", message).with(nil, cause)
}

// NewDatabaseError wraps a failed storage operation
func NewDatabaseError(operation string, cause error) *CategorizedError {
	return newError(CategoryDatabase, http.StatusInternalServerError, "DATABASE_ERROR",
		fmt.Sprintf("database error during %s", operation)).
		with(map[string]interface{}{"operation": operation}, cause)
}

// NewCacheError wraps a failed cache operation
func NewCacheError(operation string, cause error) *CategorizedError {
	return newError(CategoryCache, http.StatusInternalServerError, "CACHE_ERROR",
		fmt.Sprintf("cache error during %s", operation)).
		with(map[string]interface{}{"operation": operation}, cause)
}

// NewProviderError wraps a failed call to a price or chain provider
func NewProviderError(provider string, cause error) *CategorizedError {
	return newError(CategoryProvider, http.StatusBadGateway, "PROVIDER_ERROR",
		fmt.Sprintf("data provider error: %s", provider)).
		with(map[string]interface{}{"provider": provider}, cause)
}

// NewProviderRateLimitError reports a provider answering 429
func NewProviderRateLimitError(provider string) *CategorizedError {
	return newError(CategoryProvider, http.StatusTooManyRequests, "PROVIDER_RATE_LIMIT",
		fmt.Sprintf("data provider rate limit exceeded: %s", provider)).
		with(map[string]interface{}{"provider": provider}, nil)
}

// NewServiceUnavailableError reports a dependency that is down or switched off
func NewServiceUnavailableError(service string) *CategorizedError {
	return newError(CategorySystem, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
		fmt.Sprintf("service unavailable: %s", service)).
		with(map[string]interface{}{"service": service}, nil)
}

type classification struct {
	category ErrorCategory
	status   int
}

// serviceCodes maps service error codes to their category and status
var serviceCodes = map[string]classification{
	types.CodeInvalidInput:            {CategoryValidation, http.StatusBadRequest},
	types.CodeNoSnapshots:             {CategoryUserInput, http.StatusBadRequest},
	types.CodeJournalLimitReached:     {CategoryUserInput, http.StatusBadRequest},
	types.CodeManualAssetLimitReached: {CategoryUserInput, http.StatusBadRequest},
	types.CodeSnapshotNotFound:        {CategoryNotFound, http.StatusNotFound},
	types.CodeManualAssetNotFound:     {CategoryNotFound, http.StatusNotFound},
	types.CodeWalletNotFound:          {CategoryNotFound, http.StatusNotFound},
	types.CodeBriefNotFound:           {CategoryNotFound, http.StatusNotFound},
	types.CodeJournalNotFound:         {CategoryNotFound, http.StatusNotFound},
	types.CodeTokenNotFound:           {CategoryNotFound, http.StatusNotFound},
	types.CodeWalletExists:            {CategoryConflict, http.StatusConflict},
	types.CodeTokenExists:             {CategoryConflict, http.StatusConflict},
	types.CodeSnapshotTooRecent:       {CategoryRateLimit, http.StatusTooManyRequests},
}

// Categorize classifies err. Categorized errors anywhere in the chain are returned as they
// are, service errors are mapped by code and everything else becomes an internal error.
func Categorize(err error) *CategorizedError {
	if err == nil {
		return nil
	}

	var catErr *CategorizedError
	if stderrors.As(err, &catErr) {
		return catErr
	}

	var svcErr *types.ServiceError
	if stderrors.As(err, &svcErr) {
		c, ok := serviceCodes[svcErr.Code]
		if !ok {
			c = classification{CategorySystem, http.StatusInternalServerError}
		}
		return &CategorizedError{
			Category:   c.category,
			StatusCode: c.status,
			Code:       svcErr.Code,
			Message:    svcErr.Message,
			Details:    svcErr.Details,
		}
	}

	if stderrors.Is(err, context.DeadlineExceeded) {
		return newError(CategoryProvider, http.StatusGatewayTimeout, "TIMEOUT", "operation timed out").with(nil, err)
	}

	return NewInternalError("unexpected error", err)
}

// GetHTTPStatusCode returns the HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if catErr := Categorize(err); catErr != nil {
		return catErr.StatusCode
	}
	return http.StatusOK
}

// IsRetryable reports whether repeating the operation could succeed
func IsRetryable(err error) bool {
	catErr := Categorize(err)
	if catErr == nil {
		return false
	}

	switch catErr.Category {
	case CategoryProvider, CategoryDatabase, CategoryCache:
		return true
	case CategorySystem:
		return catErr.StatusCode == http.StatusServiceUnavailable
	default:
		return false
	}
}

// IsUserError reports whether err maps to a 4xx response
func IsUserError(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.StatusCode >= 400 && catErr.StatusCode < 500
}

// IsSystemError reports whether err maps to a 5xx response
func IsSystemError(err error) bool {
	catErr := Categorize(err)
	return catErr != nil && catErr.StatusCode >= 500
}
