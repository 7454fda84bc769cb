package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-dashboard/internal/types"
)

func TestCategorizeServiceErrors(t *testing.T) {
	tests := []struct {
		code     string
		category ErrorCategory
		status   int
	}{
		{types.CodeInvalidInput, CategoryValidation, http.StatusBadRequest},
		{types.CodeNoSnapshots, CategoryUserInput, http.StatusBadRequest},
		{types.CodeJournalLimitReached, CategoryUserInput, http.StatusBadRequest},
		{types.CodeSnapshotNotFound, CategoryNotFound, http.StatusNotFound},
		{types.CodeWalletNotFound, CategoryNotFound, http.StatusNotFound},
		{types.CodeWalletExists, CategoryConflict, http.StatusConflict},
		{types.CodeSnapshotTooRecent, CategoryRateLimit, http.StatusTooManyRequests},
		{"SOMETHING_ELSE", CategorySystem, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			details := map[string]interface{}{"id": "x"}
			got := Categorize(types.NewServiceError(tt.code, "message", details))
			require.NotNil(t, got)
			if got.Category != tt.category || got.StatusCode != tt.status {
				t.Errorf("Categorize(%s) = %s/%d, want %s/%d", tt.code, got.Category, got.StatusCode, tt.category, tt.status)
			}
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, "message", got.Message)
			assert.Equal(t, details, got.Details)
		})
	}
}

func TestCategorizeWrapped(t *testing.T) {
	assert.Nil(t, Categorize(nil))

	db := NewDatabaseError("insert snapshot", stderrors.New("conn reset"))
	wrapped := fmt.Errorf("refresh: %w", db)
	assert.Same(t, db, Categorize(wrapped))

	svc := fmt.Errorf("loading: %w", types.NewServiceError(types.CodeBriefNotFound, "brief not found", nil))
	assert.Equal(t, http.StatusNotFound, GetHTTPStatusCode(svc))

	timeout := Categorize(fmt.Errorf("prices: %w", context.DeadlineExceeded))
	assert.Equal(t, http.StatusGatewayTimeout, timeout.StatusCode)
	assert.True(t, IsRetryable(timeout))

	plain := Categorize(stderrors.New("boom"))
	assert.Equal(t, "INTERNAL_ERROR", plain.Code)
	assert.True(t, IsSystemError(plain))
}

func TestConstructors(t *testing.T) {
	tooRecent := NewSnapshotTooRecentError(12.5)
	assert.Equal(t, http.StatusTooManyRequests, tooRecent.StatusCode)
	assert.Equal(t, 12.5, tooRecent.Details["nextSnapshotAllowedIn"])
	assert.Equal(t, "SNAPSHOT_TOO_RECENT: a snapshot was taken recently; next snapshot allowed in 12.5 hours", tooRecent.Error())

	limit := NewLimitReachedError(types.CodeJournalLimitReached, "journal entry", 100)
	assert.True(t, IsUserError(limit))
	assert.Equal(t, types.CodeJournalLimitReached, limit.ToServiceError().Code)

	provider := NewProviderError("coingecko", stderrors.New("502"))
	assert.Contains(t, provider.Error(), "caused by: 502")
	assert.ErrorContains(t, stderrors.Unwrap(provider), "502")
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"provider", NewProviderError("coingecko", nil), true},
		{"provider rate limit", NewProviderRateLimitError("coingecko"), true},
		{"database", NewDatabaseError("select", nil), true},
		{"cache", NewCacheError("get", nil), true},
		{"unavailable", NewServiceUnavailableError("clickhouse"), true},
		{"internal", NewInternalError("bug", nil), false},
		{"validation", NewInvalidParameterError("range", "unknown"), false},
		{"not found", NewNotFoundError("snapshot", "1"), false},
		{"conflict", NewConflictError("exists"), false},
		{"client rate limit", NewRateLimitError(1), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}
