package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/ratelimit"
)

type fakeRefresher struct {
	calls    atomic.Int32
	err      error
	priority atomic.Int32
}

func (f *fakeRefresher) Refresh(ctx context.Context) (*models.ValuationResult, error) {
	f.calls.Add(1)
	f.priority.Store(int32(ratelimit.PriorityFromContext(ctx)))
	if f.err != nil {
		return nil, f.err
	}
	return &models.ValuationResult{Snapshot: &models.Snapshot{ID: "new", SnapshotTotals: models.SnapshotTotals{TotalAud: 100}}}, nil
}

type fixedLatest struct {
	mu   sync.Mutex
	last *time.Time
	err  error
}

func (f *fixedLatest) LatestCreatedAt(context.Context) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last, f.err
}

func TestSchedulerRunOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)
	old := now.Add(-49 * time.Hour)

	tests := []struct {
		name       string
		last       *time.Time
		refreshErr error
		wantRan    bool
		wantErr    bool
		wantCalls  int32
	}{
		{name: "first snapshot", last: nil, wantRan: true, wantCalls: 1},
		{name: "not due", last: &recent, wantRan: false, wantCalls: 0},
		{name: "due", last: &old, wantRan: true, wantCalls: 1},
		{name: "too recent is skipped", last: &old, refreshErr: apperrors.NewSnapshotTooRecentError(2), wantRan: false, wantCalls: 1},
		{name: "refresh failure", last: &old, refreshErr: errors.New("db down"), wantErr: true, wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &fakeRefresher{err: tt.refreshErr}
			s := NewSnapshotScheduler(refresher, &fixedLatest{last: tt.last}, 0, "")
			s.now = func() time.Time { return now }

			ran, err := s.RunOnce(testContext(t))
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.wantRan, ran)
			assert.Equal(t, tt.wantCalls, refresher.calls.Load())
		})
	}
}

func TestSchedulerRefreshesAtLowPriority(t *testing.T) {
	refresher := &fakeRefresher{}
	s := NewSnapshotScheduler(refresher, &fixedLatest{}, time.Hour, "")

	ran, err := s.RunOnce(testContext(t))
	require.NoError(t, err)
	require.True(t, ran)
	assert.Equal(t, int32(ratelimit.PriorityLow), refresher.priority.Load())
}

func TestSchedulerRunOnceLatestError(t *testing.T) {
	refresher := &fakeRefresher{}
	s := NewSnapshotScheduler(refresher, &fixedLatest{err: errors.New("timeout")}, time.Hour, "")

	_, err := s.RunOnce(testContext(t))
	require.Error(t, err)
	assert.Equal(t, int32(0), refresher.calls.Load())
}

func TestSchedulerStartStop(t *testing.T) {
	refresher := &fakeRefresher{}
	s := NewSnapshotScheduler(refresher, &fixedLatest{}, time.Hour, "@every 1h")

	require.NoError(t, s.Start(testContext(t)))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(testContext(t)), "second start is rejected")

	require.Eventually(t, func() bool { return refresher.calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond,
		"first check runs on start")

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestSchedulerInvalidSpec(t *testing.T) {
	s := NewSnapshotScheduler(&fakeRefresher{}, &fixedLatest{}, time.Hour, "every tuesday")

	assert.Error(t, s.Start(testContext(t)))
	assert.False(t, s.IsRunning())
}
