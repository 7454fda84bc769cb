package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/ratelimit"
	"github.com/portfolio-dashboard/internal/types"
)

// DefaultCheckSpec is how often the scheduler checks whether a snapshot is due
const DefaultCheckSpec = "@every 1h"

// defaultRefreshTimeout bounds one scheduled refresh
const defaultRefreshTimeout = 5 * time.Minute

// Refresher creates a persisted snapshot
type Refresher interface {
	Refresh(ctx context.Context) (*models.ValuationResult, error)
}

// LatestSnapshotTimer reports when the newest snapshot was taken
type LatestSnapshotTimer interface {
	LatestCreatedAt(ctx context.Context) (*time.Time, error)
}

// SnapshotScheduler takes a snapshot whenever the latest one is older than the interval.
// Due-ness is checked on a cron schedule so a restart does not reset the cadence.
type SnapshotScheduler struct {
	refresher Refresher
	snapshots LatestSnapshotTimer
	interval  time.Duration
	checkSpec string
	timeout   time.Duration
	now       func() time.Time

	mu     sync.Mutex
	cron   *cron.Cron
	cancel context.CancelFunc
}

// NewSnapshotScheduler creates a scheduler. An empty checkSpec uses DefaultCheckSpec.
func NewSnapshotScheduler(refresher Refresher, snapshots LatestSnapshotTimer, interval time.Duration, checkSpec string) *SnapshotScheduler {
	if interval <= 0 {
		interval = DefaultMinSnapshotInterval
	}
	if checkSpec == "" {
		checkSpec = DefaultCheckSpec
	}
	return &SnapshotScheduler{
		refresher: refresher,
		snapshots: snapshots,
		interval:  interval,
		checkSpec: checkSpec,
		timeout:   defaultRefreshTimeout,
		now:       time.Now,
	}
}

// Start registers the check with cron and starts it. The first check runs immediately.
func (s *SnapshotScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return fmt.Errorf("snapshot scheduler is already running")
	}

	c := cron.New()
	baseCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	if _, err := c.AddFunc(s.checkSpec, func() { s.tick(baseCtx) }); err != nil {
		cancel()
		s.cancel = nil
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.checkSpec, err)
	}
	c.Start()
	s.cron = c

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"interval": s.interval.String(),
		"check":    s.checkSpec,
	}).Info("Snapshot scheduler started")

	go s.tick(baseCtx)
	return nil
}

// Stop stops the scheduler and waits for a running check to finish
func (s *SnapshotScheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	logging.Info("Snapshot scheduler stopped")
}

// IsRunning reports whether the scheduler is started
func (s *SnapshotScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cron != nil
}

func (s *SnapshotScheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		logging.FromContext(ctx).WithError(err).Error("Scheduled snapshot failed")
	}
}

// RunOnce takes a snapshot if one is due and reports whether it did. A refresh rejected as
// too recent is not an error.
func (s *SnapshotScheduler) RunOnce(ctx context.Context) (bool, error) {
	log := logging.FromContext(ctx)

	last, err := s.snapshots.LatestCreatedAt(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to check latest snapshot: %w", err)
	}
	if last != nil && s.now().Sub(*last) < s.interval {
		log.WithField("next_due", last.Add(s.interval).UTC().Format(time.RFC3339)).Debug("Snapshot not due")
		return false, nil
	}

	// scheduled refreshes draw on the shared CU pool
	result, err := s.refresher.Refresh(ratelimit.WithPriority(ctx, ratelimit.PriorityLow))
	if err != nil {
		var catErr *apperrors.CategorizedError
		if stderrors.As(err, &catErr) && catErr.Code == types.CodeSnapshotTooRecent {
			log.WithField("reason", catErr.Message).Info("Skipping scheduled snapshot")
			return false, nil
		}
		return false, err
	}

	log.WithFields(map[string]interface{}{
		"snapshot_id":   result.Snapshot.ID,
		"total_aud":     result.Snapshot.TotalAud,
		"wallet_errors": len(result.Errors),
	}).Info("Scheduled snapshot created")
	return true, nil
}
