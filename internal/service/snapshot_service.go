package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portfolio-dashboard/internal/analytics"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/settings"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
)

// SnapshotRepository interface for snapshot data operations
type SnapshotRepository interface {
	Create(ctx context.Context, snapshot *models.Snapshot) error
	GetByID(ctx context.Context, id string) (*models.Snapshot, error)
	Latest(ctx context.Context) (*models.Snapshot, error)
	Previous(ctx context.Context, before time.Time) (*models.Snapshot, error)
	LatestCreatedAt(ctx context.Context) (*time.Time, error)
	List(ctx context.Context, opts storage.SnapshotListOptions) ([]models.Snapshot, error)
	Count(ctx context.Context) (int, error)
	ListWithHoldings(ctx context.Context) ([]models.Snapshot, error)
	Points(ctx context.Context) ([]models.ValuePoint, error)
	Delete(ctx context.Context, id string) error
}

// ValueHistoryStore is the optional analytical copy of snapshot totals
type ValueHistoryStore interface {
	Append(ctx context.Context, snapshots ...*models.Snapshot) error
	Points(ctx context.Context) ([]models.ValuePoint, error)
	Delete(ctx context.Context, snapshotID string) error
}

// CacheInvalidator drops cached analytics when the snapshot history changes
type CacheInvalidator interface {
	InvalidateAll(ctx context.Context) error
}

// SnapshotService handles snapshot history: listing, deletion and import
type SnapshotService struct {
	snapshotRepo SnapshotRepository
	history      ValueHistoryStore
	cache        CacheInvalidator
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(snapshotRepo SnapshotRepository) *SnapshotService {
	return &SnapshotService{
		snapshotRepo: snapshotRepo,
	}
}

// WithValueHistory mirrors snapshot writes and deletes into the value history store
func (s *SnapshotService) WithValueHistory(history ValueHistoryStore) *SnapshotService {
	s.history = history
	return s
}

// WithCache invalidates cached analytics after writes and deletes
func (s *SnapshotService) WithCache(cache CacheInvalidator) *SnapshotService {
	s.cache = cache
	return s
}

// ListSnapshotsInput filters and pages the snapshot history
type ListSnapshotsInput struct {
	Range  types.TimeRange `json:"range"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// SnapshotPage is one page of the snapshot history. Total counts every snapshot in the range.
type SnapshotPage struct {
	Snapshots []models.Snapshot `json:"snapshots"`
	Total     int               `json:"total"`
}

// List returns snapshot totals without holdings, newest first. A range is measured back from
// the newest snapshot, not from the current time.
func (s *SnapshotService) List(ctx context.Context, input ListSnapshotsInput) (*SnapshotPage, error) {
	if !input.Range.Valid() {
		return nil, &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: fmt.Sprintf("unknown range %q", input.Range),
		}
	}
	if input.Limit < 0 || input.Offset < 0 {
		return nil, &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "limit and offset must not be negative",
		}
	}

	if input.Range.Days() == 0 {
		snapshots, err := s.snapshotRepo.List(ctx, storage.SnapshotListOptions{Limit: input.Limit, Offset: input.Offset})
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		total, err := s.snapshotRepo.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count snapshots: %w", err)
		}
		return newSnapshotPage(snapshots, total), nil
	}

	all, err := s.snapshotRepo.List(ctx, storage.SnapshotListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	inRange := analytics.FilterSnapshotsByRange(all, input.Range)
	return newSnapshotPage(pageSnapshots(inRange, input.Limit, input.Offset), len(inRange)), nil
}

func newSnapshotPage(snapshots []models.Snapshot, total int) *SnapshotPage {
	if snapshots == nil {
		snapshots = []models.Snapshot{}
	}
	return &SnapshotPage{Snapshots: snapshots, Total: total}
}

// pageSnapshots applies offset then limit; a zero limit keeps the rest
func pageSnapshots(snapshots []models.Snapshot, limit, offset int) []models.Snapshot {
	if offset >= len(snapshots) {
		return nil
	}
	snapshots = snapshots[offset:]
	if limit > 0 && len(snapshots) > limit {
		snapshots = snapshots[:limit]
	}
	return snapshots
}

// Get returns a snapshot with its holdings
func (s *SnapshotService) Get(ctx context.Context, id string) (*models.Snapshot, error) {
	snapshot, err := s.snapshotRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, snapshotNotFound(id)
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}
	return snapshot, nil
}

// Delete removes a snapshot and its holdings
func (s *SnapshotService) Delete(ctx context.Context, id string) error {
	if err := s.snapshotRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return snapshotNotFound(id)
		}
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}

	if s.history != nil {
		if err := s.history.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).WithError(err).WithField("snapshot_id", id).
				Warn("Failed to delete snapshot from value history")
		}
	}
	s.invalidate(ctx)
	return nil
}

// ImportedSnapshot is one entry of a snapshot backup. Totals may be JSON numbers or decimal
// strings; dates are D/M/YYYY or RFC 3339.
type ImportedSnapshot struct {
	Date     string          `json:"date"`
	TotalAud json.RawMessage `json:"totalAud"`
	FxUsdAud json.RawMessage `json:"fxUsdAud,omitempty"`
}

// ImportSnapshotsInput is the body of a snapshot import
type ImportSnapshotsInput struct {
	Snapshots []ImportedSnapshot `json:"snapshots"`
}

// ImportResult reports what an import stored
type ImportResult struct {
	Imported  int               `json:"imported"`
	Skipped   int               `json:"skipped"`
	Snapshots []models.Snapshot `json:"snapshots"`
}

// Import stores historical snapshots from a backup. Imported snapshots have no holdings and
// carry their total as manual value. Entries without a date or a non-zero total are skipped.
func (s *SnapshotService) Import(ctx context.Context, input ImportSnapshotsInput) (*ImportResult, error) {
	if len(input.Snapshots) == 0 {
		return nil, &types.ServiceError{
			Code:    types.CodeInvalidInput,
			Message: "snapshots must be a non-empty list",
		}
	}

	log := logging.FromContext(ctx)
	result := &ImportResult{Snapshots: []models.Snapshot{}}

	for i, entry := range input.Snapshots {
		snapshot, err := importedSnapshot(entry)
		if err != nil {
			log.WithError(err).WithField("index", i).Debug("Skipping imported snapshot")
			result.Skipped++
			continue
		}
		if err := s.snapshotRepo.Create(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("failed to store imported snapshot %d: %w", i, err)
		}
		result.Snapshots = append(result.Snapshots, *snapshot)
	}
	result.Imported = len(result.Snapshots)

	if result.Imported > 0 {
		if s.history != nil {
			stored := make([]*models.Snapshot, len(result.Snapshots))
			for i := range result.Snapshots {
				stored[i] = &result.Snapshots[i]
			}
			if err := s.history.Append(ctx, stored...); err != nil {
				log.WithError(err).Warn("Failed to append imported snapshots to value history")
			}
		}
		s.invalidate(ctx)
	}

	log.WithFields(map[string]interface{}{
		"imported": result.Imported,
		"skipped":  result.Skipped,
	}).Info("Imported snapshots")

	return result, nil
}

func (s *SnapshotService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("Failed to invalidate analytics cache")
	}
}

func importedSnapshot(entry ImportedSnapshot) (*models.Snapshot, error) {
	if strings.TrimSpace(entry.Date) == "" {
		return nil, fmt.Errorf("date is required")
	}
	createdAt, err := parseImportDate(entry.Date)
	if err != nil {
		return nil, err
	}

	total, err := parseImportNumber(entry.TotalAud)
	if err != nil {
		return nil, fmt.Errorf("totalAud: %w", err)
	}
	if total == 0 {
		return nil, fmt.Errorf("totalAud is required")
	}

	fx := settings.Defaults().FxUsdAud
	if len(entry.FxUsdAud) > 0 {
		if v, err := parseImportNumber(entry.FxUsdAud); err == nil && v > 0 {
			fx = v
		}
	}

	return &models.Snapshot{
		ID:        uuid.New().String(),
		CreatedAt: createdAt,
		FxUsdAud:  fx,
		SnapshotTotals: models.SnapshotTotals{
			TotalAud:       total,
			ManualTotalAud: total,
		},
	}, nil
}

var dayMonthYear = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

// parseImportDate accepts D/M/YYYY (UTC midnight), RFC 3339 and YYYY-MM-DD
func parseImportDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if m := dayMonthYear.FindStringSubmatch(raw); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if month < 1 || month > 12 || day < 1 || day > 31 {
			return time.Time{}, fmt.Errorf("invalid date %q", raw)
		}
		return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", raw)
}

// parseImportNumber accepts a JSON number or a decimal string. Missing values are zero.
func parseImportNumber(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if strings.TrimSpace(str) == "" {
			return 0, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(str))
		if err != nil {
			return 0, err
		}
		return d.InexactFloat64(), nil
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n, nil
}

func snapshotNotFound(id string) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeSnapshotNotFound,
		Message: fmt.Sprintf("snapshot %s not found", id),
		Details: map[string]interface{}{"id": id},
	}
}
