package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/report"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
)

// BriefListLimit is the number of briefs returned by List
const BriefListLimit = 50

// BriefRepository interface for brief data operations
type BriefRepository interface {
	Create(ctx context.Context, b *models.Brief) error
	List(ctx context.Context, limit int) ([]models.Brief, error)
	GetByID(ctx context.Context, id string) (*models.Brief, error)
	Delete(ctx context.Context, id string) error
}

// MarkdownFormat selects the rendering of the markdown brief
type MarkdownFormat string

const (
	FormatMarkdown MarkdownFormat = "md"
	FormatHTML     MarkdownFormat = "html"
)

// BriefService generates and stores weekly briefs and deep dives
type BriefService struct {
	briefRepo    BriefRepository
	snapshotRepo SnapshotRepository
	settingsSvc  *SettingsService
}

// NewBriefService creates a new brief service
func NewBriefService(briefRepo BriefRepository, snapshotRepo SnapshotRepository, settingsSvc *SettingsService) *BriefService {
	return &BriefService{
		briefRepo:    briefRepo,
		snapshotRepo: snapshotRepo,
		settingsSvc:  settingsSvc,
	}
}

// Generate builds a report of the given type from the latest snapshot, compares it with the
// one before and stores it. It fails with NO_SNAPSHOTS when there is no snapshot.
func (s *BriefService) Generate(ctx context.Context, reportType types.ReportType) (*models.Brief, error) {
	if reportType == "" {
		reportType = types.ReportWeekly
	}
	if !reportType.Valid() {
		return nil, invalidInput(fmt.Sprintf("reportType must be weekly or deep-dive, got %q", reportType))
	}

	current, previous, err := s.latestPair(ctx)
	if err != nil {
		return nil, err
	}
	appSettings, err := s.settingsSvc.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	history, err := s.snapshotRepo.ListWithHoldings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot history: %w", err)
	}

	var payload interface{}
	switch reportType {
	case types.ReportDeepDive:
		payload = report.NewDeepDive(current, previous, history, appSettings.MonthlyBurnAud)
	default:
		payload = report.NewWeeklyBrief(current, previous, history, appSettings.MonthlyBurnAud)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode brief: %w", err)
	}

	brief := &models.Brief{
		ReportType: reportType,
		SnapshotID: current.ID,
		Data:       data,
	}
	if err := s.briefRepo.Create(ctx, brief); err != nil {
		return nil, fmt.Errorf("failed to store brief: %w", err)
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"brief_id":    brief.ID,
		"report_type": reportType,
		"snapshot_id": current.ID,
	}).Info("Brief generated")

	return brief, nil
}

// List returns the newest briefs
func (s *BriefService) List(ctx context.Context) ([]models.Brief, error) {
	briefs, err := s.briefRepo.List(ctx, BriefListLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list briefs: %w", err)
	}
	if briefs == nil {
		briefs = []models.Brief{}
	}
	return briefs, nil
}

// Get returns a stored brief
func (s *BriefService) Get(ctx context.Context, id string) (*models.Brief, error) {
	brief, err := s.briefRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, briefNotFound(id)
		}
		return nil, fmt.Errorf("failed to get brief: %w", err)
	}
	return brief, nil
}

// Delete removes a stored brief
func (s *BriefService) Delete(ctx context.Context, id string) error {
	if err := s.briefRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return briefNotFound(id)
		}
		return fmt.Errorf("failed to delete brief: %w", err)
	}
	return nil
}

// Markdown renders the latest snapshot against the one before as markdown, or as HTML
func (s *BriefService) Markdown(ctx context.Context, format MarkdownFormat) (string, error) {
	if format == "" {
		format = FormatMarkdown
	}
	if format != FormatMarkdown && format != FormatHTML {
		return "", invalidInput(fmt.Sprintf("format must be md or html, got %q", format))
	}

	current, previous, err := s.latestPair(ctx)
	if err != nil {
		return "", err
	}

	md := report.MarkdownBrief(current, previous)
	if format == FormatMarkdown {
		return md, nil
	}
	html, err := report.RenderHTML(md)
	if err != nil {
		return "", fmt.Errorf("failed to render brief: %w", err)
	}
	return html, nil
}

// latestPair returns the latest snapshot and the one before it, which may be nil
func (s *BriefService) latestPair(ctx context.Context) (*models.Snapshot, *models.Snapshot, error) {
	current, err := s.snapshotRepo.Latest(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil, &types.ServiceError{
				Code:    types.CodeNoSnapshots,
				Message: "no snapshots available; refresh the portfolio first",
			}
		}
		return nil, nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	previous, err := s.snapshotRepo.Previous(ctx, current.CreatedAt)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			return nil, nil, fmt.Errorf("failed to get previous snapshot: %w", err)
		}
		previous = nil
	}
	return current, previous, nil
}

func briefNotFound(id string) *types.ServiceError {
	return &types.ServiceError{
		Code:    types.CodeBriefNotFound,
		Message: fmt.Sprintf("brief %s not found", id),
		Details: map[string]interface{}{"id": id},
	}
}
