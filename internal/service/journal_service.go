package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/portfolio-dashboard/internal/errors"
	"github.com/portfolio-dashboard/internal/models"
	"github.com/portfolio-dashboard/internal/storage"
	"github.com/portfolio-dashboard/internal/types"
)

// MaxJournalEntries caps the investment journal
const MaxJournalEntries = 100

// JournalRepository interface for journal data operations
type JournalRepository interface {
	List(ctx context.Context) ([]models.JournalEntry, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, e *models.JournalEntry) error
	Delete(ctx context.Context, id string) error
}

// JournalService manages the investment journal
type JournalService struct {
	journalRepo JournalRepository
}

// NewJournalService creates a new journal service
func NewJournalService(journalRepo JournalRepository) *JournalService {
	return &JournalService{journalRepo: journalRepo}
}

// List returns every journal entry, newest first
func (s *JournalService) List(ctx context.Context) ([]models.JournalEntry, error) {
	entries, err := s.journalRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	if entries == nil {
		entries = []models.JournalEntry{}
	}
	return entries, nil
}

// Create adds an entry for an asset
func (s *JournalService) Create(ctx context.Context, assetName string) (*models.JournalEntry, error) {
	assetName = strings.TrimSpace(assetName)
	if assetName == "" {
		return nil, invalidInput("assetName is required")
	}

	count, err := s.journalRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count journal entries: %w", err)
	}
	if count >= MaxJournalEntries {
		return nil, apperrors.NewLimitReachedError(types.CodeJournalLimitReached, "journal entry", MaxJournalEntries)
	}

	entry := &models.JournalEntry{AssetName: assetName}
	if err := s.journalRepo.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create journal entry: %w", err)
	}
	return entry, nil
}

// Delete removes an entry
func (s *JournalService) Delete(ctx context.Context, id string) error {
	if err := s.journalRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return &types.ServiceError{
				Code:    types.CodeJournalNotFound,
				Message: fmt.Sprintf("journal entry %s not found", id),
				Details: map[string]interface{}{"id": id},
			}
		}
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	return nil
}
