// Package journal keeps a trader's free-form journal and the journal view over positions.
package journal

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/trogers1052/options-premium-tracker/internal/models"
)

const maxTitleLength = 255

// Store persists journal entries
type Store interface {
	CreateJournalEntry(ctx context.Context, e *models.JournalEntry) error
	GetJournalEntryByID(ctx context.Context, id int) (*models.JournalEntry, error)
	UpdateJournalEntry(ctx context.Context, e *models.JournalEntry) error
	DeleteJournalEntry(ctx context.Context, id int, ownerEmail string) error
	ListJournalEntries(ctx context.Context, filter models.JournalFilter) ([]*models.JournalEntry, error)
}

// PositionLister loads a trader's positions
type PositionLister interface {
	ListPositions(ctx context.Context, filter models.PositionFilter) ([]*models.Position, error)
}

// Service manages journal entries on behalf of their owner
type Service struct {
	store     Store
	positions PositionLister
	logger    *slog.Logger
}

// NewService creates a new journal Service
func NewService(store Store, positions PositionLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:     store,
		positions: positions,
		logger:    logger.With("component", "journal"),
	}
}

// Create stores a new entry for user. Title and content are required; the type defaults to custom.
func (s *Service) Create(ctx context.Context, user models.User, in models.JournalEntryInput) (*models.JournalEntry, error) {
	e := &models.JournalEntry{OwnerEmail: user.Email, EntryType: models.EntryCustom, Tags: []string{}}
	apply(e, in)
	if err := validate(e); err != nil {
		return nil, err
	}

	if err := s.store.CreateJournalEntry(ctx, e); err != nil {
		return nil, &models.DependencyError{Op: "create journal entry", Err: err}
	}
	s.logger.Info("journal entry created", "id", e.ID, "entry_type", e.EntryType)
	return e, nil
}

// Get loads an entry owned by user
func (s *Service) Get(ctx context.Context, user models.User, id int) (*models.JournalEntry, error) {
	e, err := s.store.GetJournalEntryByID(ctx, id)
	if err != nil {
		return nil, storeError("get journal entry", id, err)
	}
	if e.OwnerEmail != user.Email {
		return nil, &models.NotFoundError{Kind: "journal entry", ID: id}
	}
	return e, nil
}

// Update applies the non-nil fields of in to an entry owned by user
func (s *Service) Update(ctx context.Context, user models.User, id int, in models.JournalEntryInput) (*models.JournalEntry, error) {
	e, err := s.Get(ctx, user, id)
	if err != nil {
		return nil, err
	}
	apply(e, in)
	if err := validate(e); err != nil {
		return nil, err
	}

	if err := s.store.UpdateJournalEntry(ctx, e); err != nil {
		return nil, storeError("update journal entry", id, err)
	}
	return e, nil
}

// Delete removes an entry owned by user
func (s *Service) Delete(ctx context.Context, user models.User, id int) error {
	if err := s.store.DeleteJournalEntry(ctx, id, user.Email); err != nil {
		return storeError("delete journal entry", id, err)
	}
	return nil
}

// List returns user's entries narrowed by type, tag and a free-text search
func (s *Service) List(ctx context.Context, user models.User, filter models.JournalFilter) ([]*models.JournalEntry, error) {
	if filter.EntryType != "" && !models.IsValidEntryType(filter.EntryType) {
		return nil, &models.ValidationError{Field: "entry_type", Reason: "is not a known entry type"}
	}
	filter.OwnerEmail = user.Email
	filter.Search = strings.TrimSpace(filter.Search)

	entries, err := s.store.ListJournalEntries(ctx, filter)
	if err != nil {
		return nil, &models.DependencyError{Op: "list journal entries", Err: err}
	}
	return entries, nil
}

// TradeJournal returns user's positions that carry a thesis, entry conditions or lessons,
// newest first. search matches the symbol and those notes case-insensitively.
func (s *Service) TradeJournal(ctx context.Context, user models.User, search string) ([]*models.Position, error) {
	positions, err := s.positions.ListPositions(ctx, models.PositionFilter{OwnerEmail: user.Email})
	if err != nil {
		return nil, &models.DependencyError{Op: "list positions", Err: err}
	}

	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]*models.Position, 0, len(positions))
	for _, p := range positions {
		if !hasJournal(p) {
			continue
		}
		if search != "" && !matches(search, p.Symbol, p.PreTradeThesis, p.MarketConditionsAtEntry, p.LessonsLearned) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func hasJournal(p *models.Position) bool {
	return p.PreTradeThesis != "" || p.MarketConditionsAtEntry != "" || p.LessonsLearned != ""
}

func matches(search string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), search) {
			return true
		}
	}
	return false
}

func apply(e *models.JournalEntry, in models.JournalEntryInput) {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Content != nil {
		e.Content = strings.TrimSpace(*in.Content)
	}
	if in.EntryType != nil {
		e.EntryType = *in.EntryType
	}
	if in.Tags != nil {
		e.Tags = normalizeTags(*in.Tags)
	}
	if in.Mood != nil {
		e.Mood = *in.Mood
	}
}

func validate(e *models.JournalEntry) error {
	if e.Title == "" {
		return &models.ValidationError{Field: "title", Reason: "is required"}
	}
	if utf8.RuneCountInString(e.Title) > maxTitleLength {
		return &models.ValidationError{Field: "title", Reason: "must be at most 255 characters"}
	}
	if e.Content == "" {
		return &models.ValidationError{Field: "content", Reason: "is required"}
	}
	if !models.IsValidEntryType(e.EntryType) {
		return &models.ValidationError{Field: "entry_type", Reason: "is not a known entry type"}
	}
	if !models.IsValidMood(e.Mood) {
		return &models.ValidationError{Field: "mood", Reason: "must be bullish, bearish, neutral or uncertain"}
	}
	return nil
}

// normalizeTags splits comma-separated values, lowercases and drops blanks and repeats
func normalizeTags(raw []string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, value := range raw {
		for _, tag := range strings.Split(value, ",") {
			tag = strings.ToLower(strings.TrimSpace(tag))
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func storeError(op string, id int, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return &models.NotFoundError{Kind: "journal entry", ID: id}
	}
	return &models.DependencyError{Op: op, Err: err}
}
