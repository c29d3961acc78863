package journal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

// mockStore implements Store and PositionLister in memory
type mockStore struct {
	entries   map[int]*models.JournalEntry
	positions []*models.Position
	nextID    int
	filter    models.JournalFilter

	CreateErr error
	ListErr   error
}

func newMockStore() *mockStore {
	return &mockStore{entries: make(map[int]*models.JournalEntry), nextID: 1}
}

func (m *mockStore) CreateJournalEntry(_ context.Context, e *models.JournalEntry) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	e.ID = m.nextID
	m.nextID++
	stored := *e
	m.entries[e.ID] = &stored
	return nil
}

func (m *mockStore) GetJournalEntryByID(_ context.Context, id int) (*models.JournalEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	found := *e
	return &found, nil
}

func (m *mockStore) UpdateJournalEntry(_ context.Context, e *models.JournalEntry) error {
	if _, ok := m.entries[e.ID]; !ok {
		return models.ErrNotFound
	}
	stored := *e
	m.entries[e.ID] = &stored
	return nil
}

func (m *mockStore) DeleteJournalEntry(_ context.Context, id int, ownerEmail string) error {
	e, ok := m.entries[id]
	if !ok || e.OwnerEmail != ownerEmail {
		return models.ErrNotFound
	}
	delete(m.entries, id)
	return nil
}

func (m *mockStore) ListJournalEntries(_ context.Context, filter models.JournalFilter) ([]*models.JournalEntry, error) {
	m.filter = filter
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*models.JournalEntry
	for _, e := range m.entries {
		if e.OwnerEmail == filter.OwnerEmail {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockStore) ListPositions(_ context.Context, filter models.PositionFilter) ([]*models.Position, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	var out []*models.Position
	for _, p := range m.positions {
		if p.OwnerEmail == filter.OwnerEmail {
			out = append(out, p)
		}
	}
	return out, nil
}

var (
	trader   = models.User{Email: "trader@example.com", DisplayName: "Trader"}
	intruder = models.User{Email: "intruder@example.com"}
)

func str(s string) *string { return &s }

func tags(t ...string) *[]string { return &t }

func TestCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and normalization", func(t *testing.T) {
		store := newMockStore()
		svc := NewService(store, store, nil)

		e, err := svc.Create(ctx, trader, models.JournalEntryInput{
			Title:   str("  Earnings week  "),
			Content: str("IV crush on NVDA"),
			Tags:    tags("NVDA, earnings", " iv ", "earnings", ""),
		})
		require.NoError(t, err)
		assert.NotZero(t, e.ID)
		assert.Equal(t, "trader@example.com", e.OwnerEmail)
		assert.Equal(t, "Earnings week", e.Title)
		assert.Equal(t, models.EntryCustom, e.EntryType)
		assert.Equal(t, []string{"nvda", "earnings", "iv"}, e.Tags)
		assert.Empty(t, e.Mood)
	})

	tests := []struct {
		name  string
		in    models.JournalEntryInput
		field string
	}{
		{"missing title", models.JournalEntryInput{Content: str("x")}, "title"},
		{"blank title", models.JournalEntryInput{Title: str("   "), Content: str("x")}, "title"},
		{"long title", models.JournalEntryInput{Title: str(strings.Repeat("a", 256)), Content: str("x")}, "title"},
		{"missing content", models.JournalEntryInput{Title: str("x")}, "content"},
		{"unknown type", models.JournalEntryInput{Title: str("x"), Content: str("y"), EntryType: str("diary")}, "entry_type"},
		{"unknown mood", models.JournalEntryInput{Title: str("x"), Content: str("y"), Mood: str("euphoric")}, "mood"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMockStore()
			svc := NewService(store, store, nil)

			_, err := svc.Create(ctx, trader, tt.in)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Empty(t, store.entries)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		store := newMockStore()
		store.CreateErr = errors.New("connection refused")
		svc := NewService(store, store, nil)

		_, err := svc.Create(ctx, trader, models.JournalEntryInput{Title: str("x"), Content: str("y")})
		var derr *models.DependencyError
		require.ErrorAs(t, err, &derr)
	})
}

func TestUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := NewService(store, store, nil)

	e, err := svc.Create(ctx, trader, models.JournalEntryInput{
		Title:     str("Assignment on AMD"),
		Content:   str("Took shares at 120"),
		EntryType: str(models.EntryTradeReflection),
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, trader, e.ID, models.JournalEntryInput{Mood: str(models.MoodNeutral), Tags: tags("AMD")})
	require.NoError(t, err)
	assert.Equal(t, "Assignment on AMD", updated.Title)
	assert.Equal(t, models.EntryTradeReflection, updated.EntryType)
	assert.Equal(t, models.MoodNeutral, updated.Mood)
	assert.Equal(t, []string{"amd"}, store.entries[e.ID].Tags)

	_, err = svc.Update(ctx, trader, e.ID, models.JournalEntryInput{Content: str("  ")})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "Took shares at 120", store.entries[e.ID].Content)

	_, err = svc.Update(ctx, intruder, e.ID, models.JournalEntryInput{Mood: str(models.MoodBearish)})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Get(ctx, intruder, e.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, svc.Delete(ctx, intruder, e.ID), models.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, trader, e.ID))
	assert.ErrorIs(t, svc.Delete(ctx, trader, e.ID), models.ErrNotFound)
}

func TestList(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	svc := NewService(store, store, nil)

	_, err := svc.List(ctx, trader, models.JournalFilter{OwnerEmail: "someone@example.com", EntryType: models.EntryLessonLearned, Search: "  roll  "})
	require.NoError(t, err)
	assert.Equal(t, models.JournalFilter{OwnerEmail: "trader@example.com", EntryType: models.EntryLessonLearned, Search: "roll"}, store.filter)

	_, err = svc.List(ctx, trader, models.JournalFilter{EntryType: "diary"})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)

	store.ListErr = errors.New("timeout")
	_, err = svc.List(ctx, trader, models.JournalFilter{})
	var derr *models.DependencyError
	require.ErrorAs(t, err, &derr)
}

func TestTradeJournal(t *testing.T) {
	ctx := context.Background()
	store := newMockStore()
	store.positions = []*models.Position{
		{ID: 1, OwnerEmail: trader.Email, Symbol: "AAPL", PreTradeThesis: "Support at 150"},
		{ID: 2, OwnerEmail: trader.Email, Symbol: "MSFT"},
		{ID: 3, OwnerEmail: trader.Email, Symbol: "NVDA", LessonsLearned: "Sold too close to earnings"},
		{ID: 4, OwnerEmail: trader.Email, Symbol: "SPY", MarketConditionsAtEntry: "VIX at 25"},
		{ID: 5, OwnerEmail: intruder.Email, Symbol: "TSLA", PreTradeThesis: "meme"},
	}
	svc := NewService(store, store, nil)

	all, err := svc.TradeJournal(ctx, trader, "")
	require.NoError(t, err)
	ids := []int{}
	for _, p := range all {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []int{1, 3, 4}, ids)

	found, err := svc.TradeJournal(ctx, trader, "EARNINGS")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 3, found[0].ID)

	found, err = svc.TradeJournal(ctx, trader, "spy")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 4, found[0].ID)

	store.ListErr = errors.New("timeout")
	_, err = svc.TradeJournal(ctx, trader, "")
	var derr *models.DependencyError
	require.ErrorAs(t, err, &derr)
}
