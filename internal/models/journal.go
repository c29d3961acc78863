package models

import "time"

// Journal entry types
const (
	EntryCustom            = "custom"
	EntryTradeReflection   = "trade_reflection"
	EntryMarketObservation = "market_observation"
	EntryLessonLearned     = "lesson_learned"
)

// Market moods
const (
	MoodBullish   = "bullish"
	MoodBearish   = "bearish"
	MoodNeutral   = "neutral"
	MoodUncertain = "uncertain"
)

// IsValidEntryType reports whether t is a known journal entry type
func IsValidEntryType(t string) bool {
	switch t {
	case EntryCustom, EntryTradeReflection, EntryMarketObservation, EntryLessonLearned:
		return true
	}
	return false
}

// IsValidMood reports whether m is empty or a known market mood
func IsValidMood(m string) bool {
	switch m {
	case "", MoodBullish, MoodBearish, MoodNeutral, MoodUncertain:
		return true
	}
	return false
}

// JournalEntry is a free-form trading journal note
type JournalEntry struct {
	ID         int       `json:"id"`
	OwnerEmail string    `json:"owner_email"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	EntryType  string    `json:"entry_type"`
	Tags       []string  `json:"tags"`
	Mood       string    `json:"mood,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// JournalEntryInput carries the user-editable fields of an entry.
// Nil fields are left unchanged on update.
type JournalEntryInput struct {
	Title     *string   `json:"title"`
	Content   *string   `json:"content"`
	EntryType *string   `json:"entry_type"`
	Tags      *[]string `json:"tags"`
	Mood      *string   `json:"mood"`
}

// JournalFilter narrows journal listings. Search matches title, content
// and tags case-insensitively.
type JournalFilter struct {
	OwnerEmail string
	EntryType  string
	Tag        string
	Search     string
	Limit      int
}
