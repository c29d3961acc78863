package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

const journalColumns = `id, owner_email, title, content, entry_type, tags, mood, created_at, updated_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func scanJournalEntry(row rowScanner) (*models.JournalEntry, error) {
	var e models.JournalEntry
	var tags pq.StringArray
	var mood sql.NullString

	err := row.Scan(&e.ID, &e.OwnerEmail, &e.Title, &e.Content, &e.EntryType, &tags, &mood, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Tags = []string(tags)
	if e.Tags == nil {
		e.Tags = []string{}
	}
	e.Mood = mood.String
	return &e, nil
}

// CreateJournalEntry inserts a journal entry
func (db *DB) CreateJournalEntry(ctx context.Context, e *models.JournalEntry) error {
	query := `
		INSERT INTO journal_entries (owner_email, title, content, entry_type, tags, mood)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := db.q(ctx).QueryRowContext(ctx, query,
		e.OwnerEmail, e.Title, e.Content, e.EntryType, pq.Array(e.Tags), nullString(e.Mood),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}
	return nil
}

// GetJournalEntryByID retrieves a journal entry
func (db *DB) GetJournalEntryByID(ctx context.Context, id int) (*models.JournalEntry, error) {
	query := `SELECT ` + journalColumns + ` FROM journal_entries WHERE id = $1`

	e, err := scanJournalEntry(db.q(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("journal entry not found: %d: %w", id, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get journal entry: %w", err)
	}
	return e, nil
}

// UpdateJournalEntry persists the editable fields of e
func (db *DB) UpdateJournalEntry(ctx context.Context, e *models.JournalEntry) error {
	query := `
		UPDATE journal_entries
		SET title = $2, content = $3, entry_type = $4, tags = $5, mood = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := db.q(ctx).QueryRowContext(ctx, query,
		e.ID, e.Title, e.Content, e.EntryType, pq.Array(e.Tags), nullString(e.Mood),
	).Scan(&e.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("journal entry not found: %d: %w", e.ID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to update journal entry: %w", err)
	}
	return nil
}

// DeleteJournalEntry removes a journal entry of ownerEmail
func (db *DB) DeleteJournalEntry(ctx context.Context, id int, ownerEmail string) error {
	result, err := db.q(ctx).ExecContext(ctx,
		`DELETE FROM journal_entries WHERE id = $1 AND owner_email = $2`,
		id, ownerEmail,
	)
	if err != nil {
		return fmt.Errorf("failed to delete journal entry: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("journal entry not found: %d: %w", id, models.ErrNotFound)
	}
	return nil
}

// ListJournalEntries retrieves journal entries matching filter, newest first
func (db *DB) ListJournalEntries(ctx context.Context, filter models.JournalFilter) ([]*models.JournalEntry, error) {
	var where []string
	var args []any

	if filter.OwnerEmail != "" {
		args = append(args, filter.OwnerEmail)
		where = append(where, fmt.Sprintf("owner_email = $%d", len(args)))
	}
	if filter.EntryType != "" {
		args = append(args, filter.EntryType)
		where = append(where, fmt.Sprintf("entry_type = $%d", len(args)))
	}
	if filter.Tag != "" {
		args = append(args, strings.ToLower(filter.Tag))
		where = append(where, fmt.Sprintf("$%d = ANY(tags)", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(title ILIKE $%d OR content ILIKE $%d OR array_to_string(tags, ',') ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + journalColumns + ` FROM journal_entries`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := db.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.JournalEntry
	for rows.Next() {
		e, err := scanJournalEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal entries: %w", err)
	}
	return entries, nil
}
