package database

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/options-premium-tracker/internal/models"
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return &DB{conn: sqlDB}, mock
}

func TestCreatePosition_ReturnsGeneratedFields(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO option_positions").
		WillReturnRows(sqlmock.NewRows([]string{"id", "version", "created_at", "updated_at"}).AddRow(41, 1, now, now))

	p := newTestPosition("trader@example.com", "AAPL")
	require.NoError(t, db.CreatePosition(context.Background(), p))
	assert.Equal(t, 41, p.ID)
	assert.Equal(t, 1, p.Version)
	assert.Equal(t, now, p.CreatedAt)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreatePosition_WrapsDriverError(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("INSERT INTO option_positions").WillReturnError(errors.New("connection refused"))

	err := db.CreatePosition(context.Background(), newTestPosition("trader@example.com", "AAPL"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create position")

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePosition_StaleVersion(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("UPDATE option_positions SET").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	p := newTestPosition("trader@example.com", "AAPL")
	p.ID = 7
	p.Version = 3
	err := db.UpdatePosition(context.Background(), p)
	assert.ErrorIs(t, err, models.ErrStaleVersion)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePosition_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("UPDATE option_positions SET").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").WithArgs(8).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	p := newTestPosition("trader@example.com", "AAPL")
	p.ID = 8
	p.Version = 1
	err := db.UpdatePosition(context.Background(), p)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatePosition_BumpsVersion(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()

	mock.ExpectQuery("UPDATE option_positions SET").
		WillReturnRows(sqlmock.NewRows([]string{"version", "updated_at"}).AddRow(2, now))

	p := newTestPosition("trader@example.com", "AAPL")
	p.ID = 9
	p.Version = 1
	require.NoError(t, db.UpdatePosition(context.Background(), p))
	assert.Equal(t, 2, p.Version)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPositionByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery("FROM option_positions WHERE id").WithArgs(5).WillReturnError(sql.ErrNoRows)

	_, err := db.GetPositionByID(context.Background(), 5)
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunInTx_CommitsAndRollsBack(t *testing.T) {
	t.Run("commit", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery("SELECT COUNT").WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
		mock.ExpectCommit()

		err := db.RunInTx(context.Background(), func(ctx context.Context) error {
			count, err := db.CountOpenPositions(ctx, "trader@example.com")
			assert.Equal(t, 2, count)
			return err
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := db.RunInTx(context.Background(), func(ctx context.Context) error { return boom })
		assert.ErrorIs(t, err, boom)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin().WillReturnError(errors.New("begin failed"))

		err := db.RunInTx(context.Background(), func(ctx context.Context) error { return nil })
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to begin transaction")
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested call joins outer transaction", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectCommit()

		err := db.RunInTx(context.Background(), func(ctx context.Context) error {
			return db.RunInTx(ctx, func(ctx context.Context) error { return nil })
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreateNotificationIfAbsent(t *testing.T) {
	t.Run("inserted", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("INSERT INTO notifications").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(3, time.Now()))

		created, err := db.CreateNotificationIfAbsent(context.Background(), &models.Notification{UserEmail: "a@example.com", RelatedID: 1})
		require.NoError(t, err)
		assert.True(t, created)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery("INSERT INTO notifications").
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}))

		created, err := db.CreateNotificationIfAbsent(context.Background(), &models.Notification{UserEmail: "a@example.com", RelatedID: 1})
		require.NoError(t, err)
		assert.False(t, created)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkNotificationRead_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("UPDATE notifications SET is_read").
		WithArgs(12, "a@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.MarkNotificationRead(context.Background(), 12, "a@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateNotification_AlwaysInserts(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	for _, id := range []int{7, 8} {
		mock.ExpectQuery("INSERT INTO notifications").
			WithArgs("ada@example.com", models.NotificationCommentOnYourPost, sqlmock.AnyArg(), sqlmock.AnyArg(), 3, sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(id, now))
	}

	for _, want := range []int{7, 8} {
		n := &models.Notification{UserEmail: "ada@example.com", Type: models.NotificationCommentOnYourPost, RelatedID: 3}
		require.NoError(t, db.CreateNotification(context.Background(), n))
		assert.Equal(t, want, n.ID)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListCommunityPosts_Filters(t *testing.T) {
	db, mock := newMockDB(t)
	now := time.Now()
	columns := []string{"id", "position_id", "author_email", "author_name", "symbol", "strategy", "title", "notes", "count", "created_at"}

	mock.ExpectQuery(`FROM community_posts p WHERE 1=1 AND p.symbol = \$1 AND p.author_email IN \(SELECT followed_email FROM user_follows WHERE follower_email = \$2\) ORDER BY`).
		WithArgs("AAPL", "bob@example.com", 50).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(4, nil, "ada@example.com", "Ada", "AAPL", models.StrategyCashSecuredPut, "CSP", nil, 2, now))

	posts, err := db.ListCommunityPosts(context.Background(), models.PostFilter{Symbol: "aapl", FollowedBy: "bob@example.com"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, 0, posts[0].PositionID)
	assert.Equal(t, 2, posts[0].CommentCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListJournalEntries_EscapesSearch(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(`FROM journal_entries WHERE owner_email = \$1 AND \$2 = ANY\(tags\) AND \(title ILIKE \$3`).
		WithArgs("ada@example.com", "spy", `%50\% otm%`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_email", "title", "content", "entry_type", "tags", "mood", "created_at", "updated_at"}).
			AddRow(1, "ada@example.com", "Far OTM", "50% OTM puts", models.EntryCustom, "{spy,otm}", nil, time.Now(), time.Now()))

	entries, err := db.ListJournalEntries(context.Background(), models.JournalFilter{OwnerEmail: "ada@example.com", Tag: "SPY", Search: "50% otm"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, []string{"spy", "otm"}, entries[0].Tags)
	assert.Empty(t, entries[0].Mood)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteJournalEntry_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec("DELETE FROM journal_entries").
		WithArgs(9, "ada@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := db.DeleteJournalEntry(context.Background(), 9, "ada@example.com")
	assert.ErrorIs(t, err, models.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFeatureVote_InTransaction(t *testing.T) {
	db, mock := newMockDB(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT vote_type FROM feature_votes").
		WithArgs(3, "ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"vote_type"}))
	mock.ExpectExec("INSERT INTO feature_votes").
		WithArgs(3, "ada@example.com", models.VoteUp).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := db.RunInTx(ctx, func(ctx context.Context) error {
		_, err := db.GetFeatureVote(ctx, 3, "ada@example.com")
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}
		return db.PutFeatureVote(ctx, 3, "ada@example.com", models.VoteUp)
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
