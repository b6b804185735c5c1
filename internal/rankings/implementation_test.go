package rankings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librent/internal/cache"
	"librent/internal/database"
	"librent/internal/ledger"
)

type memCache struct {
	data   map[string]Rankings
	getErr error
	sets   int
}

func (m *memCache) Get(_ context.Context, key string, dst any) error {
	if m.getErr != nil {
		return m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return cache.ErrMiss
	}
	*dst.(*Rankings) = v
	return nil
}

func (m *memCache) Set(_ context.Context, key string, v any, _ time.Duration) error {
	m.sets++
	m.data[key] = *v.(*Rankings)
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRankingsServedFromCache(t *testing.T) {
	want := Rankings{
		TopUser:  TopUser{ID: 2, Name: "Ana", Points: 60, Title: "Lord of Knowledge"},
		MostRead: MostRead{BookID: 5, Title: "Dune", Total: 4},
		TopRated: TopRated{BookID: 3, Title: "Emma", AvgRating: 4.5, Count: 2},
	}
	c := &memCache{data: map[string]Rankings{cacheKey: want}}

	// A nil database proves the cached value short-circuits the queries.
	svc := NewService(nil, c, time.Minute, discard())
	got, err := svc.Rankings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, *got)
}

func TestEmpty(t *testing.T) {
	e := Empty()
	assert.Equal(t, NotAvailable, e.TopUser.Name)
	assert.Zero(t, e.TopUser.Points)
	assert.Equal(t, NotAvailable, e.MostRead.Title)
	assert.Equal(t, NotAvailable, e.TopRated.Title)
	assert.Zero(t, e.TopRated.AvgRating)
}

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestTopUserTieBreaksOnLowestID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	l := ledger.New()

	var current int
	require.NoError(t, db.GetContext(ctx, &current, `SELECT COALESCE(MAX(total), 0) FROM point_balances`))
	top := current + 1000

	ids := make([]int64, 2)
	for i := range ids {
		email := fmt.Sprintf("rank-%d-%d@x.com", i, time.Now().UnixNano())
		require.NoError(t, db.GetContext(ctx, &ids[i],
			`INSERT INTO users (name, email, password_hash) VALUES ($1, $2, 'x') RETURNING id`, fmt.Sprintf("Reader %d", i), email))
		require.NoError(t, database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
			_, err := l.Credit(ctx, tx, ids[i], top, "seed")
			return err
		}))
	}

	c := &memCache{data: map[string]Rankings{}, getErr: errors.New("redis down")}
	svc := NewService(db, c, time.Minute, discard())
	r, err := svc.Rankings(ctx)
	require.NoError(t, err)
	assert.Equal(t, ids[0], r.TopUser.ID)
	assert.Equal(t, top, r.TopUser.Points)
	assert.Equal(t, 1, c.sets)
}

func TestBlacklistJoinsOverdueRentals(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	var userID, idleID, bookID int64
	stamp := time.Now().UnixNano()
	require.NoError(t, db.GetContext(ctx, &userID,
		`INSERT INTO users (name, email, password_hash) VALUES ('Late', $1, 'x') RETURNING id`, fmt.Sprintf("late-%d@x.com", stamp)))
	require.NoError(t, db.GetContext(ctx, &idleID,
		`INSERT INTO users (name, email, password_hash) VALUES ('Flagged', $1, 'x') RETURNING id`, fmt.Sprintf("flag-%d@x.com", stamp)))
	require.NoError(t, db.GetContext(ctx, &bookID,
		`INSERT INTO books (title, author) VALUES ('Overdue Probe', 'Tester') RETURNING id`))
	_, err := db.ExecContext(ctx, `
		INSERT INTO rentals (user_id, book_id, tier_id, rented_at, due_at, status)
		VALUES ($1, $2, 1, NOW() - INTERVAL '20 days', NOW() - INTERVAL '5 days', 'overdue')
	`, userID, bookID)
	require.NoError(t, err)
	_, err = db.ExecContext(ctx, `INSERT INTO blacklist (user_id) VALUES ($1), ($2)`, userID, idleID)
	require.NoError(t, err)

	entries, err := NewService(db, cache.Nop{}, time.Minute, discard()).Blacklist(ctx)
	require.NoError(t, err)

	var mine []BlacklistEntry
	for _, e := range entries {
		assert.NotEqual(t, idleID, e.UserID, "flagged users without overdue rentals are not listed")
		if e.UserID == userID {
			mine = append(mine, e)
		}
	}
	require.Len(t, mine, 1)
	assert.Equal(t, "Overdue Probe", mine[0].BookTitle)
	assert.InDelta(t, 5, mine[0].DaysLate, 1)
}
