package ledger

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librent/internal/database"
)

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

func createUser(t *testing.T, db *sqlx.DB) int64 {
	t.Helper()
	var id int64
	email := fmt.Sprintf("ledger-%d@test.local", time.Now().UnixNano())
	require.NoError(t, db.GetContext(context.Background(), &id,
		`INSERT INTO users (name, email, password_hash) VALUES ('Ledger', $1, 'x') RETURNING id`, email))
	return id
}

func TestCreditDebit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	l := New()
	userID := createUser(t, db)

	require.NoError(t, database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		return l.Open(ctx, tx, userID)
	}))

	var total int
	require.NoError(t, database.WithTx(ctx, db, func(tx *sqlx.Tx) (err error) {
		total, err = l.Credit(ctx, tx, userID, 25, "on-time return")
		return err
	}))
	assert.Equal(t, 25, total)

	require.NoError(t, database.WithTx(ctx, db, func(tx *sqlx.Tx) (err error) {
		total, err = l.Debit(ctx, tx, userID, 20, "reward: ghost_mode")
		return err
	}))
	assert.Equal(t, 5, total)

	err := database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		_, err := l.Debit(ctx, tx, userID, 6, "reward: title_of_fame")
		return err
	})
	require.ErrorIs(t, err, ErrInsufficientPoints)

	balance, err := Balance(ctx, db, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)

	sum, err := Sum(ctx, db, userID)
	require.NoError(t, err)
	assert.Equal(t, balance, sum)

	history, err := History(ctx, db, userID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, -20, history[0].Quantity)
	assert.Equal(t, 25, history[1].Quantity)
}

func TestCreditRejectsNonPositive(t *testing.T) {
	_, err := New().Credit(context.Background(), nil, 1, 0, "noop")
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestConcurrentDebitsNeverOverdraw(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	l := New()
	userID := createUser(t, db)
	require.NoError(t, database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
		_, err := l.Credit(ctx, tx, userID, 50, "seed")
		return err
	}))

	const workers = 10
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		go func() {
			errs <- database.WithTx(ctx, db, func(tx *sqlx.Tx) error {
				_, err := l.Debit(ctx, tx, userID, 10, "race")
				return err
			})
		}()
	}

	succeeded := 0
	for i := 0; i < workers; i++ {
		if err := <-errs; err == nil {
			succeeded++
		} else {
			require.ErrorIs(t, err, ErrInsufficientPoints)
		}
	}
	assert.Equal(t, 5, succeeded)

	balance, err := Balance(ctx, db, userID)
	require.NoError(t, err)
	assert.Zero(t, balance)
}
