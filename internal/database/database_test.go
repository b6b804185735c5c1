package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestConstraintCodes(t *testing.T) {
	unique := &pq.Error{Code: "23505"}
	fk := &pq.Error{Code: "23503"}

	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", unique)))
	require.False(t, IsUniqueViolation(fk))
	require.True(t, IsForeignKeyViolation(fk))
	require.False(t, IsForeignKeyViolation(errors.New("23503")))
}

func TestWithTx(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db), "schema must be re-runnable")

	_, err = db.ExecContext(ctx, `CREATE TEMP TABLE IF NOT EXISTS tx_probe (v INT)`)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTx(ctx, db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO tiers (id, name, duration_days) VALUES (99, 'Probe', 99)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var n int
	require.NoError(t, db.GetContext(ctx, &n, `SELECT COUNT(*) FROM tiers WHERE id = 99`))
	require.Zero(t, n, "rolled back insert must not be visible")
}
