// internal/ledger/ledger.go
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidQuantity    = errors.New("quantity must be positive")
)

// Entry is one append-only points movement.
type Entry struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	Reason    string    `json:"reason" db:"reason"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Ledger appends entries and keeps the per-user balance row in step. Every
// write runs on the caller's transaction so the entry and the balance commit
// together.
type Ledger struct {
	tracer trace.Tracer
}

func New() *Ledger {
	return &Ledger{tracer: otel.Tracer("librent/ledger")}
}

// Open creates a zero balance row for a new user.
func (l *Ledger) Open(ctx context.Context, tx sqlx.ExecerContext, userID int64) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO point_balances (user_id, total) VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID)
	if err != nil {
		return fmt.Errorf("open balance: %w", err)
	}
	return nil
}

// Credit appends a positive entry and returns the new balance.
func (l *Ledger) Credit(ctx context.Context, tx sqlx.ExtContext, userID int64, qty int, reason string) (int, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.credit", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("quantity", qty),
		attribute.String("reason", reason),
	))
	defer span.End()

	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	if err := l.append(ctx, tx, userID, qty, reason); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	var total int
	err := sqlx.GetContext(ctx, tx, &total, `
		INSERT INTO point_balances (user_id, total) VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET total = point_balances.total + EXCLUDED.total
		RETURNING total
	`, userID, qty)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("update balance: %w", err)
	}
	span.SetAttributes(attribute.Int("balance", total))
	return total, nil
}

// Debit subtracts qty only if the balance covers it. The check and the
// decrement are a single statement; ErrInsufficientPoints leaves nothing written.
func (l *Ledger) Debit(ctx context.Context, tx sqlx.ExtContext, userID int64, qty int, reason string) (int, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.debit", trace.WithAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("quantity", qty),
		attribute.String("reason", reason),
	))
	defer span.End()

	if qty < 0 {
		return 0, ErrInvalidQuantity
	}

	var total int
	err := sqlx.GetContext(ctx, tx, &total, `
		UPDATE point_balances SET total = total - $2
		WHERE user_id = $1 AND total >= $2
		RETURNING total
	`, userID, qty)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool("insufficient", true))
		return 0, ErrInsufficientPoints
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("debit balance: %w", err)
	}

	if qty > 0 {
		if err := l.append(ctx, tx, userID, -qty, reason); err != nil {
			span.SetStatus(codes.Error, err.Error())
			return 0, err
		}
	}
	span.SetAttributes(attribute.Int("balance", total))
	return total, nil
}

func (l *Ledger) append(ctx context.Context, tx sqlx.ExecerContext, userID int64, qty int, reason string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO point_entries (user_id, quantity, reason, created_at)
		VALUES ($1, $2, $3, $4)
	`, userID, qty, reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// Balance returns the materialized balance, zero when no row exists.
func Balance(ctx context.Context, q sqlx.QueryerContext, userID int64) (int, error) {
	var total int
	err := sqlx.GetContext(ctx, q, &total, `
		SELECT COALESCE((SELECT total FROM point_balances WHERE user_id = $1), 0)
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("query balance: %w", err)
	}
	return total, nil
}

// History lists a user's entries, newest first.
func History(ctx context.Context, q sqlx.QueryerContext, userID int64) ([]Entry, error) {
	entries := []Entry{}
	err := sqlx.SelectContext(ctx, q, &entries, `
		SELECT id, user_id, quantity, reason, created_at
		FROM point_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}
	return entries, nil
}

// Sum recomputes the balance from the entries.
func Sum(ctx context.Context, q sqlx.QueryerContext, userID int64) (int, error) {
	var total int
	err := sqlx.GetContext(ctx, q, &total, `
		SELECT COALESCE(SUM(quantity), 0) FROM point_entries WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, fmt.Errorf("sum ledger: %w", err)
	}
	return total, nil
}
