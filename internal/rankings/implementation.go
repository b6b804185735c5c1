// internal/rankings/implementation.go
package rankings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"librent/internal/cache"
)

const cacheKey = "librent:rankings"

// service implements the Service interface.
type service struct {
	db    *sqlx.DB
	cache cache.Cache
	ttl   time.Duration
	log   *slog.Logger
}

// NewService creates the rankings service. Rankings are cached for ttl.
func NewService(db *sqlx.DB, c cache.Cache, ttl time.Duration, log *slog.Logger) Service {
	return &service{db: db, cache: c, ttl: ttl, log: log}
}

// Rankings reads through the cache; cache failures fall back to the database.
func (s *service) Rankings(ctx context.Context) (*Rankings, error) {
	var cached Rankings
	err := s.cache.Get(ctx, cacheKey, &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		s.log.WarnContext(ctx, "rankings cache read failed", slog.Any("err", err))
	}

	r, err := s.compute(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cacheKey, r, s.ttl); err != nil {
		s.log.WarnContext(ctx, "rankings cache write failed", slog.Any("err", err))
	}
	return r, nil
}

func (s *service) compute(ctx context.Context) (*Rankings, error) {
	r := Empty()

	err := s.db.GetContext(ctx, &r.TopUser, `
		SELECT u.id, u.name, b.total AS points, COALESCE(rr.exclusive_title, '') AS title
		FROM users u
		JOIN point_balances b ON b.user_id = u.id
		LEFT JOIN reader_rankings rr ON rr.user_id = u.id
		WHERE u.role = 'user'
		ORDER BY b.total DESC, u.id ASC
		LIMIT 1
	`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query top user: %w", err)
	}

	err = s.db.GetContext(ctx, &r.MostRead, `
		SELECT b.id AS book_id, b.title, COUNT(r.id)::int AS total
		FROM books b
		JOIN rentals r ON r.book_id = b.id
		GROUP BY b.id, b.title
		ORDER BY total DESC, b.id ASC
		LIMIT 1
	`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query most read: %w", err)
	}

	err = s.db.GetContext(ctx, &r.TopRated, `
		SELECT b.id AS book_id, b.title, AVG(rt.rating)::float8 AS avg_rating, COUNT(rt.id)::int AS count
		FROM books b
		JOIN ratings rt ON rt.book_id = b.id
		GROUP BY b.id, b.title
		ORDER BY avg_rating DESC, b.id ASC
		LIMIT 1
	`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query top rated: %w", err)
	}

	return &r, nil
}

// Blacklist lists flagged users joined with their overdue rentals, most
// overdue first. Flagged users without an overdue rental are omitted.
func (s *service) Blacklist(ctx context.Context) ([]BlacklistEntry, error) {
	entries := []BlacklistEntry{}
	err := s.db.SelectContext(ctx, &entries, `
		SELECT u.id AS user_id, u.name, u.email, bk.title AS book_title,
		       r.rented_at, r.due_at,
		       GREATEST(CURRENT_DATE - r.due_at::date, 0) AS days_late
		FROM blacklist bl
		JOIN users u ON u.id = bl.user_id
		JOIN rentals r ON r.user_id = u.id AND r.status = 'overdue'
		JOIN books bk ON bk.id = r.book_id
		WHERE bl.active
		ORDER BY r.due_at ASC, r.id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query blacklist: %w", err)
	}
	return entries, nil
}
