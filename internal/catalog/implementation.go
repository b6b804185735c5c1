// internal/catalog/implementation.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"librent/internal/apperr"
	"librent/internal/database"
	"librent/internal/events"
	"librent/internal/ledger"
	"librent/internal/telemetry"
)

// bookColumns selects a book with its live counters. Rented counts copies not
// yet returned, overdue included.
const bookColumns = `
	SELECT b.id, b.title, b.author, b.category, b.description, b.cover_url,
	       (SELECT COUNT(*) FROM rentals r WHERE r.book_id = b.id AND r.returned_at IS NULL)::int AS rented,
	       COALESCE(rt.rating_sum, 0)::int   AS rating_sum,
	       COALESCE(rt.rating_count, 0)::int AS rating_count
	FROM books b
	LEFT JOIN (
		SELECT book_id, SUM(rating) AS rating_sum, COUNT(*) AS rating_count
		FROM ratings
		GROUP BY book_id
	) rt ON rt.book_id = b.id
`

// service implements the Service interface.
type service struct {
	db       *sqlx.DB
	ledger   *ledger.Ledger
	events   events.Publisher
	counters *telemetry.Counters
}

// NewService creates a new catalog service instance.
func NewService(db *sqlx.DB, l *ledger.Ledger, pub events.Publisher, counters *telemetry.Counters) Service {
	if counters == nil {
		counters = telemetry.NewCounters()
	}
	return &service{db: db, ledger: l, events: pub, counters: counters}
}

func toViews(rows []bookRow) []Book {
	books := make([]Book, len(rows))
	for i, r := range rows {
		books[i] = r.view()
	}
	return books
}

// ListBooks returns every book ordered by id.
func (s *service) ListBooks(ctx context.Context) ([]Book, error) {
	var rows []bookRow
	if err := s.db.SelectContext(ctx, &rows, bookColumns+` ORDER BY b.id`); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return toViews(rows), nil
}

// GetBook returns a single book.
func (s *service) GetBook(ctx context.Context, id int64) (*Book, error) {
	var row bookRow
	err := s.db.GetContext(ctx, &row, bookColumns+` WHERE b.id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.New(apperr.NotFound, "book not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	b := row.view()
	return &b, nil
}

// SearchBooks runs a full-text match over title and author.
func (s *service) SearchBooks(ctx context.Context, query string) ([]Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperr.New(apperr.Validation, "search query is required")
	}

	var rows []bookRow
	err := s.db.SelectContext(ctx, &rows, bookColumns+`
		WHERE to_tsvector('english', b.title) @@ plainto_tsquery('english', $1)
		   OR to_tsvector('english', b.author) @@ plainto_tsquery('english', $1)
		ORDER BY b.id
		LIMIT $2
	`, query, SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search books: %w", err)
	}
	return toViews(rows), nil
}

// AddBook inserts a title.
func (s *service) AddBook(ctx context.Context, in NewBook) (*Book, error) {
	var cover sql.NullString
	if in.Cover != "" {
		cover = sql.NullString{String: in.Cover, Valid: true}
	}

	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO books (title, author, category, description, cover_url, copies)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, strings.TrimSpace(in.Title), strings.TrimSpace(in.Author), in.Category, in.Description, cover, CopiesPerTitle)
	if err != nil {
		return nil, fmt.Errorf("failed to insert book: %w", err)
	}

	s.events.Publish(ctx, events.BookAdded, BookAddedEvent{BookID: id, Title: in.Title, Author: in.Author})
	return s.GetBook(ctx, id)
}

// BookRatings lists the ratings visible for a book, newest first. Ghost-mode
// authors are masked; their private ratings are hidden.
func (s *service) BookRatings(ctx context.Context, bookID int64) ([]Rating, error) {
	var rows []ratingRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT r.id, u.name AS user_name, r.rating, r.comment, r.rated_at, u.ghost_mode
		FROM ratings r
		JOIN users u ON u.id = r.user_id
		WHERE r.book_id = $1
		  AND (r.public OR NOT u.ghost_mode)
		ORDER BY r.rated_at DESC, r.id DESC
	`, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ratings: %w", err)
	}

	ratings := make([]Rating, len(rows))
	for i, r := range rows {
		ratings[i] = r.Rating
		if r.GhostMode {
			ratings[i].UserName = AnonymousName
		}
	}
	return ratings, nil
}

// Rate upserts the (user, book) rating. Only the first rating of a pair is
// credited with the bonus.
func (s *service) Rate(ctx context.Context, in RateInput) (*RateResult, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.New(apperr.Validation, "rating must be between 1 and 5")
	}

	var public sql.NullBool
	if in.Public != nil {
		public = sql.NullBool{Bool: *in.Public, Valid: true}
	}

	res := &RateResult{}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`, in.BookID, "book not found"); err != nil {
			return err
		}
		if err := requireRow(ctx, tx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, in.UserID, "user not found"); err != nil {
			return err
		}

		err := tx.GetContext(ctx, &res.Created, `
			INSERT INTO ratings (user_id, book_id, rating, comment, public)
			VALUES ($1, $2, $3, $4, COALESCE($5, TRUE))
			ON CONFLICT (user_id, book_id) DO UPDATE
			SET rating = EXCLUDED.rating,
			    comment = EXCLUDED.comment,
			    public = COALESCE($5, ratings.public)
			RETURNING (xmax = 0) AS inserted
		`, in.UserID, in.BookID, in.Rating, in.Comment, public)
		if err != nil {
			return fmt.Errorf("failed to upsert rating: %w", err)
		}

		if res.Created {
			if _, err := s.ledger.Credit(ctx, tx, in.UserID, RatingBonus, fmt.Sprintf("rating published: book #%d", in.BookID)); err != nil {
				return err
			}
			res.PointsAwarded = RatingBonus
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Message = "rating updated"
	if res.Created {
		res.Message = "rating submitted"
	}
	telemetry.Add(ctx, s.counters.Ratings, 1, attribute.Bool("created", res.Created))
	s.events.Publish(ctx, events.RatingSubmitted, RatingSubmittedEvent{
		BookID: in.BookID, UserID: in.UserID, Rating: in.Rating, Created: res.Created,
	})
	return res, nil
}

func requireRow(ctx context.Context, q sqlx.QueryerContext, query string, id int64, msg string) error {
	var ok bool
	if err := sqlx.GetContext(ctx, q, &ok, query, id); err != nil {
		return fmt.Errorf("failed to check existence: %w", err)
	}
	if !ok {
		return apperr.New(apperr.NotFound, msg)
	}
	return nil
}
