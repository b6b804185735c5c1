// internal/circulation/implementation.go
package circulation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel/attribute"

	"librent/internal/apperr"
	"librent/internal/catalog"
	"librent/internal/database"
	"librent/internal/events"
	"librent/internal/ledger"
	"librent/internal/telemetry"
)

const rentalColumns = `
	SELECT r.id, r.book_id, r.user_id, r.rented_at, r.due_at, r.returned_at, r.status,
	       t.name AS tier, b.title
	FROM rentals r
	JOIN books b ON b.id = r.book_id
	JOIN tiers t ON t.id = r.tier_id
`

// service implements the Service interface.
type service struct {
	db       *sqlx.DB
	ledger   *ledger.Ledger
	events   events.Publisher
	counters *telemetry.Counters
	now      func() time.Time
}

// NewService creates a new circulation service instance.
func NewService(db *sqlx.DB, l *ledger.Ledger, pub events.Publisher, counters *telemetry.Counters) Service {
	if counters == nil {
		counters = telemetry.NewCounters()
	}
	return &service{db: db, ledger: l, events: pub, counters: counters, now: time.Now}
}

func (s *service) ListTiers(ctx context.Context) ([]Tier, error) {
	return listTiers(ctx, s.db)
}

func listTiers(ctx context.Context, q sqlx.QueryerContext) ([]Tier, error) {
	tiers := []Tier{}
	if err := sqlx.SelectContext(ctx, q, &tiers, `SELECT id, name, duration_days FROM tiers ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list tiers: %w", err)
	}
	return tiers, nil
}

// CreateRental rents a copy of a book. The book row is locked so concurrent
// rentals of the same title see each other when counting copies.
func (s *service) CreateRental(ctx context.Context, in CreateInput) (*Rental, error) {
	var rental Rental
	var tier Tier
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var bookID int64
		err := tx.GetContext(ctx, &bookID, `SELECT id FROM books WHERE id = $1 FOR UPDATE`, in.BookID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "book not found")
		}
		if err != nil {
			return fmt.Errorf("failed to lock book: %w", err)
		}

		var userOK bool
		if err := tx.GetContext(ctx, &userOK, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND active)`, in.UserID); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !userOK {
			return apperr.New(apperr.NotFound, "user not found")
		}

		var rented int
		if err := tx.GetContext(ctx, &rented, `
			SELECT COUNT(*) FROM rentals WHERE book_id = $1 AND returned_at IS NULL
		`, in.BookID); err != nil {
			return fmt.Errorf("failed to count rentals: %w", err)
		}
		if rented >= catalog.CopiesPerTitle {
			return apperr.New(apperr.Conflict, "no copies available")
		}

		tiers, err := listTiers(ctx, tx)
		if err != nil {
			return err
		}
		var ok bool
		if tier, ok = ResolveTier(tiers, in.Days); !ok {
			return fmt.Errorf("default tier %d is not seeded", DefaultTierID)
		}

		start := s.now().UTC()
		var id int64
		err = tx.GetContext(ctx, &id, `
			INSERT INTO rentals (user_id, book_id, tier_id, rented_at, due_at, status)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, in.UserID, in.BookID, tier.ID, start, DueDate(start, tier), StatusActive)
		if err != nil {
			return fmt.Errorf("failed to insert rental: %w", err)
		}

		return tx.GetContext(ctx, &rental, rentalColumns+` WHERE r.id = $1`, id)
	})
	if err != nil {
		return nil, err
	}

	telemetry.Add(ctx, s.counters.RentalsCreated, 1, attribute.String("tier", tier.Name))
	s.events.Publish(ctx, events.RentalCreated, RentalCreatedEvent{
		RentalID: rental.ID, BookID: rental.BookID, UserID: rental.UserID, TierID: tier.ID, DueDate: rental.DueDate,
	})
	return &rental, nil
}

// ReturnRental closes a rental and credits the owner when it is on time.
// A non-zero userID must be the owner.
func (s *service) ReturnRental(ctx context.Context, rentalID, userID int64) (*ReturnResult, error) {
	var cur struct {
		UserID     int64      `db:"user_id"`
		DueAt      time.Time  `db:"due_at"`
		ReturnedAt *time.Time `db:"returned_at"`
	}
	res := &ReturnResult{Message: "book returned"}
	var onTime bool

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		err := tx.GetContext(ctx, &cur, `
			SELECT user_id, due_at, returned_at FROM rentals WHERE id = $1 FOR UPDATE
		`, rentalID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "rental not found")
		}
		if err != nil {
			return fmt.Errorf("failed to load rental: %w", err)
		}
		if userID != 0 && userID != cur.UserID {
			return apperr.New(apperr.Forbidden, "rental belongs to another user")
		}
		if cur.ReturnedAt != nil {
			return apperr.New(apperr.Conflict, "rental already returned")
		}

		returned := s.now().UTC()
		if _, err := tx.ExecContext(ctx, `
			UPDATE rentals SET returned_at = $1, status = $2 WHERE id = $3
		`, returned, StatusReturned, rentalID); err != nil {
			return fmt.Errorf("failed to mark rental returned: %w", err)
		}

		if onTime = OnTime(returned, cur.DueAt); onTime {
			reason := fmt.Sprintf("on-time return: rental #%d", rentalID)
			if _, err := s.ledger.Credit(ctx, tx, cur.UserID, ReturnBonus, reason); err != nil {
				return err
			}
			res.PointsAwarded = ReturnBonus
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Add(ctx, s.counters.RentalsReturned, 1, attribute.Bool("on_time", onTime))
	s.events.Publish(ctx, events.RentalReturned, RentalReturnedEvent{
		RentalID: rentalID, UserID: cur.UserID, OnTime: onTime, PointsAwarded: res.PointsAwarded,
	})
	return res, nil
}

// UserRentals lists a user's rentals, newest first.
func (s *service) UserRentals(ctx context.Context, userID int64) ([]Rental, error) {
	rentals := []Rental{}
	err := s.db.SelectContext(ctx, &rentals, rentalColumns+`
		WHERE r.user_id = $1
		ORDER BY r.rented_at DESC, r.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	return rentals, nil
}

// AllRentals lists the most recent rentals across all users.
func (s *service) AllRentals(ctx context.Context) ([]AdminRental, error) {
	rentals := []AdminRental{}
	err := s.db.SelectContext(ctx, &rentals, `
		SELECT r.id, r.book_id, r.user_id, r.rented_at, r.due_at, r.returned_at, r.status,
		       t.name AS tier, b.title, u.name AS user_name, u.email AS user_email
		FROM rentals r
		JOIN books b ON b.id = r.book_id
		JOIN tiers t ON t.id = r.tier_id
		JOIN users u ON u.id = r.user_id
		ORDER BY r.rented_at DESC, r.id DESC
		LIMIT $1
	`, adminRentalLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list rentals: %w", err)
	}
	return rentals, nil
}

// RefreshOverdue flips active rentals past their due date to overdue and
// flags their owners on the blacklist.
func (s *service) RefreshOverdue(ctx context.Context, now time.Time) (OverdueReport, error) {
	var flipped []RentalOverdueEvent
	var report OverdueReport

	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		err := tx.SelectContext(ctx, &flipped, `
			UPDATE rentals SET status = $1
			WHERE status = $2 AND due_at < $3
			RETURNING id AS rental_id, user_id
		`, StatusOverdue, StatusActive, now.UTC())
		if err != nil {
			return fmt.Errorf("failed to flip overdue rentals: %w", err)
		}
		if len(flipped) == 0 {
			return nil
		}

		users := make([]int64, 0, len(flipped))
		for _, f := range flipped {
			users = append(users, f.UserID)
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO blacklist (user_id)
			SELECT DISTINCT u FROM unnest($1::bigint[]) AS u
			ON CONFLICT (user_id) WHERE active DO NOTHING
		`, pq.Array(users))
		if err != nil {
			return fmt.Errorf("failed to flag overdue users: %w", err)
		}
		flagged, _ := res.RowsAffected()
		report.Flagged = int(flagged)
		return nil
	})
	if err != nil {
		return OverdueReport{}, err
	}

	report.Flipped = len(flipped)
	telemetry.Add(ctx, s.counters.OverdueFlips, int64(report.Flipped))
	for _, f := range flipped {
		s.events.Publish(ctx, events.RentalOverdue, f)
	}
	return report, nil
}

// FlagUser puts a user on the blacklist. Flagging twice is a no-op.
func (s *service) FlagUser(ctx context.Context, userID int64) error {
	return database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var exists bool
		if err := tx.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, userID); err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			return apperr.New(apperr.NotFound, "user not found")
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO blacklist (user_id) VALUES ($1)
			ON CONFLICT (user_id) WHERE active DO NOTHING
		`, userID); err != nil {
			return fmt.Errorf("failed to flag user: %w", err)
		}
		return nil
	})
}

// ClearUser deactivates the user's blacklist entry.
func (s *service) ClearUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE blacklist SET active = FALSE WHERE user_id = $1 AND active`, userID)
	if err != nil {
		return fmt.Errorf("failed to clear user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.New(apperr.NotFound, "user is not blacklisted")
	}
	return nil
}
