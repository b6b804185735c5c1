// internal/circulation/domain.go
package circulation

import "time"

const (
	StatusActive   = "active"
	StatusReturned = "returned"
	StatusOverdue  = "overdue"

	// ReturnBonus is credited to the owner of a rental returned by its due date.
	ReturnBonus = 25
	// DefaultTierID is used when no tier matches the requested duration.
	DefaultTierID = 1

	adminRentalLimit = 100
)

// Tier is a named rental duration.
type Tier struct {
	ID           int64  `json:"id" db:"id"`
	Name         string `json:"name" db:"name"`
	DurationDays int    `json:"durationDays" db:"duration_days"`
}

// ResolveTier picks the tier whose duration equals days, falling back to the
// default tier. ok is false only when the default tier is missing too.
func ResolveTier(tiers []Tier, days int) (Tier, bool) {
	var fallback Tier
	found := false
	for _, t := range tiers {
		if t.DurationDays == days {
			return t, true
		}
		if t.ID == DefaultTierID {
			fallback, found = t, true
		}
	}
	return fallback, found
}

// DueDate is the rental start plus the tier duration.
func DueDate(start time.Time, t Tier) time.Time {
	return start.AddDate(0, 0, t.DurationDays)
}

// OnTime reports whether a return at returned earns the bonus.
func OnTime(returned, due time.Time) bool {
	return !returned.After(due)
}

// Rental is the member-facing view of a rental.
type Rental struct {
	ID         int64      `json:"id" db:"id"`
	BookID     int64      `json:"bookId" db:"book_id"`
	UserID     int64      `json:"userId" db:"user_id"`
	RentalDate time.Time  `json:"rentalDate" db:"rented_at"`
	DueDate    time.Time  `json:"dueDate" db:"due_at"`
	ReturnDate *time.Time `json:"returnDate" db:"returned_at"`
	Tier       string     `json:"tier" db:"tier"`
	Title      string     `json:"title" db:"title"`
	Status     string     `json:"status" db:"status"`
}

// AdminRental adds the renter identity for the admin listing. Ghost mode does
// not mask admin views.
type AdminRental struct {
	Rental
	UserName  string `json:"userName" db:"user_name"`
	UserEmail string `json:"userEmail" db:"user_email"`
}

// CreateInput is a rental request. Tier is the label the client chose; the
// stored tier is resolved from Days.
type CreateInput struct {
	BookID int64
	UserID int64
	Tier   string
	Days   int
}

// ReturnResult is the outcome of a return.
type ReturnResult struct {
	Message       string `json:"message"`
	PointsAwarded int    `json:"pointsAwarded"`
}

// OverdueReport summarizes one refresh pass.
type OverdueReport struct {
	Flipped int
	Flagged int
}

// RentalCreatedEvent is published after a rental commits.
type RentalCreatedEvent struct {
	RentalID int64     `json:"rentalId"`
	BookID   int64     `json:"bookId"`
	UserID   int64     `json:"userId"`
	TierID   int64     `json:"tierId"`
	DueDate  time.Time `json:"dueDate"`
}

// RentalReturnedEvent is published after a return commits.
type RentalReturnedEvent struct {
	RentalID      int64 `json:"rentalId"`
	UserID        int64 `json:"userId"`
	OnTime        bool  `json:"onTime"`
	PointsAwarded int   `json:"pointsAwarded"`
}

// RentalOverdueEvent is published for every rental flipped to overdue.
type RentalOverdueEvent struct {
	RentalID int64 `json:"rentalId" db:"rental_id"`
	UserID   int64 `json:"userId" db:"user_id"`
}
