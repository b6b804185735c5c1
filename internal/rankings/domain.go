// internal/rankings/domain.go
package rankings

import "time"

// NotAvailable fills a ranking slot that has no candidate.
const NotAvailable = "N/A"

// TopUser is the non-admin reader with the highest balance.
type TopUser struct {
	ID     int64  `json:"id" db:"id"`
	Name   string `json:"name" db:"name"`
	Points int    `json:"points" db:"points"`
	Title  string `json:"title,omitempty" db:"title"`
}

// MostRead is the book with the most rentals.
type MostRead struct {
	BookID int64  `json:"bookId" db:"book_id"`
	Title  string `json:"title" db:"title"`
	Total  int    `json:"total" db:"total"`
}

// TopRated is the book with the highest average rating.
type TopRated struct {
	BookID    int64   `json:"bookId" db:"book_id"`
	Title     string  `json:"title" db:"title"`
	AvgRating float64 `json:"avgRating" db:"avg_rating"`
	Count     int     `json:"count" db:"count"`
}

// Rankings combines the three leaderboards. Ties go to the lowest id.
type Rankings struct {
	TopUser  TopUser  `json:"topUser"`
	MostRead MostRead `json:"mostRead"`
	TopRated TopRated `json:"topRated"`
}

// Empty is the response when nothing qualifies for any slot.
func Empty() Rankings {
	return Rankings{
		TopUser:  TopUser{Name: NotAvailable},
		MostRead: MostRead{Title: NotAvailable},
		TopRated: TopRated{Title: NotAvailable},
	}
}

// BlacklistEntry is one overdue rental of a flagged user.
type BlacklistEntry struct {
	UserID     int64     `json:"userId" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email" db:"email"`
	BookTitle  string    `json:"bookTitle" db:"book_title"`
	RentalDate time.Time `json:"rentalDate" db:"rented_at"`
	DueDate    time.Time `json:"dueDate" db:"due_at"`
	DaysLate   int       `json:"daysLate" db:"days_late"`
}
