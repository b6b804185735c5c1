// internal/catalog/domain.go
package catalog

import (
	"database/sql"
	"net/url"
	"strings"
	"time"

	"librent/internal/membership"
)

const (
	// CopiesPerTitle is reported for every book regardless of the stored count.
	CopiesPerTitle = 5
	// RatingBonus is credited the first time a user rates a book.
	RatingBonus = 10
	// AnonymousName replaces the author name of ratings by ghost-mode users.
	AnonymousName = membership.AnonymousName

	// SearchLimit caps search results.
	SearchLimit = 10
	coverBase   = "https://placehold.co/300x450/6366F1/FFFFFF?text="
)

// Book is the catalog view of a title with its derived counters.
type Book struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Copies      int    `json:"copies"`
	Rented      int    `json:"rented"`
	Cover       string `json:"cover"`
	RatingSum   int    `json:"ratingSum"`
	RatingCount int    `json:"ratingCount"`
}

// AverageRating is ratingSum / ratingCount, zero for unrated books.
func (b Book) AverageRating() float64 {
	if b.RatingCount == 0 {
		return 0
	}
	return float64(b.RatingSum) / float64(b.RatingCount)
}

// Matches reports whether term occurs in the title or author, ignoring case.
// An empty term matches every book.
func (b Book) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	return term == "" ||
		strings.Contains(strings.ToLower(b.Title), term) ||
		strings.Contains(strings.ToLower(b.Author), term)
}

// Available reports whether a copy can still be rented.
func (b Book) Available() bool {
	return b.Rented < b.Copies
}

type bookRow struct {
	ID          int64          `db:"id"`
	Title       string         `db:"title"`
	Author      string         `db:"author"`
	Category    string         `db:"category"`
	Description string         `db:"description"`
	CoverURL    sql.NullString `db:"cover_url"`
	Rented      int            `db:"rented"`
	RatingSum   int            `db:"rating_sum"`
	RatingCount int            `db:"rating_count"`
}

func (r bookRow) view() Book {
	return Book{
		ID:          r.ID,
		Title:       r.Title,
		Author:      r.Author,
		Category:    r.Category,
		Description: r.Description,
		Copies:      CopiesPerTitle,
		Rented:      r.Rented,
		Cover:       CoverURL(r.Title, r.CoverURL.String),
		RatingSum:   r.RatingSum,
		RatingCount: r.RatingCount,
	}
}

// CoverURL returns cover, or a generated placeholder carrying the title.
func CoverURL(title, cover string) string {
	if cover != "" {
		return cover
	}
	return coverBase + url.PathEscape(title)
}

// NewBook is the input for adding a title.
type NewBook struct {
	Title       string `json:"title" validate:"required"`
	Author      string `json:"author" validate:"required"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Cover       string `json:"cover" validate:"omitempty,url"`
}

// Rating is one displayed review of a book.
type Rating struct {
	ID       int64     `json:"id" db:"id"`
	UserName string    `json:"userName" db:"user_name"`
	Rating   int       `json:"rating" db:"rating"`
	Comment  string    `json:"comment" db:"comment"`
	Date     time.Time `json:"date" db:"rated_at"`
}

type ratingRow struct {
	Rating
	GhostMode bool `db:"ghost_mode"`
}

// RateInput is a rating submission. A nil Public keeps the stored visibility
// on update and defaults to public on insert.
type RateInput struct {
	BookID  int64
	UserID  int64
	Rating  int
	Comment string
	Public  *bool
}

// RateResult reports whether the rating was new and what it paid.
type RateResult struct {
	Message       string `json:"message"`
	Created       bool   `json:"created"`
	PointsAwarded int    `json:"pointsAwarded"`
}

// BookAddedEvent is published when a title joins the catalog.
type BookAddedEvent struct {
	BookID int64  `json:"bookId"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// RatingSubmittedEvent is published after a rating is stored.
type RatingSubmittedEvent struct {
	BookID  int64 `json:"bookId"`
	UserID  int64 `json:"userId"`
	Rating  int   `json:"rating"`
	Created bool  `json:"created"`
}
