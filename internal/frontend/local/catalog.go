// internal/frontend/local/catalog.go
package local

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"librent/internal/apperr"
	"librent/internal/catalog"
)

var errBookNotFound = apperr.New(apperr.NotFound, "book not found")

func (d *snapshot) book(id int64) *bookRecord {
	for i := range d.Books {
		if d.Books[i].ID == id {
			return &d.Books[i]
		}
	}
	return nil
}

func (d *snapshot) rented(bookID int64) int {
	n := 0
	for _, r := range d.Rentals {
		if r.BookID == bookID && r.ReturnedAt == nil {
			n++
		}
	}
	return n
}

func (d *snapshot) bookView(b bookRecord) catalog.Book {
	v := catalog.Book{
		ID:          b.ID,
		Title:       b.Title,
		Author:      b.Author,
		Category:    b.Category,
		Description: b.Description,
		Copies:      catalog.CopiesPerTitle,
		Rented:      d.rented(b.ID),
		Cover:       catalog.CoverURL(b.Title, b.Cover),
	}
	for _, r := range d.Ratings {
		if r.BookID == b.ID {
			v.RatingSum += r.Rating
			v.RatingCount++
		}
	}
	return v
}

func (s *Store) Books(ctx context.Context) ([]catalog.Book, error) {
	var out []catalog.Book
	err := s.view(ctx, func(d *snapshot) error {
		out = make([]catalog.Book, 0, len(d.Books))
		for _, b := range d.Books {
			out = append(out, d.bookView(b))
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, err
}

func (s *Store) GetBook(ctx context.Context, id int64) (*catalog.Book, error) {
	var out catalog.Book
	err := s.view(ctx, func(d *snapshot) error {
		b := d.book(id)
		if b == nil {
			return errBookNotFound
		}
		out = d.bookView(*b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// SearchBooks matches query against title and author, in id order.
func (s *Store) SearchBooks(ctx context.Context, query string) ([]catalog.Book, error) {
	if strings.TrimSpace(query) == "" {
		return nil, apperr.New(apperr.Validation, "search query is required")
	}
	books, err := s.Books(ctx)
	if err != nil {
		return nil, err
	}
	out := []catalog.Book{}
	for _, b := range books {
		if b.Matches(query) {
			out = append(out, b)
			if len(out) == catalog.SearchLimit {
				break
			}
		}
	}
	return out, nil
}

// AddBook stores a new title.
func (s *Store) AddBook(ctx context.Context, in catalog.NewBook) (*catalog.Book, error) {
	title, author := strings.TrimSpace(in.Title), strings.TrimSpace(in.Author)
	if title == "" || author == "" {
		return nil, apperr.New(apperr.Validation, "title and author are required")
	}
	var out catalog.Book
	err := s.update(ctx, func(d *snapshot) error {
		b := bookRecord{
			ID: d.nextID("books"), Title: title, Author: author,
			Category: in.Category, Description: in.Description, Cover: in.Cover,
		}
		d.Books = append(d.Books, b)
		out = d.bookView(b)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// BookRatings lists visible ratings, newest first. A ghost author's private
// ratings are hidden and the public ones masked.
func (s *Store) BookRatings(ctx context.Context, bookID int64) ([]catalog.Rating, error) {
	var rows []ratingRecord
	out := []catalog.Rating{}
	err := s.view(ctx, func(d *snapshot) error {
		for _, r := range d.Ratings {
			if r.BookID != bookID {
				continue
			}
			u := d.user(r.UserID)
			if u == nil || (!r.Public && u.GhostMode) {
				continue
			}
			rows = append(rows, r)
		}
		sort.Slice(rows, func(i, j int) bool {
			if !rows[i].RatedAt.Equal(rows[j].RatedAt) {
				return rows[i].RatedAt.After(rows[j].RatedAt)
			}
			return rows[i].ID > rows[j].ID
		})
		for _, r := range rows {
			out = append(out, catalog.Rating{
				ID: r.ID, UserName: d.displayName(r.UserID), Rating: r.Rating, Comment: r.Comment, Date: r.RatedAt,
			})
		}
		return nil
	})
	return out, err
}

// Rate upserts the (user, book) rating; only the first one earns the bonus.
func (s *Store) Rate(ctx context.Context, in catalog.RateInput) (*catalog.RateResult, error) {
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.New(apperr.Validation, "rating must be between 1 and 5")
	}

	res := &catalog.RateResult{}
	err := s.update(ctx, func(d *snapshot) error {
		if d.book(in.BookID) == nil {
			return errBookNotFound
		}
		if d.user(in.UserID) == nil {
			return errUserNotFound
		}

		for i := range d.Ratings {
			r := &d.Ratings[i]
			if r.UserID != in.UserID || r.BookID != in.BookID {
				continue
			}
			r.Rating, r.Comment = in.Rating, in.Comment
			if in.Public != nil {
				r.Public = *in.Public
			}
			return nil
		}

		now := s.now().UTC()
		public := in.Public == nil || *in.Public
		d.Ratings = append(d.Ratings, ratingRecord{
			ID: d.nextID("ratings"), UserID: in.UserID, BookID: in.BookID,
			Rating: in.Rating, Comment: in.Comment, Public: public, RatedAt: now,
		})
		credit(d, in.UserID, catalog.RatingBonus, fmt.Sprintf("rating published: book #%d", in.BookID), now)
		res.Created = true
		res.PointsAwarded = catalog.RatingBonus
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Message = "rating updated"
	if res.Created {
		res.Message = "rating submitted"
	}
	return res, nil
}
