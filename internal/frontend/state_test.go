package frontend

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"

	"librent/internal/apperr"
	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/membership"
)

func genBooks(t *rapid.T) []catalog.Book {
	n := rapid.IntRange(0, 6).Draw(t, "books")
	books := make([]catalog.Book, n)
	for i := range books {
		books[i] = catalog.Book{
			ID:     int64(i + 1),
			Title:  rapid.StringMatching(`[A-Z][a-z]{2,8}`).Draw(t, "title"),
			Copies: catalog.CopiesPerTitle,
			Rented: rapid.IntRange(0, catalog.CopiesPerTitle).Draw(t, "rented"),
		}
	}
	return books
}

func TestReducersLeaveReceiverUntouched(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		u := membership.Session{ID: 1, Name: "Ana", Points: rapid.IntRange(0, 500).Draw(t, "points")}
		s := State{User: &u, Points: u.Points, Books: genBooks(t), Notice: "before"}

		points := rapid.IntRange(0, 500).Draw(t, "newPoints")
		ghost := rapid.Bool().Draw(t, "ghost")
		next := s.WithPoints(points).WithGhost(ghost).WithNotice("after")

		assert.Equal(t, points, next.Points)
		assert.Equal(t, points, next.User.Points)
		assert.Equal(t, ghost, next.User.GhostMode)
		assert.Equal(t, "after", next.Notice)

		assert.Equal(t, u.Points, s.User.Points)
		assert.False(t, s.User.GhostMode)
		assert.Equal(t, "before", s.Notice)
	})
}

func TestCanRentMatchesAvailability(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := State{Books: genBooks(t)}
		id := rapid.Int64Range(0, 8).Draw(t, "id")
		holding := rapid.Bool().Draw(t, "holding")
		if holding {
			s.Rentals = []circulation.Rental{{ID: 1, BookID: id}}
		}

		err := s.CanRent(id)
		b, ok := s.Book(id)
		switch {
		case !ok:
			assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))
		case holding || !b.Available():
			assert.Equal(t, apperr.Conflict, apperr.CodeOf(err))
		default:
			assert.NoError(t, err)
		}
	})
}

func TestNoticeFor(t *testing.T) {
	assert.Equal(t, "no copies available", NoticeFor(apperr.New(apperr.Conflict, "no copies available")))
	assert.Equal(t, connectionError, NoticeFor(errors.New("EOF")))
}

func TestLookupReward(t *testing.T) {
	for _, o := range RewardMenu {
		got, ok := LookupReward(o.Type)
		assert.True(t, ok)
		assert.Equal(t, o, got)
	}
	_, ok := LookupReward("nope")
	assert.False(t, ok)
}

func TestFilterBooksBySearchAndCategory(t *testing.T) {
	s := State{Books: []catalog.Book{
		{ID: 1, Title: "Clean Code", Author: "Robert C. Martin", Category: "Technology"},
		{ID: 2, Title: "1984", Author: "George Orwell", Category: "Fiction"},
		{ID: 3, Title: "Animal Farm", Author: "George Orwell", Category: "Fiction"},
	}}

	ids := func(books []catalog.Book) []int64 {
		out := []int64{}
		for _, b := range books {
			out = append(out, b.ID)
		}
		return out
	}

	assert.Equal(t, []int64{1, 2, 3}, ids(s.FilterBooks("", "")))
	assert.Equal(t, []int64{2, 3}, ids(s.FilterBooks("orwell", "")))
	assert.Equal(t, []int64{3}, ids(s.FilterBooks("farm", "fiction")))
	assert.Equal(t, []int64{1}, ids(s.FilterBooks("", "Technology")))
	assert.Empty(t, s.FilterBooks("code", "Fiction"))
	assert.Equal(t, []string{"Fiction", "Technology"}, s.Categories())
}
