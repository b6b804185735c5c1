package catalog

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCoverURL(t *testing.T) {
	assert.Equal(t, "https://covers.example/dune.jpg", CoverURL("Dune", "https://covers.example/dune.jpg"))
	assert.Equal(t, "https://placehold.co/300x450/6366F1/FFFFFF?text=O%20Hobbit", CoverURL("O Hobbit", ""))
}

func TestBookView_CopiesIsConstant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		row := bookRow{
			ID:          rapid.Int64Min(1).Draw(t, "id"),
			Title:       rapid.String().Draw(t, "title"),
			Rented:      rapid.IntRange(0, CopiesPerTitle).Draw(t, "rented"),
			RatingCount: rapid.IntRange(0, 50).Draw(t, "count"),
		}
		row.RatingSum = row.RatingCount * rapid.IntRange(1, 5).Draw(t, "avg")

		b := row.view()
		if b.Copies != CopiesPerTitle {
			t.Fatalf("copies = %d", b.Copies)
		}
		if b.Rented > b.Copies {
			t.Fatalf("rented %d exceeds copies %d", b.Rented, b.Copies)
		}
		if b.Cover == "" {
			t.Fatal("cover must never be empty")
		}
		if avg := b.AverageRating(); avg < 0 || avg > 5 {
			t.Fatalf("average %v out of range", avg)
		}
	})
}

func TestAverageRating(t *testing.T) {
	b := bookRow{ID: 3, Title: "Book 3", RatingSum: 9, RatingCount: 2, CoverURL: sql.NullString{}}.view()
	assert.Equal(t, 4.5, b.AverageRating())
	assert.Zero(t, Book{}.AverageRating())
	assert.True(t, b.Available())
	assert.False(t, Book{Copies: 5, Rented: 5}.Available())
}

func TestBookMatches(t *testing.T) {
	b := Book{Title: "The Hobbit", Author: "J.R.R. Tolkien"}
	assert.True(t, b.Matches(""))
	assert.True(t, b.Matches("hobbit"))
	assert.True(t, b.Matches("  TOLKIEN "))
	assert.False(t, b.Matches("orwell"))
}
