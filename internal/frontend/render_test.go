package frontend

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/feed"
	"librent/internal/ledger"
	"librent/internal/rankings"
)

func TestRenderBooks(t *testing.T) {
	var buf bytes.Buffer
	RenderBooks(&buf, []catalog.Book{
		{ID: 1, Title: "Dune", Author: "Frank Herbert", Copies: 5, Rented: 2, RatingSum: 9, RatingCount: 2},
		{ID: 2, Title: "Emma", Author: "Jane Austen", Copies: 5},
	})
	out := buf.String()
	assert.Contains(t, out, "3/5")
	assert.Contains(t, out, "4.5 (2)")
	assert.Contains(t, out, "N/A (0)")
}

func TestRenderRentalsStatus(t *testing.T) {
	now := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	returned := now.AddDate(0, 0, -1)
	var buf bytes.Buffer
	RenderRentals(&buf, []circulation.Rental{
		{ID: 1, Title: "Dune", RentalDate: now.AddDate(0, 0, -5), DueDate: now.AddDate(0, 0, 10), Status: circulation.StatusActive},
		{ID: 2, Title: "Emma", RentalDate: now.AddDate(0, 0, -20), DueDate: now.AddDate(0, 0, -5), Status: circulation.StatusActive},
		{ID: 3, Title: "Ulysses", RentalDate: now.AddDate(0, 0, -3), DueDate: now.AddDate(0, 0, 12), ReturnDate: &returned, Status: circulation.StatusReturned},
	}, now)
	out := buf.String()
	assert.Contains(t, out, "active, 10d left")
	assert.Contains(t, out, "overdue")
	assert.Contains(t, out, "returned 2025-04-30")
}

func TestRenderPostsMarksOwnVote(t *testing.T) {
	var buf bytes.Buffer
	RenderPosts(&buf, State{
		Posts: []feed.Post{{ID: 7, UserName: "Ana", Content: "hi", Likes: 3, Dislikes: 1}},
		Votes: map[int64]string{7: feed.Like},
	})
	assert.Contains(t, buf.String(), "[+]3 -1")
}

func TestRenderRankings(t *testing.T) {
	var buf bytes.Buffer
	RenderRankings(&buf, rankings.Empty())
	assert.Contains(t, buf.String(), "N/A (0 pts)")

	buf.Reset()
	RenderRankings(&buf, rankings.Rankings{
		TopUser:  rankings.TopUser{ID: 2, Name: "Ana", Points: 120, Title: "Lord of Knowledge"},
		MostRead: rankings.MostRead{BookID: 1, Title: "Dune", Total: 4},
		TopRated: rankings.TopRated{BookID: 1, Title: "Dune", AvgRating: 4.5, Count: 2},
	})
	out := buf.String()
	assert.Contains(t, out, "Ana (120 pts) · Lord of Knowledge")
	assert.Contains(t, out, "Dune (4 rentals)")
	assert.Contains(t, out, "Dune (4.5 from 2)")
}

func TestRenderRewardsMarksAffordable(t *testing.T) {
	var buf bytes.Buffer
	RenderRewards(&buf, State{Points: 300})
	out := buf.String()
	assert.Contains(t, out, "extra_rental")
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("affordable")))
}

func TestRenderLedgerSignsQuantities(t *testing.T) {
	at := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	var buf bytes.Buffer
	RenderLedger(&buf, []ledger.Entry{
		{ID: 2, Quantity: -150, Reason: "redeemed ghost_mode", CreatedAt: at},
		{ID: 1, Quantity: 25, Reason: "on-time return: rental #1", CreatedAt: at},
	})
	out := buf.String()
	assert.Contains(t, out, "-150")
	assert.Contains(t, out, "+25")
	assert.Contains(t, out, "on-time return: rental #1")

	buf.Reset()
	RenderLedger(&buf, nil)
	assert.Equal(t, "no points yet\n", buf.String())
}
