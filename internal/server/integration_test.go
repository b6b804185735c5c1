package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librent/internal/apperr"
	"librent/internal/cache"
	"librent/internal/catalog"
	"librent/internal/circulation"
	"librent/internal/clients"
	"librent/internal/database"
	"librent/internal/events"
	"librent/internal/feed"
	"librent/internal/rewards"
)

func setupAPI(t *testing.T) *clients.APIClient {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := database.Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(ctx, db))
	t.Cleanup(func() { db.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewRouter(NewServices(db, cache.Nop{}, events.Nop{}, time.Minute, log), Options{
		Log:               log,
		AuthRatePerMinute: 600,
		AuthRateBurst:     100,
		Ping:              db.PingContext,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return clients.NewAPIClient(srv.URL, srv.Client())
}

func uniqueEmail(name string) string {
	return fmt.Sprintf("%s-%d@example.com", name, time.Now().UnixNano())
}

func TestRegisterLoginRentReturn(t *testing.T) {
	api := setupAPI(t)
	ctx := context.Background()

	email := uniqueEmail("ana")
	reg, err := api.Register(ctx, "Ana", email, "pw123")
	require.NoError(t, err)
	assert.Equal(t, "Ana", reg.Name)

	_, err = api.Register(ctx, "Ana again", email, "other")
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))

	sess, err := api.Login(ctx, email, "pw123")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, sess.ID)
	assert.Zero(t, sess.Points)
	assert.False(t, sess.IsAdmin)

	_, err = api.Login(ctx, email, "wrong")
	assert.Equal(t, apperr.Unauthorized, apperr.CodeOf(err))

	book, err := api.AddBook(ctx, catalog.NewBook{Title: "Dune", Author: "Frank Herbert", Category: "Sci-Fi"})
	require.NoError(t, err)
	assert.Equal(t, catalog.CopiesPerTitle, book.Copies)

	rental, err := api.CreateRental(ctx, circulation.CreateInput{BookID: book.ID, UserID: sess.ID, Days: 15})
	require.NoError(t, err)
	assert.Equal(t, circulation.StatusActive, rental.Status)
	assert.True(t, rental.DueDate.Equal(rental.RentalDate.AddDate(0, 0, 15)))

	got, err := api.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Rented)

	res, err := api.ReturnRental(ctx, rental.ID, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.ReturnBonus, res.PointsAwarded)

	_, err = api.ReturnRental(ctx, rental.ID, sess.ID)
	assert.Equal(t, apperr.Conflict, apperr.CodeOf(err))

	points, err := api.Points(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, circulation.ReturnBonus, points)

	rentals, err := api.UserRentals(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, rentals, 1)
	assert.Equal(t, circulation.StatusReturned, rentals[0].Status)
	assert.NotNil(t, rentals[0].ReturnDate)
}

func TestRatingsAggregateAndRedeemRejects(t *testing.T) {
	api := setupAPI(t)
	ctx := context.Background()

	a, err := api.Register(ctx, "Rater A", uniqueEmail("ra"), "pw")
	require.NoError(t, err)
	b, err := api.Register(ctx, "Rater B", uniqueEmail("rb"), "pw")
	require.NoError(t, err)
	book, err := api.AddBook(ctx, catalog.NewBook{Title: "Emma", Author: "Jane Austen"})
	require.NoError(t, err)

	first, err := api.Rate(ctx, catalog.RateInput{BookID: book.ID, UserID: a.ID, Rating: 4, Comment: "good"})
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, catalog.RatingBonus, first.PointsAwarded)
	_, err = api.Rate(ctx, catalog.RateInput{BookID: book.ID, UserID: b.ID, Rating: 5})
	require.NoError(t, err)

	got, err := api.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RatingCount)
	assert.Equal(t, 9, got.RatingSum)
	assert.InDelta(t, 4.5, got.AverageRating(), 0.001)

	ratings, err := api.BookRatings(ctx, book.ID)
	require.NoError(t, err)
	assert.Len(t, ratings, 2)

	_, err = api.Redeem(ctx, a.ID, rewards.ExpertTier, 500)
	assert.Equal(t, apperr.Forbidden, apperr.CodeOf(err))

	res, err := api.Redeem(ctx, a.ID, rewards.GhostMode, catalog.RatingBonus)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.Balance)

	_, err = api.Redeem(ctx, a.ID, "golden_ticket", 0)
	assert.Equal(t, apperr.Validation, apperr.CodeOf(err))
}

func TestVoteToggleOverHTTP(t *testing.T) {
	api := setupAPI(t)
	ctx := context.Background()

	u, err := api.Register(ctx, "Poster", uniqueEmail("poster"), "pw")
	require.NoError(t, err)
	post, err := api.CreatePost(ctx, u.ID, "  finished Dune today  ")
	require.NoError(t, err)
	assert.Equal(t, "finished Dune today", post.Content)

	tally, err := api.Vote(ctx, post.ID, u.ID, feed.Like)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Likes)

	tally, err = api.Vote(ctx, post.ID, u.ID, feed.Dislike)
	require.NoError(t, err)
	assert.Equal(t, 0, tally.Likes)
	assert.Equal(t, 1, tally.Dislikes)

	votes, err := api.UserVotes(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, feed.Dislike, votes[post.ID])

	tally, err = api.Vote(ctx, post.ID, u.ID, feed.Dislike)
	require.NoError(t, err)
	assert.Zero(t, tally.Dislikes)

	votes, err = api.UserVotes(ctx, u.ID)
	require.NoError(t, err)
	assert.NotContains(t, votes, post.ID)
}
