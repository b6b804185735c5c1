package feed

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librent/internal/apperr"
	"librent/internal/database"
	"librent/internal/events"
	"librent/internal/membership"
)

func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	db, err := database.Open(context.Background(), dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db))
	t.Cleanup(func() { db.Close() })
	return db
}

func createUser(t *testing.T, db *sqlx.DB, ghost bool) int64 {
	t.Helper()
	var id int64
	require.NoError(t, db.GetContext(context.Background(), &id,
		`INSERT INTO users (name, email, password_hash, ghost_mode) VALUES ('Poster', $1, 'x', $2) RETURNING id`,
		fmt.Sprintf("poster-%d@x.com", time.Now().UnixNano()), ghost))
	return id
}

func TestVoteToggleAndFlip(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	rec := &events.Recorder{}
	svc := NewService(db, rec, nil)

	author := createUser(t, db, false)
	voter := createUser(t, db, false)

	post, err := svc.CreatePost(ctx, author, "  Just finished Dune  ")
	require.NoError(t, err)
	assert.Equal(t, "Just finished Dune", post.Content)

	tally, err := svc.Vote(ctx, post.ID, voter, Like)
	require.NoError(t, err)
	assert.Equal(t, Tally{Likes: 1}, *tally)

	tally, err = svc.Vote(ctx, post.ID, voter, Like)
	require.NoError(t, err)
	assert.Equal(t, Tally{}, *tally, "repeating a vote retracts it")

	_, err = svc.Vote(ctx, post.ID, voter, Like)
	require.NoError(t, err)
	tally, err = svc.Vote(ctx, post.ID, voter, Dislike)
	require.NoError(t, err)
	assert.Equal(t, Tally{Likes: 0, Dislikes: 1}, *tally)

	votes, err := svc.UserVotes(ctx, voter)
	require.NoError(t, err)
	assert.Equal(t, map[int64]string{post.ID: Dislike}, votes)

	var rows int
	require.NoError(t, db.GetContext(ctx, &rows, `SELECT COUNT(*) FROM post_votes WHERE post_id = $1`, post.ID))
	assert.Equal(t, 1, rows)

	_, err = svc.Vote(ctx, 1<<40, voter, Like)
	assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))

	assert.Equal(t, events.PostCreated, rec.Types()[0])
}

func TestGhostPostsAreMasked(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	svc := NewService(db, events.Nop{}, nil)

	ghost := createUser(t, db, true)
	post, err := svc.CreatePost(ctx, ghost, "boo")
	require.NoError(t, err)
	assert.Equal(t, membership.AnonymousName, post.UserName)

	posts, err := svc.ListPosts(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, posts)
	assert.LessOrEqual(t, len(posts), feedLimit)
	found := false
	for _, p := range posts {
		if p.ID == post.ID {
			found = true
			assert.Equal(t, membership.AnonymousName, p.UserName)
		}
	}
	assert.True(t, found, "new post must be among the newest")

	_, err = svc.CreatePost(ctx, 1<<40, "orphan")
	assert.Equal(t, apperr.NotFound, apperr.CodeOf(err))
}
