// internal/feed/implementation.go
package feed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"librent/internal/apperr"
	"librent/internal/database"
	"librent/internal/events"
	"librent/internal/membership"
	"librent/internal/telemetry"
)

const postColumns = `
	SELECT p.id, p.user_id, u.name AS user_name, u.ghost_mode, p.content, p.likes, p.dislikes, p.created_at
	FROM posts p
	JOIN users u ON u.id = p.user_id
`

type postRow struct {
	Post
	GhostMode bool `db:"ghost_mode"`
}

func (r postRow) view() Post {
	p := r.Post
	if r.GhostMode {
		p.UserName = membership.AnonymousName
	}
	return p
}

// service implements the Service interface.
type service struct {
	db       *sqlx.DB
	events   events.Publisher
	counters *telemetry.Counters
}

// NewService creates a new feed service instance.
func NewService(db *sqlx.DB, pub events.Publisher, counters *telemetry.Counters) Service {
	if counters == nil {
		counters = telemetry.NewCounters()
	}
	return &service{db: db, events: pub, counters: counters}
}

// ListPosts returns the newest active posts.
func (s *service) ListPosts(ctx context.Context) ([]Post, error) {
	var rows []postRow
	err := s.db.SelectContext(ctx, &rows, postColumns+`
		WHERE p.active
		ORDER BY p.created_at DESC, p.id DESC
		LIMIT $1
	`, feedLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	posts := make([]Post, len(rows))
	for i, r := range rows {
		posts[i] = r.view()
	}
	return posts, nil
}

// CreatePost stores a post. Content must not be blank; length is not limited.
func (s *service) CreatePost(ctx context.Context, userID int64, content string) (*Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.Validation, "content is required")
	}

	var id int64
	err := s.db.GetContext(ctx, &id, `
		INSERT INTO posts (user_id, content) VALUES ($1, $2) RETURNING id
	`, userID, content)
	if database.IsForeignKeyViolation(err) {
		return nil, apperr.New(apperr.NotFound, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}

	var row postRow
	if err := s.db.GetContext(ctx, &row, postColumns+` WHERE p.id = $1`, id); err != nil {
		return nil, fmt.Errorf("failed to load post: %w", err)
	}

	s.events.Publish(ctx, events.PostCreated, PostCreatedEvent{PostID: id, UserID: userID})
	post := row.view()
	return &post, nil
}

// Vote applies a like or dislike with toggle semantics. The vote row and the
// post counters change in the same transaction.
func (s *service) Vote(ctx context.Context, postID, userID int64, voteType string) (*Tally, error) {
	if !ValidVote(voteType) {
		return nil, apperr.New(apperr.Validation, "voteType must be like or dislike")
	}

	var tally Tally
	var stored string
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var locked int64
		err := tx.GetContext(ctx, &locked, `SELECT id FROM posts WHERE id = $1 AND active FOR UPDATE`, postID)
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.New(apperr.NotFound, "post not found")
		}
		if err != nil {
			return fmt.Errorf("failed to lock post: %w", err)
		}

		var prev string
		err = tx.GetContext(ctx, &prev, `
			SELECT vote_type FROM post_votes WHERE post_id = $1 AND user_id = $2
		`, postID, userID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to load vote: %w", err)
		}

		var dLikes, dDislikes int
		stored, dLikes, dDislikes = ApplyVote(prev, voteType)

		switch {
		case prev == "":
			_, err = tx.ExecContext(ctx, `
				INSERT INTO post_votes (post_id, user_id, vote_type) VALUES ($1, $2, $3)
			`, postID, userID, stored)
			if database.IsForeignKeyViolation(err) {
				return apperr.New(apperr.NotFound, "user not found")
			}
		case stored == "":
			_, err = tx.ExecContext(ctx, `DELETE FROM post_votes WHERE post_id = $1 AND user_id = $2`, postID, userID)
		default:
			_, err = tx.ExecContext(ctx, `
				UPDATE post_votes SET vote_type = $3 WHERE post_id = $1 AND user_id = $2
			`, postID, userID, stored)
		}
		if err != nil {
			return fmt.Errorf("failed to store vote: %w", err)
		}

		err = tx.GetContext(ctx, &tally, `
			UPDATE posts SET likes = likes + $2, dislikes = dislikes + $3
			WHERE id = $1
			RETURNING likes, dislikes
		`, postID, dLikes, dDislikes)
		if err != nil {
			return fmt.Errorf("failed to update tally: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Add(ctx, s.counters.Votes, 1, attribute.String("vote", voteType))
	s.events.Publish(ctx, events.PostVoted, PostVotedEvent{PostID: postID, UserID: userID, Vote: stored, Tally: tally})
	return &tally, nil
}

// UserVotes maps post id to the user's current vote.
func (s *service) UserVotes(ctx context.Context, userID int64) (map[int64]string, error) {
	var rows []struct {
		PostID   int64  `db:"post_id"`
		VoteType string `db:"vote_type"`
	}
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT post_id, vote_type FROM post_votes WHERE user_id = $1
	`, userID); err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}

	votes := make(map[int64]string, len(rows))
	for _, r := range rows {
		votes[r.PostID] = r.VoteType
	}
	return votes, nil
}
