// internal/feed/service.go
package feed

import "context"

// Service defines the interface for the social feed.
type Service interface {
	ListPosts(ctx context.Context) ([]Post, error)
	CreatePost(ctx context.Context, userID int64, content string) (*Post, error)
	Vote(ctx context.Context, postID, userID int64, voteType string) (*Tally, error)
	UserVotes(ctx context.Context, userID int64) (map[int64]string, error)
}
