// internal/feed/domain.go
package feed

import "time"

const (
	Like    = "like"
	Dislike = "dislike"

	feedLimit = 50
)

// ApplyVote returns the vote stored after a user casts next over prev ("" when
// the user had not voted) and the resulting change to the post counters.
// Repeating a vote retracts it; the opposite vote flips it.
func ApplyVote(prev, next string) (stored string, dLikes, dDislikes int) {
	delta := func(v string, n int) {
		switch v {
		case Like:
			dLikes += n
		case Dislike:
			dDislikes += n
		}
	}

	switch prev {
	case "":
		delta(next, 1)
		return next, dLikes, dDislikes
	case next:
		delta(prev, -1)
		return "", dLikes, dDislikes
	default:
		delta(prev, -1)
		delta(next, 1)
		return next, dLikes, dDislikes
	}
}

// ValidVote reports whether v is a vote type.
func ValidVote(v string) bool {
	return v == Like || v == Dislike
}

// Post is a feed message as displayed.
type Post struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"userId" db:"user_id"`
	UserName  string    `json:"userName" db:"user_name"`
	Content   string    `json:"content" db:"content"`
	Likes     int       `json:"likes" db:"likes"`
	Dislikes  int       `json:"dislikes" db:"dislikes"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Tally is the post counters after a vote.
type Tally struct {
	Likes    int `json:"likes" db:"likes"`
	Dislikes int `json:"dislikes" db:"dislikes"`
}

// PostCreatedEvent is published after a post is stored.
type PostCreatedEvent struct {
	PostID int64 `json:"postId"`
	UserID int64 `json:"userId"`
}

// PostVotedEvent is published after a vote commits. Vote is empty when the
// vote was retracted.
type PostVotedEvent struct {
	PostID int64  `json:"postId"`
	UserID int64  `json:"userId"`
	Vote   string `json:"vote"`
	Tally  Tally  `json:"tally"`
}
