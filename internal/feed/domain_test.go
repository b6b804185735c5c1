package feed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestApplyVote(t *testing.T) {
	cases := []struct {
		prev, next, stored string
		dLikes, dDislikes  int
	}{
		{"", Like, Like, 1, 0},
		{"", Dislike, Dislike, 0, 1},
		{Like, Like, "", -1, 0},
		{Dislike, Dislike, "", 0, -1},
		{Like, Dislike, Dislike, -1, 1},
		{Dislike, Like, Like, 1, -1},
	}
	for _, tc := range cases {
		stored, dl, dd := ApplyVote(tc.prev, tc.next)
		assert.Equal(t, tc.stored, stored, "%s -> %s", tc.prev, tc.next)
		assert.Equal(t, tc.dLikes, dl, "%s -> %s likes", tc.prev, tc.next)
		assert.Equal(t, tc.dDislikes, dd, "%s -> %s dislikes", tc.prev, tc.next)
	}
}

// Counters always equal the number of stored votes of each kind, whatever
// sequence of votes several users cast.
func TestApplyVoteCountersMatchVotes(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		users := rapid.IntRange(1, 5).Draw(t, "users")
		votes := make(map[int]string)
		likes, dislikes := 0, 0

		steps := rapid.IntRange(0, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			u := rapid.IntRange(0, users-1).Draw(t, "user")
			v := rapid.SampledFrom([]string{Like, Dislike}).Draw(t, "vote")

			stored, dl, dd := ApplyVote(votes[u], v)
			likes += dl
			dislikes += dd
			if stored == "" {
				delete(votes, u)
			} else {
				votes[u] = stored
			}

			wantLikes, wantDislikes := 0, 0
			for _, s := range votes {
				if s == Like {
					wantLikes++
				} else {
					wantDislikes++
				}
			}
			if likes != wantLikes || dislikes != wantDislikes {
				t.Fatalf("tally %d/%d, votes say %d/%d", likes, dislikes, wantLikes, wantDislikes)
			}
		}
	})
}

func TestValidVote(t *testing.T) {
	assert.True(t, ValidVote(Like))
	assert.True(t, ValidVote(Dislike))
	assert.False(t, ValidVote("love"))
	assert.False(t, ValidVote(""))
}
