// internal/frontend/local/social.go
package local

import (
	"context"
	"errors"
	"sort"
	"strings"

	"librent/internal/apperr"
	"librent/internal/feed"
	"librent/internal/ledger"
	"librent/internal/rewards"
)

const postLimit = 50

func (d *snapshot) postView(p postRecord) feed.Post {
	return feed.Post{
		ID:        p.ID,
		UserID:    p.UserID,
		UserName:  d.displayName(p.UserID),
		Content:   p.Content,
		Likes:     p.Likes,
		Dislikes:  p.Dislikes,
		CreatedAt: p.CreatedAt,
	}
}

// Posts lists the newest active posts.
func (s *Store) Posts(ctx context.Context) ([]feed.Post, error) {
	out := []feed.Post{}
	err := s.view(ctx, func(d *snapshot) error {
		var active []postRecord
		for _, p := range d.Posts {
			if p.Active {
				active = append(active, p)
			}
		}
		sort.Slice(active, func(i, j int) bool {
			if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
				return active[i].CreatedAt.After(active[j].CreatedAt)
			}
			return active[i].ID > active[j].ID
		})
		if len(active) > postLimit {
			active = active[:postLimit]
		}
		for _, p := range active {
			out = append(out, d.postView(p))
		}
		return nil
	})
	return out, err
}

func (s *Store) CreatePost(ctx context.Context, userID int64, content string) (*feed.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperr.New(apperr.Validation, "content is required")
	}
	var out feed.Post
	err := s.update(ctx, func(d *snapshot) error {
		if d.user(userID) == nil {
			return errUserNotFound
		}
		p := postRecord{ID: d.nextID("posts"), UserID: userID, Content: content, Active: true, CreatedAt: s.now().UTC()}
		d.Posts = append(d.Posts, p)
		out = d.postView(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Vote applies the toggle rules and keeps the post counters in step.
func (s *Store) Vote(ctx context.Context, postID, userID int64, voteType string) (*feed.Tally, error) {
	if !feed.ValidVote(voteType) {
		return nil, apperr.New(apperr.Validation, "voteType must be like or dislike")
	}
	var tally feed.Tally
	err := s.update(ctx, func(d *snapshot) error {
		var p *postRecord
		for i := range d.Posts {
			if d.Posts[i].ID == postID && d.Posts[i].Active {
				p = &d.Posts[i]
				break
			}
		}
		if p == nil {
			return apperr.New(apperr.NotFound, "post not found")
		}
		if d.user(userID) == nil {
			return errUserNotFound
		}

		idx, prev := -1, ""
		for i, v := range d.Votes {
			if v.PostID == postID && v.UserID == userID {
				idx, prev = i, v.VoteType
				break
			}
		}

		stored, dLikes, dDislikes := feed.ApplyVote(prev, voteType)
		switch {
		case idx < 0:
			d.Votes = append(d.Votes, voteRecord{PostID: postID, UserID: userID, VoteType: stored})
		case stored == "":
			d.Votes = append(d.Votes[:idx], d.Votes[idx+1:]...)
		default:
			d.Votes[idx].VoteType = stored
		}
		p.Likes += dLikes
		p.Dislikes += dDislikes
		tally = feed.Tally{Likes: p.Likes, Dislikes: p.Dislikes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &tally, nil
}

func (s *Store) UserVotes(ctx context.Context, userID int64) (map[int64]string, error) {
	out := map[int64]string{}
	err := s.view(ctx, func(d *snapshot) error {
		for _, v := range d.Votes {
			if v.UserID == userID {
				out[v.PostID] = v.VoteType
			}
		}
		return nil
	})
	return out, err
}

// Redeem debits cost and applies the reward. Nothing changes when the
// balance does not cover the cost.
func (s *Store) Redeem(ctx context.Context, userID int64, rewardType string, cost int) (*rewards.Result, error) {
	if !rewards.Known(rewardType) {
		return nil, apperr.New(apperr.Validation, "unknown reward")
	}
	if cost < 0 {
		return nil, apperr.New(apperr.Validation, "cost must not be negative")
	}

	res := &rewards.Result{Success: true}
	err := s.update(ctx, func(d *snapshot) error {
		u := d.user(userID)
		if u == nil {
			return errUserNotFound
		}
		now := s.now().UTC()
		balance, err := debit(d, userID, cost, "reward redeemed: "+rewardType, now)
		if errors.Is(err, ledger.ErrInsufficientPoints) {
			return apperr.Newf(apperr.Forbidden, "insufficient points: you have %d but need %d", balance, cost)
		}
		if err != nil {
			return err
		}
		res.Balance = balance

		switch rewardType {
		case rewards.GhostMode:
			u.GhostMode = !u.GhostMode
		case rewards.TitleOfFame:
			if d.Titles == nil {
				d.Titles = map[int64]string{}
			}
			d.Titles[userID] = rewards.FameTitle
		}
		res.Message = rewards.Message(rewardType, u.GhostMode)

		d.Redemptions = append(d.Redemptions, rewards.Redemption{
			ID: d.nextID("redemptions"), UserID: userID, RewardType: rewardType, Cost: cost, RedeemedAt: now,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// UserRedemptions lists a user's redemptions, newest first.
func (s *Store) UserRedemptions(ctx context.Context, userID int64) ([]rewards.Redemption, error) {
	out := []rewards.Redemption{}
	err := s.view(ctx, func(d *snapshot) error {
		for _, r := range d.Redemptions {
			if r.UserID == userID {
				out = append(out, r)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, err
}
