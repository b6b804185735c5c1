// internal/rewards/domain.go
package rewards

import (
	"fmt"
	"time"
)

// Reward types. Each has a fixed side effect applied inside the redemption
// transaction.
const (
	ExtraRental = "extra_rental"
	GhostMode   = "ghost_mode"
	ExpertTier  = "expert_tier"
	TitleOfFame = "title_of_fame"

	// FameTitle is the exclusive title granted by TitleOfFame.
	FameTitle = "Lord of Knowledge"
)

// Known reports whether rewardType is redeemable.
func Known(rewardType string) bool {
	switch rewardType {
	case ExtraRental, GhostMode, ExpertTier, TitleOfFame:
		return true
	}
	return false
}

// Message is the text returned after redeeming rewardType. ghost is the
// ghost-mode flag after a GhostMode redemption.
func Message(rewardType string, ghost bool) string {
	switch rewardType {
	case ExtraRental:
		return "You earned an extra rental! Use it next time."
	case ExpertTier:
		return "Expert tier redeemed! Enjoy 60-day rentals."
	case GhostMode:
		if ghost {
			return "Ghost mode enabled."
		}
		return "Ghost mode disabled."
	case TitleOfFame:
		return fmt.Sprintf("Congratulations! You earned the exclusive title: %s!", FameTitle)
	}
	return ""
}

// Redemption is one entry of the append-only redemption log.
type Redemption struct {
	ID         int64     `json:"id" db:"id"`
	UserID     int64     `json:"userId" db:"user_id"`
	RewardType string    `json:"rewardType" db:"reward_type"`
	Cost       int       `json:"cost" db:"cost"`
	RedeemedAt time.Time `json:"redeemedAt" db:"redeemed_at"`
}

// Result is returned to the client after a successful redemption.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Balance int    `json:"balance"`
}

// RewardRedeemedEvent is published after a redemption commits.
type RewardRedeemedEvent struct {
	UserID     int64  `json:"userId"`
	RewardType string `json:"rewardType"`
	Cost       int    `json:"cost"`
}
