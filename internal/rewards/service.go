// internal/rewards/service.go
package rewards

import "context"

// Service defines the interface for redeeming points.
type Service interface {
	Redeem(ctx context.Context, userID int64, rewardType string, cost int) (*Result, error)
	UserRedemptions(ctx context.Context, userID int64) ([]Redemption, error)
}
