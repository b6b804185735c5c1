// internal/rewards/implementation.go
package rewards

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel/attribute"

	"librent/internal/apperr"
	"librent/internal/database"
	"librent/internal/events"
	"librent/internal/ledger"
	"librent/internal/telemetry"
)

// service implements the Service interface.
type service struct {
	db       *sqlx.DB
	ledger   *ledger.Ledger
	events   events.Publisher
	counters *telemetry.Counters
}

// NewService creates a new rewards service instance.
func NewService(db *sqlx.DB, l *ledger.Ledger, pub events.Publisher, counters *telemetry.Counters) Service {
	if counters == nil {
		counters = telemetry.NewCounters()
	}
	return &service{db: db, ledger: l, events: pub, counters: counters}
}

// Redeem debits cost and applies the reward. The debit is conditional on the
// balance covering it, so an insufficient balance writes nothing.
func (s *service) Redeem(ctx context.Context, userID int64, rewardType string, cost int) (*Result, error) {
	if !Known(rewardType) {
		return nil, apperr.New(apperr.Validation, "unknown reward")
	}
	if cost < 0 {
		return nil, apperr.New(apperr.Validation, "cost must not be negative")
	}

	res := &Result{Success: true}
	err := database.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		balance, err := s.ledger.Debit(ctx, tx, userID, cost, "reward redeemed: "+rewardType)
		if errors.Is(err, ledger.ErrInsufficientPoints) {
			have, berr := ledger.Balance(ctx, tx, userID)
			if berr != nil {
				return berr
			}
			return apperr.Newf(apperr.Forbidden, "insufficient points: you have %d but need %d", have, cost)
		}
		if err != nil {
			return err
		}
		res.Balance = balance

		if res.Message, err = applyReward(ctx, tx, userID, rewardType); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reward_redemptions (user_id, reward_type, cost) VALUES ($1, $2, $3)
		`, userID, rewardType, cost); err != nil {
			return fmt.Errorf("failed to log redemption: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	telemetry.Add(ctx, s.counters.Redemptions, 1, attribute.String("reward", rewardType))
	s.events.Publish(ctx, events.RewardRedeemed, RewardRedeemedEvent{UserID: userID, RewardType: rewardType, Cost: cost})
	return res, nil
}

func applyReward(ctx context.Context, tx *sqlx.Tx, userID int64, rewardType string) (string, error) {
	switch rewardType {
	case ExtraRental, ExpertTier:
		return Message(rewardType, false), nil

	case GhostMode:
		var ghost bool
		err := tx.GetContext(ctx, &ghost, `
			UPDATE users SET ghost_mode = NOT ghost_mode WHERE id = $1 RETURNING ghost_mode
		`, userID)
		if errors.Is(err, sql.ErrNoRows) {
			return "", apperr.New(apperr.NotFound, "user not found")
		}
		if err != nil {
			return "", fmt.Errorf("failed to toggle ghost mode: %w", err)
		}
		return Message(GhostMode, ghost), nil

	case TitleOfFame:
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO reader_rankings (user_id, exclusive_title) VALUES ($1, $2)
			ON CONFLICT (user_id) DO UPDATE SET exclusive_title = EXCLUDED.exclusive_title
		`, userID, FameTitle); err != nil {
			return "", fmt.Errorf("failed to grant title: %w", err)
		}
		return Message(TitleOfFame, false), nil
	}
	return "", apperr.New(apperr.Validation, "unknown reward")
}

// UserRedemptions lists a user's redemptions, newest first.
func (s *service) UserRedemptions(ctx context.Context, userID int64) ([]Redemption, error) {
	out := []Redemption{}
	err := s.db.SelectContext(ctx, &out, `
		SELECT id, user_id, reward_type, cost, redeemed_at
		FROM reward_redemptions
		WHERE user_id = $1
		ORDER BY redeemed_at DESC, id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list redemptions: %w", err)
	}
	return out, nil
}
