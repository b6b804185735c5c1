// internal/circulation/service.go
package circulation

import (
	"context"
	"time"
)

// Service defines the interface for the circulation service.
type Service interface {
	ListTiers(ctx context.Context) ([]Tier, error)
	CreateRental(ctx context.Context, in CreateInput) (*Rental, error)
	ReturnRental(ctx context.Context, rentalID, userID int64) (*ReturnResult, error)
	UserRentals(ctx context.Context, userID int64) ([]Rental, error)
	AllRentals(ctx context.Context) ([]AdminRental, error)
	RefreshOverdue(ctx context.Context, now time.Time) (OverdueReport, error)
	FlagUser(ctx context.Context, userID int64) error
	ClearUser(ctx context.Context, userID int64) error
}
