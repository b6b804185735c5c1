// internal/membership/service.go
package membership

import (
	"context"

	"librent/internal/ledger"
)

// Service defines the interface for accounts and their points.
type Service interface {
	Login(ctx context.Context, email, password string) (*Session, error)
	Register(ctx context.Context, name, email, password string) (*Registered, error)
	EnsureAdmin(ctx context.Context, name, email, password string) error
	ListUsers(ctx context.Context) ([]UserSummary, error)
	Points(ctx context.Context, userID int64) (int, error)
	PointsHistory(ctx context.Context, userID int64) ([]ledger.Entry, error)
	ToggleGhost(ctx context.Context, userID int64) (bool, error)
}
