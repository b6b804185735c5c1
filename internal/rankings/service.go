// internal/rankings/service.go
package rankings

import "context"

// Service defines the read-only aggregate views.
type Service interface {
	Rankings(ctx context.Context) (*Rankings, error)
	Blacklist(ctx context.Context) ([]BlacklistEntry, error)
}
