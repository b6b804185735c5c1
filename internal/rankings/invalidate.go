// internal/rankings/invalidate.go
package rankings

import (
	"context"
	"log/slog"

	"librent/internal/cache"
	"librent/internal/events"
)

// staleOn lists the committed changes that can move a ranking.
var staleOn = map[string]bool{
	events.RentalCreated:   true,
	events.RentalReturned:  true,
	events.RatingSubmitted: true,
	events.RewardRedeemed:  true,
}

type invalidator struct {
	next  events.Publisher
	cache cache.Cache
	log   *slog.Logger
}

// InvalidateOn wraps next so that events which change rankings also drop
// the cached rankings.
func InvalidateOn(next events.Publisher, c cache.Cache, log *slog.Logger) events.Publisher {
	return &invalidator{next: next, cache: c, log: log}
}

func (i *invalidator) Publish(ctx context.Context, eventType string, data any) {
	if staleOn[eventType] {
		if err := i.cache.Delete(ctx, cacheKey); err != nil {
			i.log.WarnContext(ctx, "rankings cache invalidation failed", slog.Any("err", err))
		}
	}
	i.next.Publish(ctx, eventType, data)
}
