// internal/telemetry/metrics.go
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counters are the business counters recorded by the services.
type Counters struct {
	RentalsCreated  metric.Int64Counter
	RentalsReturned metric.Int64Counter
	Ratings         metric.Int64Counter
	Redemptions     metric.Int64Counter
	Votes           metric.Int64Counter
	OverdueFlips    metric.Int64Counter
}

// NewCounters registers the counters on the global meter provider.
func NewCounters() *Counters {
	m := otel.Meter("librent")
	return &Counters{
		RentalsCreated:  counter(m, "librent.rentals.created", "Rentals created"),
		RentalsReturned: counter(m, "librent.rentals.returned", "Rentals returned"),
		Ratings:         counter(m, "librent.ratings.submitted", "Ratings submitted or updated"),
		Redemptions:     counter(m, "librent.rewards.redeemed", "Rewards redeemed"),
		Votes:           counter(m, "librent.posts.votes", "Post votes cast"),
		OverdueFlips:    counter(m, "librent.rentals.overdue", "Rentals flipped to overdue"),
	}
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		otel.Handle(err)
	}
	return c
}

// Add increments c, tolerating a nil receiver so services can run without counters.
func Add(ctx context.Context, c metric.Int64Counter, n int64, attrs ...attribute.KeyValue) {
	if c == nil || n == 0 {
		return
	}
	c.Add(ctx, n, metric.WithAttributes(attrs...))
}
