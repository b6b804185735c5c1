package circulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

var seededTiers = []Tier{
	{ID: 1, Name: "Basic", DurationDays: 15},
	{ID: 2, Name: "Advanced", DurationDays: 30},
	{ID: 3, Name: "Expert", DurationDays: 60},
}

func TestResolveTier(t *testing.T) {
	for days, want := range map[int]int64{15: 1, 30: 2, 60: 3, 7: 1, 0: 1, 45: 1} {
		got, ok := ResolveTier(seededTiers, days)
		assert.True(t, ok)
		assert.Equal(t, want, got.ID, "days=%d", days)
	}

	_, ok := ResolveTier([]Tier{{ID: 2, DurationDays: 30}}, 7)
	assert.False(t, ok)
}

func TestResolveTierProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		days := rapid.IntRange(-10, 400).Draw(t, "days")
		tier, ok := ResolveTier(seededTiers, days)
		if !ok {
			t.Fatal("default tier must always resolve")
		}
		if tier.DurationDays != days && tier.ID != DefaultTierID {
			t.Fatalf("days %d resolved to non-matching tier %+v", days, tier)
		}
		for _, s := range seededTiers {
			if s.DurationDays == days && tier.ID != s.ID {
				t.Fatalf("days %d should resolve to %d, got %d", days, s.ID, tier.ID)
			}
		}
	})
}

func TestDueDateAndOnTime(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	due := DueDate(start, seededTiers[0])
	assert.Equal(t, time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC), due)

	assert.True(t, OnTime(due, due))
	assert.True(t, OnTime(due.Add(-time.Second), due))
	assert.False(t, OnTime(due.Add(time.Nanosecond), due))
}

func TestDueDateProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		start := time.Unix(rapid.Int64Range(0, 4_000_000_000).Draw(t, "start"), 0).UTC()
		tier := rapid.SampledFrom(seededTiers).Draw(t, "tier")
		due := DueDate(start, tier)

		if got := due.Sub(start).Hours() / 24; got != float64(tier.DurationDays) {
			t.Fatalf("due is %v days after start, want %d", got, tier.DurationDays)
		}
		ret := start.Add(time.Duration(rapid.Int64Range(0, int64(90*24*time.Hour)).Draw(t, "held")))
		if OnTime(ret, due) == ret.After(due) {
			t.Fatalf("OnTime(%v, %v) inconsistent", ret, due)
		}
	})
}
