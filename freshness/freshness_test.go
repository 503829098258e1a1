package freshness

import (
	"testing"
	"time"

	"github.com/quarrylabs/quarry/core"
	"github.com/stretchr/testify/assert"
)

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

func TestMultiplier_AgeSteps(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		ingestedAt *time.Time
		want       float64
	}{
		{"29 days", daysAgo(now, 29), 1.0},
		{"31 days", daysAgo(now, 31), 0.9},
		{"91 days", daysAgo(now, 91), 0.8},
		{"brand new", &now, 1.0},
		{"90 days exactly", daysAgo(now, 90), 0.9},
		{"unknown age", nil, 1.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Multiplier(tc.ingestedAt, now))
		})
	}
}

func TestEvaluate_ExpiryOutranksDecay(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	// Fresh by age but explicitly expired: expired wins, multiplier 0.
	doc := &core.Document{IngestedAt: daysAgo(now, 1), ValidUntil: &past}
	status, multiplier := Evaluate(doc, now)
	assert.Equal(t, StatusExpired, status)
	assert.Equal(t, 0.0, multiplier)
}

func TestEvaluate_Statuses(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	future := now.Add(24 * time.Hour)

	status, multiplier := Evaluate(&core.Document{IngestedAt: daysAgo(now, 5)}, now)
	assert.Equal(t, StatusFresh, status)
	assert.Equal(t, 1.0, multiplier)

	status, multiplier = Evaluate(&core.Document{IngestedAt: daysAgo(now, 45)}, now)
	assert.Equal(t, StatusAging, status)
	assert.Equal(t, 0.9, multiplier)

	status, multiplier = Evaluate(&core.Document{IngestedAt: daysAgo(now, 120), ValidUntil: &future}, now)
	assert.Equal(t, StatusStale, status)
	assert.Equal(t, 0.8, multiplier)

	// No ingestion timestamp: always fresh.
	status, multiplier = Evaluate(&core.Document{}, now)
	assert.Equal(t, StatusFresh, status)
	assert.Equal(t, 1.0, multiplier)
}
