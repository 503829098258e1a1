// Copyright 2025 Quarry Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package freshness maps document age and explicit expiry to a decay
// multiplier used to down-weight stale content. The functions here are pure:
// no I/O, no clock access beyond the caller-supplied "now".
package freshness

import (
	"time"

	"github.com/quarrylabs/quarry/core"
)

// Age thresholds for the decay steps.
const (
	freshWindow = 30 * 24 * time.Hour
	agingWindow = 90 * 24 * time.Hour
)

// Status classifies a document's freshness.
type Status string

const (
	StatusFresh   Status = "fresh"
	StatusAging   Status = "aging"
	StatusStale   Status = "stale"
	StatusExpired Status = "expired"
)

// Multiplier returns the decay factor for a document ingested at the given
// time: 1.0 under 30 days, 0.9 between 30 and 90 days, 0.8 beyond. A nil
// ingestion timestamp means the age is unknown rather than known-old, so the
// document is treated as always fresh.
func Multiplier(ingestedAt *time.Time, now time.Time) float64 {
	if ingestedAt == nil {
		return 1.0
	}

	age := now.Sub(*ingestedAt)
	switch {
	case age < freshWindow:
		return 1.0
	case age <= agingWindow:
		return 0.9
	default:
		return 0.8
	}
}

// Evaluate scores a document, checking explicit expiry before the age decay.
// A ValidUntil in the past is a stronger signal than any decay step and
// yields the terminal expired status with multiplier 0.
func Evaluate(doc *core.Document, now time.Time) (Status, float64) {
	if doc.ValidUntil != nil && doc.ValidUntil.Before(now) {
		return StatusExpired, 0
	}

	multiplier := Multiplier(doc.IngestedAt, now)
	switch multiplier {
	case 1.0:
		return StatusFresh, multiplier
	case 0.9:
		return StatusAging, multiplier
	default:
		return StatusStale, multiplier
	}
}
