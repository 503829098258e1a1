// Package dedup detects duplicate content at three independent granularities:
// exact content-hash matches, near-duplicates by embedding similarity, and
// entity-level matches on normalized identifier fields.
//
// The checks are composable and share no state; callers run them in
// ascending cost order (hash, then near, then entity) and combine the
// verdicts into document metadata. A hash match is authoritative: once it
// fires, no further checks are needed.
package dedup
