package dedup

// Result combines the three independent duplicate verdicts for one subject
// document. It is transient: the caller folds it into document metadata
// rather than persisting it as its own entity.
type Result struct {
	HashDuplicate bool         `json:"hashDuplicate"`
	Near          *NearMatch   `json:"near,omitempty"`
	Entity        *EntityMatch `json:"entity,omitempty"`
}

// Duplicate reports whether any of the three checks fired.
func (r Result) Duplicate() bool {
	return r.HashDuplicate || r.Near != nil || r.Entity != nil
}
