package dedup

import (
	"strings"

	"github.com/quarrylabs/quarry/core"
)

// EntityKey holds the identifier fields of an incoming record. Matching is
// identifier-level, not content-level.
type EntityKey struct {
	Email   string
	Name    string
	Company string
	Domain  string
}

// EntityMatch reports which candidate matched and on which field.
type EntityMatch struct {
	DocumentID string `json:"documentId"`
	Field      string `json:"field"` // "email", "name+company" or "domain"
}

// MatchEntity finds an existing record that identifies the same entity as
// the incoming key.
//
// Rules in priority order, first match wins:
//
//  1. exact email match (strongest);
//  2. name AND company both matching;
//  3. domain match, applied only when the incoming record carries neither a
//     name nor an email (last-resort signal).
//
// All comparisons use trimmed, case-folded values. Candidates are evaluated
// in input order: the first candidate satisfying the highest-priority rule
// is returned. Returns nil when the incoming record has no identifiers or
// nothing matches.
func MatchEntity(incoming EntityKey, candidates []core.EntityCandidate) *EntityMatch {
	email := normalizeIdentifier(incoming.Email)
	name := normalizeIdentifier(incoming.Name)
	company := normalizeIdentifier(incoming.Company)
	domain := normalizeIdentifier(incoming.Domain)

	if email == "" && name == "" && domain == "" {
		return nil
	}

	if email != "" {
		for _, c := range candidates {
			if normalizeIdentifier(c.Email) == email {
				return &EntityMatch{DocumentID: c.DocumentID, Field: "email"}
			}
		}
	}

	if name != "" && company != "" {
		for _, c := range candidates {
			if normalizeIdentifier(c.Name) == name && normalizeIdentifier(c.Company) == company {
				return &EntityMatch{DocumentID: c.DocumentID, Field: "name+company"}
			}
		}
	}

	// Domain alone is too weak a signal when stronger identifiers exist on
	// the incoming record, even if they failed to match.
	if domain != "" && email == "" && name == "" {
		for _, c := range candidates {
			if normalizeIdentifier(c.Domain) == domain {
				return &EntityMatch{DocumentID: c.DocumentID, Field: "domain"}
			}
		}
	}

	return nil
}

func normalizeIdentifier(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
