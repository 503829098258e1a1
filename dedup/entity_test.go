package dedup

import (
	"testing"

	"github.com/quarrylabs/quarry/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchEntity_EmailCaseAndWhitespace(t *testing.T) {
	incoming := EntityKey{Email: "  Alice@Acme.IO "}
	candidates := []core.EntityCandidate{
		{DocumentID: "d1", Email: "alice@acme.io"},
	}

	match := MatchEntity(incoming, candidates)
	require.NotNil(t, match)
	assert.Equal(t, "d1", match.DocumentID)
	assert.Equal(t, "email", match.Field)
}

func TestMatchEntity_NameAndCompanyBothRequired(t *testing.T) {
	incoming := EntityKey{Name: "Alice Smith", Company: "Acme"}

	// Name alone is not enough.
	match := MatchEntity(incoming, []core.EntityCandidate{
		{DocumentID: "d1", Name: "alice smith", Company: "Globex"},
	})
	assert.Nil(t, match)

	// Both matching fires the rule.
	match = MatchEntity(incoming, []core.EntityCandidate{
		{DocumentID: "d2", Name: "ALICE SMITH", Company: "acme"},
	})
	require.NotNil(t, match)
	assert.Equal(t, "d2", match.DocumentID)
	assert.Equal(t, "name+company", match.Field)
}

func TestMatchEntity_EmailOutranksNameCompany(t *testing.T) {
	incoming := EntityKey{Email: "alice@acme.io", Name: "Alice Smith", Company: "Acme"}
	candidates := []core.EntityCandidate{
		{DocumentID: "by-name", Name: "alice smith", Company: "acme"},
		{DocumentID: "by-email", Email: "alice@acme.io"},
	}

	match := MatchEntity(incoming, candidates)
	require.NotNil(t, match)
	assert.Equal(t, "by-email", match.DocumentID)
	assert.Equal(t, "email", match.Field)
}

func TestMatchEntity_DomainOnlyAsLastResort(t *testing.T) {
	// Domain matches only when the incoming record has neither name nor email.
	bare := EntityKey{Domain: "acme.io"}
	candidates := []core.EntityCandidate{
		{DocumentID: "d1", Domain: "ACME.IO"},
	}

	match := MatchEntity(bare, candidates)
	require.NotNil(t, match)
	assert.Equal(t, "domain", match.Field)

	// Same domain, but the incoming record carries a name: suppressed.
	named := EntityKey{Name: "Alice", Domain: "acme.io"}
	assert.Nil(t, MatchEntity(named, candidates))

	// Same with an email present.
	mailed := EntityKey{Email: "alice@acme.io", Domain: "acme.io"}
	assert.Nil(t, MatchEntity(mailed, candidates))
}

func TestMatchEntity_NoIdentifiers(t *testing.T) {
	assert.Nil(t, MatchEntity(EntityKey{}, []core.EntityCandidate{
		{DocumentID: "d1", Email: "alice@acme.io"},
	}))
	assert.Nil(t, MatchEntity(EntityKey{Company: "Acme"}, []core.EntityCandidate{
		{DocumentID: "d1", Company: "Acme"},
	}))
}

func TestMatchEntity_FirstCandidateOnHighestRuleWins(t *testing.T) {
	incoming := EntityKey{Email: "bob@globex.com"}
	candidates := []core.EntityCandidate{
		{DocumentID: "first", Email: "bob@globex.com"},
		{DocumentID: "second", Email: "bob@globex.com"},
	}

	match := MatchEntity(incoming, candidates)
	require.NotNil(t, match)
	assert.Equal(t, "first", match.DocumentID)
}
