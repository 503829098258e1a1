package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResult_Duplicate(t *testing.T) {
	assert.False(t, Result{}.Duplicate())
	assert.True(t, Result{HashDuplicate: true}.Duplicate())
	assert.True(t, Result{Near: &NearMatch{DocumentID: "d"}}.Duplicate())
	assert.True(t, Result{Entity: &EntityMatch{DocumentID: "d"}}.Duplicate())
}
