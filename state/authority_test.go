package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthoritySet(t *testing.T) {
	a1 := []byte{0x01}
	a2 := []byte{0x02}
	a3 := []byte{0x03}

	auth := NewAuthoritySet([][]byte{a1}, [][]byte{a2}, [][]byte{a3, a1, a3})

	assert.True(t, auth.IsApprover(a1))
	assert.False(t, auth.IsApprover(a2))
	assert.True(t, auth.IsRejector(a2))
	assert.False(t, auth.IsRejector(a3))
	assert.True(t, auth.IsTipper(a3))
	assert.False(t, auth.IsTipper(a2))

	// tippers are deduplicated and address-sorted
	assert.Equal(t, 2, auth.TipperCount())
	assert.Equal(t, [][]byte{a1, a3}, auth.SortedTippers())
}

func TestEmptyAuthoritySet(t *testing.T) {
	auth := NewAuthoritySet(nil, nil, nil)
	assert.False(t, auth.IsApprover([]byte{1}))
	assert.Equal(t, 0, auth.TipperCount())
	assert.Empty(t, auth.SortedTippers())
}
