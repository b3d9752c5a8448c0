package hashring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

func TestRing_LookupWrapsBelowSmallestStart(t *testing.T) {
	r := New()
	require.NoError(t, r.Insert(0, "c0"))
	require.NoError(t, r.Insert(32, "c32"))

	v, ok := r.Lookup(31)
	require.True(t, ok)
	assert.Equal(t, "c0", v)

	v, ok = r.Lookup(32)
	require.True(t, ok)
	assert.Equal(t, "c32", v)

	// Below every start: wraps to the greatest start.
	v, ok = r.Lookup(-100)
	require.True(t, ok)
	assert.Equal(t, "c32", v)
}

func TestRing_LookupEmpty(t *testing.T) {
	r := New()
	_, ok := r.Lookup(5)
	assert.False(t, ok)
}

func TestRing_InsertDuplicateFails(t *testing.T) {
	r := New()
	require.NoError(t, r.Insert(10, "a"))
	err := r.Insert(10, "b")
	assert.Error(t, err)
}

func TestRing_SingleShardOwnsEverything(t *testing.T) {
	r := New()
	require.NoError(t, r.Insert(domain.HashRangeStart(0), "only"))

	for _, h := range []int32{0, 1, -1, 2147483647, -2147483648} {
		v, ok := r.Lookup(h)
		require.True(t, ok)
		assert.Equal(t, "only", v)
	}
}

func TestRing_EnumerateAscending(t *testing.T) {
	r := New()
	require.NoError(t, r.Insert(100, "c100"))
	require.NoError(t, r.Insert(0, "c0"))
	require.NoError(t, r.Insert(50, "c50"))

	entries := r.Enumerate()
	require.Len(t, entries, 3)
	assert.Equal(t, domain.HashRangeStart(0), entries[0].Start)
	assert.Equal(t, domain.HashRangeStart(50), entries[1].Start)
	assert.Equal(t, domain.HashRangeStart(100), entries[2].Start)
}
