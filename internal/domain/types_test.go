package domain

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assignment(element DataElement, op Operation, start int32, addr string) ShardAssignment {
	return ShardAssignment{
		Element:        element,
		Operation:      op,
		HashRangeStart: HashRangeStart(start),
		Config:         HTTPShardClientConfig{Addr: addr},
		Description:    ShardDescription(addr),
	}
}

func sortedAssignments(items []ShardAssignment) []ShardAssignment {
	out := append([]ShardAssignment(nil), items...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Element != out[j].Element {
			return out[i].Element < out[j].Element
		}
		if out[i].Operation != out[j].Operation {
			return out[i].Operation < out[j].Operation
		}
		return out[i].HashRangeStart < out[j].HashRangeStart
	})
	return out
}

// TestShardConfigurationSet_Equals_IgnoresOrder exercises the
// "structurally equal regardless of order" half of Equals' contract, and
// uses cmp.Diff (rather than reflect.DeepEqual) to confirm the two sets'
// sorted assignment lists really are identical, not just Equals-equal.
func TestShardConfigurationSet_Equals_IgnoresOrder(t *testing.T) {
	a1 := assignment(User, Query, 0, "http://shard1:9090")
	a2 := assignment(User, Event, 0, "http://shard1:9090")
	a3 := assignment(Group, Query, 100, "http://shard2:9090")

	setA, err := NewShardConfigurationSet(a1, a2, a3)
	require.NoError(t, err)
	setB, err := NewShardConfigurationSet(a3, a1, a2)
	require.NoError(t, err)

	assert.True(t, setA.Equals(setB))

	diff := cmp.Diff(sortedAssignments(setA.Items()), sortedAssignments(setB.Items()))
	assert.Empty(t, diff, "sets built from the same assignments in different orders must diff empty once sorted")
}

// TestShardConfigurationSet_Equals_DetectsConfigDivergence exercises the
// half of Equals' contract that distinguishes two sets sharing every
// assignment key but differing in the shard a key maps to.
func TestShardConfigurationSet_Equals_DetectsConfigDivergence(t *testing.T) {
	setA, err := NewShardConfigurationSet(assignment(User, Query, 0, "http://shard1:9090"))
	require.NoError(t, err)
	setB, err := NewShardConfigurationSet(assignment(User, Query, 0, "http://shard2:9090"))
	require.NoError(t, err)

	assert.False(t, setA.Equals(setB))

	diff := cmp.Diff(sortedAssignments(setA.Items()), sortedAssignments(setB.Items()))
	assert.NotEmpty(t, diff, "a changed shard address must surface as a non-empty diff")
}
