package accessmanager

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

func TestUserLifecycle(t *testing.T) {
	c := New("test-shard")
	ctx := context.Background()

	ok, err := c.ContainsUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.AddUser(ctx, "alice"))
	ok, err = c.ContainsUser(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, c.RemoveUser(ctx, "alice"))
	ok, err = c.ContainsUser(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	// Idempotent.
	require.NoError(t, c.RemoveUser(ctx, "alice"))
}

func TestComponentAccessGrantsAndRevokes(t *testing.T) {
	c := New("test-shard")
	ctx := context.Background()

	require.NoError(t, c.AddUserToApplicationComponentAndAccessLevelMapping(ctx, "alice", "orders", "view"))
	ok, err := c.HasAccessToApplicationComponent(ctx, "alice", "orders", "view")
	require.NoError(t, err)
	assert.True(t, ok)

	accesses, err := c.GetApplicationComponentsAccessibleByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []domain.ComponentAccess{{ApplicationComponent: "orders", AccessLevel: "view"}}, accesses)

	require.NoError(t, c.RemoveUserToApplicationComponentAndAccessLevelMapping(ctx, "alice", "orders", "view"))
	ok, err = c.HasAccessToApplicationComponent(ctx, "alice", "orders", "view")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGroupToGroupMappingClosureIsOneHop(t *testing.T) {
	c := New("test-shard")
	ctx := context.Background()

	require.NoError(t, c.AddGroupToGroupMapping(ctx, "engineers", "employees"))
	parents, err := c.GetGroupToGroupMappings(ctx, "engineers")
	require.NoError(t, err)
	assert.Equal(t, []string{"employees"}, parents)

	parents, err = c.GetGroupToGroupMappings(ctx, "employees")
	require.NoError(t, err)
	assert.Empty(t, parents)
}

func TestEntityAccess(t *testing.T) {
	c := New("test-shard")
	ctx := context.Background()

	require.NoError(t, c.AddEntityType(ctx, "client"))
	require.NoError(t, c.AddEntity(ctx, "client", "clientA"))
	require.NoError(t, c.AddGroupToEntityMapping(ctx, "sales", "client", "clientA"))

	ok, err := c.HasAccessToEntity(ctx, "sales", "client", "clientA")
	require.NoError(t, err)
	assert.True(t, ok)

	accesses, err := c.GetEntitiesAccessibleByGroup(ctx, "sales")
	require.NoError(t, err)
	assert.Equal(t, []domain.EntityAccess{{EntityType: "client", Entity: "clientA"}}, accesses)
}
