package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
	"github.com/dreamware/applicationaccess-coordinator/internal/metrics"
	"github.com/dreamware/applicationaccess-coordinator/internal/shardmanager"
)

// fakeClient implements domain.ShardClient by embedding the (nil) interface
// and overriding only the methods a given test needs; any unoverridden
// method panics via a nil-interface call, which is fine because tests never
// reach them.
type fakeClient struct {
	domain.ShardClient
	description string

	getUsersFn      func(ctx context.Context) ([]string, error)
	containsUserFn  func(ctx context.Context, user string) (bool, error)
	addUserFn       func(ctx context.Context, user string) error
	removeUserFn    func(ctx context.Context, user string) error
	addGroupFn      func(ctx context.Context, group string) error
	addGroupToGroupFn func(ctx context.Context, from, to string) error
}

func (f *fakeClient) GetUsers(ctx context.Context) ([]string, error) {
	return f.getUsersFn(ctx)
}

func (f *fakeClient) ContainsUser(ctx context.Context, user string) (bool, error) {
	return f.containsUserFn(ctx, user)
}

func (f *fakeClient) AddUser(ctx context.Context, user string) error {
	return f.addUserFn(ctx, user)
}

func (f *fakeClient) RemoveUser(ctx context.Context, user string) error {
	return f.removeUserFn(ctx, user)
}

func (f *fakeClient) AddGroup(ctx context.Context, group string) error {
	return f.addGroupFn(ctx, group)
}

func (f *fakeClient) AddGroupToGroupMapping(ctx context.Context, from, to string) error {
	return f.addGroupToGroupFn(ctx, from, to)
}

func (f *fakeClient) Close() error { return nil }

func handleFor(c *fakeClient) shardmanager.ClientHandle {
	return shardmanager.ClientHandle{Client: c, Description: domain.ShardDescription(c.description)}
}

// testManager builds a real *shardmanager.Manager wired to a fixed set of
// fakeClients so routing goes through the actual ring/pool code, not a
// hand-rolled stand-in.
func testManager(t *testing.T, assignments []domain.ShardAssignment, clients map[string]*fakeClient) *shardmanager.Manager {
	t.Helper()
	set, err := domain.NewShardConfigurationSet(assignments...)
	require.NoError(t, err)

	factory := func(cfg domain.ShardClientConfig) (domain.ShardClient, error) {
		c, ok := clients[cfg.String()]
		require.True(t, ok, "no fake client registered for config %s", cfg.String())
		return c, nil
	}

	m, err := shardmanager.Construct(set, factory, domain.FNVHashCodeGenerator, domain.FNVHashCodeGenerator, metrics.Noop{})
	require.NoError(t, err)
	return m
}

func assignment(element domain.DataElement, op domain.Operation, start domain.HashRangeStart, addr string) domain.ShardAssignment {
	return domain.ShardAssignment{
		Element:        element,
		Operation:      op,
		HashRangeStart: start,
		Config:         domain.HTTPShardClientConfig{Addr: addr},
		Description:    domain.ShardDescription(addr),
	}
}

func TestGetUsers_UnionsAndDedupesAcrossShards(t *testing.T) {
	c1 := &fakeClient{description: "shard1", getUsersFn: func(context.Context) ([]string, error) {
		return []string{"u1", "u2", "u3"}, nil
	}}
	c2 := &fakeClient{description: "shard2", getUsersFn: func(context.Context) ([]string, error) {
		return []string{}, nil
	}}
	c3 := &fakeClient{description: "shard3", getUsersFn: func(context.Context) ([]string, error) {
		return []string{"u4", "u5", "u6"}, nil
	}}

	m := testManager(t, []domain.ShardAssignment{
		assignment(domain.User, domain.Query, 0, "shard1"),
		assignment(domain.User, domain.Query, 10, "shard2"),
		assignment(domain.User, domain.Query, 20, "shard3"),
	}, map[string]*fakeClient{"shard1": c1, "shard2": c2, "shard3": c3})

	coord := New(m, nil)
	users, err := coord.GetUsers(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"u1", "u2", "u3", "u4", "u5", "u6"}, users)
}

func TestGetUsers_FailurePropagatesWithShardDescriptionPrefix(t *testing.T) {
	c1 := &fakeClient{description: "ShardDescription1", getUsersFn: func(context.Context) ([]string, error) {
		return []string{"u1"}, nil
	}}
	c2 := &fakeClient{description: "ShardDescription2", getUsersFn: func(context.Context) ([]string, error) {
		return nil, errors.New("Mock exception")
	}}
	c3 := &fakeClient{description: "ShardDescription3", getUsersFn: func(context.Context) ([]string, error) {
		return []string{"u3"}, nil
	}}

	m := testManager(t, []domain.ShardAssignment{
		assignment(domain.User, domain.Query, 0, "ShardDescription1"),
		assignment(domain.User, domain.Query, 10, "ShardDescription2"),
		assignment(domain.User, domain.Query, 20, "ShardDescription3"),
	}, map[string]*fakeClient{"ShardDescription1": c1, "ShardDescription2": c2, "ShardDescription3": c3})

	coord := New(m, nil)
	_, err := coord.GetUsers(context.Background())
	require.Error(t, err)

	var shardErr *domain.ShardCallFailureError
	require.ErrorAs(t, err, &shardErr)
	assert.Equal(t, "Failed to retrieve users from shard with configuration 'ShardDescription2'.", err.Error())
	require.ErrorIs(t, err, shardErr.Cause)
}

func TestContainsUser_FanOutAnyOrsResults(t *testing.T) {
	falseClient := &fakeClient{description: "s1", containsUserFn: func(context.Context, string) (bool, error) { return false, nil }}
	trueClient := &fakeClient{description: "s2", containsUserFn: func(context.Context, string) (bool, error) { return true, nil }}

	m := testManager(t, []domain.ShardAssignment{
		assignment(domain.User, domain.Query, 0, "s1"),
		assignment(domain.User, domain.Query, 10, "s2"),
	}, map[string]*fakeClient{"s1": falseClient, "s2": trueClient})

	coord := New(m, nil)
	ok, err := coord.ContainsUser(context.Background(), "user1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRemoveUser_FanOutAllRequiresEverySuccess(t *testing.T) {
	failing := &fakeClient{description: "s1", removeUserFn: func(context.Context, string) error {
		return errors.New("boom")
	}}
	succeeding := &fakeClient{description: "s2", removeUserFn: func(context.Context, string) error { return nil }}

	m := testManager(t, []domain.ShardAssignment{
		assignment(domain.User, domain.Event, 0, "s1"),
		assignment(domain.User, domain.Event, 10, "s2"),
	}, map[string]*fakeClient{"s1": failing, "s2": succeeding})

	coord := New(m, nil)
	err := coord.RemoveUser(context.Background(), "user1")
	require.Error(t, err)

	var partial *domain.PartialFanOutFailureError
	require.ErrorAs(t, err, &partial)
}

func TestAddGroup_DualTargetRequiresBothToSucceed(t *testing.T) {
	groupCalled := false
	ggCalled := false
	groupClient := &fakeClient{description: "group-shard", addGroupFn: func(ctx context.Context, g string) error {
		groupCalled = true
		return nil
	}}
	ggClient := &fakeClient{description: "gg-shard", addGroupToGroupFn: func(ctx context.Context, from, to string) error {
		ggCalled = true
		return nil
	}}

	m := testManager(t, []domain.ShardAssignment{
		assignment(domain.Group, domain.Event, 0, "group-shard"),
		assignment(domain.GroupToGroupMapping, domain.Event, 0, "gg-shard"),
	}, map[string]*fakeClient{"group-shard": groupClient, "gg-shard": ggClient})

	coord := New(m, nil)
	require.NoError(t, coord.AddGroup(context.Background(), "group1"))
	assert.True(t, groupCalled)
	assert.True(t, ggCalled)
}

func TestAddGroup_FailsIfEitherTargetFails(t *testing.T) {
	groupClient := &fakeClient{description: "group-shard", addGroupFn: func(ctx context.Context, g string) error {
		return errors.New("unreachable")
	}}
	ggClient := &fakeClient{description: "gg-shard", addGroupToGroupFn: func(ctx context.Context, from, to string) error {
		return nil
	}}

	m := testManager(t, []domain.ShardAssignment{
		assignment(domain.Group, domain.Event, 0, "group-shard"),
		assignment(domain.GroupToGroupMapping, domain.Event, 0, "gg-shard"),
	}, map[string]*fakeClient{"group-shard": groupClient, "gg-shard": ggClient})

	coord := New(m, nil)
	err := coord.AddGroup(context.Background(), "group1")
	require.Error(t, err)

	var shardErr *domain.ShardCallFailureError
	require.ErrorAs(t, err, &shardErr)
}
