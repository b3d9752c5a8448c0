package shardmanager

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

// stubClient is a no-op domain.ShardClient used only to exercise the
// manager's pooling and routing logic; it never touches real data.
type stubClient struct {
	domain.ShardClient
	closed int32
}

func (s *stubClient) Close() error {
	atomic.AddInt32(&s.closed, 1)
	return nil
}

func (s *stubClient) isClosed() bool { return atomic.LoadInt32(&s.closed) > 0 }

func cfg(addr string) domain.HTTPShardClientConfig {
	return domain.HTTPShardClientConfig{Addr: addr}
}

func assignment(element domain.DataElement, start domain.HashRangeStart, addr string) domain.ShardAssignment {
	return domain.ShardAssignment{
		Element:        element,
		Operation:      domain.Event,
		HashRangeStart: start,
		Config:         cfg(addr),
		Description:    domain.ShardDescription(addr),
	}
}

func identityHasher(h int32) domain.HashCodeGenerator {
	return func(string) int32 { return h }
}

func newFactory(built map[string]*stubClient) ClientFactory {
	return func(config domain.ShardClientConfig) (domain.ShardClient, error) {
		c := &stubClient{}
		built[config.String()] = c
		return c, nil
	}
}

func TestNewShardConfigurationSet_DuplicateStartRejected(t *testing.T) {
	dupA := assignment(domain.User, 0, "a")
	dupB := assignment(domain.User, 0, "b")
	_, err := domain.NewShardConfigurationSet(dupA, dupB)
	var invalid *domain.ConfigInvalidError
	require.ErrorAs(t, err, &invalid)
}

func TestConstruct_FactoryFailureWrapsConfigurationRefreshFailure(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "a"))
	require.NoError(t, err)

	factory := func(domain.ShardClientConfig) (domain.ShardClient, error) {
		return nil, errors.New("dial failed")
	}

	_, err = Construct(set, factory, identityHasher(0), identityHasher(0), nil)
	var refreshErr *domain.ConfigurationRefreshFailureError
	require.ErrorAs(t, err, &refreshErr)
}

func TestGetClient_BoundaryAndWrap(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(
		assignment(domain.User, 0, "c0"),
		assignment(domain.User, 32, "c32"),
	)
	require.NoError(t, err)

	built := make(map[string]*stubClient)
	m, err := Construct(set, newFactory(built), identityHasher(32), identityHasher(0), nil)
	require.NoError(t, err)

	handle, err := m.GetClient(domain.User, domain.Event, "user1")
	require.NoError(t, err)
	assert.Equal(t, domain.ShardDescription("c32"), handle.Description)

	wrapping, err := Construct(set, newFactory(built), identityHasher(-1), identityHasher(0), nil)
	require.NoError(t, err)
	handle, err = wrapping.GetClient(domain.User, domain.Event, "user2")
	require.NoError(t, err)
	assert.Equal(t, domain.ShardDescription("c32"), handle.Description)
}

func TestGetClient_NoRingForElementOperation(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "c0"))
	require.NoError(t, err)

	built := make(map[string]*stubClient)
	m, err := Construct(set, newFactory(built), identityHasher(0), identityHasher(0), nil)
	require.NoError(t, err)

	_, err = m.GetClient(domain.Group, domain.Event, "group1")
	var notFound *domain.NoShardForElementOperationError
	require.ErrorAs(t, err, &notFound)
}

func TestGetAllClients_DedupesSharedConfig(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(
		assignment(domain.User, 0, "shared"),
		assignment(domain.User, 16, "shared"),
		assignment(domain.User, 32, "other"),
	)
	require.NoError(t, err)

	built := make(map[string]*stubClient)
	m, err := Construct(set, newFactory(built), identityHasher(0), identityHasher(0), nil)
	require.NoError(t, err)

	handles, err := m.GetAllClients(domain.User, domain.Event)
	require.NoError(t, err)
	assert.Len(t, handles, 2)
}

func TestRefreshConfiguration_NoopWhenEqual(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "c0"))
	require.NoError(t, err)

	built := make(map[string]*stubClient)
	m, err := Construct(set, newFactory(built), identityHasher(0), identityHasher(0), nil)
	require.NoError(t, err)

	same, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "c0"))
	require.NoError(t, err)

	require.NoError(t, m.RefreshConfiguration(same))
	assert.False(t, built["c0"].isClosed())
}

func TestRefreshConfiguration_FactoryFailureLeavesLiveStateIntact(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "c0"))
	require.NoError(t, err)

	built := make(map[string]*stubClient)
	m, err := Construct(set, newFactory(built), identityHasher(0), identityHasher(0), nil)
	require.NoError(t, err)

	failing, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "c1"))
	require.NoError(t, err)

	m.factory = func(config domain.ShardClientConfig) (domain.ShardClient, error) {
		if config.String() == "c1" {
			return nil, errors.New("unreachable")
		}
		return newFactory(built)(config)
	}

	err = m.RefreshConfiguration(failing)
	var refreshErr *domain.ConfigurationRefreshFailureError
	require.ErrorAs(t, err, &refreshErr)

	handle, err := m.GetClient(domain.User, domain.Event, "anything")
	require.NoError(t, err)
	assert.Equal(t, domain.ShardDescription("c0"), handle.Description)
}

func TestRefreshConfiguration_ClosesClientsNoLongerReferenced(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(
		assignment(domain.User, 0, "c0"),
		assignment(domain.User, 32, "c32"),
	)
	require.NoError(t, err)

	built := make(map[string]*stubClient)
	m, err := Construct(set, newFactory(built), identityHasher(0), identityHasher(0), nil)
	require.NoError(t, err)

	next, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "c0"))
	require.NoError(t, err)

	require.NoError(t, m.RefreshConfiguration(next))

	assert.True(t, built["c32"].isClosed())
	assert.False(t, built["c0"].isClosed())

	handles, err := m.GetAllClients(domain.User, domain.Event)
	require.NoError(t, err)
	assert.Len(t, handles, 1)
}

func TestRefreshConfiguration_KeepsSharedClientOpenWhileAnyAssignmentReferencesIt(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(
		assignment(domain.User, 0, "shared"),
		assignment(domain.User, 16, "shared"),
	)
	require.NoError(t, err)

	built := make(map[string]*stubClient)
	m, err := Construct(set, newFactory(built), identityHasher(0), identityHasher(0), nil)
	require.NoError(t, err)

	next, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "shared"))
	require.NoError(t, err)

	require.NoError(t, m.RefreshConfiguration(next))
	assert.False(t, built["shared"].isClosed())
}

func TestCurrentConfiguration_ReturnsLiveSet(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(assignment(domain.User, 0, "c0"))
	require.NoError(t, err)

	built := make(map[string]*stubClient)
	m, err := Construct(set, newFactory(built), identityHasher(0), identityHasher(0), nil)
	require.NoError(t, err)

	assert.True(t, m.CurrentConfiguration().Equals(set))
}
