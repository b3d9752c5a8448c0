package shardserver

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/applicationaccess-coordinator/internal/accessmanager"
	"github.com/dreamware/applicationaccess-coordinator/internal/shardclient"
)

func newTestPair(t *testing.T) *shardclient.Client {
	t.Helper()
	backend := accessmanager.New("test-shard")
	srv := httptest.NewServer(New(backend, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return shardclient.New(strings.TrimPrefix(srv.URL, "http://"))
}

func TestServer_UserLifecycleRoundTripsThroughHTTP(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	require.NoError(t, c.AddUser(ctx, "alice"))

	ok, err := c.ContainsUser(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)

	users, err := c.GetUsers(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"alice"}, users)

	require.NoError(t, c.RemoveUser(ctx, "alice"))
	ok, err = c.ContainsUser(ctx, "alice")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestServer_ComponentAccessRoundTripsThroughHTTP(t *testing.T) {
	c := newTestPair(t)
	ctx := context.Background()

	require.NoError(t, c.AddUserToApplicationComponentAndAccessLevelMapping(ctx, "alice", "orders", "view"))
	ok, err := c.HasAccessToApplicationComponent(ctx, "alice", "orders", "view")
	require.NoError(t, err)
	require.True(t, ok)
}
