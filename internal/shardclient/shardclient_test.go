package shardclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/applicationaccess-coordinator/internal/transport"
)

func newTestServer(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return New(strings.TrimPrefix(srv.URL, "http://"))
}

func TestAddUser_PostsExpectedBody(t *testing.T) {
	var gotBody map[string]string
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	})

	c := newTestServer(t, mux)
	require.NoError(t, c.AddUser(context.Background(), "alice"))
	assert.Equal(t, "alice", gotBody["user"])
}

func TestContainsUser_DecodesExistsResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users/exists", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("user"))
		json.NewEncoder(w).Encode(existsResponse{Exists: true})
	})

	c := newTestServer(t, mux)
	ok, err := c.ContainsUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestGetUsers_DecodesListResponse(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(listResponse{Items: []string{"alice", "bob"}})
	})

	c := newTestServer(t, mux)
	users, err := c.GetUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)
}

func TestRemoveUser_SendsDelete(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusOK)
	})

	c := newTestServer(t, mux)
	require.NoError(t, c.RemoveUser(context.Background(), "alice"))
}

func TestNonSuccessStatus_ReturnsStatusError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestServer(t, mux)
	err := c.AddUser(context.Background(), "alice")
	require.Error(t, err)

	var statusErr *transport.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestHasAccessToApplicationComponent_PassesThroughQueryParams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/componentAccess/exists", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "alice", r.URL.Query().Get("principal"))
		assert.Equal(t, "orders", r.URL.Query().Get("component"))
		assert.Equal(t, "view", r.URL.Query().Get("accessLevel"))
		json.NewEncoder(w).Encode(existsResponse{Exists: true})
	})

	c := newTestServer(t, mux)
	ok, err := c.HasAccessToApplicationComponent(context.Background(), "alice", "orders", "view")
	require.NoError(t, err)
	assert.True(t, ok)
}
