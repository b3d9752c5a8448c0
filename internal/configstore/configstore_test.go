package configstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

func TestWriteThenRead_RoundTripsStructurallyEqualSet(t *testing.T) {
	set, err := domain.NewShardConfigurationSet(
		domain.ShardAssignment{
			Element:        domain.User,
			Operation:      domain.Query,
			HashRangeStart: 0,
			Config:         domain.HTTPShardClientConfig{Addr: "shard1:8080"},
			Description:    "shard1",
		},
		domain.ShardAssignment{
			Element:        domain.Group,
			Operation:      domain.Event,
			HashRangeStart: 1000,
			Config:         domain.HTTPShardClientConfig{Addr: "shard2:8080"},
			Description:    "shard2",
		},
	)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "shards.json")
	p := New(path)
	require.NoError(t, p.Write(set))

	got, err := p.Read()
	require.NoError(t, err)
	assert.True(t, set.Equals(got))
}

func TestRead_MissingFileReturnsError(t *testing.T) {
	p := New(filepath.Join(t.TempDir(), "missing.json"))
	_, err := p.Read()
	require.Error(t, err)
}
