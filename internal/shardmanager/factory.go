package shardmanager

import "github.com/dreamware/applicationaccess-coordinator/internal/domain"

// ClientFactory builds a domain.ShardClient handle from a
// domain.ShardClientConfig. It is a pure function from the manager's point
// of view: the manager pools and reuses whatever handle the factory
// returns, calling it at most once per distinct config.
type ClientFactory func(config domain.ShardClientConfig) (domain.ShardClient, error)
