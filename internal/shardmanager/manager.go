// Package shardmanager implements the Shard Client Manager: it owns the
// live Shard Configuration Set, the per-(element,operation) hash rings
// built from it, and the pool of shard clients those rings reference. The
// Coordinator borrows clients through this package but never owns them.
//
// Readers (GetClient, GetAllClients) snapshot an immutable view with a
// single atomic load and never see a partially-refreshed state; refreshes
// are serialized among themselves and apply as one atomic swap.
package shardmanager

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
	"github.com/dreamware/applicationaccess-coordinator/internal/hashring"
	"github.com/dreamware/applicationaccess-coordinator/internal/metrics"
)

// ClientHandle pairs a live shard client with the human-readable
// description attached to it, the unit the Coordinator actually routes
// requests to.
type ClientHandle struct {
	Client      domain.ShardClient
	Description domain.ShardDescription
}

type elementOp struct {
	element   domain.DataElement
	operation domain.Operation
}

// view is the immutable, copy-on-write snapshot readers observe. A new view
// is built entirely off to the side during a refresh and only then
// published via an atomic pointer swap.
type view struct {
	config *domain.ShardConfigurationSet
	rings  map[elementOp]*hashring.Ring
	all    map[elementOp][]ClientHandle
}

// pooledClient tracks a shard client shared by every assignment that
// references the same ShardClientConfig, closed only once no assignment in
// the live configuration references it any longer.
type pooledClient struct {
	client      domain.ShardClient
	description domain.ShardDescription
	refCount    int
}

// Manager is the Shard Client Manager described in the design: it owns the
// current ShardConfigurationSet, the hash rings built from it, and the
// reference-counted client pool.
type Manager struct {
	factory     ClientFactory
	userHasher  domain.HashCodeGenerator
	groupHasher domain.HashCodeGenerator
	recorder    metrics.Recorder

	refreshMu sync.Mutex // serializes refreshes among themselves
	current   atomic.Pointer[view]

	poolMu sync.Mutex // protects pool, mutated only during a refresh
	pool   map[string]*pooledClient
}

// Construct builds a Manager from initialSet. It fails with
// domain.ConfigInvalidError if the set is invalid, or wraps any factory
// failure in domain.ConfigurationRefreshFailureError.
func Construct(
	initialSet *domain.ShardConfigurationSet,
	factory ClientFactory,
	userHasher domain.HashCodeGenerator,
	groupHasher domain.HashCodeGenerator,
	recorder metrics.Recorder,
) (*Manager, error) {
	if err := initialSet.Validate(); err != nil {
		return nil, err
	}
	if recorder == nil {
		recorder = metrics.Noop{}
	}

	m := &Manager{
		factory:     factory,
		userHasher:  userHasher,
		groupHasher: groupHasher,
		recorder:    recorder,
		pool:        make(map[string]*pooledClient),
	}

	v, err := m.buildView(initialSet)
	if err != nil {
		return nil, &domain.ConfigurationRefreshFailureError{Cause: err}
	}
	m.current.Store(v)
	return m, nil
}

// buildView materializes a full view (pool entries, rings, dedup sets) for
// target, mutating m.pool in place. Callers that need transactional
// rollback on failure must call this against a scratch pool copy instead;
// Construct calls it directly because there is no prior state to preserve.
func (m *Manager) buildView(target *domain.ShardConfigurationSet) (*view, error) {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()

	items := target.Items()
	for _, a := range items {
		key := a.Config.String()
		if pc, ok := m.pool[key]; ok {
			pc.refCount++
			continue
		}
		client, err := m.factory(a.Config)
		if err != nil {
			return nil, fmt.Errorf("failed to build client for shard with configuration '%s': %w", a.Description, err)
		}
		m.pool[key] = &pooledClient{client: client, description: a.Description, refCount: 1}
	}

	rings := make(map[elementOp]*hashring.Ring)
	all := make(map[elementOp][]ClientHandle)
	seen := make(map[elementOp]map[string]bool)

	for _, a := range items {
		eo := elementOp{a.Element, a.Operation}
		pc := m.pool[a.Config.String()]
		handle := ClientHandle{Client: pc.client, Description: pc.description}

		ring, ok := rings[eo]
		if !ok {
			ring = hashring.New()
			rings[eo] = ring
			seen[eo] = make(map[string]bool)
		}
		if err := ring.Insert(a.HashRangeStart, handle); err != nil {
			return nil, err
		}
		if !seen[eo][a.Config.String()] {
			seen[eo][a.Config.String()] = true
			all[eo] = append(all[eo], handle)
		}
	}

	return &view{config: target, rings: rings, all: all}, nil
}

// GetClient hashes identifier with the hasher chosen by element (User and
// GroupToGroupMapping use the user hasher; Group uses the group hasher) and
// looks up the owning client in the ring for (element, operation).
func (m *Manager) GetClient(element domain.DataElement, operation domain.Operation, identifier string) (ClientHandle, error) {
	var hash int32
	switch element {
	case domain.Group:
		hash = m.groupHasher(identifier)
	default: // User, GroupToGroupMapping
		hash = m.userHasher(identifier)
	}

	snapshot := m.current.Load()
	ring, ok := snapshot.rings[elementOp{element, operation}]
	if !ok {
		return ClientHandle{}, &domain.NoShardForElementOperationError{Element: element, Operation: operation}
	}
	value, ok := ring.Lookup(hash)
	if !ok {
		return ClientHandle{}, &domain.NoShardForElementOperationError{Element: element, Operation: operation}
	}
	return value.(ClientHandle), nil
}

// GetAllClients returns every distinct client mapped from the ring for
// (element, operation), with no duplicates.
func (m *Manager) GetAllClients(element domain.DataElement, operation domain.Operation) ([]ClientHandle, error) {
	snapshot := m.current.Load()
	handles, ok := snapshot.all[elementOp{element, operation}]
	if !ok {
		return nil, &domain.NoShardForElementOperationError{Element: element, Operation: operation}
	}
	out := make([]ClientHandle, len(handles))
	copy(out, handles)
	return out, nil
}

// CurrentConfiguration returns the ShardConfigurationSet currently in
// effect.
func (m *Manager) CurrentConfiguration() *domain.ShardConfigurationSet {
	return m.current.Load().config
}

// RefreshConfiguration swaps the live view for newSet. If newSet equals the
// current configuration, this is a no-op. Otherwise it diffs assignments,
// obtains-or-creates clients for newly-referenced configs, and decrements
// (closing at zero) clients no longer referenced by any assignment. The
// swap is transactional: on any factory failure the previous state remains
// intact and the error is wrapped in domain.ConfigurationRefreshFailureError.
func (m *Manager) RefreshConfiguration(newSet *domain.ShardConfigurationSet) error {
	if err := newSet.Validate(); err != nil {
		return err
	}

	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()

	old := m.current.Load()
	if old.config.Equals(newSet) {
		return nil
	}

	span := m.recorder.BeginSpan("ConfigurationRefresh")

	// Build the new view against a scratch copy of the pool so a factory
	// failure never mutates live state.
	scratch := make(map[string]*pooledClient, len(m.pool))
	for k, v := range m.pool {
		cp := *v
		scratch[k] = &cp
	}

	newView, newPool, err := m.buildViewAgainst(scratch, newSet)
	if err != nil {
		span.Cancel()
		return &domain.ConfigurationRefreshFailureError{Cause: err}
	}

	var toClose []domain.ShardClient
	for key, pc := range newPool {
		if pc.refCount <= 0 {
			toClose = append(toClose, pc.client)
			delete(newPool, key)
		}
	}

	m.poolMu.Lock()
	m.pool = newPool
	m.poolMu.Unlock()

	m.current.Store(newView)
	span.End()
	m.recorder.IncCounter("ConfigurationRefreshed")

	for _, c := range toClose {
		_ = c.Close()
	}
	return nil
}

// buildViewAgainst is the transactional counterpart of buildView: it
// operates on the supplied scratch pool (a copy) instead of m.pool, so a
// mid-way factory failure leaves m.pool untouched.
func (m *Manager) buildViewAgainst(scratch map[string]*pooledClient, target *domain.ShardConfigurationSet) (*view, map[string]*pooledClient, error) {
	items := target.Items()
	newAssignmentKeys := configKeysByAssignment(target)

	// Only increment/create for configs newly referenced by this
	// assignment set; configs already present keep their prior refcount
	// until the subtract-and-close step below.
	created := make(map[string]bool)
	for key := range newAssignmentKeys {
		if _, ok := scratch[key]; ok {
			continue
		}
		created[key] = true
	}

	for _, a := range items {
		key := a.Config.String()
		if !created[key] {
			continue
		}
		client, err := m.factory(a.Config)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to build client for shard with configuration '%s': %w", a.Description, err)
		}
		scratch[key] = &pooledClient{client: client, description: a.Description, refCount: 0}
		created[key] = false // built once even if referenced by many assignments
	}

	// refCount of every config reflects exactly how many assignments in
	// the new set reference it; a config with zero new references (i.e.
	// present only in the set being replaced) naturally falls to zero
	// here without any separate diff step.
	counts := make(map[string]int)
	for _, a := range items {
		counts[a.Config.String()]++
	}
	for key, pc := range scratch {
		pc.refCount = counts[key] // zero value if key absent from counts
	}

	rings := make(map[elementOp]*hashring.Ring)
	all := make(map[elementOp][]ClientHandle)
	seen := make(map[elementOp]map[string]bool)

	for _, a := range items {
		eo := elementOp{a.Element, a.Operation}
		pc := scratch[a.Config.String()]
		handle := ClientHandle{Client: pc.client, Description: pc.description}

		ring, ok := rings[eo]
		if !ok {
			ring = hashring.New()
			rings[eo] = ring
			seen[eo] = make(map[string]bool)
		}
		if err := ring.Insert(a.HashRangeStart, handle); err != nil {
			return nil, nil, err
		}
		if !seen[eo][a.Config.String()] {
			seen[eo][a.Config.String()] = true
			all[eo] = append(all[eo], handle)
		}
	}

	return &view{config: target, rings: rings, all: all}, scratch, nil
}

func configKeysByAssignment(set *domain.ShardConfigurationSet) map[string]bool {
	out := make(map[string]bool)
	for _, a := range set.Items() {
		out[a.Config.String()] = true
	}
	return out
}
