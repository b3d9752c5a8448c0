// Package accessmanager provides an in-memory domain.ShardClient, the
// reference implementation of a single shard's access-manager graph. It
// exists so the coordination layer is exercisable end-to-end without a real
// shard process, mirroring the way the teacher repo ships an in-memory
// storage.Store alongside its coordinator rather than only interfaces.
//
// Every identifier (user, group, entity type, entity) is stored as a plain
// string key in a set; component and entity access grants are stored as
// sets of domain.ComponentAccess / domain.EntityAccess. A single RWMutex
// guards the whole graph, matching the teacher's shard.Shard: reads take
// the read lock, writes take the write lock, no per-field locking.
package accessmanager

import (
	"context"
	"sort"
	"sync"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

// MemoryShardClient is a domain.ShardClient backed entirely by in-process
// maps. It does not enforce hash-range ownership itself: the Shard Client
// Manager's routing guarantees that only identifiers within this shard's
// range are ever sent here.
type MemoryShardClient struct {
	description string

	mu                   sync.RWMutex
	users                map[string]bool
	groups               map[string]bool
	userToGroups         map[string]map[string]bool
	groupToGroups        map[string]map[string]bool // fromGroup -> parent groups
	userComponentAccess  map[string]map[domain.ComponentAccess]bool
	groupComponentAccess map[string]map[domain.ComponentAccess]bool
	entityTypes          map[string]bool
	entities             map[string]map[string]bool // entityType -> entities
	userEntityAccess     map[string]map[domain.EntityAccess]bool
	groupEntityAccess    map[string]map[domain.EntityAccess]bool
}

// New returns an empty MemoryShardClient labeled with description, the
// value that will appear in error messages the Coordinator constructs
// around calls to it.
func New(description string) *MemoryShardClient {
	return &MemoryShardClient{
		description:          description,
		users:                make(map[string]bool),
		groups:               make(map[string]bool),
		userToGroups:         make(map[string]map[string]bool),
		groupToGroups:        make(map[string]map[string]bool),
		userComponentAccess:  make(map[string]map[domain.ComponentAccess]bool),
		groupComponentAccess: make(map[string]map[domain.ComponentAccess]bool),
		entityTypes:          make(map[string]bool),
		entities:             make(map[string]map[string]bool),
		userEntityAccess:     make(map[string]map[domain.EntityAccess]bool),
		groupEntityAccess:    make(map[string]map[domain.EntityAccess]bool),
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// ---- Users ----

func (c *MemoryShardClient) AddUser(_ context.Context, user string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users[user] = true
	return nil
}

// RemoveUser is idempotent: removing an absent user is not an error, same
// as the teacher's MemoryStore.Delete.
func (c *MemoryShardClient) RemoveUser(_ context.Context, user string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.users, user)
	delete(c.userToGroups, user)
	delete(c.userComponentAccess, user)
	delete(c.userEntityAccess, user)
	return nil
}

func (c *MemoryShardClient) ContainsUser(_ context.Context, user string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.users[user], nil
}

func (c *MemoryShardClient) GetUsers(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.users), nil
}

// ---- Groups ----

func (c *MemoryShardClient) AddGroup(_ context.Context, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groups[group] = true
	return nil
}

func (c *MemoryShardClient) RemoveGroup(_ context.Context, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groups, group)
	delete(c.groupToGroups, group)
	delete(c.groupComponentAccess, group)
	delete(c.groupEntityAccess, group)
	return nil
}

func (c *MemoryShardClient) ContainsGroup(_ context.Context, group string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.groups[group], nil
}

func (c *MemoryShardClient) GetGroups(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.groups), nil
}

// ---- User <-> group mappings ----

func (c *MemoryShardClient) AddUserToGroupMapping(_ context.Context, user, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userToGroups[user] == nil {
		c.userToGroups[user] = make(map[string]bool)
	}
	c.userToGroups[user][group] = true
	return nil
}

func (c *MemoryShardClient) RemoveUserToGroupMapping(_ context.Context, user, group string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.userToGroups[user], group)
	return nil
}

func (c *MemoryShardClient) GetUserToGroupMappings(_ context.Context, user string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.userToGroups[user]), nil
}

// ---- Group <-> group mappings ----

func (c *MemoryShardClient) AddGroupToGroupMapping(_ context.Context, fromGroup, toGroup string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.groupToGroups[fromGroup] == nil {
		c.groupToGroups[fromGroup] = make(map[string]bool)
	}
	c.groupToGroups[fromGroup][toGroup] = true
	return nil
}

func (c *MemoryShardClient) RemoveGroupToGroupMapping(_ context.Context, fromGroup, toGroup string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groupToGroups[fromGroup], toGroup)
	return nil
}

func (c *MemoryShardClient) GetGroupToGroupMappings(_ context.Context, group string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.groupToGroups[group]), nil
}

// ---- Application component / access level mappings ----

func (c *MemoryShardClient) AddUserToApplicationComponentAndAccessLevelMapping(_ context.Context, user, component, accessLevel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userComponentAccess[user] == nil {
		c.userComponentAccess[user] = make(map[domain.ComponentAccess]bool)
	}
	c.userComponentAccess[user][domain.ComponentAccess{ApplicationComponent: component, AccessLevel: accessLevel}] = true
	return nil
}

func (c *MemoryShardClient) RemoveUserToApplicationComponentAndAccessLevelMapping(_ context.Context, user, component, accessLevel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.userComponentAccess[user], domain.ComponentAccess{ApplicationComponent: component, AccessLevel: accessLevel})
	return nil
}

func (c *MemoryShardClient) AddGroupToApplicationComponentAndAccessLevelMapping(_ context.Context, group, component, accessLevel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.groupComponentAccess[group] == nil {
		c.groupComponentAccess[group] = make(map[domain.ComponentAccess]bool)
	}
	c.groupComponentAccess[group][domain.ComponentAccess{ApplicationComponent: component, AccessLevel: accessLevel}] = true
	return nil
}

func (c *MemoryShardClient) RemoveGroupToApplicationComponentAndAccessLevelMapping(_ context.Context, group, component, accessLevel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groupComponentAccess[group], domain.ComponentAccess{ApplicationComponent: component, AccessLevel: accessLevel})
	return nil
}

func (c *MemoryShardClient) GetApplicationComponentsAccessibleByUser(_ context.Context, user string) ([]domain.ComponentAccess, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ComponentAccess, 0, len(c.userComponentAccess[user]))
	for a := range c.userComponentAccess[user] {
		out = append(out, a)
	}
	return out, nil
}

func (c *MemoryShardClient) GetApplicationComponentsAccessibleByGroup(_ context.Context, group string) ([]domain.ComponentAccess, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.ComponentAccess, 0, len(c.groupComponentAccess[group]))
	for a := range c.groupComponentAccess[group] {
		out = append(out, a)
	}
	return out, nil
}

// HasAccessToApplicationComponent checks direct grants only, keyed by
// principal (user or group identifier are both valid here); the
// Coordinator is responsible for expanding group membership before calling
// this per-shard primitive.
func (c *MemoryShardClient) HasAccessToApplicationComponent(_ context.Context, principal, component, accessLevel string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := domain.ComponentAccess{ApplicationComponent: component, AccessLevel: accessLevel}
	if c.userComponentAccess[principal][key] {
		return true, nil
	}
	return c.groupComponentAccess[principal][key], nil
}

// ---- Entity types and entities ----

func (c *MemoryShardClient) AddEntityType(_ context.Context, entityType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entityTypes[entityType] = true
	return nil
}

func (c *MemoryShardClient) RemoveEntityType(_ context.Context, entityType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entityTypes, entityType)
	delete(c.entities, entityType)
	return nil
}

func (c *MemoryShardClient) GetEntityTypes(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.entityTypes), nil
}

func (c *MemoryShardClient) AddEntity(_ context.Context, entityType, entity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entities[entityType] == nil {
		c.entities[entityType] = make(map[string]bool)
	}
	c.entities[entityType][entity] = true
	return nil
}

func (c *MemoryShardClient) RemoveEntity(_ context.Context, entityType, entity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entities[entityType], entity)
	return nil
}

// ---- User/group <-> entity mappings ----

func (c *MemoryShardClient) AddUserToEntityMapping(_ context.Context, user, entityType, entity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.userEntityAccess[user] == nil {
		c.userEntityAccess[user] = make(map[domain.EntityAccess]bool)
	}
	c.userEntityAccess[user][domain.EntityAccess{EntityType: entityType, Entity: entity}] = true
	return nil
}

func (c *MemoryShardClient) RemoveUserToEntityMapping(_ context.Context, user, entityType, entity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.userEntityAccess[user], domain.EntityAccess{EntityType: entityType, Entity: entity})
	return nil
}

func (c *MemoryShardClient) AddGroupToEntityMapping(_ context.Context, group, entityType, entity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.groupEntityAccess[group] == nil {
		c.groupEntityAccess[group] = make(map[domain.EntityAccess]bool)
	}
	c.groupEntityAccess[group][domain.EntityAccess{EntityType: entityType, Entity: entity}] = true
	return nil
}

func (c *MemoryShardClient) RemoveGroupToEntityMapping(_ context.Context, group, entityType, entity string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groupEntityAccess[group], domain.EntityAccess{EntityType: entityType, Entity: entity})
	return nil
}

func (c *MemoryShardClient) GetEntitiesAccessibleByUser(_ context.Context, user string) ([]domain.EntityAccess, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.EntityAccess, 0, len(c.userEntityAccess[user]))
	for a := range c.userEntityAccess[user] {
		out = append(out, a)
	}
	return out, nil
}

func (c *MemoryShardClient) GetEntitiesAccessibleByGroup(_ context.Context, group string) ([]domain.EntityAccess, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]domain.EntityAccess, 0, len(c.groupEntityAccess[group]))
	for a := range c.groupEntityAccess[group] {
		out = append(out, a)
	}
	return out, nil
}

// HasAccessToEntity is the entity-access counterpart of
// HasAccessToApplicationComponent: direct grants only, keyed generically by
// principal.
func (c *MemoryShardClient) HasAccessToEntity(_ context.Context, principal, entityType, entity string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := domain.EntityAccess{EntityType: entityType, Entity: entity}
	if c.userEntityAccess[principal][key] {
		return true, nil
	}
	return c.groupEntityAccess[principal][key], nil
}

// Close is a no-op: MemoryShardClient holds no external resources.
func (c *MemoryShardClient) Close() error { return nil }
