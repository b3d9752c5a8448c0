package domain

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
)

// DataElement identifies which partitioning dimension a shard assignment
// applies to. The coordinator routes every operation through exactly one
// (DataElement, Operation) pair.
type DataElement int

const (
	// User partitions data keyed by user identifier.
	User DataElement = iota
	// Group partitions data keyed by group identifier.
	Group
	// GroupToGroupMapping partitions group-to-group edges. These are routed
	// by the hash of the edge's from (child) group identifier, which the
	// Shard Client Manager computes with its user hasher.
	GroupToGroupMapping
)

// String renders the element the way it appears in shard descriptions and
// error messages.
func (e DataElement) String() string {
	switch e {
	case User:
		return "User"
	case Group:
		return "Group"
	case GroupToGroupMapping:
		return "GroupToGroupMapping"
	default:
		return fmt.Sprintf("DataElement(%d)", int(e))
	}
}

// Operation distinguishes read-only requests (Query) from mutations (Event).
type Operation int

const (
	// Query is a read-only operation.
	Query Operation = iota
	// Event is a mutating operation.
	Event
)

func (o Operation) String() string {
	switch o {
	case Query:
		return "Query"
	case Event:
		return "Event"
	default:
		return fmt.Sprintf("Operation(%d)", int(o))
	}
}

// HashRangeStart is the inclusive lower bound of the hash range a shard
// owns. Ranges partition the full int32 space; ownership of a hash h
// belongs to the shard whose start is the largest start <= h, wrapping to
// the shard with the largest start overall if no such start exists.
type HashRangeStart int32

// HashCodeGenerator hashes a principal identifier (a user or group name) to
// a 32-bit value used for hash-range routing. The default below mirrors the
// teacher repo's own choice of FNV-1a for key-to-shard hashing.
type HashCodeGenerator func(identifier string) int32

// FNVHashCodeGenerator is the default HashCodeGenerator. It is a direct,
// deliberate carry-over of the hashing scheme the teacher's shard and
// registry types use for key ownership, generalized from byte-keys to
// principal identifiers.
func FNVHashCodeGenerator(identifier string) int32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(identifier))
	return int32(h.Sum32())
}

// ShardClientConfig is an opaque, comparable value identifying a reachable
// shard endpoint. Concrete implementations (e.g. an HTTP address) must
// support value equality so the Shard Client Manager can detect unchanged
// assignments across a configuration refresh.
type ShardClientConfig interface {
	// Equal reports whether other identifies the same backing endpoint.
	Equal(other ShardClientConfig) bool
	// String renders the config for logs and persisted configuration.
	String() string
}

// HTTPShardClientConfig is the reference ShardClientConfig: a shard
// reachable over HTTP at Addr, a host:port without scheme (e.g.
// "shard-3:9090"); the shard client adds the "http://" prefix.
type HTTPShardClientConfig struct {
	Addr string
}

func (c HTTPShardClientConfig) Equal(other ShardClientConfig) bool {
	o, ok := other.(HTTPShardClientConfig)
	return ok && o.Addr == c.Addr
}

func (c HTTPShardClientConfig) String() string {
	return c.Addr
}

// ShardDescription is a human-readable label attached to a client for error
// messages, independent of the underlying config's String().
type ShardDescription string

// ShardAssignment ties one (DataElement, Operation, HashRangeStart) to the
// config of the shard that owns it. The triple (Element, Operation,
// HashRangeStart) is the uniqueness key within a ShardConfigurationSet.
type ShardAssignment struct {
	Element        DataElement
	Operation      Operation
	HashRangeStart HashRangeStart
	Config         ShardClientConfig
	Description    ShardDescription
}

// key returns the uniqueness key for this assignment.
func (a ShardAssignment) key() assignmentKey {
	return assignmentKey{a.Element, a.Operation, a.HashRangeStart}
}

type assignmentKey struct {
	element        DataElement
	operation      Operation
	hashRangeStart HashRangeStart
}

// ShardConfigurationSet is an immutable snapshot of shard assignments. A
// "refresh" is always performed by constructing a new set and handing it to
// the Shard Client Manager; there are no in-place mutation methods.
type ShardConfigurationSet struct {
	assignments []ShardAssignment
}

// NewShardConfigurationSet builds a validated ShardConfigurationSet from the
// given assignments. It fails with ConfigInvalid if any (element, operation,
// hashRangeStart) triple is duplicated.
func NewShardConfigurationSet(assignments ...ShardAssignment) (*ShardConfigurationSet, error) {
	set := &ShardConfigurationSet{assignments: append([]ShardAssignment(nil), assignments...)}
	if err := set.Validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Validate ensures uniqueness of (element, operation, hashRangeStart).
func (s *ShardConfigurationSet) Validate() error {
	seen := make(map[assignmentKey]struct{}, len(s.assignments))
	for _, a := range s.assignments {
		k := a.key()
		if _, dup := seen[k]; dup {
			return &ConfigInvalidError{
				Reason: fmt.Sprintf("duplicate shard assignment for element %s, operation %s, hashRangeStart %d",
					a.Element, a.Operation, a.HashRangeStart),
			}
		}
		seen[k] = struct{}{}
	}
	return nil
}

// Items returns every assignment in the set, in a stable order (grouped by
// element, then operation, then hash range start) so callers can diff two
// sets deterministically.
func (s *ShardConfigurationSet) Items() []ShardAssignment {
	out := append([]ShardAssignment(nil), s.assignments...)
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

// ForElementOperation returns only the assignments for one (element,
// operation) pair, in ascending HashRangeStart order.
func (s *ShardConfigurationSet) ForElementOperation(element DataElement, operation Operation) []ShardAssignment {
	var out []ShardAssignment
	for _, a := range s.assignments {
		if a.Element == element && a.Operation == operation {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].HashRangeStart < out[j].HashRangeStart })
	return out
}

// Equals reports whether two sets are structurally equal: same assignments,
// regardless of order, with configs compared via ShardClientConfig.Equal.
func (s *ShardConfigurationSet) Equals(other *ShardConfigurationSet) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.assignments) != len(other.assignments) {
		return false
	}
	index := make(map[assignmentKey]ShardAssignment, len(s.assignments))
	for _, a := range s.assignments {
		index[a.key()] = a
	}
	for _, b := range other.assignments {
		a, ok := index[b.key()]
		if !ok || !a.Config.Equal(b.Config) {
			return false
		}
	}
	return true
}

// ComponentAccess pairs an application component with the access level a
// user or group holds on it.
type ComponentAccess struct {
	ApplicationComponent string
	AccessLevel           string
}

// EntityAccess pairs an entity type with a specific entity a user or group
// has access to.
type EntityAccess struct {
	EntityType string
	Entity     string
}

// ShardClient is the per-shard operation surface the Coordinator consumes.
// Its semantics are equivalent to a single-shard access-manager graph
// scoped to the hash range of the shard it was built from. Every method
// accepts the inbound request's context so that a cancellation or timeout
// propagates to the outbound call.
type ShardClient interface {
	AddUser(ctx context.Context, user string) error
	RemoveUser(ctx context.Context, user string) error
	ContainsUser(ctx context.Context, user string) (bool, error)
	GetUsers(ctx context.Context) ([]string, error)

	AddGroup(ctx context.Context, group string) error
	RemoveGroup(ctx context.Context, group string) error
	ContainsGroup(ctx context.Context, group string) (bool, error)
	GetGroups(ctx context.Context) ([]string, error)

	AddUserToGroupMapping(ctx context.Context, user, group string) error
	RemoveUserToGroupMapping(ctx context.Context, user, group string) error
	GetUserToGroupMappings(ctx context.Context, user string) ([]string, error)

	AddGroupToGroupMapping(ctx context.Context, fromGroup, toGroup string) error
	RemoveGroupToGroupMapping(ctx context.Context, fromGroup, toGroup string) error
	GetGroupToGroupMappings(ctx context.Context, group string) ([]string, error)

	AddUserToApplicationComponentAndAccessLevelMapping(ctx context.Context, user, component, accessLevel string) error
	RemoveUserToApplicationComponentAndAccessLevelMapping(ctx context.Context, user, component, accessLevel string) error
	AddGroupToApplicationComponentAndAccessLevelMapping(ctx context.Context, group, component, accessLevel string) error
	RemoveGroupToApplicationComponentAndAccessLevelMapping(ctx context.Context, group, component, accessLevel string) error
	GetApplicationComponentsAccessibleByUser(ctx context.Context, user string) ([]ComponentAccess, error)
	GetApplicationComponentsAccessibleByGroup(ctx context.Context, group string) ([]ComponentAccess, error)
	HasAccessToApplicationComponent(ctx context.Context, user, component, accessLevel string) (bool, error)

	AddEntityType(ctx context.Context, entityType string) error
	RemoveEntityType(ctx context.Context, entityType string) error
	GetEntityTypes(ctx context.Context) ([]string, error)
	AddEntity(ctx context.Context, entityType, entity string) error
	RemoveEntity(ctx context.Context, entityType, entity string) error

	AddUserToEntityMapping(ctx context.Context, user, entityType, entity string) error
	RemoveUserToEntityMapping(ctx context.Context, user, entityType, entity string) error
	AddGroupToEntityMapping(ctx context.Context, group, entityType, entity string) error
	RemoveGroupToEntityMapping(ctx context.Context, group, entityType, entity string) error
	GetEntitiesAccessibleByUser(ctx context.Context, user string) ([]EntityAccess, error)
	GetEntitiesAccessibleByGroup(ctx context.Context, group string) ([]EntityAccess, error)
	HasAccessToEntity(ctx context.Context, user, entityType, entity string) (bool, error)

	// Close releases any resources (connections) held by the client. Called
	// by the Shard Client Manager once a client's refcount drops to zero.
	Close() error
}
