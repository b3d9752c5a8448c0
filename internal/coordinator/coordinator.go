package coordinator

import (
	"context"
	"errors"
	"fmt"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
	"github.com/dreamware/applicationaccess-coordinator/internal/metrics"
	"github.com/dreamware/applicationaccess-coordinator/internal/shardmanager"
)

// Coordinator dispatches each public operation to the shard(s) that own it,
// via the Shard Client Manager, and merges or translates the result. It
// holds no state of its own beyond its collaborators.
type Coordinator struct {
	manager  *shardmanager.Manager
	recorder metrics.Recorder
}

// New builds a Coordinator over manager. recorder may be nil, in which case
// metrics are discarded.
func New(manager *shardmanager.Manager, recorder metrics.Recorder) *Coordinator {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Coordinator{manager: manager, recorder: recorder}
}

// span wraps fn in a BeginSpan/End/Cancel pair and, on success, increments a
// same-named counter, matching the Coordinator's BeginOp/EndOp/CancelBeginOp
// metrics contract.
func span[T any](c *Coordinator, name string, fn func() (T, error)) (T, error) {
	s := c.recorder.BeginSpan(name)
	v, err := fn()
	if err != nil {
		s.Cancel()
		var zero T
		return zero, err
	}
	s.End()
	c.recorder.IncCounter(name)
	return v, nil
}

func spanErr(c *Coordinator, name string, fn func() error) error {
	_, err := span(c, name, func() (struct{}, error) { return struct{}{}, fn() })
	return err
}

// RefreshShardConfiguration delegates to the Shard Client Manager, wrapping
// any failure with the Coordinator's own context. The manager already
// reports client-construction failures as
// domain.ConfigurationRefreshFailureError; any other failure (such as the
// domain.ConfigInvalidError of an invalid set) is wrapped in one here.
func (c *Coordinator) RefreshShardConfiguration(newSet *domain.ShardConfigurationSet) error {
	return spanErr(c, "RefreshShardConfiguration", func() error {
		err := c.manager.RefreshConfiguration(newSet)
		var refreshErr *domain.ConfigurationRefreshFailureError
		if err != nil && !errors.As(err, &refreshErr) {
			return &domain.ConfigurationRefreshFailureError{Cause: err}
		}
		return err
	})
}

// ---- User ----

// AddUser is Event, point-routed to the User shard owning u.
func (c *Coordinator) AddUser(ctx context.Context, u string) error {
	return spanErr(c, "AddUser", func() error {
		h, err := c.manager.GetClient(domain.User, domain.Event, u)
		if err != nil {
			return err
		}
		if err := h.Client.AddUser(ctx, u); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to add user '%s' to", u), h.Description, err)
		}
		return nil
	})
}

// RemoveUser is Event, fan-out-all across every User/Event shard (see
// DESIGN.md for why this repo does not point-route removeUser).
func (c *Coordinator) RemoveUser(ctx context.Context, u string) error {
	return spanErr(c, "RemoveUser", func() error {
		handles, err := c.manager.GetAllClients(domain.User, domain.Event)
		if err != nil {
			return err
		}
		return fanOutAll(ctx, handles, func(ctx context.Context, sc domain.ShardClient) error {
			return sc.RemoveUser(ctx, u)
		})
	})
}

// ContainsUser is Query, fan-out-any across every User/Query shard; the
// result is the OR of all responses.
func (c *Coordinator) ContainsUser(ctx context.Context, u string) (bool, error) {
	return span(c, "ContainsUser", func() (bool, error) {
		handles, err := c.manager.GetAllClients(domain.User, domain.Query)
		if err != nil {
			return false, err
		}
		return fanOutAnyBool(ctx, handles, "Failed to determine whether user exists using", func(ctx context.Context, sc domain.ShardClient) (bool, error) {
			return sc.ContainsUser(ctx, u)
		})
	})
}

// GetUsers is Query, fan-out over every User/Query shard, union-deduped.
func (c *Coordinator) GetUsers(ctx context.Context) ([]string, error) {
	return span(c, "GetUsers", func() ([]string, error) {
		handles, err := c.manager.GetAllClients(domain.User, domain.Query)
		if err != nil {
			return nil, err
		}
		return fanOutUnionStrings(ctx, handles, "Failed to retrieve users from", func(ctx context.Context, sc domain.ShardClient) ([]string, error) {
			return sc.GetUsers(ctx)
		})
	})
}

// ---- Group ----

// AddGroup is Event, dual-target: the Group shard owning g AND every
// GroupToGroupMapping/Event shard must both succeed.
func (c *Coordinator) AddGroup(ctx context.Context, g string) error {
	return spanErr(c, "AddGroup", func() error {
		return c.dualTargetGroupMutation(ctx, g,
			func(ctx context.Context, sc domain.ShardClient) error { return sc.AddGroup(ctx, g) },
			func(ctx context.Context, sc domain.ShardClient) error { return sc.AddGroupToGroupMapping(ctx, g, g) },
			fmt.Sprintf("Failed to add group '%s' to", g),
		)
	})
}

// RemoveGroup is the symmetric counterpart of AddGroup: same dual-target
// recipe.
func (c *Coordinator) RemoveGroup(ctx context.Context, g string) error {
	return spanErr(c, "RemoveGroup", func() error {
		gh, err := c.manager.GetClient(domain.Group, domain.Event, g)
		if err != nil {
			return err
		}
		ggHandles, err := c.manager.GetAllClients(domain.GroupToGroupMapping, domain.Event)
		if err != nil {
			return err
		}
		prefix := fmt.Sprintf("Failed to remove group '%s' from", g)
		if err := gh.Client.RemoveGroup(ctx, g); err != nil {
			return domain.NewShardCallFailure(prefix, gh.Description, err)
		}
		return fanOutAll(ctx, ggHandles, func(ctx context.Context, sc domain.ShardClient) error {
			return sc.RemoveGroupToGroupMapping(ctx, g, g)
		})
	})
}

// dualTargetGroupMutation point-routes groupFn to the Group/Event shard
// owning g and fans groupToGroupFn out across every GroupToGroupMapping/Event
// shard; both must succeed.
func (c *Coordinator) dualTargetGroupMutation(
	ctx context.Context,
	g string,
	groupFn func(context.Context, domain.ShardClient) error,
	groupToGroupFn func(context.Context, domain.ShardClient) error,
	prefix string,
) error {
	gh, err := c.manager.GetClient(domain.Group, domain.Event, g)
	if err != nil {
		return err
	}
	if err := groupFn(ctx, gh.Client); err != nil {
		return domain.NewShardCallFailure(prefix, gh.Description, err)
	}
	ggHandles, err := c.manager.GetAllClients(domain.GroupToGroupMapping, domain.Event)
	if err != nil {
		return err
	}
	return fanOutAll(ctx, ggHandles, groupToGroupFn)
}

// ContainsGroup is Query, fan-out-any over the union of User/Query,
// Group/Query, and GroupToGroupMapping/Query shards.
func (c *Coordinator) ContainsGroup(ctx context.Context, g string) (bool, error) {
	return span(c, "ContainsGroup", func() (bool, error) {
		handles, err := c.unionHandles(domain.Query, domain.User, domain.Group, domain.GroupToGroupMapping)
		if err != nil {
			return false, err
		}
		return fanOutAnyBool(ctx, handles, "Failed to determine whether group exists using", func(ctx context.Context, sc domain.ShardClient) (bool, error) {
			return sc.ContainsGroup(ctx, g)
		})
	})
}

// GetGroups is Query, fan-out over User/Query ∪ Group/Query ∪
// GroupToGroupMapping/Query, union-deduped.
func (c *Coordinator) GetGroups(ctx context.Context) ([]string, error) {
	return span(c, "GetGroups", func() ([]string, error) {
		handles, err := c.unionHandles(domain.Query, domain.User, domain.Group, domain.GroupToGroupMapping)
		if err != nil {
			return nil, err
		}
		return fanOutUnionStrings(ctx, handles, "Failed to retrieve groups from", func(ctx context.Context, sc domain.ShardClient) ([]string, error) {
			return sc.GetGroups(ctx)
		})
	})
}

// unionHandles collects GetAllClients(element, operation) for every element
// given, merging and de-duplicating by shard description.
func (c *Coordinator) unionHandles(operation domain.Operation, elements ...domain.DataElement) ([]shardmanager.ClientHandle, error) {
	groups := make([][]shardmanager.ClientHandle, 0, len(elements))
	for _, e := range elements {
		h, err := c.manager.GetAllClients(e, operation)
		if err != nil {
			return nil, err
		}
		groups = append(groups, h)
	}
	return mergeHandles(groups...), nil
}

// ---- User <-> Group mappings ----

// AddUserToGroupMapping is Event, point-routed to the User/Event shard
// owning user.
func (c *Coordinator) AddUserToGroupMapping(ctx context.Context, user, group string) error {
	return spanErr(c, "AddUserToGroupMapping", func() error {
		h, err := c.manager.GetClient(domain.User, domain.Event, user)
		if err != nil {
			return err
		}
		if err := h.Client.AddUserToGroupMapping(ctx, user, group); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to add a mapping between user '%s' and group '%s' to", user, group), h.Description, err)
		}
		return nil
	})
}

// RemoveUserToGroupMapping is the symmetric counterpart of
// AddUserToGroupMapping.
func (c *Coordinator) RemoveUserToGroupMapping(ctx context.Context, user, group string) error {
	return spanErr(c, "RemoveUserToGroupMapping", func() error {
		h, err := c.manager.GetClient(domain.User, domain.Event, user)
		if err != nil {
			return err
		}
		if err := h.Client.RemoveUserToGroupMapping(ctx, user, group); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to remove the mapping between user '%s' and group '%s' from", user, group), h.Description, err)
		}
		return nil
	})
}

// GetUserToGroupMappings is Query. When indirect is false it is point-routed
// to the User/Query shard owning user. When indirect is true, the direct
// mappings are first retrieved the same way and then expanded by fanning
// out to every GroupToGroupMapping/Query shard to compute the closure.
func (c *Coordinator) GetUserToGroupMappings(ctx context.Context, user string, indirect bool) ([]string, error) {
	return span(c, "GetUserToGroupMappings", func() ([]string, error) {
		h, err := c.manager.GetClient(domain.User, domain.Query, user)
		if err != nil {
			return nil, err
		}
		direct, err := h.Client.GetUserToGroupMappings(ctx, user)
		if err != nil {
			return nil, domain.NewShardCallFailure(fmt.Sprintf("Failed to retrieve group mappings for user '%s' from", user), h.Description, err)
		}
		if !indirect {
			return direct, nil
		}
		return c.expandGroupClosure(ctx, direct)
	})
}

// AddGroupToGroupMapping is Event, point-routed by fromGroup (the child
// group; the Shard Client Manager hashes GroupToGroupMapping identifiers
// with its user hasher).
func (c *Coordinator) AddGroupToGroupMapping(ctx context.Context, fromGroup, toGroup string) error {
	return spanErr(c, "AddGroupToGroupMapping", func() error {
		h, err := c.manager.GetClient(domain.GroupToGroupMapping, domain.Event, fromGroup)
		if err != nil {
			return err
		}
		if err := h.Client.AddGroupToGroupMapping(ctx, fromGroup, toGroup); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to add a mapping between group '%s' and group '%s' to", fromGroup, toGroup), h.Description, err)
		}
		return nil
	})
}

// RemoveGroupToGroupMapping is the symmetric counterpart of
// AddGroupToGroupMapping.
func (c *Coordinator) RemoveGroupToGroupMapping(ctx context.Context, fromGroup, toGroup string) error {
	return spanErr(c, "RemoveGroupToGroupMapping", func() error {
		h, err := c.manager.GetClient(domain.GroupToGroupMapping, domain.Event, fromGroup)
		if err != nil {
			return err
		}
		if err := h.Client.RemoveGroupToGroupMapping(ctx, fromGroup, toGroup); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to remove the mapping between group '%s' and group '%s' from", fromGroup, toGroup), h.Description, err)
		}
		return nil
	})
}

// expandGroupClosure performs a breadth-first expansion of seed groups
// through GroupToGroupMapping/Query, point-routed per group the same way
// as AddGroupToGroupMapping (the manager's user hasher), returning every group reachable from
// the seeds (including the seeds themselves).
func (c *Coordinator) expandGroupClosure(ctx context.Context, seed []string) ([]string, error) {
	visited := make(map[string]bool, len(seed))
	queue := append([]string(nil), seed...)
	var order []string

	for len(queue) > 0 {
		g := queue[0]
		queue = queue[1:]
		if visited[g] {
			continue
		}
		visited[g] = true
		order = append(order, g)

		h, err := c.manager.GetClient(domain.GroupToGroupMapping, domain.Query, g)
		if err != nil {
			return nil, err
		}
		parents, err := h.Client.GetGroupToGroupMappings(ctx, g)
		if err != nil {
			return nil, domain.NewShardCallFailure(fmt.Sprintf("Failed to retrieve group mappings for group '%s' from", g), h.Description, err)
		}
		for _, p := range parents {
			if !visited[p] {
				queue = append(queue, p)
			}
		}
	}
	return order, nil
}

// ---- Application component / access level ----

// AddUserToApplicationComponentAndAccessLevelMapping is Event, point-routed
// to the User/Event shard owning user.
func (c *Coordinator) AddUserToApplicationComponentAndAccessLevelMapping(ctx context.Context, user, component, accessLevel string) error {
	return spanErr(c, "AddUserToApplicationComponentAndAccessLevelMapping", func() error {
		h, err := c.manager.GetClient(domain.User, domain.Event, user)
		if err != nil {
			return err
		}
		if err := h.Client.AddUserToApplicationComponentAndAccessLevelMapping(ctx, user, component, accessLevel); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to add a mapping between user '%s' and component '%s' at access level '%s' to", user, component, accessLevel), h.Description, err)
		}
		return nil
	})
}

// RemoveUserToApplicationComponentAndAccessLevelMapping is the symmetric
// counterpart.
func (c *Coordinator) RemoveUserToApplicationComponentAndAccessLevelMapping(ctx context.Context, user, component, accessLevel string) error {
	return spanErr(c, "RemoveUserToApplicationComponentAndAccessLevelMapping", func() error {
		h, err := c.manager.GetClient(domain.User, domain.Event, user)
		if err != nil {
			return err
		}
		if err := h.Client.RemoveUserToApplicationComponentAndAccessLevelMapping(ctx, user, component, accessLevel); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to remove the mapping between user '%s' and component '%s' at access level '%s' from", user, component, accessLevel), h.Description, err)
		}
		return nil
	})
}

// AddGroupToApplicationComponentAndAccessLevelMapping is Event, point-routed
// to the Group/Event shard owning group.
func (c *Coordinator) AddGroupToApplicationComponentAndAccessLevelMapping(ctx context.Context, group, component, accessLevel string) error {
	return spanErr(c, "AddGroupToApplicationComponentAndAccessLevelMapping", func() error {
		h, err := c.manager.GetClient(domain.Group, domain.Event, group)
		if err != nil {
			return err
		}
		if err := h.Client.AddGroupToApplicationComponentAndAccessLevelMapping(ctx, group, component, accessLevel); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to add a mapping between group '%s' and component '%s' at access level '%s' to", group, component, accessLevel), h.Description, err)
		}
		return nil
	})
}

// RemoveGroupToApplicationComponentAndAccessLevelMapping is the symmetric
// counterpart.
func (c *Coordinator) RemoveGroupToApplicationComponentAndAccessLevelMapping(ctx context.Context, group, component, accessLevel string) error {
	return spanErr(c, "RemoveGroupToApplicationComponentAndAccessLevelMapping", func() error {
		h, err := c.manager.GetClient(domain.Group, domain.Event, group)
		if err != nil {
			return err
		}
		if err := h.Client.RemoveGroupToApplicationComponentAndAccessLevelMapping(ctx, group, component, accessLevel); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to remove the mapping between group '%s' and component '%s' at access level '%s' from", group, component, accessLevel), h.Description, err)
		}
		return nil
	})
}

// GetApplicationComponentsAccessibleByUser is a composite: resolve user's
// group closure, then union the user's own direct mappings with the fan-out
// of every Group/Query shard filtered to the resolved groups, deduped.
func (c *Coordinator) GetApplicationComponentsAccessibleByUser(ctx context.Context, user string) ([]domain.ComponentAccess, error) {
	return span(c, "GetApplicationComponentsAccessibleByUser", func() ([]domain.ComponentAccess, error) {
		h, err := c.manager.GetClient(domain.User, domain.Query, user)
		if err != nil {
			return nil, err
		}
		direct, err := h.Client.GetApplicationComponentsAccessibleByUser(ctx, user)
		if err != nil {
			return nil, domain.NewShardCallFailure(fmt.Sprintf("Failed to retrieve application components accessible by user '%s' from", user), h.Description, err)
		}

		groups, err := c.GetUserToGroupMappings(ctx, user, true)
		if err != nil {
			return nil, err
		}
		viaGroups, err := c.componentsAccessibleByGroups(ctx, groups)
		if err != nil {
			return nil, err
		}
		return dedupComponentAccess(direct, viaGroups), nil
	})
}

// GetApplicationComponentsAccessibleByGroup is a composite: the group's own
// direct mappings unioned with the expansion of its GroupToGroupMapping
// closure, deduped.
func (c *Coordinator) GetApplicationComponentsAccessibleByGroup(ctx context.Context, group string) ([]domain.ComponentAccess, error) {
	return span(c, "GetApplicationComponentsAccessibleByGroup", func() ([]domain.ComponentAccess, error) {
		closure, err := c.expandGroupClosure(ctx, []string{group})
		if err != nil {
			return nil, err
		}
		return c.componentsAccessibleByGroups(ctx, closure)
	})
}

func (c *Coordinator) componentsAccessibleByGroups(ctx context.Context, groups []string) ([]domain.ComponentAccess, error) {
	return fanOutPerGroupUnion(ctx, c.manager, groups, "Failed to retrieve application components accessible by group from", func(ctx context.Context, sc domain.ShardClient, g string) ([]domain.ComponentAccess, error) {
		return sc.GetApplicationComponentsAccessibleByGroup(ctx, g)
	})
}

func dedupComponentAccess(sets ...[]domain.ComponentAccess) []domain.ComponentAccess {
	seen := make(map[domain.ComponentAccess]bool)
	var out []domain.ComponentAccess
	for _, s := range sets {
		for _, a := range s {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// HasAccessToApplicationComponent is composite: resolve the user's group
// closure, then fan out to every Group/Query shard implicated by that
// closure (plus the user's own User/Query shard), OR-ing the results.
func (c *Coordinator) HasAccessToApplicationComponent(ctx context.Context, user, component, accessLevel string) (bool, error) {
	return span(c, "HasAccessToApplicationComponent", func() (bool, error) {
		h, err := c.manager.GetClient(domain.User, domain.Query, user)
		if err != nil {
			return false, err
		}
		ok, err := h.Client.HasAccessToApplicationComponent(ctx, user, component, accessLevel)
		if err != nil {
			return false, domain.NewShardCallFailure(fmt.Sprintf("Failed to determine whether user '%s' has access to component '%s' at access level '%s' using", user, component, accessLevel), h.Description, err)
		}
		if ok {
			return true, nil
		}

		groups, err := c.GetUserToGroupMappings(ctx, user, true)
		if err != nil {
			return false, err
		}
		for _, g := range groups {
			gh, err := c.manager.GetClient(domain.Group, domain.Query, g)
			if err != nil {
				return false, err
			}
			ok, err := gh.Client.HasAccessToApplicationComponent(ctx, g, component, accessLevel)
			if err != nil {
				return false, domain.NewShardCallFailure(fmt.Sprintf("Failed to determine whether group '%s' has access to component '%s' at access level '%s' using", g, component, accessLevel), gh.Description, err)
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}

// ---- Entity types and entities ----

// AddEntityType is Event, fan-out-all to every User/Event ∪ Group/Event
// shard.
func (c *Coordinator) AddEntityType(ctx context.Context, entityType string) error {
	return c.fanOutEventMutation(ctx, "AddEntityType", fmt.Sprintf("Failed to add entity type '%s' to", entityType),
		func(ctx context.Context, sc domain.ShardClient) error { return sc.AddEntityType(ctx, entityType) })
}

// RemoveEntityType is the symmetric counterpart of AddEntityType.
func (c *Coordinator) RemoveEntityType(ctx context.Context, entityType string) error {
	return c.fanOutEventMutation(ctx, "RemoveEntityType", fmt.Sprintf("Failed to remove entity type '%s' from", entityType),
		func(ctx context.Context, sc domain.ShardClient) error { return sc.RemoveEntityType(ctx, entityType) })
}

// AddEntity is Event, fan-out-all to every User/Event ∪ Group/Event shard.
func (c *Coordinator) AddEntity(ctx context.Context, entityType, entity string) error {
	return c.fanOutEventMutation(ctx, "AddEntity", fmt.Sprintf("Failed to add entity '%s' of type '%s' to", entity, entityType),
		func(ctx context.Context, sc domain.ShardClient) error { return sc.AddEntity(ctx, entityType, entity) })
}

// RemoveEntity is the symmetric counterpart of AddEntity.
func (c *Coordinator) RemoveEntity(ctx context.Context, entityType, entity string) error {
	return c.fanOutEventMutation(ctx, "RemoveEntity", fmt.Sprintf("Failed to remove entity '%s' of type '%s' from", entity, entityType),
		func(ctx context.Context, sc domain.ShardClient) error { return sc.RemoveEntity(ctx, entityType, entity) })
}

func (c *Coordinator) fanOutEventMutation(ctx context.Context, spanName, prefix string, fn func(context.Context, domain.ShardClient) error) error {
	return spanErr(c, spanName, func() error {
		handles, err := c.unionHandles(domain.Event, domain.User, domain.Group)
		if err != nil {
			return err
		}
		if err := fanOutAll(ctx, handles, fn); err != nil {
			var partial *domain.PartialFanOutFailureError
			if pe, ok := err.(*domain.PartialFanOutFailureError); ok {
				partial = pe
				return domain.NewShardCallFailure(prefix, partial.Description, partial.Cause)
			}
			return err
		}
		return nil
	})
}

// GetEntityTypes is Query, fan-out over User/Query ∪ Group/Query,
// union-deduped.
func (c *Coordinator) GetEntityTypes(ctx context.Context) ([]string, error) {
	return span(c, "GetEntityTypes", func() ([]string, error) {
		handles, err := c.unionHandles(domain.Query, domain.User, domain.Group)
		if err != nil {
			return nil, err
		}
		return fanOutUnionStrings(ctx, handles, "Failed to retrieve entity types from", func(ctx context.Context, sc domain.ShardClient) ([]string, error) {
			return sc.GetEntityTypes(ctx)
		})
	})
}

// ---- User/Group <-> entity mappings ----

// AddUserToEntityMapping is Event, point-routed to the User/Event shard
// owning user.
func (c *Coordinator) AddUserToEntityMapping(ctx context.Context, user, entityType, entity string) error {
	return spanErr(c, "AddUserToEntityMapping", func() error {
		h, err := c.manager.GetClient(domain.User, domain.Event, user)
		if err != nil {
			return err
		}
		if err := h.Client.AddUserToEntityMapping(ctx, user, entityType, entity); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to add a mapping between user '%s' and entity '%s' of type '%s' to", user, entity, entityType), h.Description, err)
		}
		return nil
	})
}

// RemoveUserToEntityMapping is the symmetric counterpart.
func (c *Coordinator) RemoveUserToEntityMapping(ctx context.Context, user, entityType, entity string) error {
	return spanErr(c, "RemoveUserToEntityMapping", func() error {
		h, err := c.manager.GetClient(domain.User, domain.Event, user)
		if err != nil {
			return err
		}
		if err := h.Client.RemoveUserToEntityMapping(ctx, user, entityType, entity); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to remove the mapping between user '%s' and entity '%s' of type '%s' from", user, entity, entityType), h.Description, err)
		}
		return nil
	})
}

// AddGroupToEntityMapping is Event, point-routed to the Group/Event shard
// owning group.
func (c *Coordinator) AddGroupToEntityMapping(ctx context.Context, group, entityType, entity string) error {
	return spanErr(c, "AddGroupToEntityMapping", func() error {
		h, err := c.manager.GetClient(domain.Group, domain.Event, group)
		if err != nil {
			return err
		}
		if err := h.Client.AddGroupToEntityMapping(ctx, group, entityType, entity); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to add a mapping between group '%s' and entity '%s' of type '%s' to", group, entity, entityType), h.Description, err)
		}
		return nil
	})
}

// RemoveGroupToEntityMapping is the symmetric counterpart.
func (c *Coordinator) RemoveGroupToEntityMapping(ctx context.Context, group, entityType, entity string) error {
	return spanErr(c, "RemoveGroupToEntityMapping", func() error {
		h, err := c.manager.GetClient(domain.Group, domain.Event, group)
		if err != nil {
			return err
		}
		if err := h.Client.RemoveGroupToEntityMapping(ctx, group, entityType, entity); err != nil {
			return domain.NewShardCallFailure(fmt.Sprintf("Failed to remove the mapping between group '%s' and entity '%s' of type '%s' from", group, entity, entityType), h.Description, err)
		}
		return nil
	})
}

// GetEntitiesAccessibleByUser mirrors
// GetApplicationComponentsAccessibleByUser for entity access.
func (c *Coordinator) GetEntitiesAccessibleByUser(ctx context.Context, user string) ([]domain.EntityAccess, error) {
	return span(c, "GetEntitiesAccessibleByUser", func() ([]domain.EntityAccess, error) {
		h, err := c.manager.GetClient(domain.User, domain.Query, user)
		if err != nil {
			return nil, err
		}
		direct, err := h.Client.GetEntitiesAccessibleByUser(ctx, user)
		if err != nil {
			return nil, domain.NewShardCallFailure(fmt.Sprintf("Failed to retrieve entities accessible by user '%s' from", user), h.Description, err)
		}

		groups, err := c.GetUserToGroupMappings(ctx, user, true)
		if err != nil {
			return nil, err
		}
		viaGroups, err := c.entitiesAccessibleByGroups(ctx, groups)
		if err != nil {
			return nil, err
		}
		return dedupEntityAccess(direct, viaGroups), nil
	})
}

// GetEntitiesAccessibleByGroup mirrors
// GetApplicationComponentsAccessibleByGroup for entity access.
func (c *Coordinator) GetEntitiesAccessibleByGroup(ctx context.Context, group string) ([]domain.EntityAccess, error) {
	return span(c, "GetEntitiesAccessibleByGroup", func() ([]domain.EntityAccess, error) {
		closure, err := c.expandGroupClosure(ctx, []string{group})
		if err != nil {
			return nil, err
		}
		return c.entitiesAccessibleByGroups(ctx, closure)
	})
}

func (c *Coordinator) entitiesAccessibleByGroups(ctx context.Context, groups []string) ([]domain.EntityAccess, error) {
	return fanOutPerGroupUnion(ctx, c.manager, groups, "Failed to retrieve entities accessible by group from", func(ctx context.Context, sc domain.ShardClient, g string) ([]domain.EntityAccess, error) {
		return sc.GetEntitiesAccessibleByGroup(ctx, g)
	})
}

func dedupEntityAccess(sets ...[]domain.EntityAccess) []domain.EntityAccess {
	seen := make(map[domain.EntityAccess]bool)
	var out []domain.EntityAccess
	for _, s := range sets {
		for _, a := range s {
			if !seen[a] {
				seen[a] = true
				out = append(out, a)
			}
		}
	}
	return out
}

// HasAccessToEntity mirrors HasAccessToApplicationComponent for entity
// access.
func (c *Coordinator) HasAccessToEntity(ctx context.Context, user, entityType, entity string) (bool, error) {
	return span(c, "HasAccessToEntity", func() (bool, error) {
		h, err := c.manager.GetClient(domain.User, domain.Query, user)
		if err != nil {
			return false, err
		}
		ok, err := h.Client.HasAccessToEntity(ctx, user, entityType, entity)
		if err != nil {
			return false, domain.NewShardCallFailure(fmt.Sprintf("Failed to determine whether user '%s' has access to entity '%s' of type '%s' using", user, entity, entityType), h.Description, err)
		}
		if ok {
			return true, nil
		}

		groups, err := c.GetUserToGroupMappings(ctx, user, true)
		if err != nil {
			return false, err
		}
		for _, g := range groups {
			gh, err := c.manager.GetClient(domain.Group, domain.Query, g)
			if err != nil {
				return false, err
			}
			ok, err := gh.Client.HasAccessToEntity(ctx, g, entityType, entity)
			if err != nil {
				return false, domain.NewShardCallFailure(fmt.Sprintf("Failed to determine whether group '%s' has access to entity '%s' of type '%s' using", g, entity, entityType), gh.Description, err)
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	})
}
