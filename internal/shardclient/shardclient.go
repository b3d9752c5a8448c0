// Package shardclient implements domain.ShardClient over JSON-over-HTTP,
// the wire protocol a real shard node exposes. It is the production
// counterpart to accessmanager.MemoryShardClient: same interface, same
// semantics, backed by a network call instead of an in-process map.
package shardclient

import (
	"context"
	"fmt"
	"net/url"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
	"github.com/dreamware/applicationaccess-coordinator/internal/transport"
)

// Client talks to a single shard node's HTTP API at Addr.
type Client struct {
	addr string
}

// New returns a Client targeting the shard node reachable at addr
// ("host:port"), as carried by domain.HTTPShardClientConfig.
func New(addr string) *Client {
	return &Client{addr: addr}
}

// NewFromConfig adapts a domain.ShardClientConfig into a Client, returning
// an error if cfg is not an HTTPShardClientConfig. Suitable as the factory
// function passed to shardmanager.Construct in production wiring.
func NewFromConfig(cfg domain.ShardClientConfig) (domain.ShardClient, error) {
	httpCfg, ok := cfg.(domain.HTTPShardClientConfig)
	if !ok {
		return nil, fmt.Errorf("shardclient: unsupported config type %T", cfg)
	}
	return New(httpCfg.Addr), nil
}

func (c *Client) url(path string, query ...[2]string) string {
	u := fmt.Sprintf("http://%s%s", c.addr, path)
	if len(query) == 0 {
		return u
	}
	v := make(url.Values, len(query))
	for _, kv := range query {
		v.Set(kv[0], kv[1])
	}
	return u + "?" + v.Encode()
}

// Close is a no-op: Client holds no per-instance connection, only a target
// address, and the underlying transport.httpClient is shared and pooled
// across every Client.
func (c *Client) Close() error { return nil }

type existsResponse struct {
	Exists bool `json:"exists"`
}

type listResponse struct {
	Items []string `json:"items"`
}

type componentAccessResponse struct {
	Items []domain.ComponentAccess `json:"items"`
}

type entityAccessResponse struct {
	Items []domain.EntityAccess `json:"items"`
}

// ---- Users ----

func (c *Client) AddUser(ctx context.Context, user string) error {
	return transport.PostJSON(ctx, c.url("/users"), map[string]string{"user": user}, nil)
}

func (c *Client) RemoveUser(ctx context.Context, user string) error {
	return transport.DeleteJSON(ctx, c.url("/users"), map[string]string{"user": user}, nil)
}

func (c *Client) ContainsUser(ctx context.Context, user string) (bool, error) {
	var resp existsResponse
	err := transport.GetJSON(ctx, c.url("/users/exists", [2]string{"user", user}), &resp)
	return resp.Exists, err
}

func (c *Client) GetUsers(ctx context.Context) ([]string, error) {
	var resp listResponse
	err := transport.GetJSON(ctx, c.url("/users"), &resp)
	return resp.Items, err
}

// ---- Groups ----

func (c *Client) AddGroup(ctx context.Context, group string) error {
	return transport.PostJSON(ctx, c.url("/groups"), map[string]string{"group": group}, nil)
}

func (c *Client) RemoveGroup(ctx context.Context, group string) error {
	return transport.DeleteJSON(ctx, c.url("/groups"), map[string]string{"group": group}, nil)
}

func (c *Client) ContainsGroup(ctx context.Context, group string) (bool, error) {
	var resp existsResponse
	err := transport.GetJSON(ctx, c.url("/groups/exists", [2]string{"group", group}), &resp)
	return resp.Exists, err
}

func (c *Client) GetGroups(ctx context.Context) ([]string, error) {
	var resp listResponse
	err := transport.GetJSON(ctx, c.url("/groups"), &resp)
	return resp.Items, err
}

// ---- User-to-group mappings ----

func (c *Client) AddUserToGroupMapping(ctx context.Context, user, group string) error {
	return transport.PostJSON(ctx, c.url("/userToGroupMappings"), map[string]string{"user": user, "group": group}, nil)
}

func (c *Client) RemoveUserToGroupMapping(ctx context.Context, user, group string) error {
	return transport.DeleteJSON(ctx, c.url("/userToGroupMappings"), map[string]string{"user": user, "group": group}, nil)
}

func (c *Client) GetUserToGroupMappings(ctx context.Context, user string) ([]string, error) {
	var resp listResponse
	err := transport.GetJSON(ctx, c.url("/userToGroupMappings", [2]string{"user", user}), &resp)
	return resp.Items, err
}

// ---- Group-to-group mappings ----

func (c *Client) AddGroupToGroupMapping(ctx context.Context, fromGroup, toGroup string) error {
	return transport.PostJSON(ctx, c.url("/groupToGroupMappings"), map[string]string{"fromGroup": fromGroup, "toGroup": toGroup}, nil)
}

func (c *Client) RemoveGroupToGroupMapping(ctx context.Context, fromGroup, toGroup string) error {
	return transport.DeleteJSON(ctx, c.url("/groupToGroupMappings"), map[string]string{"fromGroup": fromGroup, "toGroup": toGroup}, nil)
}

func (c *Client) GetGroupToGroupMappings(ctx context.Context, group string) ([]string, error) {
	var resp listResponse
	err := transport.GetJSON(ctx, c.url("/groupToGroupMappings", [2]string{"group", group}), &resp)
	return resp.Items, err
}

// ---- Application component access ----

func (c *Client) AddUserToApplicationComponentAndAccessLevelMapping(ctx context.Context, user, component, accessLevel string) error {
	return transport.PostJSON(ctx, c.url("/userComponentAccess"), map[string]string{"user": user, "component": component, "accessLevel": accessLevel}, nil)
}

func (c *Client) RemoveUserToApplicationComponentAndAccessLevelMapping(ctx context.Context, user, component, accessLevel string) error {
	return transport.DeleteJSON(ctx, c.url("/userComponentAccess"), map[string]string{"user": user, "component": component, "accessLevel": accessLevel}, nil)
}

func (c *Client) AddGroupToApplicationComponentAndAccessLevelMapping(ctx context.Context, group, component, accessLevel string) error {
	return transport.PostJSON(ctx, c.url("/groupComponentAccess"), map[string]string{"group": group, "component": component, "accessLevel": accessLevel}, nil)
}

func (c *Client) RemoveGroupToApplicationComponentAndAccessLevelMapping(ctx context.Context, group, component, accessLevel string) error {
	return transport.DeleteJSON(ctx, c.url("/groupComponentAccess"), map[string]string{"group": group, "component": component, "accessLevel": accessLevel}, nil)
}

func (c *Client) GetApplicationComponentsAccessibleByUser(ctx context.Context, user string) ([]domain.ComponentAccess, error) {
	var resp componentAccessResponse
	err := transport.GetJSON(ctx, c.url("/userComponentAccess", [2]string{"user", user}), &resp)
	return resp.Items, err
}

func (c *Client) GetApplicationComponentsAccessibleByGroup(ctx context.Context, group string) ([]domain.ComponentAccess, error) {
	var resp componentAccessResponse
	err := transport.GetJSON(ctx, c.url("/groupComponentAccess", [2]string{"group", group}), &resp)
	return resp.Items, err
}

func (c *Client) HasAccessToApplicationComponent(ctx context.Context, user, component, accessLevel string) (bool, error) {
	var resp existsResponse
	err := transport.GetJSON(ctx, c.url("/componentAccess/exists",
		[2]string{"principal", user}, [2]string{"component", component}, [2]string{"accessLevel", accessLevel}), &resp)
	return resp.Exists, err
}

// ---- Entities ----

func (c *Client) AddEntityType(ctx context.Context, entityType string) error {
	return transport.PostJSON(ctx, c.url("/entityTypes"), map[string]string{"entityType": entityType}, nil)
}

func (c *Client) RemoveEntityType(ctx context.Context, entityType string) error {
	return transport.DeleteJSON(ctx, c.url("/entityTypes"), map[string]string{"entityType": entityType}, nil)
}

func (c *Client) GetEntityTypes(ctx context.Context) ([]string, error) {
	var resp listResponse
	err := transport.GetJSON(ctx, c.url("/entityTypes"), &resp)
	return resp.Items, err
}

func (c *Client) AddEntity(ctx context.Context, entityType, entity string) error {
	return transport.PostJSON(ctx, c.url("/entities"), map[string]string{"entityType": entityType, "entity": entity}, nil)
}

func (c *Client) RemoveEntity(ctx context.Context, entityType, entity string) error {
	return transport.DeleteJSON(ctx, c.url("/entities"), map[string]string{"entityType": entityType, "entity": entity}, nil)
}

func (c *Client) AddUserToEntityMapping(ctx context.Context, user, entityType, entity string) error {
	return transport.PostJSON(ctx, c.url("/userEntityAccess"), map[string]string{"user": user, "entityType": entityType, "entity": entity}, nil)
}

func (c *Client) RemoveUserToEntityMapping(ctx context.Context, user, entityType, entity string) error {
	return transport.DeleteJSON(ctx, c.url("/userEntityAccess"), map[string]string{"user": user, "entityType": entityType, "entity": entity}, nil)
}

func (c *Client) AddGroupToEntityMapping(ctx context.Context, group, entityType, entity string) error {
	return transport.PostJSON(ctx, c.url("/groupEntityAccess"), map[string]string{"group": group, "entityType": entityType, "entity": entity}, nil)
}

func (c *Client) RemoveGroupToEntityMapping(ctx context.Context, group, entityType, entity string) error {
	return transport.DeleteJSON(ctx, c.url("/groupEntityAccess"), map[string]string{"group": group, "entityType": entityType, "entity": entity}, nil)
}

func (c *Client) GetEntitiesAccessibleByUser(ctx context.Context, user string) ([]domain.EntityAccess, error) {
	var resp entityAccessResponse
	err := transport.GetJSON(ctx, c.url("/userEntityAccess", [2]string{"user", user}), &resp)
	return resp.Items, err
}

func (c *Client) GetEntitiesAccessibleByGroup(ctx context.Context, group string) ([]domain.EntityAccess, error) {
	var resp entityAccessResponse
	err := transport.GetJSON(ctx, c.url("/groupEntityAccess", [2]string{"group", group}), &resp)
	return resp.Items, err
}

func (c *Client) HasAccessToEntity(ctx context.Context, user, entityType, entity string) (bool, error) {
	var resp existsResponse
	err := transport.GetJSON(ctx, c.url("/entityAccess/exists",
		[2]string{"principal", user}, [2]string{"entityType", entityType}, [2]string{"entity", entity}), &resp)
	return resp.Exists, err
}

var _ domain.ShardClient = (*Client)(nil)
