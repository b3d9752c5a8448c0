package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind tags the variant of a mutation recorded in a shard's event log.
// Kinds mirror the ShardClient's Event-operation methods one for one, with
// a Remove* counterpart for every Add*.
type EventKind string

const (
	EventAddUser   EventKind = "AddUser"
	EventRemoveUser EventKind = "RemoveUser"

	EventAddGroup    EventKind = "AddGroup"
	EventRemoveGroup EventKind = "RemoveGroup"

	EventAddUserToGroupMapping    EventKind = "AddUserToGroupMapping"
	EventRemoveUserToGroupMapping EventKind = "RemoveUserToGroupMapping"

	EventAddGroupToGroupMapping    EventKind = "AddGroupToGroupMapping"
	EventRemoveGroupToGroupMapping EventKind = "RemoveGroupToGroupMapping"

	EventAddUserToApplicationComponentAndAccessLevelMapping    EventKind = "AddUserToApplicationComponentAndAccessLevelMapping"
	EventRemoveUserToApplicationComponentAndAccessLevelMapping EventKind = "RemoveUserToApplicationComponentAndAccessLevelMapping"

	EventAddGroupToApplicationComponentAndAccessLevelMapping    EventKind = "AddGroupToApplicationComponentAndAccessLevelMapping"
	EventRemoveGroupToApplicationComponentAndAccessLevelMapping EventKind = "RemoveGroupToApplicationComponentAndAccessLevelMapping"

	EventAddUserToEntityMapping    EventKind = "AddUserToEntityMapping"
	EventRemoveUserToEntityMapping EventKind = "RemoveUserToEntityMapping"

	EventAddGroupToEntityMapping    EventKind = "AddGroupToEntityMapping"
	EventRemoveGroupToEntityMapping EventKind = "RemoveGroupToEntityMapping"

	EventAddEntityType    EventKind = "AddEntityType"
	EventRemoveEntityType EventKind = "RemoveEntityType"

	EventAddEntity    EventKind = "AddEntity"
	EventRemoveEntity EventKind = "RemoveEntity"
)

// EventPayload carries the kind-dependent fields of an Event. Only the
// fields relevant to Kind are populated; the rest are zero. A flat struct
// (rather than one interface type per kind) keeps the event log's JSON
// encoding trivial to version and to replay.
type EventPayload struct {
	User                 string `json:"user,omitempty"`
	Group                string `json:"group,omitempty"`
	ParentGroup          string `json:"parentGroup,omitempty"`
	ApplicationComponent string `json:"applicationComponent,omitempty"`
	AccessLevel          string `json:"accessLevel,omitempty"`
	EntityType           string `json:"entityType,omitempty"`
	Entity               string `json:"entity,omitempty"`
}

// Event is a durable, immutable, uniquely-identified mutation of the
// authorization graph. EventIds are totally ordered by OccurredAt on each
// shard; globally the order is best-effort only.
type Event struct {
	EventID    uuid.UUID
	OccurredAt time.Time
	Kind       EventKind
	// HashCode is the hash of the event's principal (user or group),
	// letting the storage layer filter events by hash range during a
	// split without re-hashing the payload.
	HashCode int32
	Payload  EventPayload
}

// NewEvent stamps a new Event with a fresh EventID. OccurredAt is passed in rather than computed here so callers (including
// tests) can control ordering deterministically.
func NewEvent(kind EventKind, hashCode int32, occurredAt time.Time, payload EventPayload) Event {
	return Event{
		EventID:    uuid.New(),
		OccurredAt: occurredAt,
		Kind:       kind,
		HashCode:   hashCode,
		Payload:    payload,
	}
}
