package eventlog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

func ev(hash int32, kind domain.EventKind) domain.Event {
	return domain.NewEvent(kind, hash, time.Now(), domain.EventPayload{User: "u"})
}

// TestGetEvents_GroupEventsFollowFilterFlag exercises spec §4.5's
// filterGroupEventsByHashRange contract: with the flag false, every
// Group-kind event moves regardless of hash; with it true, Group events are
// hash-filtered exactly like any other event.
func TestGetEvents_GroupEventsFollowFilterFlag(t *testing.T) {
	inRangeUser := ev(10, domain.EventAddUser)
	outOfRangeUser := ev(200, domain.EventAddUser)
	inRangeGroup := ev(20, domain.EventAddGroup)
	outOfRangeGroup := ev(250, domain.EventAddGroup)

	log := New()
	log.Append(inRangeUser, outOfRangeUser, inRangeGroup, outOfRangeGroup)

	t.Run("filter disabled moves all group events regardless of range", func(t *testing.T) {
		got, err := log.GetEvents(context.Background(), inRangeUser.EventID, 0, 100, false, 10)
		require.NoError(t, err)
		ids := eventIDs(got)
		assert.Contains(t, ids, inRangeUser.EventID)
		assert.Contains(t, ids, inRangeGroup.EventID)
		assert.Contains(t, ids, outOfRangeGroup.EventID, "group events move unfiltered when filterGroupEvents is false")
		assert.NotContains(t, ids, outOfRangeUser.EventID, "non-group events are always hash-filtered")
	})

	t.Run("filter enabled hash-filters group events like any other", func(t *testing.T) {
		got, err := log.GetEvents(context.Background(), inRangeUser.EventID, 0, 100, true, 10)
		require.NoError(t, err)
		ids := eventIDs(got)
		assert.Contains(t, ids, inRangeUser.EventID)
		assert.Contains(t, ids, inRangeGroup.EventID, "in-range group events still move when filterGroupEvents is true")
		assert.NotContains(t, ids, outOfRangeGroup.EventID, "out-of-range group events are dropped when filterGroupEvents is true")
		assert.NotContains(t, ids, outOfRangeUser.EventID)
	})
}

// TestDeleteEvents_MirrorsGetEventsGroupSemantics verifies the source log
// ends up holding exactly the complement of what a copy with the same flag
// would have moved, for both values of includeGroupEvents.
func TestDeleteEvents_MirrorsGetEventsGroupSemantics(t *testing.T) {
	t.Run("includeGroupEvents false deletes all group events regardless of range", func(t *testing.T) {
		log := New()
		inRangeUser := ev(10, domain.EventAddUser)
		outOfRangeUser := ev(200, domain.EventAddUser)
		inRangeGroup := ev(20, domain.EventAddGroup)
		outOfRangeGroup := ev(250, domain.EventAddGroup)
		log.Append(inRangeUser, outOfRangeUser, inRangeGroup, outOfRangeGroup)

		require.NoError(t, log.DeleteEvents(context.Background(), 0, 100, false))

		remaining := eventIDs(log.events)
		assert.NotContains(t, remaining, inRangeUser.EventID)
		assert.Contains(t, remaining, outOfRangeUser.EventID)
		assert.NotContains(t, remaining, inRangeGroup.EventID)
		assert.NotContains(t, remaining, outOfRangeGroup.EventID, "group events are deleted unfiltered when includeGroupEvents is false")
	})

	t.Run("includeGroupEvents true hash-filters group deletion like any other", func(t *testing.T) {
		log := New()
		inRangeUser := ev(10, domain.EventAddUser)
		outOfRangeUser := ev(200, domain.EventAddUser)
		inRangeGroup := ev(20, domain.EventAddGroup)
		outOfRangeGroup := ev(250, domain.EventAddGroup)
		log.Append(inRangeUser, outOfRangeUser, inRangeGroup, outOfRangeGroup)

		require.NoError(t, log.DeleteEvents(context.Background(), 0, 100, true))

		remaining := eventIDs(log.events)
		assert.NotContains(t, remaining, inRangeUser.EventID)
		assert.Contains(t, remaining, outOfRangeUser.EventID)
		assert.NotContains(t, remaining, inRangeGroup.EventID)
		assert.Contains(t, remaining, outOfRangeGroup.EventID, "out-of-range group events survive when includeGroupEvents is true")
	})
}

func eventIDs(events []domain.Event) []interface{} {
	out := make([]interface{}, len(events))
	for i, e := range events {
		out[i] = e.EventID
	}
	return out
}
