// Package eventlog provides an in-memory reference implementation of the
// four collaborator interfaces the Shard Group Splitter drives: an event
// reader, an idempotent event persister, an event deleter, and a writer
// administrator. It exists so the Splitter's protocol is exercisable in
// tests and local operation without a real durable event store, the same
// role the teacher's storage.MemoryStore plays for the coordinator.
package eventlog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

// Log is an ordered, in-memory sequence of domain.Event. It does no locking
// of its own, so its methods must not be called concurrently; the Splitter
// makes its calls one at a time. Events are ordered by insertion, which in this reference implementation
// doubles as OccurredAt order.
type Log struct {
	events          []domain.Event
	processingCount int
}

// New returns an empty Log.
func New() *Log {
	return &Log{}
}

// Append adds events to the log in writer-visible order, as if a live
// shard writer had just durably committed them. Intended for seeding tests
// and for a simulated WriterAdmin to use between drain polls.
func (l *Log) Append(events ...domain.Event) {
	l.events = append(l.events, events...)
}

// SetProcessingCount controls what GetEventProcessingCount reports on the
// next call, letting tests simulate a writer that is still draining
// in-flight operations.
func (l *Log) SetProcessingCount(n int) {
	l.processingCount = n
}

// ---- EventReader ----

// GetInitialEvent returns the id of the first event in the log, or
// (uuid.Nil, false) if the log is empty.
func (l *Log) GetInitialEvent(_ context.Context) (uuid.UUID, bool, error) {
	if len(l.events) == 0 {
		return uuid.UUID{}, false, nil
	}
	return l.events[0].EventID, true, nil
}

// GetEvents returns up to batchSize events starting at (and including)
// startID, restricted to the principal hash range
// [rangeStart, rangeEnd]. Group-kind events are held to that range too when
// filterGroupEvents is true, and included regardless of hash when it is
// false.
func (l *Log) GetEvents(_ context.Context, startID uuid.UUID, rangeStart, rangeEnd int32, filterGroupEvents bool, batchSize int) ([]domain.Event, error) {
	startIdx := -1
	for i, e := range l.events {
		if e.EventID == startID {
			startIdx = i
			break
		}
	}
	if startIdx == -1 {
		return nil, nil
	}

	var out []domain.Event
	for i := startIdx; i < len(l.events) && len(out) < batchSize; i++ {
		e := l.events[i]
		if !splitIncludes(e, rangeStart, rangeEnd, filterGroupEvents) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// splitIncludes reports whether e belongs in a split of [rangeStart,
// rangeEnd]: a non-Group event is included iff its hash falls in range; a
// Group event is included iff groupEventsFollowHashRange is false (move
// every Group event regardless of hash) or its hash falls in range.
func splitIncludes(e domain.Event, rangeStart, rangeEnd int32, groupEventsFollowHashRange bool) bool {
	if isGroupKind(e.Kind) {
		return !groupEventsFollowHashRange || inHashRange(e.HashCode, rangeStart, rangeEnd)
	}
	return inHashRange(e.HashCode, rangeStart, rangeEnd)
}

// GetNextEventAfter returns the id of the event immediately following id,
// or (uuid.Nil, false) if id is the last event or not found.
func (l *Log) GetNextEventAfter(_ context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	for i, e := range l.events {
		if e.EventID == id && i+1 < len(l.events) {
			return l.events[i+1].EventID, true, nil
		}
	}
	return uuid.UUID{}, false, nil
}

func inHashRange(h, start, end int32) bool {
	return h >= start && h <= end
}

func isGroupKind(k domain.EventKind) bool {
	switch k {
	case domain.EventAddGroup, domain.EventRemoveGroup,
		domain.EventAddGroupToGroupMapping, domain.EventRemoveGroupToGroupMapping,
		domain.EventAddGroupToApplicationComponentAndAccessLevelMapping,
		domain.EventRemoveGroupToApplicationComponentAndAccessLevelMapping,
		domain.EventAddGroupToEntityMapping, domain.EventRemoveGroupToEntityMapping:
		return true
	default:
		return false
	}
}

// ---- EventPersister (target side) ----

// Persister is a separate in-memory Log used as the Splitter's target. Its
// PersistEvents is idempotent over EventID, as required by the Splitter's
// retry semantics: re-persisting an already-seen id is a no-op.
type Persister struct {
	seen   map[uuid.UUID]bool
	events []domain.Event
}

// NewPersister returns an empty target-side Persister.
func NewPersister() *Persister {
	return &Persister{seen: make(map[uuid.UUID]bool)}
}

// PersistEvents stores each event not already seen by EventID.
func (p *Persister) PersistEvents(_ context.Context, events []domain.Event) error {
	for _, e := range events {
		if p.seen[e.EventID] {
			continue
		}
		p.seen[e.EventID] = true
		p.events = append(p.events, e)
	}
	return nil
}

// Events returns every event persisted so far, ordered by OccurredAt.
func (p *Persister) Events() []domain.Event {
	out := append([]domain.Event(nil), p.events...)
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out
}

// ---- EventDeleter (source side) ----

// DeleteEvents removes every event that a copy with the same rangeStart,
// rangeEnd and includeGroupEvents flag would have moved, via splitIncludes,
// so the source log always ends up holding exactly what the target log did
// not receive.
func (l *Log) DeleteEvents(_ context.Context, rangeStart, rangeEnd int32, includeGroupEvents bool) error {
	kept := l.events[:0:0]
	for _, e := range l.events {
		if splitIncludes(e, rangeStart, rangeEnd, includeGroupEvents) {
			continue
		}
		kept = append(kept, e)
	}
	l.events = kept
	return nil
}

// ---- WriterAdmin ----

// GetEventProcessingCount reports the value set by SetProcessingCount,
// simulating a writer's in-flight operation count during a drain poll.
func (l *Log) GetEventProcessingCount(_ context.Context) (int, error) {
	return l.processingCount, nil
}

// FlushEventBuffers is a no-op: this reference writer has no buffering to
// flush; real writer administrators would force any in-memory batch to
// durable storage here.
func (l *Log) FlushEventBuffers(_ context.Context) error {
	return nil
}

// ---- JSON file snapshotting ----
//
// splitctl drives a split against file-backed snapshots rather than a live
// shard writer: a bare JSON array of domain.Event is the whole format, with
// no wrapping object (unlike configstore, which wraps its list in an
// "assignments" field).

// LoadLogFromFile reads a JSON-encoded array of domain.Event from path and
// returns a Log seeded with them in file order. A missing file loads as an
// empty Log, so a fresh source file need not be pre-created.
func LoadLogFromFile(path string) (*Log, error) {
	events, err := readEventsFile(path)
	if err != nil {
		return nil, err
	}
	l := New()
	l.Append(events...)
	return l, nil
}

// SaveToFile writes the log's current events, in order, as JSON to path.
func (l *Log) SaveToFile(path string) error {
	return writeEventsFile(path, l.events)
}

// LoadPersisterFromFile reads a JSON-encoded array of domain.Event from
// path and returns a Persister seeded with them, so a split already
// partially run against this target file resumes idempotently. A missing
// file loads as an empty Persister.
func LoadPersisterFromFile(path string) (*Persister, error) {
	events, err := readEventsFile(path)
	if err != nil {
		return nil, err
	}
	p := NewPersister()
	if err := p.PersistEvents(context.Background(), events); err != nil {
		return nil, err
	}
	return p, nil
}

// SaveToFile writes the persister's received events, ordered by
// OccurredAt, as JSON to path.
func (p *Persister) SaveToFile(path string) error {
	return writeEventsFile(path, p.Events())
}

func readEventsFile(path string) ([]domain.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("eventlog: reading %s: %w", path, err)
	}
	var events []domain.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("eventlog: decoding %s: %w", path, err)
	}
	return events, nil
}

func writeEventsFile(path string, events []domain.Event) error {
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("eventlog: encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("eventlog: writing %s: %w", path, err)
	}
	return nil
}

// ---- OperationRouter ----

// Router is an in-memory operation router the Splitter pauses and resumes
// around the quiesce phase.
type Router struct {
	paused bool
}

// NewRouter returns a Router that starts unpaused.
func NewRouter() *Router {
	return &Router{}
}

// PauseOperations holds incoming requests. Safe to call when already
// paused.
func (r *Router) PauseOperations(_ context.Context) error {
	r.paused = true
	return nil
}

// ResumeOperations releases held requests. Safe to call when not paused.
func (r *Router) ResumeOperations(_ context.Context) error {
	r.paused = false
	return nil
}

// Paused reports whether the router currently holds incoming requests.
func (r *Router) Paused() bool { return r.paused }
