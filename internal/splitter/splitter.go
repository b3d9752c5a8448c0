// Package splitter implements the Shard Group Splitter: the online
// data-movement protocol that copies a contiguous hash-range subset of
// events from a source shard group to a previously-empty target shard
// group, then deletes that subset from the source. It is an
// operator-initiated, one-shot procedure, not a background process.
package splitter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
	"github.com/dreamware/applicationaccess-coordinator/internal/metrics"
)

// State is a phase of the split protocol's state machine.
//
//	Init -> Copying -> Pausing -> Draining -> Flushing -> TailCopying -> Deleting -> Done
//
// with a Failed transition reachable from every non-terminal state.
type State string

const (
	StateInit        State = "Init"
	StateCopying     State = "Copying"
	StatePausing     State = "Pausing"
	StateDraining    State = "Draining"
	StateFlushing    State = "Flushing"
	StateTailCopying State = "TailCopying"
	StateDeleting    State = "Deleting"
	StateDone        State = "Done"
	StateFailed      State = "Failed"
)

// EventReader is the source-side collaborator the Splitter reads from.
type EventReader interface {
	GetInitialEvent(ctx context.Context) (uuid.UUID, bool, error)
	GetEvents(ctx context.Context, startID uuid.UUID, rangeStart, rangeEnd int32, filterGroupEvents bool, batchSize int) ([]domain.Event, error)
	GetNextEventAfter(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error)
}

// EventPersister is the target-side collaborator. PersistEvents must be
// idempotent over Event.EventID.
type EventPersister interface {
	PersistEvents(ctx context.Context, events []domain.Event) error
}

// EventDeleter removes the moved range from the source once the split has
// completed.
type EventDeleter interface {
	DeleteEvents(ctx context.Context, rangeStart, rangeEnd int32, includeGroupEvents bool) error
}

// OperationRouter is the front-door data-plane component that can pause and
// resume incoming requests around the quiesce phase.
type OperationRouter interface {
	PauseOperations(ctx context.Context) error
	ResumeOperations(ctx context.Context) error
}

// WriterAdmin reports and controls the source shard group's writer.
type WriterAdmin interface {
	GetEventProcessingCount(ctx context.Context) (int, error)
	FlushEventBuffers(ctx context.Context) error
}

// Params bundles every input to CopyEventsToTargetShardGroup.
type Params struct {
	SourceEventReader    EventReader
	TargetEventPersister EventPersister
	SourceEventDeleter   EventDeleter
	OperationRouter      OperationRouter
	SourceWriterAdmin    WriterAdmin

	HashRangeStart int32
	HashRangeEnd   int32 // inclusive

	FilterGroupEventsByHashRange bool
	EventBatchSize               int

	SourceWriterOpsCompleteCheckRetryAttempts int
	SourceWriterOpsCompleteCheckRetryInterval time.Duration
}

func (p Params) validate() error {
	if p.EventBatchSize < 1 {
		return &domain.SplitPreconditionViolationError{Reason: "eventBatchSize must be >= 1"}
	}
	if p.SourceWriterOpsCompleteCheckRetryAttempts < 0 {
		return &domain.SplitPreconditionViolationError{Reason: "sourceWriterOpsCompleteCheckRetryAttempts must be >= 0"}
	}
	if p.SourceWriterOpsCompleteCheckRetryInterval < 0 {
		return &domain.SplitPreconditionViolationError{Reason: "sourceWriterOpsCompleteCheckRetryInterval must be >= 0"}
	}
	if p.HashRangeEnd < p.HashRangeStart {
		return &domain.SplitPreconditionViolationError{Reason: "hashRangeEnd must be >= hashRangeStart"}
	}
	return nil
}

// Splitter drives one CopyEventsToTargetShardGroup run and exposes its
// current State for observability. A Splitter value must not be reused
// across concurrent runs; construct one per invocation.
type Splitter struct {
	recorder metrics.Recorder
	state    State
}

// New returns a Splitter that reports metrics through recorder (nil means
// discard).
func New(recorder metrics.Recorder) *Splitter {
	if recorder == nil {
		recorder = metrics.Noop{}
	}
	return &Splitter{recorder: recorder, state: StateInit}
}

// State returns the splitter's current protocol phase.
func (s *Splitter) State() State { return s.state }

func (s *Splitter) transition(to State) { s.state = to }

// CopyEventsToTargetShardGroup runs the full split protocol: bulk copy,
// quiesce, drain, flush, tail copy, delete. Earlier phases are never rolled
// back on a later failure; repair is an operational procedure. This method
// never calls ResumeOperations: once PauseOperations has succeeded, the
// router is still paused when the method returns, after a completed split
// and after a failed one alike (see DESIGN.md).
func (s *Splitter) CopyEventsToTargetShardGroup(ctx context.Context, p Params) error {
	if err := p.validate(); err != nil {
		return err
	}

	s.transition(StateCopying)
	lastID, hadInitial, err := p.SourceEventReader.GetInitialEvent(ctx)
	if err != nil {
		s.transition(StateFailed)
		return &domain.SplitProtocolFailureError{
			Phase:   "InitialEvent",
			Message: "Failed to retrieve initial event id from the source shard group.",
			Cause:   err,
		}
	}

	if hadInitial {
		next, err := s.copyBatches(ctx, p, lastID)
		if err != nil {
			s.transition(StateFailed)
			return err
		}
		lastID = next.id
		hadInitial = next.ok
	}

	s.transition(StatePausing)
	if err := p.OperationRouter.PauseOperations(ctx); err != nil {
		s.transition(StateFailed)
		return &domain.SplitProtocolFailureError{
			Phase:   "Pause",
			Message: "Failed to hold/pause incoming operations against the source shard group.",
			Cause:   err,
		}
	}

	if err := s.drain(ctx, p); err != nil {
		s.transition(StateFailed)
		return err
	}

	s.transition(StateFlushing)
	flushSpan := s.recorder.BeginSpan("EventFlushTime")
	if err := p.SourceWriterAdmin.FlushEventBuffers(ctx); err != nil {
		flushSpan.Cancel()
		s.transition(StateFailed)
		return &domain.SplitProtocolFailureError{
			Phase:   "Flush",
			Message: "Failed to flush event buffers on the source shard group.",
			Cause:   err,
		}
	}
	flushSpan.End()

	// Tail copy: a race with writes that landed after the drain poll
	// observed zero but before the pause took full effect.
	nextAfterPause, hasNext, err := p.SourceEventReader.GetNextEventAfter(ctx, lastID)
	if err != nil {
		s.transition(StateFailed)
		return &domain.SplitProtocolFailureError{
			Phase:   "TailCopy",
			Message: "Failed to check for a tail batch after pausing the source shard group.",
			Cause:   err,
		}
	}
	if hasNext {
		s.transition(StateTailCopying)
		if _, err := s.copyBatches(ctx, p, nextAfterPause); err != nil {
			s.transition(StateFailed)
			return err
		}
	}

	s.transition(StateDeleting)
	deleteSpan := s.recorder.BeginSpan("EventDeleteTime")
	if err := p.SourceEventDeleter.DeleteEvents(ctx, p.HashRangeStart, p.HashRangeEnd, p.FilterGroupEventsByHashRange); err != nil {
		deleteSpan.Cancel()
		s.transition(StateFailed)
		return &domain.SplitProtocolFailureError{
			Phase:   "Delete",
			Message: "Failed to delete events from the source shard group.",
			Cause:   err,
		}
	}
	deleteSpan.End()

	s.transition(StateDone)
	return nil
}

type nextCursor struct {
	id uuid.UUID
	ok bool
}

// copyBatches reads and persists batches starting at startID until
// GetNextEventAfter returns no further id, returning the final cursor
// (needed by the caller to probe for a tail batch after the pause).
func (s *Splitter) copyBatches(ctx context.Context, p Params, startID uuid.UUID) (nextCursor, error) {
	cursor := startID
	for {
		readSpan := s.recorder.BeginSpan("EventBatchReadTime")
		batch, err := p.SourceEventReader.GetEvents(ctx, cursor, p.HashRangeStart, p.HashRangeEnd, p.FilterGroupEventsByHashRange, p.EventBatchSize)
		if err != nil {
			readSpan.Cancel()
			return nextCursor{}, &domain.SplitProtocolFailureError{
				Phase:   "BatchRead",
				Message: "Failed to read a batch of events from the source shard group.",
				Cause:   err,
			}
		}
		readSpan.End()

		if len(batch) > 0 {
			writeSpan := s.recorder.BeginSpan("EventBatchWriteTime")
			if err := p.TargetEventPersister.PersistEvents(ctx, batch); err != nil {
				writeSpan.Cancel()
				return nextCursor{}, &domain.SplitProtocolFailureError{
					Phase:   "BatchWrite",
					Message: "Failed to write a batch of events to the target shard group.",
					Cause:   err,
				}
			}
			writeSpan.End()
		}

		lastInBatch := cursor
		if len(batch) > 0 {
			lastInBatch = batch[len(batch)-1].EventID
		}

		next, ok, err := p.SourceEventReader.GetNextEventAfter(ctx, lastInBatch)
		if err != nil {
			return nextCursor{}, &domain.SplitProtocolFailureError{
				Phase:   "NextEvent",
				Message: "Failed to retrieve the next event id from the source shard group.",
				Cause:   err,
			}
		}
		if !ok {
			return nextCursor{id: lastInBatch, ok: false}, nil
		}
		cursor = next
	}
}

// drain polls GetEventProcessingCount until it observes zero or exhausts
// the configured retry budget, emitting a WriterNodeEventProcessingCount
// gauge on every poll and incrementing EventProcessingCountCheckRetried
// once per retried attempt (never on the attempt that first observes zero).
func (s *Splitter) drain(ctx context.Context, p Params) error {
	s.transition(StateDraining)

	var last int
	for attempt := 0; attempt <= p.SourceWriterOpsCompleteCheckRetryAttempts; attempt++ {
		count, err := p.SourceWriterAdmin.GetEventProcessingCount(ctx)
		if err != nil {
			return &domain.SplitProtocolFailureError{
				Phase:   "Drain",
				Message: "Failed to retrieve the source shard group event writer node's processing count.",
				Cause:   err,
			}
		}
		s.recorder.SetGauge("WriterNodeEventProcessingCount", float64(count))
		last = count
		if count == 0 {
			return nil
		}
		if attempt < p.SourceWriterOpsCompleteCheckRetryAttempts {
			s.recorder.IncCounter("EventProcessingCountCheckRetried")
			select {
			case <-time.After(p.SourceWriterOpsCompleteCheckRetryInterval):
			case <-ctx.Done():
				return &domain.SplitProtocolFailureError{Phase: "Drain", Message: "Drain wait canceled.", Cause: ctx.Err()}
			}
		}
	}

	return &domain.SplitProtocolFailureError{
		Phase: "Drain",
		Message: fmt.Sprintf(
			"Active operations in the source shard group event writer node remains at %d after %d retries with %dms interval.",
			last, p.SourceWriterOpsCompleteCheckRetryAttempts, p.SourceWriterOpsCompleteCheckRetryInterval.Milliseconds(),
		),
	}
}
