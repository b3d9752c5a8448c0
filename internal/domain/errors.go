package domain

import "fmt"

// ConfigInvalidError reports a malformed or duplicate ShardConfigurationSet.
// Fatal to construction or to a refresh attempt.
type ConfigInvalidError struct {
	Reason string
}

func (e *ConfigInvalidError) Error() string {
	return fmt.Sprintf("invalid shard configuration: %s", e.Reason)
}

// ConfigurationRefreshFailureError wraps a Client Factory failure
// encountered while building clients for a new configuration. The live
// view is left intact when this occurs.
type ConfigurationRefreshFailureError struct {
	Cause error
}

func (e *ConfigurationRefreshFailureError) Error() string {
	return fmt.Sprintf("failed to refresh shard configuration: %v", e.Cause)
}

func (e *ConfigurationRefreshFailureError) Unwrap() error { return e.Cause }

// NoShardForElementOperationError reports that the routing table has no
// ring for the requested (element, operation) pair. Always a configuration
// or programming bug, fatal to the request.
type NoShardForElementOperationError struct {
	Element   DataElement
	Operation Operation
}

func (e *NoShardForElementOperationError) Error() string {
	return fmt.Sprintf("no shards configured for element %s and operation %s", e.Element, e.Operation)
}

// ShardCallFailureError wraps a failed outbound call to a specific shard,
// recording the shard description and the logical operation that failed.
type ShardCallFailureError struct {
	Description ShardDescription
	Operation   string
	Cause       error
}

func (e *ShardCallFailureError) Error() string {
	return fmt.Sprintf("%s shard with configuration '%s'.", e.Operation, e.Description)
}

func (e *ShardCallFailureError) Unwrap() error { return e.Cause }

// NewShardCallFailure builds a ShardCallFailureError whose message follows
// the stable "<prefix> shard with configuration '<description>'." form
// required by the coordinator's error-translation contract.
func NewShardCallFailure(prefix string, description ShardDescription, cause error) *ShardCallFailureError {
	return &ShardCallFailureError{Description: description, Operation: prefix, Cause: cause}
}

// SplitPreconditionViolationError reports an out-of-range Splitter input
// parameter (batch size < 1, negative retry counts, ...). Raised only
// before the split protocol begins, never mid-protocol.
type SplitPreconditionViolationError struct {
	Reason string
}

func (e *SplitPreconditionViolationError) Error() string {
	return fmt.Sprintf("invalid split parameters: %s", e.Reason)
}

// SplitProtocolFailureError reports a named-phase failure during the split
// protocol, wrapping the underlying cause with a stable prefix message.
type SplitProtocolFailureError struct {
	Phase   string
	Message string
	Cause   error
}

func (e *SplitProtocolFailureError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *SplitProtocolFailureError) Unwrap() error { return e.Cause }

// PartialFanOutFailureError is the first failure observed during a
// fan-out-all mutation. The coordinator does not attempt compensation; the
// partially-applied state is a known, documented consequence.
type PartialFanOutFailureError struct {
	Description ShardDescription
	Cause       error
}

func (e *PartialFanOutFailureError) Error() string {
	return fmt.Sprintf("partial fan-out failure against shard with configuration '%s': %v", e.Description, e.Cause)
}

func (e *PartialFanOutFailureError) Unwrap() error { return e.Cause }
