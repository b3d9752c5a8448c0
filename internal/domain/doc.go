// Package domain defines the core data model of the sharded access-management
// coordination layer: the enums, value types, and per-shard operation surface
// that the hash ring, shard client manager, coordinator, and splitter all
// build on.
//
// Nothing in this package owns a network connection or a goroutine; it is
// pure data plus the ShardClient interface that every transport (HTTP,
// in-process) must satisfy.
package domain
