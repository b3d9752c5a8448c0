// Package coordinator implements the Distributed Operation Coordinator: the
// public operation surface of the sharded access-management service.
//
// Every exported method on Coordinator corresponds to one routing recipe:
//
//	point          one shard, chosen by hashing an identifier
//	fan-out-all    every shard for an (element, operation) pair; succeeds
//	               only if every call succeeds
//	fan-out-any    every shard for an (element, operation) pair; the
//	               boolean results are OR'd together, failing if any call
//	               fails
//	composite      a point or fan-out call whose result seeds a further
//	               fan-out (e.g. resolving a user's group closure before
//	               checking access across every Group shard)
//
// Coordinator never owns shard clients: every call borrows a snapshot
// handle from a *shardmanager.Manager for the duration of the call and
// never caches it across a configuration refresh.
//
//	Client → Coordinator → Shard Client Manager → ShardClient(s)
//	              │
//	              ├─ point:     manager.GetClient(element, op, id)
//	              └─ fan-out:   manager.GetAllClients(element, op)
//
// Outbound failures of point and fan-out-any calls, and of the entity-type
// and entity fan-out mutations, are translated into a
// domain.ShardCallFailureError carrying the shard's description and a
// stable, operation-specific message prefix. The other fan-out-all
// mutations (RemoveUser, and the GroupToGroupMapping half of AddGroup and
// RemoveGroup) report the first failing shard as a
// domain.PartialFanOutFailureError, which also carries the shard's
// description. Either way callers can match on error kind with errors.As
// regardless of which shard produced it.
package coordinator
