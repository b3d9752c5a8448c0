package coordinator

import (
	"context"
	"sync"

	"golang.org/x/exp/slices"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
	"github.com/dreamware/applicationaccess-coordinator/internal/shardmanager"
)

// fanOutAll issues fn against every handle concurrently and succeeds only
// if every call succeeds. On the first failure it cancels the context
// passed to every still-running call (best-effort early exit for the
// remaining shards) and, once all goroutines have returned, surfaces the
// first observed failure wrapped as domain.PartialFanOutFailureError.
func fanOutAll(ctx context.Context, handles []shardmanager.ClientHandle, fn func(context.Context, domain.ShardClient) error) error {
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var firstDesc domain.ShardDescription

	wg.Add(len(handles))
	for _, h := range handles {
		h := h
		go func() {
			defer wg.Done()
			if err := fn(fctx, h.Client); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
					firstDesc = h.Description
					cancel()
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return &domain.PartialFanOutFailureError{Description: firstDesc, Cause: firstErr}
	}
	return nil
}

// fanOutAnyBool issues fn against every handle concurrently, awaits all of
// them (the documented default: the reference behavior awaits every call
// even after the answer is already determined), ORs the boolean results
// together, and fails if any call failed. failurePrefix follows the
// Coordinator's stable per-operation error message convention.
func fanOutAnyBool(ctx context.Context, handles []shardmanager.ClientHandle, failurePrefix string, fn func(context.Context, domain.ShardClient) (bool, error)) (bool, error) {
	type outcome struct {
		ok   bool
		err  error
		desc domain.ShardDescription
	}
	results := make([]outcome, len(handles))

	var wg sync.WaitGroup
	wg.Add(len(handles))
	for i, h := range handles {
		i, h := i, h
		go func() {
			defer wg.Done()
			ok, err := fn(ctx, h.Client)
			results[i] = outcome{ok: ok, err: err, desc: h.Description}
		}()
	}
	wg.Wait()

	var any bool
	for _, r := range results {
		if r.err != nil {
			return false, domain.NewShardCallFailure(failurePrefix, r.desc, r.err)
		}
		any = any || r.ok
	}
	return any, nil
}

// fanOutUnionStrings issues fn against every handle concurrently, awaits
// all of them, and returns the deduplicated union of every returned slice.
// It fails on the first observed error, same as fanOutAnyBool.
func fanOutUnionStrings(ctx context.Context, handles []shardmanager.ClientHandle, failurePrefix string, fn func(context.Context, domain.ShardClient) ([]string, error)) ([]string, error) {
	type outcome struct {
		values []string
		err    error
		desc   domain.ShardDescription
	}
	results := make([]outcome, len(handles))

	var wg sync.WaitGroup
	wg.Add(len(handles))
	for i, h := range handles {
		i, h := i, h
		go func() {
			defer wg.Done()
			values, err := fn(ctx, h.Client)
			results[i] = outcome{values: values, err: err, desc: h.Description}
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	var out []string
	for _, r := range results {
		if r.err != nil {
			return nil, domain.NewShardCallFailure(failurePrefix, r.desc, r.err)
		}
		for _, v := range r.values {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// fanOutPerGroupUnion resolves one Group/Query handle per entry in groups
// concurrently, invokes fn against each with its own group name, and
// returns the deduplicated union of every result — the building block
// behind the application-component and entity composite reads, which
// (unlike GetUsers/GetGroups/GetEntityTypes) fan out to a distinct handle
// per item rather than the same handle set for every call.
func fanOutPerGroupUnion[T comparable](ctx context.Context, manager *shardmanager.Manager, groups []string, failurePrefix string, fn func(context.Context, domain.ShardClient, string) ([]T, error)) ([]T, error) {
	type outcome struct {
		values []T
		err    error
		desc   domain.ShardDescription
	}
	results := make([]outcome, len(groups))

	var wg sync.WaitGroup
	wg.Add(len(groups))
	for i, g := range groups {
		i, g := i, g
		go func() {
			defer wg.Done()
			h, err := manager.GetClient(domain.Group, domain.Query, g)
			if err != nil {
				results[i] = outcome{err: err}
				return
			}
			values, err := fn(ctx, h.Client, g)
			results[i] = outcome{values: values, err: err, desc: h.Description}
		}()
	}
	wg.Wait()

	seen := make(map[T]bool)
	var out []T
	for _, r := range results {
		if r.err != nil {
			if r.desc == "" {
				return nil, r.err
			}
			return nil, domain.NewShardCallFailure(failurePrefix, r.desc, r.err)
		}
		for _, v := range r.values {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out, nil
}

// mergeHandles concatenates handle slices and drops duplicates by
// description, used to build the unions the recipe table calls for (e.g.
// User/Query ∪ Group/Query ∪ GroupToGroupMapping/Query for getGroups).
func mergeHandles(groups ...[]shardmanager.ClientHandle) []shardmanager.ClientHandle {
	var out []shardmanager.ClientHandle
	for _, g := range groups {
		for _, h := range g {
			if !slices.ContainsFunc(out, func(o shardmanager.ClientHandle) bool { return o.Description == h.Description }) {
				out = append(out, h)
			}
		}
	}
	return out
}
