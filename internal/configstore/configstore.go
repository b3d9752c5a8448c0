// Package configstore implements the Shard Configuration Persister: a
// durable write/read round-trip for a domain.ShardConfigurationSet. The
// serialization format is JSON with a stable schema; each assignment's
// client config is stored as a configKind tag plus that config's fields.
// domain.HTTPShardClientConfig (kind "http") is the only kind Write and Read
// handle: any other config type or configKind is rejected with an error.
package configstore

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dreamware/applicationaccess-coordinator/internal/domain"
)

// wireAssignment is the JSON-stable representation of a domain.ShardAssignment.
// ConfigKind records which ShardClientConfig variant Addr belongs to, so
// read() can reconstruct the right concrete type; today HTTPShardClientConfig
// is the only variant, but the tag keeps the format forward-compatible
// instead of silently guessing.
type wireAssignment struct {
	Element        string `json:"element"`
	Operation      string `json:"operation"`
	HashRangeStart int32  `json:"hashRangeStart"`
	Description    string `json:"description"`
	ConfigKind     string `json:"configKind"`
	Addr           string `json:"addr"`
}

type wireSet struct {
	Assignments []wireAssignment `json:"assignments"`
}

// FilePersister reads and writes a domain.ShardConfigurationSet to a JSON
// file at Path.
type FilePersister struct {
	Path string
}

// New returns a FilePersister backed by path.
func New(path string) *FilePersister {
	return &FilePersister{Path: path}
}

// Write serializes set to p.Path as JSON, truncating any existing content.
func (p *FilePersister) Write(set *domain.ShardConfigurationSet) error {
	wire := wireSet{}
	for _, a := range set.Items() {
		httpCfg, ok := a.Config.(domain.HTTPShardClientConfig)
		if !ok {
			return fmt.Errorf("configstore: unsupported config type %T for %s", a.Config, a.Description)
		}
		wire.Assignments = append(wire.Assignments, wireAssignment{
			Element:        a.Element.String(),
			Operation:      a.Operation.String(),
			HashRangeStart: int32(a.HashRangeStart),
			Description:    string(a.Description),
			ConfigKind:     "http",
			Addr:           httpCfg.Addr,
		})
	}

	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("configstore: marshal: %w", err)
	}
	if err := os.WriteFile(p.Path, data, 0o644); err != nil {
		return fmt.Errorf("configstore: write %s: %w", p.Path, err)
	}
	return nil
}

// Read deserializes a domain.ShardConfigurationSet from p.Path.
func (p *FilePersister) Read() (*domain.ShardConfigurationSet, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("configstore: read %s: %w", p.Path, err)
	}

	var wire wireSet
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("configstore: unmarshal %s: %w", p.Path, err)
	}

	assignments := make([]domain.ShardAssignment, 0, len(wire.Assignments))
	for _, w := range wire.Assignments {
		element, err := parseElement(w.Element)
		if err != nil {
			return nil, err
		}
		operation, err := parseOperation(w.Operation)
		if err != nil {
			return nil, err
		}
		if w.ConfigKind != "http" {
			return nil, fmt.Errorf("configstore: unknown configKind %q for %s", w.ConfigKind, w.Description)
		}

		assignments = append(assignments, domain.ShardAssignment{
			Element:        element,
			Operation:      operation,
			HashRangeStart: domain.HashRangeStart(w.HashRangeStart),
			Config:         domain.HTTPShardClientConfig{Addr: w.Addr},
			Description:    domain.ShardDescription(w.Description),
		})
	}

	return domain.NewShardConfigurationSet(assignments...)
}

func parseElement(s string) (domain.DataElement, error) {
	switch s {
	case domain.User.String():
		return domain.User, nil
	case domain.Group.String():
		return domain.Group, nil
	case domain.GroupToGroupMapping.String():
		return domain.GroupToGroupMapping, nil
	default:
		return 0, fmt.Errorf("configstore: unknown element %q", s)
	}
}

func parseOperation(s string) (domain.Operation, error) {
	switch s {
	case domain.Query.String():
		return domain.Query, nil
	case domain.Event.String():
		return domain.Event, nil
	default:
		return 0, fmt.Errorf("configstore: unknown operation %q", s)
	}
}
