// Package interfaces defines the shared types and collaborator contracts for
// the build-and-reconcile engine.
package interfaces

import (
	"time"
)

// ResourceType identifies one of the closed set of managed resource kinds.
type ResourceType string

// The closed set of resource types the engine manages.
const (
	TypeSpace          ResourceType = "space"
	TypeDataSet        ResourceType = "dataset"
	TypeGroup          ResourceType = "group"
	TypeContainer      ResourceType = "container"
	TypeView           ResourceType = "view"
	TypeTransformation ResourceType = "transformation"
	TypeNode           ResourceType = "node"
)

// ResourceKey uniquely identifies a resource within the target platform.
type ResourceKey struct {
	Type       ResourceType `json:"type"`
	ExternalID string       `json:"external_id"`
}

// MakeResourceKey builds a key from a resource type and external identifier.
func MakeResourceKey(resourceType ResourceType, externalID string) ResourceKey {
	return ResourceKey{Type: resourceType, ExternalID: externalID}
}

// String renders the key in "type.externalID" display form.
func (k ResourceKey) String() string {
	return string(k.Type) + "." + k.ExternalID
}

// ResourceDefinition is one declared target-system resource after variable
// resolution.
type ResourceDefinition struct {
	Type       ResourceType           `json:"type"`
	ExternalID string                 `json:"external_id"`
	Module     string                 `json:"module"`
	SourceFile string                 `json:"source_file"`
	// Fields holds the resolved field mapping exactly as declared.
	Fields map[string]interface{} `json:"fields"`
	// References are keys of other resources this definition depends on,
	// extracted by the per-type reference extractor.
	References []ResourceKey `json:"references,omitempty"`
	// DeclIndex is the position of this definition within its module, used
	// as the final ordering tie-break.
	DeclIndex int `json:"decl_index"`
}

// Key returns the resource key of this definition.
func (d *ResourceDefinition) Key() ResourceKey {
	return MakeResourceKey(d.Type, d.ExternalID)
}

// Module is a named unit of related resource definitions. It is constructed
// once per run and immutable after loading.
type Module struct {
	Name string `json:"name"`
	// DependsOn holds the explicitly declared dependency module names.
	DependsOn []string `json:"depends_on,omitempty"`
	// Resources are the module's definitions in declaration order.
	Resources []ResourceDefinition `json:"resources"`
	// DeclIndex is the position of the module in the source listing, used
	// to break ties between independent modules deterministically.
	DeclIndex int `json:"decl_index"`
}

// RemoteRecord is the last-known remote representation of one resource.
type RemoteRecord struct {
	Type       ResourceType           `json:"type"`
	ExternalID string                 `json:"external_id"`
	Fields     map[string]interface{} `json:"fields"`
}

// Key returns the resource key of this record.
func (r *RemoteRecord) Key() ResourceKey {
	return MakeResourceKey(r.Type, r.ExternalID)
}

// Snapshot is the remote state of all managed resources, fetched fresh per
// run and treated as read-only by the differ.
type Snapshot struct {
	Records   map[ResourceType]map[string]RemoteRecord `json:"records"`
	FetchedAt time.Time                                `json:"fetched_at"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Records: make(map[ResourceType]map[string]RemoteRecord), FetchedAt: time.Now()}
}

// Lookup returns the record for a key, if present.
func (s *Snapshot) Lookup(key ResourceKey) (RemoteRecord, bool) {
	byID, ok := s.Records[key.Type]
	if !ok {
		return RemoteRecord{}, false
	}
	rec, ok := byID[key.ExternalID]
	return rec, ok
}

// Add stores a record under its key. Used while assembling the snapshot,
// never after it is handed to the differ.
func (s *Snapshot) Add(rec RemoteRecord) {
	byID, ok := s.Records[rec.Type]
	if !ok {
		byID = make(map[string]RemoteRecord)
		s.Records[rec.Type] = byID
	}
	byID[rec.ExternalID] = rec
}
