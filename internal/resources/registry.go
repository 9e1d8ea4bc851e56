// Package resources holds the closed registry of managed resource types:
// their deploy precedence, prune behavior, server-managed fields, and the
// per-type extractors that pull external identifiers and cross-references
// out of raw field mappings.
package resources

import (
	"sort"

	"github.com/confsync/confsync/internal/interfaces"
)

// TypeSpec describes one managed resource type.
type TypeSpec struct {
	Type interfaces.ResourceType
	// Folder is the module sub-directory the filesystem source maps to
	// this type.
	Folder string
	// IDField names the field holding the external identifier.
	IDField string
	// Rank is the type-level deploy precedence. Lower ranks deploy first;
	// the table encodes the platform's foreign-key constraints (spaces
	// before containers and views, datasets before transformations, views
	// before nodes).
	Rank int
	// PruneManaged marks types whose remote resources are deleted when
	// absent from the desired set. Other types are reported as orphaned
	// and left untouched.
	PruneManaged bool
	// ServerManaged lists fields populated by the platform that must be
	// ignored when comparing desired and remote state.
	ServerManaged []string
	// Extract decodes the raw field mapping, returning the external
	// identifier and the declared cross-references. Structural problems
	// surface as an error naming the offending field.
	Extract func(fields map[string]interface{}) (string, []interfaces.ResourceKey, error)
}

var commonServerManaged = []string{"id", "createdTime", "lastUpdatedTime"}

//nolint:gochecknoglobals // Static platform precedence table
var registry = []*TypeSpec{
	{
		Type:          interfaces.TypeSpace,
		Folder:        "spaces",
		IDField:       "space",
		Rank:          10,
		PruneManaged:  true,
		ServerManaged: append([]string{"isGlobal"}, commonServerManaged...),
		Extract:       extractSpace,
	},
	{
		Type:          interfaces.TypeDataSet,
		Folder:        "data_sets",
		IDField:       "externalId",
		Rank:          20,
		PruneManaged:  false, // the platform does not support dataset deletion
		ServerManaged: commonServerManaged,
		Extract:       extractDataSet,
	},
	{
		Type:          interfaces.TypeGroup,
		Folder:        "auth",
		IDField:       "name",
		Rank:          30,
		PruneManaged:  false, // deleting groups can lock the deployer out
		ServerManaged: append([]string{"isDeleted", "deletedTime"}, commonServerManaged...),
		Extract:       extractGroup,
	},
	{
		Type:          interfaces.TypeContainer,
		Folder:        "containers",
		IDField:       "externalId",
		Rank:          40,
		PruneManaged:  true,
		ServerManaged: commonServerManaged,
		Extract:       extractContainer,
	},
	{
		Type:          interfaces.TypeView,
		Folder:        "views",
		IDField:       "externalId",
		Rank:          50,
		PruneManaged:  true,
		ServerManaged: commonServerManaged,
		Extract:       extractView,
	},
	{
		Type:          interfaces.TypeTransformation,
		Folder:        "transformations",
		IDField:       "externalId",
		Rank:          60,
		PruneManaged:  true,
		ServerManaged: append([]string{"lastFinishedJob", "runningJob", "ownerIsCurrentUser"}, commonServerManaged...),
		Extract:       extractTransformation,
	},
	{
		Type:          interfaces.TypeNode,
		Folder:        "nodes",
		IDField:       "externalId",
		Rank:          70,
		PruneManaged:  true,
		ServerManaged: commonServerManaged,
		Extract:       extractNode,
	},
}

var (
	byType   map[interfaces.ResourceType]*TypeSpec
	byFolder map[string]*TypeSpec
)

func init() {
	byType = make(map[interfaces.ResourceType]*TypeSpec, len(registry))
	byFolder = make(map[string]*TypeSpec, len(registry))
	for _, spec := range registry {
		byType[spec.Type] = spec
		byFolder[spec.Folder] = spec
	}
}

// Lookup returns the spec for a resource type.
func Lookup(resourceType interfaces.ResourceType) (*TypeSpec, bool) {
	spec, ok := byType[resourceType]
	return spec, ok
}

// ByFolder returns the spec for a module sub-directory name.
func ByFolder(folder string) (*TypeSpec, bool) {
	spec, ok := byFolder[folder]
	return spec, ok
}

// All returns every registered spec in deploy precedence order.
func All() []*TypeSpec {
	specs := make([]*TypeSpec, len(registry))
	copy(specs, registry)
	sort.Slice(specs, func(i, j int) bool { return specs[i].Rank < specs[j].Rank })
	return specs
}

// Rank returns the deploy precedence for a type. Unknown types sort last.
func Rank(resourceType interfaces.ResourceType) int {
	if spec, ok := byType[resourceType]; ok {
		return spec.Rank
	}
	return 1 << 30
}

// IsPruneManaged reports whether remote resources of the type are deleted
// when absent from the desired set.
func IsPruneManaged(resourceType interfaces.ResourceType) bool {
	if spec, ok := byType[resourceType]; ok {
		return spec.PruneManaged
	}
	return false
}

// ServerManagedFields returns the fields to ignore when diffing the type.
func ServerManagedFields(resourceType interfaces.ResourceType) []string {
	if spec, ok := byType[resourceType]; ok {
		return spec.ServerManaged
	}
	return commonServerManaged
}
