// Package loader parses resolved template files into typed resource
// definitions grouped by module.
package loader

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/resources"
)

// SchemaViolationError reports a structurally invalid resource file:
// unparsable YAML, a missing required field, an empty external identifier,
// or a field of the wrong shape.
type SchemaViolationError struct {
	Module string
	File   string
	Type   interfaces.ResourceType
	Err    error
}

// Error implements the error interface.
func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation in %s/%s (%s): %v", e.Module, e.File, e.Type, e.Err)
}

// Unwrap exposes the underlying cause.
func (e *SchemaViolationError) Unwrap() error { return e.Err }

// DuplicateResourceError reports two definitions of the same (type, external
// identifier) within one module.
type DuplicateResourceError struct {
	Module string
	File   string
	Key    interfaces.ResourceKey
}

// Error implements the error interface.
func (e *DuplicateResourceError) Error() string {
	return fmt.Sprintf("duplicate resource %s in module %s (%s)", e.Key, e.Module, e.File)
}

// ResolvedFile is one template file after variable resolution.
type ResolvedFile struct {
	RelPath string
	Text    string
	Type    interfaces.ResourceType
}

// LoadModule parses a module's resolved files into a Module. Each file maps
// to zero or more resources of its declared type. Errors are aggregated,
// not fail-fast, so every problem in a run is reported together; the
// returned module is only usable when the error slice is empty.
func LoadModule(name string, declIndex int, dependsOn []string, files []ResolvedFile) (interfaces.Module, []error) {
	mod := interfaces.Module{
		Name:      name,
		DependsOn: dependsOn,
		DeclIndex: declIndex,
	}

	var errs []error
	seen := make(map[interfaces.ResourceKey]struct{})

	for _, file := range files {
		spec, ok := resources.Lookup(file.Type)
		if !ok {
			errs = append(errs, &SchemaViolationError{
				Module: name, File: file.RelPath, Type: file.Type,
				Err: fmt.Errorf("unknown resource type"),
			})
			continue
		}

		rawDefs, err := parseFile(file.Text)
		if err != nil {
			errs = append(errs, &SchemaViolationError{
				Module: name, File: file.RelPath, Type: file.Type, Err: err,
			})
			continue
		}

		for _, fields := range rawDefs {
			externalID, refs, err := spec.Extract(fields)
			if err != nil {
				errs = append(errs, &SchemaViolationError{
					Module: name, File: file.RelPath, Type: file.Type, Err: err,
				})
				continue
			}

			key := interfaces.MakeResourceKey(file.Type, externalID)
			if _, dup := seen[key]; dup {
				errs = append(errs, &DuplicateResourceError{
					Module: name, File: file.RelPath, Key: key,
				})
				continue
			}
			seen[key] = struct{}{}

			mod.Resources = append(mod.Resources, interfaces.ResourceDefinition{
				Type:       file.Type,
				ExternalID: externalID,
				Module:     name,
				SourceFile: file.RelPath,
				Fields:     fields,
				References: refs,
				DeclIndex:  len(mod.Resources),
			})
		}
	}

	return mod, errs
}

// parseFile decodes a resolved YAML document into one or more raw field
// mappings. A file holds either a single mapping or a sequence of mappings.
func parseFile(text string) ([]map[string]interface{}, error) {
	var doc interface{}
	if err := yaml.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}

	switch v := doc.(type) {
	case nil:
		return nil, nil
	case map[string]interface{}:
		return []map[string]interface{}{v}, nil
	case []interface{}:
		defs := make([]map[string]interface{}, 0, len(v))
		for i, item := range v {
			fields, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("entry %d is not a mapping", i)
			}
			defs = append(defs, fields)
		}
		return defs, nil
	default:
		return nil, fmt.Errorf("document is neither a mapping nor a sequence of mappings")
	}
}
