package interfaces

import "context"

// SourceFile is one raw template file belonging to a module source.
type SourceFile struct {
	// RelPath is the file path relative to the module root, used in error
	// reporting.
	RelPath string
	// Raw is the unresolved template text, possibly containing {{token}}
	// placeholders.
	Raw string
	// Type is the resource type the file declares, inferred by the
	// provider from the file's location.
	Type ResourceType
}

// ModuleSourceEntry is the raw form of one module as supplied by the
// template source provider, before variable resolution and loading.
type ModuleSourceEntry struct {
	Name      string
	DependsOn []string
	// Variables are the module-local values, the most specific layer of
	// the variable scope stack.
	Variables map[string]string
	// Files are the module's template files in provider order.
	Files []SourceFile
}

// ModuleSource supplies the tree of template files and per-environment
// variable sets. Implemented outside the core engine; the filesystem
// implementation lives in internal/source.
type ModuleSource interface {
	// ListModules returns the module sources in declaration order.
	ListModules(ctx context.Context) ([]ModuleSourceEntry, error)
	// GlobalVariables returns the global default variable values.
	GlobalVariables(ctx context.Context) (map[string]string, error)
	// EnvironmentVariables returns the override values for the named
	// deployment environment.
	EnvironmentVariables(ctx context.Context, env string) (map[string]string, error)
}
