// Package source implements the template source provider on top of a
// project directory tree:
//
//	<root>/config.yaml                  global defaults + environments
//	<root>/modules/<name>/module.yaml   manifest: dependsOn, local variables
//	<root>/modules/<name>/<folder>/*.yaml  resource templates, one resource
//	                                       type per folder
package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/resources"
)

const (
	projectConfigFile = "config.yaml"
	moduleManifest    = "module.yaml"
	modulesDir        = "modules"
)

type projectConfig struct {
	Name         string            `yaml:"name"`
	Variables    map[string]string `yaml:"variables"`
	Environments map[string]struct {
		Variables map[string]string `yaml:"variables"`
	} `yaml:"environments"`
}

type manifest struct {
	Name      string            `yaml:"name"`
	DependsOn []string          `yaml:"dependsOn"`
	Variables map[string]string `yaml:"variables"`
}

// UnknownEnvironmentError reports a deployment environment missing from the
// project configuration.
type UnknownEnvironmentError struct {
	Environment string
}

// Error implements the error interface.
func (e *UnknownEnvironmentError) Error() string {
	return fmt.Sprintf("unknown environment %q in project configuration", e.Environment)
}

// FSSource reads modules and variables from a project directory.
type FSSource struct {
	root   string
	config *projectConfig
}

// NewFSSource opens the project rooted at dir and parses its
// configuration.
func NewFSSource(dir string) (*FSSource, error) {
	data, err := os.ReadFile(filepath.Join(dir, projectConfigFile)) // #nosec G304 - project dir is a CLI argument
	if err != nil {
		return nil, fmt.Errorf("failed to read project configuration: %w", err)
	}
	var cfg projectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid project configuration: %w", err)
	}
	return &FSSource{root: dir, config: &cfg}, nil
}

// GlobalVariables implements interfaces.ModuleSource.
func (s *FSSource) GlobalVariables(_ context.Context) (map[string]string, error) {
	return s.config.Variables, nil
}

// EnvironmentVariables implements interfaces.ModuleSource.
func (s *FSSource) EnvironmentVariables(_ context.Context, env string) (map[string]string, error) {
	envCfg, ok := s.config.Environments[env]
	if !ok {
		return nil, &UnknownEnvironmentError{Environment: env}
	}
	return envCfg.Variables, nil
}

// ListModules implements interfaces.ModuleSource. Modules are listed in
// lexical directory order, which fixes the declaration order used for
// deterministic tie-breaking downstream.
func (s *FSSource) ListModules(_ context.Context) ([]interfaces.ModuleSourceEntry, error) {
	dir := filepath.Join(s.root, modulesDir)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read modules directory: %w", err)
	}

	var entries []interfaces.ModuleSourceEntry
	for _, dirEntry := range dirEntries {
		if !dirEntry.IsDir() {
			continue
		}
		entry, err := s.readModule(filepath.Join(dir, dirEntry.Name()), dirEntry.Name())
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// readModule loads one module directory: its manifest plus every template
// file under the resource-type folders, in precedence-folder then lexical
// file order.
func (s *FSSource) readModule(moduleDir, defaultName string) (interfaces.ModuleSourceEntry, error) {
	entry := interfaces.ModuleSourceEntry{Name: defaultName}

	manifestPath := filepath.Join(moduleDir, moduleManifest)
	if data, err := os.ReadFile(manifestPath); err == nil { // #nosec G304 - path derives from project dir
		var m manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return entry, fmt.Errorf("invalid manifest for module %q: %w", defaultName, err)
		}
		if m.Name != "" {
			entry.Name = m.Name
		}
		entry.DependsOn = m.DependsOn
		entry.Variables = m.Variables
	} else if !os.IsNotExist(err) {
		return entry, fmt.Errorf("failed to read manifest for module %q: %w", defaultName, err)
	}

	for _, spec := range resources.All() {
		folder := filepath.Join(moduleDir, spec.Folder)
		files, err := listTemplateFiles(folder)
		if err != nil {
			return entry, fmt.Errorf("failed to read module %q folder %s: %w", entry.Name, spec.Folder, err)
		}
		for _, file := range files {
			raw, err := os.ReadFile(file) // #nosec G304 - path derives from project dir
			if err != nil {
				return entry, fmt.Errorf("failed to read template %s: %w", file, err)
			}
			rel, _ := filepath.Rel(moduleDir, file)
			entry.Files = append(entry.Files, interfaces.SourceFile{
				RelPath: filepath.ToSlash(rel),
				Raw:     string(raw),
				Type:    spec.Type,
			})
		}
	}
	return entry, nil
}

func listTemplateFiles(folder string) ([]string, error) {
	dirEntries, err := os.ReadDir(folder)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var files []string
	for _, dirEntry := range dirEntries {
		if dirEntry.IsDir() {
			continue
		}
		name := dirEntry.Name()
		if ext := strings.ToLower(filepath.Ext(name)); ext != ".yaml" && ext != ".yml" {
			continue
		}
		files = append(files, filepath.Join(folder, name))
	}
	sort.Strings(files)
	return files, nil
}
