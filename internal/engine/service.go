// Package engine orchestrates a deployment run: variable resolution,
// loading, module graph construction, state diffing and plan execution.
package engine

import (
	"context"
	"fmt"

	"github.com/confsync/confsync/internal/config"
	"github.com/confsync/confsync/internal/dependency"
	"github.com/confsync/confsync/internal/differ"
	"github.com/confsync/confsync/internal/executor"
	"github.com/confsync/confsync/internal/interfaces"
	"github.com/confsync/confsync/internal/loader"
	"github.com/confsync/confsync/internal/logging"
	"github.com/confsync/confsync/internal/variables"
)

// Service runs the build-and-reconcile pipeline. One service handles one
// target platform session; a run is single-flight by construction.
type Service struct {
	source   interfaces.ModuleSource
	clients  interfaces.RemoteClientSet
	cfg      *config.Config
	diffOpts *differ.Options
	logger   *logging.Logger
}

// Option is a functional option for configuring a Service
type Option func(*Service)

// WithConfig overrides the environment-derived configuration.
func WithConfig(cfg *config.Config) Option {
	return func(s *Service) {
		if cfg != nil {
			s.cfg = cfg
		}
	}
}

// WithDiffOptions overrides the static prune and precedence tables.
func WithDiffOptions(opts *differ.Options) Option {
	return func(s *Service) {
		s.diffOpts = opts
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New creates a deployment service for the given source and remote session.
func New(source interfaces.ModuleSource, clients interfaces.RemoteClientSet, opts ...Option) *Service {
	service := &Service{
		source:  source,
		clients: clients,
		cfg:     config.LoadConfig(),
		logger:  logging.NewLogger("engine"),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// BuildResult is the desired state for one run: the loaded modules and
// their validated dependency graph.
type BuildResult struct {
	Modules []interfaces.Module
	Graph   *dependency.Graph
}

// Build resolves variables, loads every module and constructs the
// dependency graph. Fatal configuration errors are aggregated into a
// single BuildError; nothing is built partially.
func (s *Service) Build(ctx context.Context, env string) (*BuildResult, error) {
	globalVars, err := s.source.GlobalVariables(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load global variables: %w", err)
	}
	envVars, err := s.source.EnvironmentVariables(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}
	entries, err := s.source.ListModules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}

	var buildErrs []error
	modules := make([]interfaces.Module, 0, len(entries))

	for declIndex, entry := range entries {
		scopes := variables.NewScopeStack(
			variables.Scope{Name: "module:" + entry.Name, Values: entry.Variables},
			variables.Scope{Name: "env:" + env, Values: envVars},
			variables.Scope{Name: "global", Values: globalVars},
		)

		resolved := make([]loader.ResolvedFile, 0, len(entry.Files))
		for _, file := range entry.Files {
			text, err := variables.Resolve(file.Raw, scopes, entry.Name+"/"+file.RelPath)
			if err != nil {
				buildErrs = append(buildErrs, err)
				continue
			}
			resolved = append(resolved, loader.ResolvedFile{
				RelPath: file.RelPath,
				Text:    text,
				Type:    file.Type,
			})
		}

		mod, loadErrs := loader.LoadModule(entry.Name, declIndex, entry.DependsOn, resolved)
		buildErrs = append(buildErrs, loadErrs...)
		modules = append(modules, mod)
	}

	if len(buildErrs) > 0 {
		return nil, &BuildError{Errs: buildErrs}
	}

	graph, err := dependency.Build(modules)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Built %d modules in deploy order %v", len(modules), graph.Order())
	return &BuildResult{Modules: modules, Graph: graph}, nil
}

// Plan fetches a fresh remote snapshot and diffs the desired state against
// it, returning the ordered plan.
func (s *Service) Plan(ctx context.Context, build *BuildResult) (*interfaces.Plan, error) {
	snapshot, err := differ.FetchSnapshot(ctx, s.clients)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch remote snapshot: %w", err)
	}

	plan, err := differ.BuildPlan(build.Graph, snapshot, s.diffOpts)
	if err != nil {
		return nil, err
	}

	s.logger.Infof("Planned %d change items (%d orphans reported)", len(plan.Items), len(plan.Orphans))
	return plan, nil
}

// Apply executes the plan and returns the outcome report. With dryRun set
// no mutating call is issued; the report carries projected outcomes.
func (s *Service) Apply(ctx context.Context, build *BuildResult, plan *interfaces.Plan, dryRun bool) *interfaces.Report {
	exec := executor.New(s.clients,
		executor.WithConcurrency(s.cfg.ApplyConcurrency),
		executor.WithCallTimeout(s.cfg.RemoteCallTimeout),
		executor.WithRetryConfig(&executor.RetryConfig{
			MaxAttempts:   s.cfg.RetryMaxAttempts,
			InitialDelay:  s.cfg.RetryInitialDelay,
			MaxDelay:      s.cfg.RetryMaxDelay,
			BackoffFactor: 2.0,
		}),
		executor.WithDryRun(dryRun),
	)
	return exec.Execute(ctx, plan, build.Graph)
}

// Run performs a full deployment: build, plan, apply.
func (s *Service) Run(ctx context.Context, env string, dryRun bool) (*interfaces.Report, error) {
	build, err := s.Build(ctx, env)
	if err != nil {
		return nil, err
	}
	plan, err := s.Plan(ctx, build)
	if err != nil {
		return nil, err
	}
	return s.Apply(ctx, build, plan, dryRun), nil
}
