// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"

	"github.com/modflow/modflow/internal/config"
	"github.com/modflow/modflow/internal/issue"
	"github.com/modflow/modflow/internal/launcher"
	"github.com/modflow/modflow/internal/lifecycle"
	"github.com/modflow/modflow/internal/modules"
	"github.com/modflow/modflow/internal/pipeline"
)

var errLauncherUnavailable = errors.New("launcher not available on this host")

type (
	// App wires CLI services and shared dependencies. Every command handler
	// receives the App and reaches configuration, launchers and output
	// through it.
	App struct {
		Config    config.Provider
		Launchers *launcher.Registry
		Catalog   *modules.Catalog
		Clock     lifecycle.Clock
		stdout    io.Writer
		stderr    io.Writer

		configPath string
		verbose    bool
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    config.Provider
		Launchers *launcher.Registry
		Catalog   *modules.Catalog
		Clock     lifecycle.Clock
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// session is one loaded configuration and the registry built from it.
	session struct {
		cfg      *config.Config
		path     string
		registry *pipeline.Registry
	}

	wallClock struct{}
)

func (wallClock) Now() time.Time { return time.Now() }

// NewApp creates an App, filling nil dependencies with production defaults.
func NewApp(deps Dependencies) *App {
	app := &App{
		Config:    deps.Config,
		Launchers: deps.Launchers,
		Catalog:   deps.Catalog,
		Clock:     deps.Clock,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}
	if app.Config == nil {
		app.Config = config.NewProvider()
	}
	if app.Launchers == nil {
		app.Launchers = launcher.NewRegistry()
	}
	if app.Catalog == nil {
		app.Catalog = modules.NewCatalog()
	}
	if app.Clock == nil {
		app.Clock = wallClock{}
	}
	if app.stdout == nil {
		app.stdout = os.Stdout
	}
	if app.stderr == nil {
		app.stderr = os.Stderr
	}
	return app
}

// logger returns the progress logger written to stderr.
func (a *App) logger() *log.Logger {
	level := log.InfoLevel
	if a.verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Prefix:          "modflow",
		ReportTimestamp: true,
		Level:           level,
	})
}

func (a *App) loadOptions() config.LoadOptions {
	return config.LoadOptions{ConfigFilePath: a.configPath}
}

// load reads and validates the configuration only.
func (a *App) load(ctx context.Context) (*config.Config, string, error) {
	opts := a.loadOptions()
	cfg, err := a.Config.Load(ctx, opts)
	if err != nil {
		return nil, opts.Path(), err
	}
	return cfg, opts.Path(), nil
}

// open loads the configuration and builds the module registry. Nothing on
// disk is created or modified.
func (a *App) open(ctx context.Context) (*session, error) {
	cfg, path, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	mods, err := a.Catalog.Build(cfg)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("build modules").
			WithResource(path).
			WithSuggestion(fmt.Sprintf("Known module types: %v", a.Catalog.Types())).
			Wrap(err).
			BuildError()
	}
	reg, err := pipeline.NewRegistry(cfg.Pipeline.OutputRoot, mods)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("check module dependencies").
			WithResource(path).
			WithSuggestion("Reorder 'modules' so every prerequisite runs before the modules that need it").
			Wrap(err).
			BuildError()
	}
	return &session{cfg: cfg, path: path, registry: reg}, nil
}

// module resolves a module id given on the command line.
func (s *session) module(id string) (*pipeline.Module, error) {
	if m := s.registry.ByID(pipeline.ModuleID(id)); m != nil {
		return m, nil
	}
	ids := make([]string, 0, s.registry.Len())
	for _, m := range s.registry.Modules() {
		ids = append(ids, string(m.ID))
	}
	return nil, issue.NewErrorContext().
		WithOperation("find module").
		WithResource(id).
		WithSuggestion(fmt.Sprintf("Configured modules: %v", ids)).
		Wrap(fmt.Errorf("no module %q in %s", id, s.path)).
		BuildError()
}

// selectLauncher returns the launcher named by override, or the configured
// one, and checks it can run here.
func (a *App) selectLauncher(cfg *config.Config, override string) (launcher.Launcher, error) {
	name := cfg.Pipeline.Launcher
	if override != "" {
		name = override
	}
	if name == "" {
		name = config.LauncherNative
	}
	l, err := a.Launchers.Get(launcher.Type(name))
	if err != nil {
		return nil, err
	}
	if !l.Available() {
		return nil, fmt.Errorf("%w: %s (available: %v)", errLauncherUnavailable, name, a.Launchers.Available())
	}
	return l, nil
}
