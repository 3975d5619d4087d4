package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/zcc-dev/zcc/internal/config"
	"github.com/zcc-dev/zcc/internal/filereg"
	"github.com/zcc-dev/zcc/internal/hooks"
	"github.com/zcc-dev/zcc/internal/installer"
	"github.com/zcc-dev/zcc/internal/pack"
	"github.com/zcc-dev/zcc/internal/registry"
	"github.com/zcc-dev/zcc/internal/source"
	"github.com/zcc-dev/zcc/internal/starter"
	"github.com/zcc-dev/zcc/internal/telemetry"
	"github.com/zcc-dev/zcc/internal/workspace"
)

// app holds the services one command runs against.
type app struct {
	logger    *slog.Logger
	cfg       *config.Config
	ws        *workspace.Workspace
	sources   *source.Registry
	registry  *registry.Registry
	files     *filereg.Registry
	hooks     *hooks.Manager
	installer *installer.Installer
	manager   *starter.Manager
	metrics   *telemetry.Metrics
}

// newLogger returns a text logger on stderr. Verbose enables debug output.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// projectRoot resolves the project root for the --dir flag. When
// requireInit is false and no .zcc directory is found, dir itself is used.
func projectRoot(dir string, requireInit bool) (string, error) {
	root, err := config.FindProjectRoot(dir)
	if err == nil {
		return root, nil
	}
	if requireInit {
		return "", err
	}
	return filepath.Abs(dir)
}

// loadApp wires every service for the selected scope.
func loadApp(requireInit bool) (*app, error) {
	scope, err := workspace.ParseScope(flags.scope)
	if err != nil {
		return nil, err
	}
	root := flags.dir
	if scope == workspace.ScopeProject {
		if root, err = projectRoot(flags.dir, requireInit); err != nil {
			return nil, err
		}
	}
	ws, err := workspace.Open(root, scope)
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFile(ws.ConfigPath())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(flags.verbose || cfg.UI.Verbose)
	metrics := telemetry.NewMetrics()

	sources, err := source.LoadRegistry(ws.SourcesPath(), logger)
	if err != nil {
		return nil, err
	}
	srcOpts := source.Options{Logger: logger, Metrics: metrics}
	reg := registry.New(logger, sources.Build(srcOpts)...)

	files := filereg.Open(ws.FileRegistryPath(), ws.Root, filereg.WithLogger(logger))

	hm := hooks.NewManager(hooks.ManagerConfig{
		Root:           ws.Root,
		DefinitionsDir: ws.HookDefinitionsDir(),
		ScriptsDir:     ws.HookScriptsDir(),
		DefaultTimeout: time.Duration(cfg.Hooks.DefaultTimeout) * time.Millisecond,
		Logger:         logger,
		Metrics:        metrics,
	})
	if err := hm.Load(); err != nil {
		return nil, err
	}

	inst := installer.New(installer.Config{
		Workspace:      ws,
		Files:          files,
		Hooks:          hm,
		Logger:         logger,
		Metrics:        metrics,
		SettingsFormat: cfg.Hooks.SettingsFormat,
		Binary:         "zcc",
	})

	return &app{
		logger:    logger,
		cfg:       cfg,
		ws:        ws,
		sources:   sources,
		registry:  reg,
		files:     files,
		hooks:     hm,
		installer: inst,
		manager:   starter.New(reg, inst, pack.NewValidator(version), logger),
		metrics:   metrics,
	}, nil
}

// sourceOptions returns the options sources are built with.
func (a *app) sourceOptions() source.Options {
	return source.Options{Logger: a.logger, Metrics: a.metrics}
}

// close removes temporary files and writes the metrics textfile when one
// is configured.
func (a *app) close() {
	a.ws.Cleanup()
	if p := a.cfg.Telemetry.MetricsFile; p != "" {
		p = a.ws.Abs(p)
		if err := a.metrics.WriteTextfile(p); err != nil {
			a.logger.Warn("cannot write metrics", "path", p, "error", err)
		}
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
