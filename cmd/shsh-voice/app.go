package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ashureev/shsh-voice/internal/config"
	"github.com/ashureev/shsh-voice/internal/container"
	"github.com/ashureev/shsh-voice/internal/domain"
	"github.com/ashureev/shsh-voice/internal/engine"
	"github.com/ashureev/shsh-voice/internal/journal"
	"github.com/ashureev/shsh-voice/internal/patterns"
	"github.com/ashureev/shsh-voice/internal/store"
	"github.com/ashureev/shsh-voice/internal/voice"
)

// app holds the components shared by the subcommands.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   store.PatternStore
	table   *patterns.Table
	session *voice.Session
	journal journal.Recorder
	sandbox *container.SandboxRunner
	docker  *container.DockerManager
}

// openTable opens the configured store and loads the pattern table. A
// corrupt table is fatal for every subcommand.
func openTable(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	s, err := store.Open(cfg.PatternStore, cfg.PatternsPath, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open pattern store: %w", err)
	}

	table := patterns.NewTable(s, logger)
	if err := table.Load(ctx); err != nil {
		_ = s.Close()
		var storageErr *domain.StorageError
		if errors.As(err, &storageErr) {
			logger.Error("Pattern table is unreadable", "location", storageErr.Path, "error", storageErr.Err)
		}
		return nil, fmt.Errorf("load pattern table: %w", err)
	}

	return &app{cfg: cfg, logger: logger, store: s, table: table, journal: journal.Nop{}}, nil
}

// newApp loads the table and builds the voice session around it.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a, err := openTable(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := a.buildSession(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) buildSession() error {
	workDir, err := resolveWorkDir(a.cfg.WorkDir)
	if err != nil {
		return err
	}

	var host engine.HostRunner
	switch a.cfg.HostRunner {
	case config.RunnerDocker:
		root := a.cfg.Sandbox.Root
		if root == "" {
			root = workDir
		}
		mgr, err := container.NewDockerManager(container.SandboxSpec{
			Image:   a.cfg.Sandbox.Image,
			Root:    root,
			Runtime: a.cfg.Sandbox.ContainerRuntime,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("initialize sandbox: %w", err)
		}
		a.docker = mgr
		a.sandbox = container.NewSandboxRunner(mgr, root, a.cfg.OutputLimit, a.logger)
		host = a.sandbox
	default:
		host = engine.NewShellRunner(a.cfg.OutputLimit)
	}

	rec, err := journal.New(journal.Config{
		Enabled:   a.cfg.Journal.Enabled,
		Path:      a.cfg.Journal.Path,
		QueueSize: a.cfg.Journal.QueueSize,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	a.journal = rec

	eng := engine.New(domain.NewSessionState(workDir), host,
		engine.WithTimeout(a.cfg.CommandTimeout),
		engine.WithLogger(a.logger),
	)
	a.session = voice.NewSession(patterns.NewResolver(a.table, a.logger), eng, rec, a.logger)
	a.logger.Info("Voice session ready",
		"session_id", a.session.ID(),
		"work_dir", workDir,
		"host_runner", a.cfg.HostRunner,
		"patterns", a.table.Location(),
	)
	return nil
}

// Close releases the sandbox, journal and store.
func (a *app) Close() {
	if a.sandbox != nil {
		ctx, cancel := context.WithTimeout(context.Background(), stopSandboxTimeout)
		if err := a.sandbox.Stop(ctx); err != nil {
			a.logger.Warn("Failed to stop sandbox", "error", err)
		}
		cancel()
	}
	if a.docker != nil {
		if err := a.docker.Close(); err != nil {
			a.logger.Debug("Failed to close docker client", "error", err)
		}
	}
	if err := a.journal.Close(); err != nil {
		a.logger.Warn("Failed to close journal", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close pattern store", "error", err)
	}
}

func resolveWorkDir(dir string) (string, error) {
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		return wd, nil
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve working directory %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("working directory: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("working directory %s is not a directory", abs)
	}
	return abs, nil
}
