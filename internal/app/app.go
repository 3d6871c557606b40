// Package app wires configuration into a running wikigit instance: the
// registry, the per-repository stores, the search index, the content
// service, the HTTP server, and the background sync scheduler.
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"wikigit/internal/config"
	"wikigit/internal/gitstore"
	"wikigit/internal/registry"
	"wikigit/internal/search"
	"wikigit/internal/server"
	"wikigit/internal/wiki"
)

// Paths are the file locations the CLI operates on. Environment variables
// WIKIGIT_CONFIG_PATH and WIKIGIT_HOME override the platform defaults.
type Paths struct {
	Config  string
	BaseDir string
	LogDir  string
}

// DefaultPaths resolves the config file and data directory locations.
func DefaultPaths() (Paths, error) {
	var p Paths

	if p.Config = os.Getenv("WIKIGIT_CONFIG_PATH"); p.Config == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return Paths{}, fmt.Errorf("resolving config directory: %w", err)
		}
		p.Config = filepath.Join(dir, "wikigit.yaml")
	}

	if p.BaseDir = os.Getenv("WIKIGIT_HOME"); p.BaseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("resolving home directory: %w", err)
		}
		p.BaseDir = filepath.Join(home, ".local", "share", "wikigit")
	}

	p.LogDir = filepath.Join(p.BaseDir, "log")
	return p, nil
}

// App is the application layer between the CLI and the content service.
// It constructs all dependencies from config and manages their lifecycle
// on Close.
type App struct {
	cfgPath string

	mu  sync.RWMutex
	cfg *config.Config

	registry wiki.Registry
	stores   *gitstore.Manager
	index    *search.BleveIndex
	service  *wiki.ContentService
	server   *server.Server
	logger   wiki.Logger
	logFile  *os.File
}

// New creates a fully wired App from the config file at cfgPath. The caller
// must call Close when done.
func New(cfgPath string) (*App, error) {
	cfg, err := config.ReadFromFile(cfgPath)
	if err != nil {
		return nil, err
	}

	slogger, logFile, err := newLogger(cfg.Storage.LogDir)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: slogger}

	closeLog := func() {
		if logFile != nil {
			logFile.Close()
		}
	}

	reg, err := registry.Open(cfg.Storage.DatabasePath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("opening registry: %w", err)
	}

	stores := gitstore.NewManager(cfg.Storage.RepositoriesDir, storeOptions(cfg), logger)

	idx, err := search.Open(cfg.Search.IndexDir, logger)
	if err != nil {
		reg.Close()
		closeLog()
		return nil, fmt.Errorf("opening search index: %w", err)
	}

	service := wiki.NewContentService(reg, stores, idx, logger, wiki.RealClock{})

	a := &App{
		cfgPath:  cfgPath,
		cfg:      cfg,
		registry: reg,
		stores:   stores,
		index:    idx,
		service:  service,
		logger:   logger,
		logFile:  logFile,
	}
	a.server = server.New(service, a, logger)
	return a, nil
}

// Service exposes the content service for CLI commands.
func (a *App) Service() *wiki.ContentService { return a.service }

// Current implements server.ConfigStore.
func (a *App) Current() *config.Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

// Apply implements server.ConfigStore: the new configuration is persisted
// and the hot-reloadable parts take effect immediately. The returned list
// names the fields that need a restart.
func (a *App) Apply(cfg *config.Config) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	restart := config.RestartRequired(a.cfg, cfg)
	if err := config.WriteToFile(a.cfgPath, cfg); err != nil {
		return nil, err
	}
	a.cfg = cfg
	a.stores.UpdateOptions(storeOptions(cfg))
	a.logger.Info("configuration applied", "restart_required", len(restart))
	return restart, nil
}

// Run starts the background sync scheduler and serves HTTP until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	cfg := a.Current()

	if cfg.Search.RebuildOnStartup {
		if count, err := a.service.Reindex(ctx); err != nil {
			a.logger.Warn("startup reindex failed", "error", err)
		} else {
			a.logger.Info("startup reindex complete", "documents", count)
		}
	}

	if interval := cfg.Sync.Interval.Std(); interval > 0 {
		go a.syncLoop(ctx, interval)
	}

	return a.server.ListenAndServe(ctx, cfg.Server.Listen)
}

// syncLoop periodically syncs every enabled repository with a remote.
// Failures are recorded per repository by SyncRepository; the loop itself
// never stops on them.
func (a *App) syncLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.syncAll(ctx)
		}
	}
}

func (a *App) syncAll(ctx context.Context) {
	repos, err := a.service.EnabledRepositories(ctx)
	if err != nil {
		a.logger.Error("listing repositories for sync", "error", err)
		return
	}
	for _, repo := range repos {
		if repo.RemoteURL == "" {
			continue
		}
		result, err := a.service.SyncRepository(ctx, repo.ID)
		if err != nil {
			a.logger.Warn("scheduled sync failed", "repo", repo.ID, "error", err)
			continue
		}
		if result.Status != "success" {
			a.logger.Warn("scheduled sync degraded", "repo", repo.ID, "status", result.Status, "error", result.ErrorMessage)
		}
	}
}

// Close releases the registry, the index, and the log file.
func (a *App) Close() error {
	var firstErr error
	if err := a.registry.Close(); err != nil {
		firstErr = fmt.Errorf("closing registry: %w", err)
	}
	if err := a.index.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("closing search index: %w", err)
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}

// storeOptions translates config into git store options, resolving the
// remote token from the environment.
func storeOptions(cfg *config.Config) gitstore.Options {
	return gitstore.Options{
		AuthorName:     cfg.Git.AuthorName,
		AuthorEmail:    cfg.Git.AuthorEmail,
		DefaultBranch:  cfg.Git.DefaultBranch,
		AutoPush:       cfg.Git.AutoPush,
		Token:          os.Getenv(cfg.Git.TokenEnv),
		IgnorePatterns: cfg.Git.Ignore,
	}
}

var _ server.ConfigStore = (*App)(nil)
