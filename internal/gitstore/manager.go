package gitstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"wikigit/internal/wiki"
)

// Manager hands out one Store per repository, opening or initializing
// working trees under a common root directory on first use.
type Manager struct {
	rootDir string
	opts    Options
	logger  wiki.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

// NewManager creates a Manager keeping clones under rootDir.
func NewManager(rootDir string, opts Options, logger wiki.Logger) *Manager {
	if logger == nil {
		logger = wiki.NopLogger{}
	}
	return &Manager{
		rootDir: rootDir,
		opts:    opts,
		logger:  logger,
		stores:  make(map[string]*Store),
	}
}

// UpdateOptions swaps the manager's store options and drops the cached
// stores so the next access reopens them with the new identity. Reopening a
// working tree is cheap.
func (m *Manager) UpdateOptions(opts Options) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.opts = opts
	m.stores = make(map[string]*Store)
}

// For returns the store for a repository, opening the existing working tree
// or initializing a fresh one for repositories without a remote. A remote
// repository that has never been cloned is reported as not found; cloning
// is an explicit operation.
func (m *Manager) For(repo *wiki.Repository) (wiki.ContentStore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.stores[repo.ID]; ok {
		return s, nil
	}

	root := m.localPath(repo)
	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		s, err := Open(root, repo.RemoteURL, m.optsFor(repo), m.logger)
		if err != nil {
			return nil, err
		}
		m.stores[repo.ID] = s
		return s, nil
	}

	if repo.RemoteURL != "" {
		return nil, fmt.Errorf("%w: repository %s has no local clone", wiki.ErrNotFound, repo.Name)
	}

	s, err := Init(root, bootstrapReadme(repo.Name), m.optsFor(repo), m.logger)
	if err != nil {
		return nil, err
	}
	m.stores[repo.ID] = s
	return s, nil
}

// Clone materializes the working tree for a repository with a remote.
func (m *Manager) Clone(ctx context.Context, repo *wiki.Repository) error {
	if repo.RemoteURL == "" {
		return fmt.Errorf("%w: repository %s has no remote url", wiki.ErrValidation, repo.Name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	root := m.localPath(repo)
	if _, err := os.Stat(filepath.Join(root, ".git")); err == nil {
		return fmt.Errorf("%w: %s is already cloned", wiki.ErrAlreadyExists, repo.Name)
	}
	s, err := Clone(ctx, root, repo.RemoteURL, m.optsFor(repo), m.logger)
	if err != nil {
		return err
	}
	m.stores[repo.ID] = s
	return nil
}

// RemoveClone deletes the working tree from disk and drops the cached store.
func (m *Manager) RemoveClone(repo *wiki.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.stores, repo.ID)
	root := m.localPath(repo)
	if root == "" || root == "/" {
		return fmt.Errorf("%w: refusing to remove %q", wiki.ErrValidation, root)
	}
	if err := os.RemoveAll(root); err != nil {
		return fmt.Errorf("removing clone %s: %w", root, err)
	}
	m.logger.Info("removed clone", "root", root)
	return nil
}

// localPath resolves where a repository's working tree lives. Registered
// paths win; otherwise clones land under rootDir/owner/name.
func (m *Manager) localPath(repo *wiki.Repository) string {
	if repo.LocalPath != "" {
		return repo.LocalPath
	}
	return filepath.Join(m.rootDir, repo.Owner, repo.Name)
}

func (m *Manager) optsFor(repo *wiki.Repository) Options {
	opts := m.opts
	if repo.DefaultBranch != "" {
		opts.DefaultBranch = repo.DefaultBranch
	}
	return opts
}

func bootstrapReadme(name string) []byte {
	return []byte(fmt.Sprintf("# %s\n\nWelcome to the %s wiki.\n", name, name))
}

var _ wiki.StoreProvider = (*Manager)(nil)
