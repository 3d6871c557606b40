package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wikigit/internal/wiki"
)

// MemoryRegistry is an in-memory wiki.Registry for tests.
type MemoryRegistry struct {
	mu    sync.RWMutex
	repos map[string]*wiki.Repository
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{repos: make(map[string]*wiki.Repository)}
}

func (m *MemoryRegistry) Get(_ context.Context, id string) (*wiki.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	repo, ok := m.repos[id]
	if !ok {
		return nil, fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	cp := *repo
	return &cp, nil
}

func (m *MemoryRegistry) List(context.Context) ([]*wiki.Repository, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	repos := make([]*wiki.Repository, 0, len(m.repos))
	for _, r := range m.repos {
		cp := *r
		repos = append(repos, &cp)
	}
	sort.Slice(repos, func(i, j int) bool { return repos[i].ID < repos[j].ID })
	return repos, nil
}

func (m *MemoryRegistry) Add(_ context.Context, repo *wiki.Repository) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[repo.ID]; ok {
		return fmt.Errorf("%w: repository %q", wiki.ErrAlreadyExists, repo.ID)
	}
	if repo.SyncStatus == "" {
		repo.SyncStatus = wiki.SyncNever
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}
	cp := *repo
	m.repos[repo.ID] = &cp
	return nil
}

func (m *MemoryRegistry) Update(_ context.Context, id string, upd wiki.RepositoryUpdate) (*wiki.Repository, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[id]
	if !ok {
		return nil, fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	if upd.Name != nil {
		repo.Name = *upd.Name
	}
	if upd.Enabled != nil {
		repo.Enabled = *upd.Enabled
	}
	if upd.ReadOnly != nil {
		repo.ReadOnly = *upd.ReadOnly
	}
	cp := *repo
	return &cp, nil
}

func (m *MemoryRegistry) Remove(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.repos[id]; !ok {
		return fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	delete(m.repos, id)
	return nil
}

func (m *MemoryRegistry) RecordSyncResult(_ context.Context, id string, ok bool, at time.Time, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, found := m.repos[id]
	if !found {
		return fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	if ok {
		repo.SyncStatus = wiki.SyncSynced
		repo.ErrorMessage = ""
	} else {
		repo.SyncStatus = wiki.SyncError
		repo.ErrorMessage = errMsg
	}
	t := at
	repo.LastSynced = &t
	return nil
}

func (m *MemoryRegistry) SetSyncStatus(_ context.Context, id string, status wiki.SyncStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	repo, ok := m.repos[id]
	if !ok {
		return fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	repo.SyncStatus = status
	return nil
}

func (m *MemoryRegistry) CheckWritable(ctx context.Context, id string) (*wiki.Repository, error) {
	repo, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := repo.CheckWritable(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (m *MemoryRegistry) Close() error { return nil }

var _ wiki.Registry = (*MemoryRegistry)(nil)
