package wiki

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NewRepository describes a repository registration request.
type NewRepository struct {
	Owner         string `json:"owner"`
	Name          string `json:"name"`
	RemoteURL     string `json:"remote_url,omitempty"`
	LocalPath     string `json:"local_path,omitempty"`
	DefaultBranch string `json:"default_branch,omitempty"`
	ReadOnly      bool   `json:"read_only"`
	// Clone fetches the remote immediately after registration.
	Clone bool `json:"clone,omitempty"`
}

// ListRepositories returns every registered repository.
func (s *ContentService) ListRepositories(ctx context.Context) ([]*Repository, error) {
	return s.registry.List(ctx)
}

// GetRepository returns one repository record.
func (s *ContentService) GetRepository(ctx context.Context, id string) (*Repository, error) {
	return s.registry.Get(ctx, id)
}

// AddRepository registers a repository and, when requested, clones its
// remote. Repository ids are stable slugs derived from owner/name; a
// random id backs repositories registered without an owner.
func (s *ContentService) AddRepository(ctx context.Context, req NewRepository) (*Repository, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: repository name is required", ErrValidation)
	}
	id := repositorySlug(req.Owner, req.Name)
	if id == "" {
		id = s.ids.New()
	}

	repo := &Repository{
		ID:            id,
		Owner:         req.Owner,
		Name:          req.Name,
		RemoteURL:     req.RemoteURL,
		LocalPath:     req.LocalPath,
		DefaultBranch: req.DefaultBranch,
		Enabled:       true,
		ReadOnly:      req.ReadOnly,
		SyncStatus:    SyncNever,
		CreatedAt:     s.clock.Now(),
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}
	if err := s.registry.Add(ctx, repo); err != nil {
		return nil, err
	}
	s.logger.Info("repository registered", "id", repo.ID, "remote", repo.RemoteURL)

	if req.Clone && req.RemoteURL != "" {
		if err := s.stores.Clone(ctx, repo); err != nil {
			// Registration stands; the clone can be retried via sync.
			s.logger.Warn("initial clone failed", "id", repo.ID, "error", err)
			s.recordSync(ctx, repo.ID, false, err.Error())
			return s.registry.Get(ctx, repo.ID)
		}
		s.recordSync(ctx, repo.ID, true, "")
		if err := s.reindexNewClone(ctx, repo); err != nil {
			s.logger.Warn("indexing fresh clone failed", "id", repo.ID, "error", err)
		}
		return s.registry.Get(ctx, repo.ID)
	}
	return repo, nil
}

// UpdateRepository applies a partial update to the registry record.
func (s *ContentService) UpdateRepository(ctx context.Context, id string, upd RepositoryUpdate) (*Repository, error) {
	repo, err := s.registry.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.logger.Info("repository updated", "id", id)
	return repo, nil
}

// RemoveRepository deletes the registry record and the repository's search
// documents. The working tree is only deleted when deleteClone is set:
// removing content from disk requires explicit intent.
func (s *ContentService) RemoveRepository(ctx context.Context, id string, deleteClone bool) error {
	repo, err := s.registry.Get(ctx, id)
	if err != nil {
		return err
	}

	lock := s.locks.get(id)
	lock.Lock()
	defer lock.Unlock()

	s.removeRepositoryDocuments(repo)
	if err := s.registry.Remove(ctx, id); err != nil {
		return err
	}
	if deleteClone {
		if err := s.stores.RemoveClone(repo); err != nil {
			return err
		}
	}
	s.logger.Info("repository removed", "id", id, "clone_deleted", deleteClone)
	return nil
}

// IndexDocCount reports the number of indexed documents, used by health
// reporting.
func (s *ContentService) IndexDocCount() (uint64, error) {
	return s.index.DocCount()
}

// removeRepositoryDocuments drops a repository's documents from the index.
// Failures leave stale entries behind and are cleaned up by the next
// rebuild.
func (s *ContentService) removeRepositoryDocuments(repo *Repository) {
	store, err := s.stores.For(repo)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("cannot enumerate articles for index cleanup", "id", repo.ID, "error", err)
		}
		return
	}
	paths, err := store.ListArticles()
	if err != nil {
		s.logger.Warn("cannot enumerate articles for index cleanup", "id", repo.ID, "error", err)
		return
	}
	for _, p := range paths {
		if err := s.index.Remove(repo.ID, p); err != nil {
			s.logger.Warn("removing document from index failed", "id", repo.ID, "path", p, "error", err)
		}
	}
}

func (s *ContentService) reindexNewClone(ctx context.Context, repo *Repository) error {
	store, err := s.stores.For(repo)
	if err != nil {
		return err
	}
	return s.reindexRepository(ctx, repo, store)
}

// repositorySlug builds the stable "owner-name" id.
func repositorySlug(owner, name string) string {
	owner = strings.ToLower(strings.TrimSpace(owner))
	name = strings.ToLower(strings.TrimSpace(name))
	if owner == "" || name == "" {
		return ""
	}
	return owner + "-" + name
}
