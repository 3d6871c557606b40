package wiki

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"wikigit/internal/frontmatter"
)

// ContentService is the single write path all article and directory
// mutations funnel through. It composes the registry, the per-repository
// content stores, and the search index, and guarantees that the git commit
// always precedes the index mutation: the index is a derived projection that
// can be rebuilt from git content, never the other way around.
type ContentService struct {
	registry Registry
	stores   StoreProvider
	index    SearchIndex
	logger   Logger
	clock    Clock
	ids      IDGenerator
	locks    *repoLocks
}

// NewContentService creates a ContentService with the provided dependencies.
func NewContentService(registry Registry, stores StoreProvider, index SearchIndex, logger Logger, clock Clock) *ContentService {
	return &ContentService{
		registry: registry,
		stores:   stores,
		index:    index,
		logger:   logger,
		clock:    clock,
		ids:      UUIDGenerator{},
		locks:    newRepoLocks(),
	}
}

// readableStore returns the store for an enabled repository.
func (s *ContentService) readableStore(ctx context.Context, repoID string) (*Repository, ContentStore, error) {
	repo, err := s.registry.Get(ctx, repoID)
	if err != nil {
		return nil, nil, err
	}
	if !repo.Enabled {
		return nil, nil, fmt.Errorf("%w: %s", ErrDisabled, repoID)
	}
	store, err := s.stores.For(repo)
	if err != nil {
		return nil, nil, err
	}
	return repo, store, nil
}

// writableStore additionally enforces the read-only gate.
func (s *ContentService) writableStore(ctx context.Context, repoID string) (*Repository, ContentStore, error) {
	repo, err := s.registry.CheckWritable(ctx, repoID)
	if err != nil {
		return nil, nil, err
	}
	store, err := s.stores.For(repo)
	if err != nil {
		return nil, nil, err
	}
	return repo, store, nil
}

// CreateArticle writes a new article with freshly synthesized frontmatter
// and commits it. Fails with ErrAlreadyExists if the path is taken; creation
// never silently overwrites.
func (s *ContentService) CreateArticle(ctx context.Context, repoID, path, title, body, author string) (*Article, error) {
	p, err := NormalizeArticlePath(path)
	if err != nil {
		return nil, err
	}
	repo, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	if store.Exists(p) {
		return nil, fmt.Errorf("%w: article %q", ErrAlreadyExists, p)
	}

	if title == "" {
		title = frontmatter.ExtractTitle(body)
	}
	if title == "" {
		title = frontmatter.TitleFromFilename(p)
	}

	meta := frontmatter.New(title, author, s.clock.Now())
	raw := frontmatter.Serialize(meta, body)

	result, err := store.WriteAndCommit(ctx, p, raw, CommitMeta{
		Action: "Create", Path: p, UserEmail: author, When: s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.logCommit(repoID, p, result)

	s.indexArticle(repo, p, meta, body)
	return articleView(repo.ID, p, meta, body), nil
}

// GetArticle reads and parses an article. Malformed frontmatter is recovered
// as "no metadata" with a warning; reads stay resilient.
func (s *ContentService) GetArticle(ctx context.Context, repoID, path string) (*Article, error) {
	p, err := NormalizeArticlePath(path)
	if err != nil {
		return nil, err
	}
	repo, store, err := s.readableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.RLock()
	defer lock.RUnlock()

	meta, body, err := s.readArticle(store, p)
	if err != nil {
		return nil, err
	}
	return articleView(repo.ID, p, meta, body), nil
}

// ListArticles returns summaries of every markdown file in the repository.
// Files whose frontmatter cannot be parsed are listed with derived titles
// rather than aborting the listing.
func (s *ContentService) ListArticles(ctx context.Context, repoID string) ([]*ArticleSummary, error) {
	_, store, err := s.readableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.RLock()
	defer lock.RUnlock()

	paths, err := store.ListArticles()
	if err != nil {
		return nil, err
	}

	summaries := make([]*ArticleSummary, 0, len(paths))
	for _, p := range paths {
		meta, _, err := s.readArticle(store, p)
		if err != nil {
			s.logger.Warn("skipping unreadable article", "repo", repoID, "path", p, "error", err)
			continue
		}
		summaries = append(summaries, &ArticleSummary{
			Path:      p,
			Title:     titleOr(meta, p),
			Author:    meta.Author,
			UpdatedAt: meta.UpdatedAt,
			UpdatedBy: meta.UpdatedBy,
		})
	}
	return summaries, nil
}

// UpdateArticle replaces the body of an existing article, merging the
// frontmatter so author and created_at survive while updated_at/updated_by
// record the editor.
func (s *ContentService) UpdateArticle(ctx context.Context, repoID, path, body, editor string) (*Article, error) {
	p, err := NormalizeArticlePath(path)
	if err != nil {
		return nil, err
	}
	repo, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	meta, _, err := s.readArticle(store, p)
	if err != nil {
		return nil, err
	}

	if meta.IsZero() {
		// Legacy file with no frontmatter: synthesize it, attributing the
		// editor as author.
		title := frontmatter.ExtractTitle(body)
		if title == "" {
			title = frontmatter.TitleFromFilename(p)
		}
		meta = frontmatter.New(title, editor, s.clock.Now())
	} else {
		meta = frontmatter.Merge(meta, editor, s.clock.Now())
	}

	raw := frontmatter.Serialize(meta, body)
	result, err := store.WriteAndCommit(ctx, p, raw, CommitMeta{
		Action: "Update", Path: p, UserEmail: editor, When: s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.logCommit(repoID, p, result)

	s.indexArticle(repo, p, meta, body)
	return articleView(repo.ID, p, meta, body), nil
}

// DeleteArticle removes the file and commits, then evicts the search
// document. Git goes first: if the commit fails the index is untouched and
// still correct, and if only the index update fails the stale document is
// evicted by the next rebuild.
func (s *ContentService) DeleteArticle(ctx context.Context, repoID, path, userEmail string) error {
	p, err := NormalizeArticlePath(path)
	if err != nil {
		return err
	}
	_, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	result, err := store.DeletePath(ctx, p, CommitMeta{
		Action: "Delete", Path: p, UserEmail: userEmail, When: s.clock.Now(),
	})
	if err != nil {
		return err
	}
	s.logCommit(repoID, p, result)

	if err := s.index.Remove(repoID, p); err != nil {
		s.logger.Warn("index removal failed after delete", "repo", repoID, "path", p, "error", err)
	}
	return nil
}

// MoveArticle renames an article inside one commit and swaps the search
// document. The remove and the re-index are each idempotent, so a partial
// completion self-heals on retry or rebuild.
func (s *ContentService) MoveArticle(ctx context.Context, repoID, oldPath, newPath, userEmail string) (*Article, error) {
	oldP, err := NormalizeArticlePath(oldPath)
	if err != nil {
		return nil, err
	}
	newP, err := NormalizeArticlePath(newPath)
	if err != nil {
		return nil, err
	}
	repo, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	if !store.Exists(oldP) {
		return nil, fmt.Errorf("%w: article %q", ErrNotFound, oldP)
	}
	if store.Exists(newP) {
		return nil, fmt.Errorf("%w: article %q", ErrAlreadyExists, newP)
	}

	result, err := store.MovePath(ctx, oldP, newP, CommitMeta{
		Action: "Rename", Path: newP, UserEmail: userEmail, When: s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}
	s.logCommit(repoID, newP, result)

	if err := s.index.Remove(repoID, oldP); err != nil {
		s.logger.Warn("index removal failed after move", "repo", repoID, "path", oldP, "error", err)
	}
	meta, body, err := s.readArticle(store, newP)
	if err != nil {
		return nil, err
	}
	s.indexArticle(repo, newP, meta, body)
	return articleView(repo.ID, newP, meta, body), nil
}

// GetTree returns the directory tree of the repository.
func (s *ContentService) GetTree(ctx context.Context, repoID string) ([]*DirectoryNode, error) {
	_, store, err := s.readableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.RLock()
	defer lock.RUnlock()

	return store.ListTree()
}

// CreateDirectory creates a tracked directory (placeholder file + commit).
func (s *ContentService) CreateDirectory(ctx context.Context, repoID, path, userEmail string) error {
	p, err := ValidatePath(path)
	if err != nil {
		return err
	}
	_, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	if store.Exists(p) {
		return fmt.Errorf("%w: directory %q", ErrAlreadyExists, p)
	}
	result, err := store.CreateDirectory(ctx, p, CommitMeta{
		Action: "Create", Path: p, UserEmail: userEmail, When: s.clock.Now(),
	})
	if err != nil {
		return err
	}
	s.logCommit(repoID, p, result)
	return nil
}

// DeleteDirectory removes a directory that holds no real content. Since only
// empty directories can be deleted, no index documents are affected.
func (s *ContentService) DeleteDirectory(ctx context.Context, repoID, path, userEmail string) error {
	p, err := ValidatePath(path)
	if err != nil {
		return err
	}
	_, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	if !store.IsDir(p) {
		return fmt.Errorf("%w: directory %q", ErrNotFound, p)
	}
	result, err := store.DeletePath(ctx, p, CommitMeta{
		Action: "Delete", Path: p, UserEmail: userEmail, When: s.clock.Now(),
	})
	if err != nil {
		return err
	}
	s.logCommit(repoID, p, result)
	return nil
}

// MoveDirectory renames a directory in one commit and re-keys the search
// documents of every article under it.
func (s *ContentService) MoveDirectory(ctx context.Context, repoID, oldPath, newPath, userEmail string) error {
	oldP, err := ValidatePath(oldPath)
	if err != nil {
		return err
	}
	newP, err := ValidatePath(newPath)
	if err != nil {
		return err
	}
	repo, store, err := s.writableStore(ctx, repoID)
	if err != nil {
		return err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	if !store.IsDir(oldP) {
		return fmt.Errorf("%w: directory %q", ErrNotFound, oldP)
	}
	if store.Exists(newP) {
		return fmt.Errorf("%w: directory %q", ErrAlreadyExists, newP)
	}

	result, err := store.MovePath(ctx, oldP, newP, CommitMeta{
		Action: "Rename", Path: newP, UserEmail: userEmail, When: s.clock.Now(),
	})
	if err != nil {
		return err
	}
	s.logCommit(repoID, newP, result)

	// Re-key every moved article: remove the old document, index the new.
	paths, err := store.ListArticles()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if !strings.HasPrefix(p, newP+"/") {
			continue
		}
		oldArticle := oldP + "/" + strings.TrimPrefix(p, newP+"/")
		if err := s.index.Remove(repoID, oldArticle); err != nil {
			s.logger.Warn("index removal failed after directory move", "repo", repoID, "path", oldArticle, "error", err)
		}
		meta, body, err := s.readArticle(store, p)
		if err != nil {
			s.logger.Warn("skipping unreadable moved article", "repo", repoID, "path", p, "error", err)
			continue
		}
		s.indexArticle(repo, p, meta, body)
	}
	return nil
}

// ReadRawFile serves a non-markdown file (image, attachment) verbatim.
func (s *ContentService) ReadRawFile(ctx context.Context, repoID, path string) ([]byte, error) {
	p, err := ValidatePath(path)
	if err != nil {
		return nil, err
	}
	_, store, err := s.readableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.RLock()
	defer lock.RUnlock()

	return store.ReadFile(p)
}

// ArticleHistory returns the commit history of an article, newest first.
func (s *ContentService) ArticleHistory(ctx context.Context, repoID, path string, limit int) ([]CommitInfo, error) {
	p, err := NormalizeArticlePath(path)
	if err != nil {
		return nil, err
	}
	_, store, err := s.readableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.RLock()
	defer lock.RUnlock()

	return store.FileHistory(ctx, p, limit)
}

// ArticleAtCommit returns the article as it was at a given commit.
func (s *ContentService) ArticleAtCommit(ctx context.Context, repoID, path, sha string) (*Article, error) {
	p, err := NormalizeArticlePath(path)
	if err != nil {
		return nil, err
	}
	repo, store, err := s.readableStore(ctx, repoID)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.RLock()
	defer lock.RUnlock()

	raw, err := store.FileAtCommit(ctx, p, sha)
	if err != nil {
		return nil, err
	}
	meta, body, err := frontmatter.Parse(raw)
	var malformed *frontmatter.MalformedError
	if errors.As(err, &malformed) {
		s.logger.Warn("malformed frontmatter at commit", "repo", repoID, "path", p, "sha", sha)
	}
	return articleView(repo.ID, p, meta, body), nil
}

// Search queries the full-text index across all enabled repositories.
// Documents of a repository disabled since its last index update are
// filtered out at query time, so disabling takes effect immediately rather
// than at the next rebuild.
func (s *ContentService) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return []SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 20
	}
	repos, err := s.EnabledRepositories(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make(map[string]bool, len(repos))
	for _, r := range repos {
		enabled[r.ID] = true
	}

	results, err := s.index.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	filtered := results[:0]
	for _, r := range results {
		if enabled[r.RepositoryID] {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// Reindex rebuilds the whole search index from the enabled repositories.
func (s *ContentService) Reindex(ctx context.Context) (int, error) {
	count, err := s.index.Rebuild(ctx, s)
	if err != nil {
		return 0, err
	}
	s.logger.Info("search index rebuilt", "documents", count)
	return count, nil
}

// SyncRepository pulls (and pushes, when writable) against the remote,
// recording the outcome in the registry. Network failures are retried once;
// repeated failures are recorded, not looped on. A pull that changed files
// refreshes the affected repository's search documents.
func (s *ContentService) SyncRepository(ctx context.Context, repoID string) (*SyncResult, error) {
	repo, err := s.registry.Get(ctx, repoID)
	if err != nil {
		return nil, err
	}
	if !repo.Enabled {
		return nil, fmt.Errorf("%w: %s", ErrDisabled, repoID)
	}
	store, err := s.stores.For(repo)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repoID)
	lock.Lock()
	defer lock.Unlock()

	s.setSyncStatus(ctx, repoID, SyncPending)

	result, err := store.Pull(ctx)
	if err != nil && !errors.Is(err, ErrConflict) {
		// One automatic retry for transient network failures.
		s.logger.Warn("pull failed, retrying once", "repo", repoID, "error", err)
		result, err = store.Pull(ctx)
	}
	if err != nil {
		status := "error"
		if errors.Is(err, ErrConflict) {
			status = "conflict"
		}
		s.recordSync(ctx, repoID, false, err.Error())
		return &SyncResult{
			RepositoryID: repoID,
			Status:       status,
			Message:      "sync failed",
			ErrorMessage: err.Error(),
		}, nil
	}
	result.RepositoryID = repoID

	if !repo.ReadOnly {
		if err := store.Push(ctx); err != nil {
			s.logger.Warn("push failed during sync", "repo", repoID, "error", err)
			s.recordSync(ctx, repoID, false, err.Error())
			result.Status = "error"
			result.ErrorMessage = err.Error()
			return result, nil
		}
	}

	s.recordSync(ctx, repoID, true, "")

	if result.FilesChanged > 0 {
		if err := s.reindexRepository(ctx, repo, store); err != nil {
			s.logger.Warn("reindex after sync failed", "repo", repoID, "error", err)
		}
	}
	return result, nil
}

// EnabledRepositories implements RebuildSource.
func (s *ContentService) EnabledRepositories(ctx context.Context) ([]*Repository, error) {
	repos, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	enabled := repos[:0:0]
	for _, r := range repos {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return enabled, nil
}

// RepositoryDocuments implements RebuildSource: the current article set of
// one repository, read from disk.
func (s *ContentService) RepositoryDocuments(ctx context.Context, repo *Repository) ([]Document, error) {
	store, err := s.stores.For(repo)
	if err != nil {
		return nil, err
	}

	lock := s.locks.get(repo.ID)
	lock.RLock()
	defer lock.RUnlock()

	paths, err := store.ListArticles()
	if err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		meta, body, err := s.readArticle(store, p)
		if err != nil {
			s.logger.Warn("skipping unreadable article during rebuild", "repo", repo.ID, "path", p, "error", err)
			continue
		}
		docs = append(docs, document(repo, p, meta, body))
	}
	return docs, nil
}

// reindexRepository refreshes the index entries of one repository in place.
func (s *ContentService) reindexRepository(ctx context.Context, repo *Repository, store ContentStore) error {
	paths, err := store.ListArticles()
	if err != nil {
		return err
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		meta, body, err := s.readArticle(store, p)
		if err != nil {
			continue
		}
		if err := s.index.Index(document(repo, p, meta, body)); err != nil {
			return err
		}
	}
	return nil
}

// readArticle reads and parses one file, downgrading malformed frontmatter
// to a warning.
func (s *ContentService) readArticle(store ContentStore, path string) (frontmatter.Metadata, string, error) {
	raw, err := store.ReadFile(path)
	if err != nil {
		return frontmatter.Metadata{}, "", err
	}
	meta, body, err := frontmatter.Parse(raw)
	var malformed *frontmatter.MalformedError
	if errors.As(err, &malformed) {
		s.logger.Warn("malformed frontmatter, treating as plain markdown", "path", path, "error", err)
	}
	return meta, body, nil
}

func (s *ContentService) indexArticle(repo *Repository, path string, meta frontmatter.Metadata, body string) {
	if err := s.index.Index(document(repo, path, meta, body)); err != nil {
		// The commit is durable; the index is stale until the next rebuild.
		s.logger.Warn("index update failed after commit", "repo", repo.ID, "path", path, "error", err)
	}
}

func (s *ContentService) recordSync(ctx context.Context, repoID string, ok bool, errMsg string) {
	if err := s.registry.RecordSyncResult(ctx, repoID, ok, s.clock.Now(), errMsg); err != nil {
		s.logger.Error("recording sync result failed", "repo", repoID, "error", err)
	}
}

// setSyncStatus records a transient sync state, best effort.
func (s *ContentService) setSyncStatus(ctx context.Context, repoID string, status SyncStatus) {
	if err := s.registry.SetSyncStatus(ctx, repoID, status); err != nil {
		s.logger.Warn("recording sync status failed", "repo", repoID, "status", string(status), "error", err)
	}
}

func (s *ContentService) logCommit(repoID, path string, result *CommitResult) {
	if result.PushError != "" {
		s.logger.Warn("commit succeeded, push failed", "repo", repoID, "path", path, "sha", result.SHA, "push_error", result.PushError)
		return
	}
	s.logger.Info("committed", "repo", repoID, "path", path, "sha", result.SHA, "pushed", result.Pushed)
}

func articleView(repoID, path string, meta frontmatter.Metadata, body string) *Article {
	return &Article{
		RepositoryID: repoID,
		Path:         path,
		Title:        titleOr(meta, path),
		Content:      body,
		Author:       meta.Author,
		CreatedAt:    meta.CreatedAt,
		UpdatedAt:    meta.UpdatedAt,
		UpdatedBy:    meta.UpdatedBy,
	}
}

func document(repo *Repository, path string, meta frontmatter.Metadata, body string) Document {
	return Document{
		RepositoryID:   repo.ID,
		RepositoryName: repo.Name,
		Path:           path,
		Title:          titleOr(meta, path),
		Body:           body,
		Author:         meta.Author,
		UpdatedBy:      meta.UpdatedBy,
		CreatedAt:      meta.CreatedAt,
		UpdatedAt:      meta.UpdatedAt,
	}
}

func titleOr(meta frontmatter.Metadata, path string) string {
	if meta.Title != "" {
		return meta.Title
	}
	return frontmatter.TitleFromFilename(path)
}

var _ RebuildSource = (*ContentService)(nil)

// Registry exposes the registry for callers that manage repository records
// through the service's dependency set.
func (s *ContentService) Registry() Registry { return s.registry }

// Stores exposes the store provider for clone/remove operations.
func (s *ContentService) Stores() StoreProvider { return s.stores }

// RepositoryStatus reports the git-level status of a repository. Disabled
// repositories are still reportable; a remote repository that was never
// cloned reports Exists false and is marked SyncUnavailable.
func (s *ContentService) RepositoryStatus(ctx context.Context, repoID string) (*RepoStatus, error) {
	repo, err := s.registry.Get(ctx, repoID)
	if err != nil {
		return nil, err
	}
	store, err := s.stores.For(repo)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.setSyncStatus(ctx, repoID, SyncUnavailable)
			return &RepoStatus{Exists: false}, nil
		}
		return nil, err
	}
	return store.Status()
}
