package wiki

import "context"

// SearchIndex is the derived full-text projection of article content. It is
// rebuildable from the content stores at any time; index failures after a
// successful commit are logged, never surfaced as write failures.
type SearchIndex interface {
	// Index upserts the document keyed by (repository id, path).
	Index(doc Document) error

	// Remove drops the document. Removing an absent document is a no-op,
	// so deletes tolerate at-least-once delivery.
	Remove(repositoryID, path string) error

	// Search returns hits ordered by descending normalized score, ties
	// broken by ascending path.
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)

	// Rebuild drops and recreates the whole index from the source of
	// truth, swapping the fresh index in so concurrent reads never see a
	// half-built one. Returns the number of documents indexed.
	Rebuild(ctx context.Context, source RebuildSource) (int, error)

	// DocCount returns the number of indexed documents.
	DocCount() (uint64, error)

	Close() error
}

// RebuildSource enumerates the current article set for a full rebuild. The
// content service implements it by walking every enabled repository's
// working tree.
type RebuildSource interface {
	EnabledRepositories(ctx context.Context) ([]*Repository, error)
	RepositoryDocuments(ctx context.Context, repo *Repository) ([]Document, error)
}
