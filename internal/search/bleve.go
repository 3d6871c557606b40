// Package search maintains the full-text index over article content. The
// index is a derived projection: it can always be rebuilt from the working
// trees, so index errors are never allowed to fail a content write.
package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"wikigit/internal/wiki"
)

// titleBoost makes title matches outrank body matches.
const titleBoost = 2.0

// BleveIndex is a bleve-backed wiki.SearchIndex. One index covers every
// repository; documents are keyed "<repository id>:<path>".
type BleveIndex struct {
	path   string // "" means memory-only
	logger wiki.Logger

	mu  sync.RWMutex
	idx bleve.Index
}

// Open opens or creates the index at path. An empty path builds a
// memory-only index, used by tests and by deployments that rebuild on boot.
func Open(path string, logger wiki.Logger) (*BleveIndex, error) {
	if logger == nil {
		logger = wiki.NopLogger{}
	}
	idx, err := openIndex(path)
	if err != nil {
		return nil, err
	}
	return &BleveIndex{path: path, logger: logger, idx: idx}, nil
}

func openIndex(path string) (bleve.Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(indexMapping())
		if err != nil {
			return nil, fmt.Errorf("creating in-memory index: %w", err)
		}
		return idx, nil
	}
	idx, err := bleve.Open(path)
	if err == nil {
		return idx, nil
	}
	if err != bleve.ErrorIndexPathDoesNotExist {
		return nil, fmt.Errorf("opening index %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	idx, err = bleve.New(path, indexMapping())
	if err != nil {
		return nil, fmt.Errorf("creating index %s: %w", path, err)
	}
	return idx, nil
}

// indexMapping stores title and body as analyzed text and the identifying
// fields as keywords so they survive round trips unanalyzed.
func indexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Store = true
	doc.AddFieldMappingsAt("title", text)
	doc.AddFieldMappingsAt("body", text)

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true
	doc.AddFieldMappingsAt("path", keyword)
	doc.AddFieldMappingsAt("repository_id", keyword)
	doc.AddFieldMappingsAt("repository_name", keyword)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	return m
}

func docID(repositoryID, path string) string {
	return repositoryID + ":" + path
}

// Index upserts a document. Indexing the same (repository, path) twice
// replaces the previous entry.
func (b *BleveIndex) Index(doc wiki.Document) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.idx.Index(docID(doc.RepositoryID, doc.Path), doc); err != nil {
		return fmt.Errorf("indexing %s: %w", doc.Path, err)
	}
	return nil
}

// Remove drops a document. Absent documents are a no-op.
func (b *BleveIndex) Remove(repositoryID, path string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if err := b.idx.Delete(docID(repositoryID, path)); err != nil {
		return fmt.Errorf("removing %s from index: %w", path, err)
	}
	return nil
}

// Search runs the query against titles (boosted) and bodies, returning hits
// with scores normalized to [0, 1] and an HTML-highlighted body snippet.
func (b *BleveIndex) Search(ctx context.Context, queryText string, limit int) ([]wiki.SearchResult, error) {
	queryText = strings.TrimSpace(queryText)
	if queryText == "" {
		return []wiki.SearchResult{}, nil
	}
	if limit <= 0 {
		limit = 50
	}

	title := bleve.NewMatchQuery(queryText)
	title.SetField("title")
	title.SetBoost(titleBoost)
	body := bleve.NewMatchQuery(queryText)
	body.SetField("body")

	req := bleve.NewSearchRequestOptions(
		query.NewDisjunctionQuery([]query.Query{title, body}), limit, 0, false)
	req.Fields = []string{"title", "path", "repository_id", "repository_name"}
	req.Highlight = bleve.NewHighlightWithStyle("html")
	req.Highlight.AddField("body")

	b.mu.RLock()
	res, err := b.idx.SearchInContext(ctx, req)
	b.mu.RUnlock()
	if err != nil {
		return nil, fmt.Errorf("searching %q: %w", queryText, err)
	}

	results := make([]wiki.SearchResult, 0, len(res.Hits))
	for _, hit := range res.Hits {
		r := wiki.SearchResult{Score: hit.Score}
		if res.MaxScore > 0 {
			r.Score = hit.Score / res.MaxScore
		}
		r.Title = fieldString(hit.Fields, "title")
		r.Path = fieldString(hit.Fields, "path")
		r.RepositoryID = fieldString(hit.Fields, "repository_id")
		r.RepositoryName = fieldString(hit.Fields, "repository_name")
		if frags, ok := hit.Fragments["body"]; ok && len(frags) > 0 {
			r.Snippet = frags[0]
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Path < results[j].Path
	})
	return results, nil
}

// Rebuild recreates the index from scratch and swaps it in under a brief
// exclusive lock, so searches either see the old index or the complete new
// one, never a partial build.
func (b *BleveIndex) Rebuild(ctx context.Context, source wiki.RebuildSource) (int, error) {
	buildPath := ""
	if b.path != "" {
		buildPath = b.path + ".rebuild"
		if err := os.RemoveAll(buildPath); err != nil {
			return 0, fmt.Errorf("clearing stale rebuild dir: %w", err)
		}
	}
	fresh, err := openIndex(buildPath)
	if err != nil {
		return 0, err
	}

	count, err := b.populate(ctx, fresh, source)
	if err != nil {
		fresh.Close()
		if buildPath != "" {
			os.RemoveAll(buildPath)
		}
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	old := b.idx
	if b.path == "" {
		b.idx = fresh
		old.Close()
		return count, nil
	}
	// Disk-backed: close both, move the fresh build into place, reopen.
	if err := fresh.Close(); err != nil {
		return 0, fmt.Errorf("closing rebuilt index: %w", err)
	}
	if err := old.Close(); err != nil {
		return 0, fmt.Errorf("closing old index: %w", err)
	}
	if err := os.RemoveAll(b.path); err != nil {
		return 0, fmt.Errorf("removing old index: %w", err)
	}
	if err := os.Rename(buildPath, b.path); err != nil {
		return 0, fmt.Errorf("installing rebuilt index: %w", err)
	}
	reopened, err := bleve.Open(b.path)
	if err != nil {
		return 0, fmt.Errorf("reopening rebuilt index: %w", err)
	}
	b.idx = reopened
	return count, nil
}

func (b *BleveIndex) populate(ctx context.Context, idx bleve.Index, source wiki.RebuildSource) (int, error) {
	repos, err := source.EnabledRepositories(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, repo := range repos {
		docs, err := source.RepositoryDocuments(ctx, repo)
		if err != nil {
			// A broken working tree should not abort the whole rebuild.
			b.logger.Warn("skipping repository during rebuild",
				"repository", repo.Name, "error", err)
			continue
		}
		batch := idx.NewBatch()
		for _, doc := range docs {
			if err := ctx.Err(); err != nil {
				return count, err
			}
			if err := batch.Index(docID(doc.RepositoryID, doc.Path), doc); err != nil {
				return count, fmt.Errorf("batching %s: %w", doc.Path, err)
			}
		}
		if err := idx.Batch(batch); err != nil {
			return count, fmt.Errorf("indexing repository %s: %w", repo.Name, err)
		}
		count += len(docs)
	}
	return count, nil
}

func fieldString(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// DocCount returns the number of indexed documents.
func (b *BleveIndex) DocCount() (uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.idx.DocCount()
}

func (b *BleveIndex) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.idx.Close()
}

var _ wiki.SearchIndex = (*BleveIndex)(nil)
