package search

import (
	"context"
	"testing"

	"wikigit/internal/wiki"
)

func newTestIndex(t *testing.T) *BleveIndex {
	t.Helper()
	idx, err := Open("", wiki.NopLogger{})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { idx.Close() })
	return idx
}

func doc(repoID, path, title, body string) wiki.Document {
	return wiki.Document{
		RepositoryID:   repoID,
		RepositoryName: "acme/handbook",
		Path:           path,
		Title:          title,
		Body:           body,
		Author:         "alice@example.com",
	}
}

func mustIndex(t *testing.T, idx *BleveIndex, docs ...wiki.Document) {
	t.Helper()
	for _, d := range docs {
		if err := idx.Index(d); err != nil {
			t.Fatalf("Index(%s) error = %v", d.Path, err)
		}
	}
}

func TestSearchBasics(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx,
		doc("r1", "docs/deploy.md", "Deploying", "How we ship releases to production."),
		doc("r1", "docs/oncall.md", "On-call guide", "Escalation paths and paging."),
	)

	t.Run("empty query returns empty slice", func(t *testing.T) {
		results, err := idx.Search(context.Background(), "   ", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if results == nil || len(results) != 0 {
			t.Errorf("Search() = %v, want empty non-nil slice", results)
		}
	})

	t.Run("match returns normalized score", func(t *testing.T) {
		results, err := idx.Search(context.Background(), "production", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 1 {
			t.Fatalf("len(results) = %d, want 1", len(results))
		}
		got := results[0]
		if got.Path != "docs/deploy.md" {
			t.Errorf("Path = %q, want %q", got.Path, "docs/deploy.md")
		}
		if got.Title != "Deploying" {
			t.Errorf("Title = %q, want %q", got.Title, "Deploying")
		}
		if got.RepositoryID != "r1" {
			t.Errorf("RepositoryID = %q, want %q", got.RepositoryID, "r1")
		}
		if got.Score <= 0 || got.Score > 1 {
			t.Errorf("Score = %v, want in (0, 1]", got.Score)
		}
		if got.Snippet == "" {
			t.Error("Snippet is empty, want highlighted body fragment")
		}
	})

	t.Run("no match", func(t *testing.T) {
		results, err := idx.Search(context.Background(), "kubernetes", 10)
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(results) != 0 {
			t.Errorf("len(results) = %d, want 0", len(results))
		}
	})
}

func TestSearchTitleBoost(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx,
		doc("r1", "notes/aside.md", "Meeting notes", "A short mention of migration plans."),
		doc("r1", "docs/migration.md", "Migration", "Everything about the migration, in depth. Migration steps and rollback."),
	)

	results, err := idx.Search(context.Background(), "migration", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Path != "docs/migration.md" {
		t.Errorf("top hit = %q, want %q (title match outranks body mention)", results[0].Path, "docs/migration.md")
	}
	if results[0].Score != 1.0 {
		t.Errorf("top score = %v, want 1.0", results[0].Score)
	}
	if results[1].Score >= results[0].Score {
		t.Errorf("scores not descending: %v then %v", results[0].Score, results[1].Score)
	}
}

func TestSearchTieBreakByPath(t *testing.T) {
	idx := newTestIndex(t)
	// Identical content so bleve assigns equal scores.
	mustIndex(t, idx,
		doc("r1", "b/twin.md", "Twin", "identical body text"),
		doc("r1", "a/twin.md", "Twin", "identical body text"),
	)

	results, err := idx.Search(context.Background(), "identical", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2", len(results))
	}
	if results[0].Path != "a/twin.md" || results[1].Path != "b/twin.md" {
		t.Errorf("tie order = [%q, %q], want paths ascending", results[0].Path, results[1].Path)
	}
}

func TestSearchLimit(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx,
		doc("r1", "a.md", "A", "common topic"),
		doc("r1", "b.md", "B", "common topic"),
		doc("r1", "c.md", "C", "common topic"),
	)

	results, err := idx.Search(context.Background(), "common", 2)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("len(results) = %d, want 2", len(results))
	}
}

func TestIndexUpsert(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx, doc("r1", "page.md", "Page", "first draft wording"))
	mustIndex(t, idx, doc("r1", "page.md", "Page", "rewritten final wording"))

	if got, _ := idx.DocCount(); got != 1 {
		t.Fatalf("DocCount() = %d, want 1", got)
	}

	results, err := idx.Search(context.Background(), "draft", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("stale content still searchable after upsert: %v", results)
	}
}

func TestRemoveIdempotent(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx, doc("r1", "gone.md", "Gone", "soon to vanish"))

	if err := idx.Remove("r1", "gone.md"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := idx.Remove("r1", "gone.md"); err != nil {
		t.Fatalf("second Remove() error = %v", err)
	}
	if err := idx.Remove("r1", "never-indexed.md"); err != nil {
		t.Fatalf("Remove() of absent doc error = %v", err)
	}
	if got, _ := idx.DocCount(); got != 0 {
		t.Errorf("DocCount() = %d, want 0", got)
	}
}

type stubSource struct {
	repos []*wiki.Repository
	docs  map[string][]wiki.Document
}

func (s *stubSource) EnabledRepositories(ctx context.Context) ([]*wiki.Repository, error) {
	return s.repos, nil
}

func (s *stubSource) RepositoryDocuments(ctx context.Context, repo *wiki.Repository) ([]wiki.Document, error) {
	return s.docs[repo.ID], nil
}

func TestRebuildReplacesIndex(t *testing.T) {
	idx := newTestIndex(t)
	mustIndex(t, idx, doc("r1", "stale.md", "Stale", "left over from before"))

	source := &stubSource{
		repos: []*wiki.Repository{{ID: "r1", Owner: "acme", Name: "handbook"}},
		docs: map[string][]wiki.Document{
			"r1": {
				doc("r1", "docs/fresh.md", "Fresh", "rebuilt content"),
				doc("r1", "docs/other.md", "Other", "more rebuilt content"),
			},
		},
	}

	count, err := idx.Rebuild(context.Background(), source)
	if err != nil {
		t.Fatalf("Rebuild() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Rebuild() = %d, want 2", count)
	}
	if got, _ := idx.DocCount(); got != 2 {
		t.Errorf("DocCount() = %d, want 2", got)
	}

	results, err := idx.Search(context.Background(), "stale", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 0 {
		t.Errorf("stale document survived rebuild: %v", results)
	}

	results, err = idx.Search(context.Background(), "rebuilt", 10)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("len(results) = %d after rebuild, want 2", len(results))
	}
}
