package testutil

import (
	"context"
	"testing"

	"wikigit/internal/gitstore"
	"wikigit/internal/registry"
	"wikigit/internal/search"
	"wikigit/internal/wiki"
)

// Env is a fully wired content service over temp-dir working trees, an
// in-memory registry, and a memory-only search index.
type Env struct {
	Service  *wiki.ContentService
	Registry *registry.MemoryRegistry
	Stores   *gitstore.Manager
	Index    *search.BleveIndex
	Clock    *StubClock
}

// NewEnv builds an Env rooted in the test's temp directory. The index is
// closed when the test completes.
func NewEnv(t *testing.T) *Env {
	t.Helper()

	clock := FixedClock()
	reg := registry.NewMemoryRegistry()
	stores := gitstore.NewManager(t.TempDir(), gitstore.Options{
		AuthorName:    "wikigit",
		AuthorEmail:   "wikigit@test",
		DefaultBranch: "main",
	}, wiki.NopLogger{})

	idx, err := search.Open("", wiki.NopLogger{})
	if err != nil {
		t.Fatalf("opening in-memory index: %v", err)
	}
	t.Cleanup(func() { idx.Close() })

	return &Env{
		Service:  wiki.NewContentService(reg, stores, idx, wiki.NopLogger{}, clock),
		Registry: reg,
		Stores:   stores,
		Index:    idx,
		Clock:    clock,
	}
}

// AddRepo registers a local-only repository and initializes its working
// tree, returning the repository id.
func (e *Env) AddRepo(t *testing.T, owner, name string) string {
	t.Helper()

	repo, err := e.Service.AddRepository(context.Background(), wiki.NewRepository{
		Owner: owner,
		Name:  name,
	})
	if err != nil {
		t.Fatalf("adding repository: %v", err)
	}
	// Force the working tree into existence.
	if _, err := e.Stores.For(repo); err != nil {
		t.Fatalf("initializing working tree: %v", err)
	}
	return repo.ID
}
