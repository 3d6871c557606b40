package gitstore

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wikigit/internal/wiki"
)

func testOptions() Options {
	return Options{
		AuthorName:    "wikigit",
		AuthorEmail:   "wikigit@test",
		DefaultBranch: "main",
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Init(t.TempDir(), []byte("# Test Wiki\n"), testOptions(), wiki.NopLogger{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func commitMeta(action, path string) wiki.CommitMeta {
	return wiki.CommitMeta{
		Action:    action,
		Path:      path,
		UserEmail: "alice@x.com",
		When:      time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestInitBootstrap(t *testing.T) {
	s := newTestStore(t)

	head, err := s.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head == "" {
		t.Fatal("no initial commit after init")
	}
	data, err := s.ReadFile("README.md")
	if err != nil {
		t.Fatalf("reading README: %v", err)
	}
	if string(data) != "# Test Wiki\n" {
		t.Errorf("README content = %q", data)
	}
}

func TestWriteAndCommitMessageFormat(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.WriteAndCommit(ctx, "docs/intro.md", []byte("# Intro\n"), commitMeta("Create", "docs/intro.md"))
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if res.SHA == "" {
		t.Fatal("no commit SHA returned")
	}
	if res.Pushed || res.PushError != "" {
		t.Errorf("push state on a remote-less repository: %+v", res)
	}

	history, err := s.FileHistory(ctx, "docs/intro.md", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("got %d history entries, want 1", len(history))
	}
	want := "Create: docs/intro.md\n\nAuthor: alice@x.com\nDate: 2025-03-10T12:00:00Z"
	if history[0].Message != want {
		t.Errorf("commit message = %q, want %q", history[0].Message, want)
	}
	if history[0].Author != "alice@x.com" {
		t.Errorf("author = %q", history[0].Author)
	}
}

func TestWriteAndCommitOverwrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteAndCommit(ctx, "page.md", []byte("v1\n"), commitMeta("Create", "page.md")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := s.WriteAndCommit(ctx, "page.md", []byte("v2\n"), commitMeta("Update", "page.md")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := s.ReadFile("page.md")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "v2\n" {
		t.Errorf("content = %q, want v2", data)
	}

	st, err := s.Status()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if st.HasLocalChanges {
		t.Error("working tree dirty after commit")
	}
}

func TestFileAtCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.WriteAndCommit(ctx, "page.md", []byte("v1\n"), commitMeta("Create", "page.md"))
	if err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := s.WriteAndCommit(ctx, "page.md", []byte("v2\n"), commitMeta("Update", "page.md")); err != nil {
		t.Fatalf("second write: %v", err)
	}

	old, err := s.FileAtCommit(ctx, "page.md", first.SHA)
	if err != nil {
		t.Fatalf("file at commit: %v", err)
	}
	if string(old) != "v1\n" {
		t.Errorf("content at first commit = %q, want v1", old)
	}

	if _, err := s.FileAtCommit(ctx, "missing.md", first.SHA); !errors.Is(err, wiki.ErrNotFound) {
		t.Errorf("missing file error = %v, want ErrNotFound", err)
	}
}

func TestMovePath(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteAndCommit(ctx, "old.md", []byte("content\n"), commitMeta("Create", "old.md")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.MovePath(ctx, "old.md", "docs/new.md", commitMeta("Rename", "docs/new.md")); err != nil {
		t.Fatalf("move: %v", err)
	}

	if s.Exists("old.md") {
		t.Error("old path still exists")
	}
	data, err := s.ReadFile("docs/new.md")
	if err != nil {
		t.Fatalf("read new path: %v", err)
	}
	if string(data) != "content\n" {
		t.Errorf("content = %q", data)
	}

	t.Run("missing source", func(t *testing.T) {
		_, err := s.MovePath(ctx, "absent.md", "x.md", commitMeta("Rename", "x.md"))
		if !errors.Is(err, wiki.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
	t.Run("occupied target", func(t *testing.T) {
		_, err := s.MovePath(ctx, "docs/new.md", "README.md", commitMeta("Rename", "README.md"))
		if !errors.Is(err, wiki.ErrAlreadyExists) {
			t.Errorf("error = %v, want ErrAlreadyExists", err)
		}
	})
}

func TestMoveDirectory(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.WriteAndCommit(ctx, "guides/a.md", []byte("a\n"), commitMeta("Create", "guides/a.md")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.MovePath(ctx, "guides", "manuals", commitMeta("Rename", "manuals")); err != nil {
		t.Fatalf("move directory: %v", err)
	}
	if s.Exists("guides") {
		t.Error("old directory still exists")
	}
	if !s.Exists("manuals/a.md") {
		t.Error("moved file missing")
	}
}

func TestDeletePathGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateDirectory(ctx, "guides", commitMeta("Create", "guides")); err != nil {
		t.Fatalf("create directory: %v", err)
	}
	if _, err := s.WriteAndCommit(ctx, "guides/a.md", []byte("a\n"), commitMeta("Create", "guides/a.md")); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := s.DeletePath(ctx, "guides", commitMeta("Delete", "guides")); !errors.Is(err, wiki.ErrNotEmpty) {
		t.Fatalf("delete non-empty error = %v, want ErrNotEmpty", err)
	}
	if _, err := s.DeletePath(ctx, "guides/a.md", commitMeta("Delete", "guides/a.md")); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	// Only the placeholder remains now; the directory counts as empty.
	if _, err := s.DeletePath(ctx, "guides", commitMeta("Delete", "guides")); err != nil {
		t.Fatalf("delete emptied directory: %v", err)
	}
	if s.Exists("guides") {
		t.Error("directory still exists after delete")
	}

	if _, err := s.DeletePath(ctx, "never-was.md", commitMeta("Delete", "never-was.md")); !errors.Is(err, wiki.ErrNotFound) {
		t.Errorf("delete missing error = %v, want ErrNotFound", err)
	}
}

func TestListArticlesAndTree(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	files := map[string]string{
		"zebra.md":        "z\n",
		"alpha.md":        "a\n",
		"image.png":       "binary",
		".hidden.md":      "secret\n",
		"guides/setup.md": "s\n",
	}
	for p, content := range files {
		if _, err := s.WriteAndCommit(ctx, p, []byte(content), commitMeta("Create", p)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}

	articles, err := s.ListArticles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"README.md", "alpha.md", "guides/setup.md", "zebra.md"}
	if len(articles) != len(want) {
		t.Fatalf("articles = %v, want %v", articles, want)
	}
	for i := range want {
		if articles[i] != want[i] {
			t.Errorf("articles[%d] = %q, want %q", i, articles[i], want[i])
		}
	}

	tree, err := s.ListTree()
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	// Markdown files first (case-insensitive order), then directories.
	// Dotfiles and non-markdown files never appear.
	wantNames := []string{"alpha", "README", "zebra", "guides"}
	if len(tree) != len(wantNames) {
		t.Fatalf("got %d nodes, want %d: %+v", len(tree), len(wantNames), tree)
	}
	for i, name := range wantNames {
		if tree[i].Name != name {
			t.Errorf("node[%d] = %q, want %q", i, tree[i].Name, name)
		}
	}
	if tree[0].Path != "alpha" {
		t.Errorf("file node path = %q, want extension stripped", tree[0].Path)
	}
}

func TestPull(t *testing.T) {
	ctx := context.Background()

	origin, err := Init(filepath.Join(t.TempDir(), "origin"), []byte("# Origin\n"), testOptions(), wiki.NopLogger{})
	if err != nil {
		t.Fatalf("init origin: %v", err)
	}

	cloneRoot := filepath.Join(t.TempDir(), "clone")
	clone, err := Clone(ctx, cloneRoot, origin.Root(), testOptions(), wiki.NopLogger{})
	if err != nil {
		t.Fatalf("clone: %v", err)
	}

	t.Run("already up to date", func(t *testing.T) {
		res, err := clone.Pull(ctx)
		if err != nil {
			t.Fatalf("pull: %v", err)
		}
		if res.CommitsPulled != 0 {
			t.Errorf("commits pulled = %d, want 0", res.CommitsPulled)
		}
	})

	t.Run("fast forward", func(t *testing.T) {
		if _, err := origin.WriteAndCommit(ctx, "news.md", []byte("# News\n"), commitMeta("Create", "news.md")); err != nil {
			t.Fatalf("origin write: %v", err)
		}
		res, err := clone.Pull(ctx)
		if err != nil {
			t.Fatalf("pull: %v", err)
		}
		if res.CommitsPulled != 1 {
			t.Errorf("commits pulled = %d, want 1", res.CommitsPulled)
		}
		if res.FilesChanged != 1 {
			t.Errorf("files changed = %d, want 1", res.FilesChanged)
		}
		if !clone.Exists("news.md") {
			t.Error("pulled file missing from working tree")
		}
	})

	t.Run("diverged is a conflict", func(t *testing.T) {
		if _, err := origin.WriteAndCommit(ctx, "left.md", []byte("l\n"), commitMeta("Create", "left.md")); err != nil {
			t.Fatalf("origin write: %v", err)
		}
		if _, err := clone.WriteAndCommit(ctx, "right.md", []byte("r\n"), commitMeta("Create", "right.md")); err != nil {
			t.Fatalf("clone write: %v", err)
		}
		_, err := clone.Pull(ctx)
		if !errors.Is(err, wiki.ErrConflict) {
			t.Fatalf("pull error = %v, want ErrConflict", err)
		}
		// The local commit survives the aborted pull.
		if !clone.Exists("right.md") {
			t.Error("local commit lost after conflicting pull")
		}
	})
}

func TestIgnorePatterns(t *testing.T) {
	opts := testOptions()
	opts.IgnorePatterns = []string{"drafts/", "*.tmp"}
	s, err := Init(t.TempDir(), nil, opts, wiki.NopLogger{})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	ctx := context.Background()

	for _, p := range []string{"keep.md", "drafts/wip.md", "scratch.tmp"} {
		if _, err := s.WriteAndCommit(ctx, p, []byte("x\n"), commitMeta("Create", p)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
	articles, err := s.ListArticles()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(articles) != 1 || articles[0] != "keep.md" {
		t.Errorf("articles = %v, want only keep.md", articles)
	}
}

func TestManagerFor(t *testing.T) {
	m := NewManager(t.TempDir(), testOptions(), wiki.NopLogger{})
	repo := &wiki.Repository{ID: "acme-wiki", Owner: "acme", Name: "wiki", Enabled: true}

	store, err := m.For(repo)
	if err != nil {
		t.Fatalf("first For: %v", err)
	}
	if !strings.HasSuffix(store.Root(), filepath.Join("acme", "wiki")) {
		t.Errorf("root = %q, want under owner/name", store.Root())
	}

	again, err := m.For(repo)
	if err != nil {
		t.Fatalf("second For: %v", err)
	}
	if store != again {
		t.Error("manager did not cache the store")
	}

	t.Run("remote without clone", func(t *testing.T) {
		remote := &wiki.Repository{ID: "x-y", Owner: "x", Name: "y", RemoteURL: "https://example.com/x/y.git", Enabled: true}
		if _, err := m.For(remote); !errors.Is(err, wiki.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestListFiles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"media/b.png", "media/a.pdf", "media/.hidden", "media/sub/nested.png"} {
		if _, err := s.WriteAndCommit(ctx, name, []byte("x"), commitMeta("Upload media", name)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}

	files, err := s.ListFiles("media")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var names []string
	for _, f := range files {
		names = append(names, f.Name)
	}
	// Sorted, files only, dotfiles skipped.
	if len(names) != 2 || names[0] != "a.pdf" || names[1] != "b.png" {
		t.Fatalf("names = %v, want [a.pdf b.png]", names)
	}
	if files[0].Size != 1 {
		t.Errorf("size = %d, want 1", files[0].Size)
	}

	files, err = s.ListFiles("no-such-dir")
	if err != nil {
		t.Fatalf("missing dir: %v", err)
	}
	if len(files) != 0 {
		t.Errorf("missing dir listing = %v, want empty", files)
	}
}
