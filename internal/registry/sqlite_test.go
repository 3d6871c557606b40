package registry

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"wikigit/internal/wiki"
)

func newTestRegistry(t *testing.T) wiki.Registry {
	t.Helper()
	reg, err := Open(filepath.Join(t.TempDir(), "registry.db"))
	if err != nil {
		t.Fatalf("opening registry: %v", err)
	}
	t.Cleanup(func() { reg.Close() })
	return reg
}

func testRepo(id string) *wiki.Repository {
	return &wiki.Repository{
		ID:            id,
		Owner:         "acme",
		Name:          "wiki",
		RemoteURL:     "https://example.com/acme/wiki.git",
		DefaultBranch: "main",
		Enabled:       true,
		SyncStatus:    wiki.SyncNever,
		CreatedAt:     time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteRegistryCRUD(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	t.Run("add and get", func(t *testing.T) {
		if err := reg.Add(ctx, testRepo("acme-wiki")); err != nil {
			t.Fatalf("add: %v", err)
		}
		got, err := reg.Get(ctx, "acme-wiki")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if got.Owner != "acme" || got.Name != "wiki" || !got.Enabled {
			t.Errorf("got %+v", got)
		}
		if got.SyncStatus != wiki.SyncNever {
			t.Errorf("sync status = %q, want never", got.SyncStatus)
		}
		if got.LastSynced != nil {
			t.Errorf("last synced = %v, want nil", got.LastSynced)
		}
	})

	t.Run("duplicate add", func(t *testing.T) {
		err := reg.Add(ctx, testRepo("acme-wiki"))
		if !errors.Is(err, wiki.ErrAlreadyExists) {
			t.Fatalf("error = %v, want ErrAlreadyExists", err)
		}
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := reg.Get(ctx, "nope")
		if !errors.Is(err, wiki.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list ordered", func(t *testing.T) {
		if err := reg.Add(ctx, testRepo("aaa-first")); err != nil {
			t.Fatalf("add: %v", err)
		}
		repos, err := reg.List(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(repos) != 2 || repos[0].ID != "aaa-first" || repos[1].ID != "acme-wiki" {
			t.Errorf("list = %v", repos)
		}
	})

	t.Run("partial update", func(t *testing.T) {
		ro := true
		got, err := reg.Update(ctx, "acme-wiki", wiki.RepositoryUpdate{ReadOnly: &ro})
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if !got.ReadOnly {
			t.Error("read_only not applied")
		}
		if got.Name != "wiki" {
			t.Errorf("untouched field changed: name = %q", got.Name)
		}
	})

	t.Run("remove", func(t *testing.T) {
		if err := reg.Remove(ctx, "aaa-first"); err != nil {
			t.Fatalf("remove: %v", err)
		}
		if _, err := reg.Get(ctx, "aaa-first"); !errors.Is(err, wiki.ErrNotFound) {
			t.Fatalf("get after remove error = %v", err)
		}
		if err := reg.Remove(ctx, "aaa-first"); !errors.Is(err, wiki.ErrNotFound) {
			t.Fatalf("second remove error = %v, want ErrNotFound", err)
		}
	})
}

func TestSQLiteRecordSyncResult(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()
	if err := reg.Add(ctx, testRepo("acme-wiki")); err != nil {
		t.Fatalf("add: %v", err)
	}

	at := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)
	if err := reg.RecordSyncResult(ctx, "acme-wiki", false, at, "remote unreachable"); err != nil {
		t.Fatalf("record failure: %v", err)
	}
	got, err := reg.Get(ctx, "acme-wiki")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SyncStatus != wiki.SyncError || got.ErrorMessage != "remote unreachable" {
		t.Errorf("after failure: status=%q message=%q", got.SyncStatus, got.ErrorMessage)
	}
	if got.LastSynced == nil || !got.LastSynced.Equal(at) {
		t.Errorf("last synced = %v, want %v", got.LastSynced, at)
	}

	if err := reg.RecordSyncResult(ctx, "acme-wiki", true, at.Add(time.Hour), ""); err != nil {
		t.Fatalf("record success: %v", err)
	}
	got, err = reg.Get(ctx, "acme-wiki")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SyncStatus != wiki.SyncSynced || got.ErrorMessage != "" {
		t.Errorf("after success: status=%q message=%q", got.SyncStatus, got.ErrorMessage)
	}
}

func TestCheckWritable(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	repo := testRepo("acme-wiki")
	if err := reg.Add(ctx, repo); err != nil {
		t.Fatalf("add: %v", err)
	}

	if _, err := reg.CheckWritable(ctx, "acme-wiki"); err != nil {
		t.Fatalf("writable repo rejected: %v", err)
	}

	ro := true
	if _, err := reg.Update(ctx, "acme-wiki", wiki.RepositoryUpdate{ReadOnly: &ro}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := reg.CheckWritable(ctx, "acme-wiki"); !errors.Is(err, wiki.ErrReadOnly) {
		t.Fatalf("error = %v, want ErrReadOnly", err)
	}

	rw, off := false, false
	if _, err := reg.Update(ctx, "acme-wiki", wiki.RepositoryUpdate{ReadOnly: &rw, Enabled: &off}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := reg.CheckWritable(ctx, "acme-wiki"); !errors.Is(err, wiki.ErrDisabled) {
		t.Fatalf("error = %v, want ErrDisabled", err)
	}
}

func TestSetSyncStatus(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	if err := reg.Add(ctx, testRepo("acme-wiki")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := reg.SetSyncStatus(ctx, "acme-wiki", wiki.SyncPending); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := reg.Get(ctx, "acme-wiki")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SyncStatus != wiki.SyncPending {
		t.Errorf("sync status = %q, want pending", got.SyncStatus)
	}

	if err := reg.SetSyncStatus(ctx, "missing", wiki.SyncPending); !errors.Is(err, wiki.ErrNotFound) {
		t.Errorf("missing id error = %v, want ErrNotFound", err)
	}
}
