package gitstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"wikigit/internal/wiki"
)

// WriteAndCommit writes data to path atomically, stages it, and commits.
// The push afterwards is best-effort: a failure is recorded on the result,
// never returned as an error.
func (s *Store) WriteAndCommit(ctx context.Context, path string, data []byte, meta wiki.CommitMeta) (*wiki.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs := s.abs(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("creating parent directory for %s: %w", path, err)
	}
	if err := atomicWrite(abs, data); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	res, err := s.stageAndCommit(path, meta)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(ctx, res)
	return res, nil
}

// DeletePath removes a file, or a directory that holds no real content.
// Placeholder files do not count as content; anything else makes the
// directory non-empty and the delete fails with ErrNotEmpty.
func (s *Store) DeletePath(ctx context.Context, path string, meta wiki.CommitMeta) (*wiki.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs := s.abs(path)
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", wiki.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stating %s: %w", path, err)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: worktree: %v", wiki.ErrGit, err)
	}

	if info.IsDir() {
		empty, err := dirHasOnlyPlaceholders(abs)
		if err != nil {
			return nil, err
		}
		if !empty {
			return nil, fmt.Errorf("%w: directory %s is not empty", wiki.ErrNotEmpty, path)
		}
		if err := os.RemoveAll(abs); err != nil {
			return nil, fmt.Errorf("removing directory %s: %w", path, err)
		}
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return nil, fmt.Errorf("%w: staging delete of %s: %v", wiki.ErrGit, path, err)
		}
	} else {
		if _, err := wt.Remove(filepath.ToSlash(path)); err != nil {
			return nil, fmt.Errorf("%w: removing %s: %v", wiki.ErrGit, path, err)
		}
	}

	res, err := s.commit(wt, meta)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(ctx, res)
	return res, nil
}

// MovePath renames a file or directory in a single commit. go-git's Move
// only handles files, so directory moves rename on disk and restage.
func (s *Store) MovePath(ctx context.Context, oldPath, newPath string, meta wiki.CommitMeta) (*wiki.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	oldAbs, newAbs := s.abs(oldPath), s.abs(newPath)
	info, err := os.Stat(oldAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", wiki.ErrNotFound, oldPath)
		}
		return nil, fmt.Errorf("stating %s: %w", oldPath, err)
	}
	if s.Exists(newPath) {
		return nil, fmt.Errorf("%w: %s", wiki.ErrAlreadyExists, newPath)
	}
	if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
		return nil, fmt.Errorf("creating parent directory for %s: %w", newPath, err)
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: worktree: %v", wiki.ErrGit, err)
	}

	if info.IsDir() {
		if err := os.Rename(oldAbs, newAbs); err != nil {
			return nil, fmt.Errorf("moving directory %s: %w", oldPath, err)
		}
		if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
			return nil, fmt.Errorf("%w: staging move of %s: %v", wiki.ErrGit, oldPath, err)
		}
	} else {
		if _, err := wt.Move(oldPath, newPath); err != nil {
			return nil, fmt.Errorf("%w: moving %s: %v", wiki.ErrGit, oldPath, err)
		}
	}

	res, err := s.commit(wt, meta)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(ctx, res)
	return res, nil
}

// CreateDirectory creates path with a placeholder file so git tracks the
// otherwise-empty directory, and commits the placeholder.
func (s *Store) CreateDirectory(ctx context.Context, path string, meta wiki.CommitMeta) (*wiki.CommitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	abs := s.abs(path)
	if _, err := os.Stat(abs); err == nil {
		return nil, fmt.Errorf("%w: %s", wiki.ErrAlreadyExists, path)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating directory %s: %w", path, err)
	}
	placeholder := path + "/" + placeholderFile
	if err := os.WriteFile(s.abs(placeholder), nil, 0o644); err != nil {
		return nil, fmt.Errorf("writing placeholder in %s: %w", path, err)
	}

	res, err := s.stageAndCommit(placeholder, meta)
	if err != nil {
		return nil, err
	}
	s.pushAfterCommit(ctx, res)
	return res, nil
}

// stageAndCommit stages one path and commits. Callers hold s.mu.
func (s *Store) stageAndCommit(path string, meta wiki.CommitMeta) (*wiki.CommitResult, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: worktree: %v", wiki.ErrGit, err)
	}
	if _, err := wt.Add(filepath.ToSlash(path)); err != nil {
		return nil, fmt.Errorf("%w: staging %s: %v", wiki.ErrGit, path, err)
	}
	return s.commit(wt, meta)
}

func (s *Store) commit(wt *git.Worktree, meta wiki.CommitMeta) (*wiki.CommitResult, error) {
	when := meta.When
	if when.IsZero() {
		when = time.Now().UTC()
	}
	name, email := s.signature(meta.UserEmail)
	hash, err := wt.Commit(commitMessage(meta, when), &git.CommitOptions{
		Author: &object.Signature{
			Name:  name,
			Email: email,
			When:  when,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: commit: %v", wiki.ErrGit, err)
	}
	return &wiki.CommitResult{SHA: hash.String()}, nil
}

// pushAfterCommit pushes when auto-push is on, downgrading any failure to a
// warning on the result. The local commit is already durable at this point.
func (s *Store) pushAfterCommit(ctx context.Context, res *wiki.CommitResult) {
	if !s.autoPush || s.remoteURL == "" {
		return
	}
	if err := s.Push(ctx); err != nil {
		res.PushError = err.Error()
		s.logger.Warn("push after commit failed", "root", s.root, "error", err)
		return
	}
	res.Pushed = true
}

// commitMessage renders "<action>: <path>" with author and date trailers.
func commitMessage(meta wiki.CommitMeta, when time.Time) string {
	return fmt.Sprintf("%s: %s\n\nAuthor: %s\nDate: %s",
		meta.Action, meta.Path, meta.UserEmail, when.UTC().Format("2006-01-02T15:04:05Z"))
}

// signature resolves the commit author: the acting user when known,
// otherwise the configured service identity.
func (s *Store) signature(userEmail string) (name, email string) {
	if userEmail == "" {
		return s.authorName, s.authorEmail
	}
	if at := strings.IndexByte(userEmail, '@'); at > 0 {
		return userEmail[:at], userEmail
	}
	return userEmail, userEmail
}

// atomicWrite writes via a temp file in the same directory plus rename, so
// readers never observe a half-written file.
func atomicWrite(abs string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(abs), "."+filepath.Base(abs)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, abs); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// dirHasOnlyPlaceholders reports whether dir contains nothing but
// placeholder files, recursively.
func dirHasOnlyPlaceholders(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("reading directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			ok, err := dirHasOnlyPlaceholders(filepath.Join(dir, e.Name()))
			if err != nil || !ok {
				return false, err
			}
			continue
		}
		if e.Name() != placeholderFile {
			return false, nil
		}
	}
	return true, nil
}
