package gitstore

import (
	"context"
	"errors"
	"fmt"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"wikigit/internal/wiki"
)

// Pull fetches and fast-forwards the working tree. Diverged history comes
// back as ErrConflict; merging is left to the operator, never attempted here.
func (s *Store) Pull(ctx context.Context) (*wiki.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureRemote(); err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return &wiki.SyncResult{Status: "success", Message: "no remote configured"}, nil
		}
		return nil, fmt.Errorf("%w: remote: %v", wiki.ErrGit, err)
	}

	oldHead, err := s.Head()
	if err != nil {
		return nil, err
	}

	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: worktree: %v", wiki.ErrGit, err)
	}
	err = wt.PullContext(ctx, &git.PullOptions{
		RemoteName:    git.DefaultRemoteName,
		ReferenceName: plumbing.NewBranchReferenceName(s.branch),
		SingleBranch:  true,
		Auth:          s.auth,
	})
	switch {
	case err == nil:
	case errors.Is(err, git.NoErrAlreadyUpToDate):
		return &wiki.SyncResult{Status: "success", Message: "already up to date"}, nil
	case errors.Is(err, git.ErrNonFastForwardUpdate):
		return nil, fmt.Errorf("%w: local and remote history diverged", wiki.ErrConflict)
	case errors.Is(err, git.ErrUnstagedChanges):
		return nil, fmt.Errorf("%w: working tree has uncommitted changes", wiki.ErrConflict)
	default:
		return nil, fmt.Errorf("%w: pull: %v", wiki.ErrGit, err)
	}

	newHead, err := s.Head()
	if err != nil {
		return nil, err
	}
	pulled, changed := s.rangeStats(oldHead, newHead)
	return &wiki.SyncResult{
		Status:        "success",
		Message:       fmt.Sprintf("pulled %d commit(s)", pulled),
		CommitsPulled: pulled,
		FilesChanged:  changed,
	}, nil
}

// Push pushes the current branch to origin.
func (s *Store) Push(ctx context.Context) error {
	if err := s.ensureRemote(); err != nil {
		if errors.Is(err, git.ErrRemoteNotFound) {
			return nil
		}
		return fmt.Errorf("%w: remote: %v", wiki.ErrGit, err)
	}
	err := s.repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		Auth:       s.auth,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("%w: push: %v", wiki.ErrGit, err)
	}
	return nil
}

// Status reports dirty state and how far the branch is ahead of or behind
// the remote tracking ref.
func (s *Store) Status() (*wiki.RepoStatus, error) {
	st := &wiki.RepoStatus{Exists: true, CurrentBranch: s.branch}

	wt, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: worktree: %v", wiki.ErrGit, err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", wiki.ErrGit, err)
	}
	st.HasLocalChanges = !status.IsClean()

	localRef, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return st, nil
		}
		return nil, fmt.Errorf("%w: head: %v", wiki.ErrGit, err)
	}
	remoteRef, err := s.repo.Reference(
		plumbing.NewRemoteReferenceName(git.DefaultRemoteName, s.branch), true)
	if err != nil {
		// No tracking ref means nothing to compare against.
		return st, nil
	}

	ahead, behind, err := s.aheadBehind(localRef.Hash(), remoteRef.Hash())
	if err != nil {
		return nil, err
	}
	st.AheadOfRemote, st.BehindOfRemote = ahead, behind
	return st, nil
}

// FileHistory returns up to limit commits touching path, newest first.
func (s *Store) FileHistory(ctx context.Context, path string, limit int) ([]wiki.CommitInfo, error) {
	iter, err := s.repo.Log(&git.LogOptions{FileName: &path})
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: log %s: %v", wiki.ErrGit, path, err)
	}
	defer iter.Close()

	var history []wiki.CommitInfo
	err = iter.ForEach(func(c *object.Commit) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		history = append(history, wiki.CommitInfo{
			SHA:     c.Hash.String(),
			Author:  c.Author.Email,
			Date:    c.Author.When.UTC().Format("2006-01-02T15:04:05Z"),
			Message: c.Message,
		})
		if limit > 0 && len(history) >= limit {
			return storer.ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: log %s: %v", wiki.ErrGit, path, err)
	}
	return history, nil
}

// FileAtCommit returns the file content as of a specific commit.
func (s *Store) FileAtCommit(ctx context.Context, path, sha string) ([]byte, error) {
	commit, err := s.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, fmt.Errorf("%w: commit %s", wiki.ErrNotFound, sha)
	}
	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s at %s", wiki.ErrNotFound, path, sha)
		}
		return nil, fmt.Errorf("%w: reading %s at %s: %v", wiki.ErrGit, path, sha, err)
	}
	contents, err := file.Contents()
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s at %s: %v", wiki.ErrGit, path, sha, err)
	}
	return []byte(contents), nil
}

// rangeStats counts the commits and distinct changed files between two
// heads. Best effort: failures here only degrade the sync summary.
func (s *Store) rangeStats(oldSHA, newSHA string) (commits, files int) {
	if newSHA == "" || oldSHA == newSHA {
		return 0, 0
	}
	newCommit, err := s.repo.CommitObject(plumbing.NewHash(newSHA))
	if err != nil {
		return 0, 0
	}

	iter, err := s.repo.Log(&git.LogOptions{From: newCommit.Hash})
	if err != nil {
		return 0, 0
	}
	defer iter.Close()
	_ = iter.ForEach(func(c *object.Commit) error {
		if c.Hash.String() == oldSHA {
			return storer.ErrStop
		}
		commits++
		return nil
	})

	newTree, err := newCommit.Tree()
	if err != nil {
		return commits, 0
	}
	var oldTree *object.Tree
	if oldSHA != "" {
		if oldCommit, err := s.repo.CommitObject(plumbing.NewHash(oldSHA)); err == nil {
			oldTree, _ = oldCommit.Tree()
		}
	}
	changes, err := object.DiffTree(oldTree, newTree)
	if err != nil {
		return commits, 0
	}
	seen := make(map[string]struct{})
	for _, ch := range changes {
		if name := ch.From.Name; name != "" {
			seen[name] = struct{}{}
		}
		if name := ch.To.Name; name != "" {
			seen[name] = struct{}{}
		}
	}
	return commits, len(seen)
}

// aheadBehind counts commits reachable from only one of the two heads.
func (s *Store) aheadBehind(local, remote plumbing.Hash) (ahead, behind int, err error) {
	if local == remote {
		return 0, 0, nil
	}
	localCommit, err := s.repo.CommitObject(local)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: resolving local head: %v", wiki.ErrGit, err)
	}
	remoteCommit, err := s.repo.CommitObject(remote)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: resolving remote head: %v", wiki.ErrGit, err)
	}
	bases, err := localCommit.MergeBase(remoteCommit)
	if err != nil || len(bases) == 0 {
		return 0, 0, nil
	}
	base := bases[0].Hash
	ahead = s.countSince(local, base)
	behind = s.countSince(remote, base)
	return ahead, behind, nil
}

func (s *Store) countSince(from, until plumbing.Hash) int {
	iter, err := s.repo.Log(&git.LogOptions{From: from})
	if err != nil {
		return 0
	}
	defer iter.Close()
	n := 0
	_ = iter.ForEach(func(c *object.Commit) error {
		if c.Hash == until {
			return storer.ErrStop
		}
		n++
		return nil
	})
	return n
}
