// Package gitstore implements the content store for one repository working
// tree: file reads, directory listings, and every mutation as an atomic
// write + stage + commit with a best-effort push.
package gitstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"wikigit/internal/wiki"
)

// Options configure how stores open and commit.
type Options struct {
	AuthorName    string
	AuthorEmail   string
	DefaultBranch string
	AutoPush      bool
	// Token is a GitHub-style access token for HTTPS remotes. It is carried
	// as basic-auth credentials and never embedded in URLs or log output.
	Token          string
	IgnorePatterns []string
}

// Store wraps one git working tree. All mutating operations serialize on an
// internal lock so concurrent commits cannot race on git's index files.
type Store struct {
	root        string
	repo        *git.Repository
	branch      string
	remoteURL   string
	autoPush    bool
	auth        transport.AuthMethod
	authorName  string
	authorEmail string
	ignore      *IgnoreMatcher
	logger      wiki.Logger

	mu sync.Mutex
}

// Open opens an existing working tree at root.
func Open(root string, remoteURL string, opts Options, logger wiki.Logger) (*Store, error) {
	repo, err := git.PlainOpen(root)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: no git repository at %s", wiki.ErrNotFound, root)
		}
		return nil, fmt.Errorf("%w: opening %s: %v", wiki.ErrGit, root, err)
	}
	return newStore(root, repo, remoteURL, opts, logger), nil
}

// Init creates a fresh repository at root with an initial README commit, the
// bootstrap path for repositories that have no remote.
func Init(root string, initialReadme []byte, opts Options, logger wiki.Logger) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating repository directory: %w", err)
	}
	repo, err := git.PlainInitWithOptions(root, &git.PlainInitOptions{
		InitOptions: git.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branchOr(opts.DefaultBranch)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: init %s: %v", wiki.ErrGit, root, err)
	}

	s := newStore(root, repo, "", opts, logger)
	if len(initialReadme) > 0 {
		if err := os.WriteFile(filepath.Join(root, "README.md"), initialReadme, 0o644); err != nil {
			return nil, fmt.Errorf("writing initial README: %w", err)
		}
		if _, err := s.stageAndCommit("README.md", wiki.CommitMeta{
			Action: "Create", Path: "README.md", UserEmail: opts.AuthorEmail,
		}); err != nil {
			return nil, err
		}
		logger.Info("initialized repository", "root", root)
	}
	return s, nil
}

// Clone materializes a remote repository at root.
func Clone(ctx context.Context, root, remoteURL string, opts Options, logger wiki.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(root), 0o755); err != nil {
		return nil, fmt.Errorf("creating clone parent directory: %w", err)
	}
	auth := authFor(remoteURL, opts.Token)
	repo, err := git.PlainCloneContext(ctx, root, false, &git.CloneOptions{
		URL:           remoteURL,
		ReferenceName: plumbing.NewBranchReferenceName(branchOr(opts.DefaultBranch)),
		SingleBranch:  true,
		Auth:          auth,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: clone: %v", wiki.ErrGit, err)
	}
	logger.Info("cloned repository", "root", root)
	return newStore(root, repo, remoteURL, opts, logger), nil
}

func newStore(root string, repo *git.Repository, remoteURL string, opts Options, logger wiki.Logger) *Store {
	return &Store{
		root:        root,
		repo:        repo,
		branch:      branchOr(opts.DefaultBranch),
		remoteURL:   remoteURL,
		autoPush:    opts.AutoPush,
		auth:        authFor(remoteURL, opts.Token),
		authorName:  opts.AuthorName,
		authorEmail: opts.AuthorEmail,
		ignore:      NewIgnoreMatcher(opts.IgnorePatterns),
		logger:      logger,
	}
}

// Root returns the absolute working tree path.
func (s *Store) Root() string { return s.root }

// ReadFile returns the raw bytes of a file relative to the root.
func (s *Store) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(s.abs(path))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", wiki.ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path exists in the working tree.
func (s *Store) Exists(path string) bool {
	_, err := os.Stat(s.abs(path))
	return err == nil
}

// IsDir reports whether path is a directory.
func (s *Store) IsDir(path string) bool {
	info, err := os.Stat(s.abs(path))
	return err == nil && info.IsDir()
}

// Head returns the current HEAD commit SHA, or "" for an empty repository.
func (s *Store) Head() (string, error) {
	ref, err := s.repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("%w: head: %v", wiki.ErrGit, err)
	}
	return ref.Hash().String(), nil
}

// abs converts a validated slash-relative path to an absolute one.
func (s *Store) abs(path string) string {
	return filepath.Join(s.root, filepath.FromSlash(path))
}

func branchOr(b string) string {
	if b == "" {
		return "main"
	}
	return b
}

// authFor builds basic-auth credentials for HTTPS remotes. GitHub accepts
// any username alongside a token.
func authFor(remoteURL, token string) transport.AuthMethod {
	if token == "" || remoteURL == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "git", Password: token}
}

// ensureRemote makes sure origin points at the configured URL.
func (s *Store) ensureRemote() error {
	if s.remoteURL == "" {
		return git.ErrRemoteNotFound
	}
	remote, err := s.repo.Remote(git.DefaultRemoteName)
	if errors.Is(err, git.ErrRemoteNotFound) {
		_, err = s.repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: git.DefaultRemoteName,
			URLs: []string{s.remoteURL},
		})
		return err
	}
	if err != nil {
		return err
	}
	if cfg := remote.Config(); len(cfg.URLs) == 0 || cfg.URLs[0] != s.remoteURL {
		if err := s.repo.DeleteRemote(git.DefaultRemoteName); err != nil {
			return err
		}
		_, err = s.repo.CreateRemote(&gitconfig.RemoteConfig{
			Name: git.DefaultRemoteName,
			URLs: []string{s.remoteURL},
		})
	}
	return err
}

var _ wiki.ContentStore = (*Store)(nil)
