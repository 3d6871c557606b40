package wiki

import "context"

// ContentStore owns all filesystem and git interaction for one repository
// working tree. Paths are slash-separated and relative to the root; callers
// are expected to have validated them.
//
// Mutating calls follow stage -> commit -> best-effort push: a staging or
// commit failure aborts the whole operation, a push failure leaves the local
// commit intact and is reported as a warning on the CommitResult.
type ContentStore interface {
	// Root returns the absolute working tree path.
	Root() string

	// ReadFile returns the raw file bytes or an error wrapping ErrNotFound.
	ReadFile(path string) ([]byte, error)

	// Exists reports whether a file or directory exists at path.
	Exists(path string) bool

	// IsDir reports whether path is a directory.
	IsDir(path string) bool

	// ListArticles returns the relative paths of all markdown files,
	// sorted, skipping git metadata and hidden entries.
	ListArticles() ([]string, error)

	// ListTree returns the directory tree: markdown files and directories
	// only, files before directories, each sorted case-insensitively.
	ListTree() ([]*DirectoryNode, error)

	// ListFiles returns the regular files directly inside dir, sorted by
	// name, skipping hidden entries and tracking placeholders. A missing
	// dir is an empty listing, not an error.
	ListFiles(dir string) ([]FileInfo, error)

	// WriteAndCommit writes the file atomically, stages it, and commits.
	WriteAndCommit(ctx context.Context, path string, data []byte, meta CommitMeta) (*CommitResult, error)

	// DeletePath removes a file, or a directory empty of real content
	// (placeholder files excluded). A non-empty directory fails with
	// ErrNotEmpty.
	DeletePath(ctx context.Context, path string, meta CommitMeta) (*CommitResult, error)

	// MovePath renames a file or directory inside a single commit.
	MovePath(ctx context.Context, oldPath, newPath string, meta CommitMeta) (*CommitResult, error)

	// CreateDirectory creates a directory with a placeholder file so git
	// tracks it, and commits.
	CreateDirectory(ctx context.Context, path string, meta CommitMeta) (*CommitResult, error)

	// Pull fetches and fast-forwards from the remote. Diverged history is
	// reported as ErrConflict; this system never merges automatically.
	Pull(ctx context.Context) (*SyncResult, error)

	// Push pushes local commits to the remote.
	Push(ctx context.Context) error

	// Status reports dirty state and ahead/behind counts.
	Status() (*RepoStatus, error)

	// Head returns the current HEAD commit SHA, or "" for an empty repo.
	Head() (string, error)

	// FileHistory returns up to limit commits touching path, newest first.
	FileHistory(ctx context.Context, path string, limit int) ([]CommitInfo, error)

	// FileAtCommit returns the file content at a given commit SHA.
	FileAtCommit(ctx context.Context, path, sha string) ([]byte, error)
}

// StoreProvider hands out the ContentStore for a repository, opening or
// initializing the working tree as needed.
type StoreProvider interface {
	For(repo *Repository) (ContentStore, error)

	// Clone materializes the working tree of a repository that has a
	// remote but no local clone yet.
	Clone(ctx context.Context, repo *Repository) error

	// RemoveClone deletes the working tree from disk. Only called on
	// explicit operator request.
	RemoveClone(repo *Repository) error
}
