package wiki

import (
	"fmt"
	"time"
)

// SyncStatus describes the last known sync state of a repository.
type SyncStatus string

const (
	SyncSynced      SyncStatus = "synced"
	SyncError       SyncStatus = "error"
	SyncPending     SyncStatus = "pending"
	SyncNever       SyncStatus = "never"
	SyncUnavailable SyncStatus = "unavailable"
)

// Repository is a registered git working tree the wiki serves content from.
type Repository struct {
	ID            string     `json:"id"`
	Owner         string     `json:"owner"`
	Name          string     `json:"name"`
	RemoteURL     string     `json:"remote_url"`
	LocalPath     string     `json:"local_path"`
	DefaultBranch string     `json:"default_branch"`
	Enabled       bool       `json:"enabled"`
	ReadOnly      bool       `json:"read_only"`
	SyncStatus    SyncStatus `json:"sync_status"`
	LastSynced    *time.Time `json:"last_synced"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CheckWritable reports whether content mutations are allowed.
func (r *Repository) CheckWritable() error {
	if !r.Enabled {
		return fmt.Errorf("%w: %s", ErrDisabled, r.ID)
	}
	if r.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, r.ID)
	}
	return nil
}

// RepositoryUpdate carries the admin-editable repository fields. Nil fields
// are left unchanged.
type RepositoryUpdate struct {
	Name     *string `json:"name,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
	ReadOnly *bool   `json:"read_only,omitempty"`
}

// Article is the full view of a wiki page: frontmatter fields plus the
// markdown body with the frontmatter block stripped. Timestamps are ISO 8601
// UTC strings, exactly as stored in the frontmatter.
type Article struct {
	RepositoryID string `json:"repository_id,omitempty"`
	Path         string `json:"path"`
	Title        string `json:"title"`
	Content      string `json:"content"`
	Author       string `json:"author,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	UpdatedAt    string `json:"updated_at,omitempty"`
	UpdatedBy    string `json:"updated_by,omitempty"`
}

// ArticleSummary is the listing view of an article, without the body.
type ArticleSummary struct {
	Path      string `json:"path"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	UpdatedBy string `json:"updated_by,omitempty"`
}

// DirectoryNode is one entry in the on-demand directory tree. File nodes
// carry the article path without the .md extension and no children.
type DirectoryNode struct {
	Type     string           `json:"type"` // "directory" or "file"
	Name     string           `json:"name"`
	Path     string           `json:"path"`
	Children []*DirectoryNode `json:"children,omitempty"`
}

// FileInfo describes one regular file in a directory listing.
type FileInfo struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

// CommitMeta describes one content mutation for the commit message.
type CommitMeta struct {
	Action    string // Create, Update, Delete, Rename
	Path      string
	UserEmail string
	When      time.Time
}

// CommitResult reports a durable local commit. PushError is a non-fatal
// warning: the commit succeeded and the push did not.
type CommitResult struct {
	SHA       string `json:"sha"`
	Pushed    bool   `json:"pushed"`
	PushError string `json:"push_error,omitempty"`
}

// SyncResult reports a pull/push cycle against the remote.
type SyncResult struct {
	RepositoryID  string `json:"repository_id"`
	Status        string `json:"status"` // success, error, conflict
	Message       string `json:"message"`
	CommitsPulled int    `json:"commits_pulled"`
	CommitsPushed int    `json:"commits_pushed"`
	FilesChanged  int    `json:"files_changed"`
	ErrorMessage  string `json:"error_message,omitempty"`
}

// RepoStatus is the git-level status of a working tree.
type RepoStatus struct {
	Exists          bool   `json:"exists"`
	HasLocalChanges bool   `json:"has_local_changes"`
	AheadOfRemote   int    `json:"ahead_of_remote"`
	BehindOfRemote  int    `json:"behind_of_remote"`
	CurrentBranch   string `json:"current_branch,omitempty"`
}

// CommitInfo is one entry of a file's git history.
type CommitInfo struct {
	SHA     string `json:"sha"`
	Author  string `json:"author"`
	Date    string `json:"date"`
	Message string `json:"message"`
}

// Document is the indexable projection of an article.
type Document struct {
	RepositoryID   string `json:"repository_id"`
	RepositoryName string `json:"repository_name"`
	Path           string `json:"path"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Author         string `json:"author"`
	UpdatedBy      string `json:"updated_by"`
	CreatedAt      string `json:"created_at"`
	UpdatedAt      string `json:"updated_at"`
}

// SearchResult is one search hit, ordered by descending normalized score.
type SearchResult struct {
	RepositoryID   string  `json:"repository_id,omitempty"`
	RepositoryName string  `json:"repository_name,omitempty"`
	Path           string  `json:"path"`
	Title          string  `json:"title"`
	Snippet        string  `json:"snippet"`
	Score          float64 `json:"score"`
}
