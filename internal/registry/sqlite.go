// Package registry persists the set of configured repositories and their
// sync state. The SQLite backend is the durable store; the memory backend
// serves tests.
package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wikigit/internal/registry/migrations"
	"wikigit/internal/wiki"

	"github.com/mattn/go-sqlite3"
)

// SQLiteRegistry implements wiki.Registry on a SQLite database.
type SQLiteRegistry struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the registry database at path and migrates
// the schema to the latest version. path may be ":memory:".
func OpenSQLite(path string) (*SQLiteRegistry, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}

	// SQLite ships with foreign keys off for backward compatibility.
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating registry schema: %w", err)
	}
	return &SQLiteRegistry{db: db}, nil
}

const repositoryColumns = `id, owner, name, remote_url, local_path, default_branch,
	enabled, read_only, sync_status, last_synced, error_message, created_at`

func scanRepository(row interface{ Scan(...any) error }) (*wiki.Repository, error) {
	var (
		r          wiki.Repository
		lastSynced sql.NullTime
		errMsg     sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.Owner, &r.Name, &r.RemoteURL, &r.LocalPath, &r.DefaultBranch,
		&r.Enabled, &r.ReadOnly, &r.SyncStatus, &lastSynced, &errMsg, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lastSynced.Valid {
		t := lastSynced.Time
		r.LastSynced = &t
	}
	r.ErrorMessage = errMsg.String
	return &r, nil
}

func (s *SQLiteRegistry) Get(ctx context.Context, id string) (*wiki.Repository, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+repositoryColumns+" FROM repositories WHERE id = ?", id)
	repo, err := scanRepository(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("finding repository: %w", err)
	}
	return repo, nil
}

func (s *SQLiteRegistry) List(ctx context.Context) ([]*wiki.Repository, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+repositoryColumns+" FROM repositories ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	defer rows.Close()

	var repos []*wiki.Repository
	for rows.Next() {
		repo, err := scanRepository(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning repository: %w", err)
		}
		repos = append(repos, repo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing repositories: %w", err)
	}
	return repos, nil
}

func (s *SQLiteRegistry) Add(ctx context.Context, repo *wiki.Repository) error {
	if repo.SyncStatus == "" {
		repo.SyncStatus = wiki.SyncNever
	}
	if repo.DefaultBranch == "" {
		repo.DefaultBranch = "main"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO repositories (`+repositoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		repo.ID, repo.Owner, repo.Name, repo.RemoteURL, repo.LocalPath,
		repo.DefaultBranch, repo.Enabled, repo.ReadOnly, repo.SyncStatus,
		nullTime(repo.LastSynced), nullString(repo.ErrorMessage), repo.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: repository %q", wiki.ErrAlreadyExists, repo.ID)
		}
		return fmt.Errorf("inserting repository: %w", err)
	}
	return nil
}

func (s *SQLiteRegistry) Update(ctx context.Context, id string, upd wiki.RepositoryUpdate) (*wiki.Repository, error) {
	repo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.Name != nil {
		repo.Name = *upd.Name
	}
	if upd.Enabled != nil {
		repo.Enabled = *upd.Enabled
	}
	if upd.ReadOnly != nil {
		repo.ReadOnly = *upd.ReadOnly
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE repositories SET name = ?, enabled = ?, read_only = ? WHERE id = ?",
		repo.Name, repo.Enabled, repo.ReadOnly, id)
	if err != nil {
		return nil, fmt.Errorf("updating repository: %w", err)
	}
	return repo, nil
}

func (s *SQLiteRegistry) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM repositories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting repository: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting repository: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteRegistry) RecordSyncResult(ctx context.Context, id string, ok bool, at time.Time, errMsg string) error {
	status := wiki.SyncSynced
	if !ok {
		status = wiki.SyncError
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE repositories SET sync_status = ?, last_synced = ?, error_message = ? WHERE id = ?",
		status, at, nullString(errMsg), id)
	if err != nil {
		return fmt.Errorf("recording sync result: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("recording sync result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteRegistry) SetSyncStatus(ctx context.Context, id string, status wiki.SyncStatus) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE repositories SET sync_status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("setting sync status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("setting sync status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: repository %q", wiki.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteRegistry) CheckWritable(ctx context.Context, id string) (*wiki.Repository, error) {
	repo, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := repo.CheckWritable(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ wiki.Registry = (*SQLiteRegistry)(nil)
