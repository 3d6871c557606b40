package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"wikigit/internal/wiki"
)

// Open creates the registry backend for the given database path. An empty
// path or ":memory:" selects the in-memory SQLite database, anything else a
// file-backed one (parent directories are created as needed).
func Open(databasePath string) (wiki.Registry, error) {
	if databasePath == "" || databasePath == ":memory:" {
		return OpenSQLite(":memory:")
	}
	if err := os.MkdirAll(filepath.Dir(databasePath), 0o755); err != nil {
		return nil, fmt.Errorf("creating registry database directory: %w", err)
	}
	return OpenSQLite(databasePath)
}
