// Package config reads and writes the wikigit configuration file. The file
// is YAML; a Manager handles decoding and encoding so callers never touch
// the codec directly.
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full configuration for wikigit.
type Config struct {
	App     AppConfig     `yaml:"app" json:"app"`
	Git     GitConfig     `yaml:"git" json:"git"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Sync    SyncConfig    `yaml:"sync" json:"sync"`
	Server  ServerConfig  `yaml:"server" json:"server"`
}

// AppConfig holds identity and access settings.
type AppConfig struct {
	Name string `yaml:"name" json:"name"`
	// AdminEmails may manage repositories, configuration, and reindexing.
	AdminEmails []string `yaml:"admin_emails" json:"admin_emails"`
	// DefaultRepository is the repository id served by the single-repo
	// route form. Empty means "the only enabled repository".
	DefaultRepository string `yaml:"default_repository,omitempty" json:"default_repository,omitempty"`
}

// GitConfig holds commit authorship and remote settings.
type GitConfig struct {
	AuthorName    string `yaml:"author_name" json:"author_name"`
	AuthorEmail   string `yaml:"author_email" json:"author_email"`
	DefaultBranch string `yaml:"default_branch" json:"default_branch"`
	AutoPush      bool   `yaml:"auto_push" json:"auto_push"`
	// TokenEnv names the environment variable holding the access token for
	// HTTPS remotes. The token itself never lives in the config file.
	TokenEnv string   `yaml:"token_env,omitempty" json:"token_env,omitempty"`
	Ignore   []string `yaml:"ignore,omitempty" json:"ignore,omitempty"`
}

// StorageConfig holds all on-disk locations.
type StorageConfig struct {
	// RepositoriesDir is where clones live, one subdirectory per repository.
	RepositoriesDir string `yaml:"repositories_dir" json:"repositories_dir"`
	// DatabasePath is the registry SQLite file. Empty means in-memory.
	DatabasePath string `yaml:"database_path" json:"database_path"`
	LogDir       string `yaml:"log_dir,omitempty" json:"log_dir,omitempty"`
}

// SearchConfig holds index settings.
type SearchConfig struct {
	// IndexDir is the bleve index location. Empty means memory-only.
	IndexDir string `yaml:"index_dir,omitempty" json:"index_dir,omitempty"`
	// RebuildOnStartup repopulates the index from the working trees on
	// boot, trading startup time for guaranteed freshness.
	RebuildOnStartup bool `yaml:"rebuild_on_startup" json:"rebuild_on_startup"`
}

// SyncConfig controls the background sync scheduler.
type SyncConfig struct {
	// Interval between automatic sync rounds. Zero disables the scheduler.
	Interval Duration `yaml:"interval" json:"interval"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Listen string `yaml:"listen" json:"listen"`
	// AuthFallbackEmail is used when the auth proxy header is absent,
	// for local development only.
	AuthFallbackEmail string `yaml:"auth_fallback_email,omitempty" json:"auth_fallback_email,omitempty"`
}

// Duration wraps time.Duration so YAML carries values like "5m" or "1h30m".
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// NewConfig creates a Config with defaults rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		App: AppConfig{Name: "wikigit"},
		Git: GitConfig{
			AuthorName:    "wikigit",
			AuthorEmail:   "wikigit@localhost",
			DefaultBranch: "main",
			AutoPush:      true,
			TokenEnv:      "WIKIGIT_GITHUB_TOKEN",
		},
		Storage: StorageConfig{
			RepositoriesDir: filepath.Join(baseDir, "repositories"),
			DatabasePath:    filepath.Join(baseDir, "registry.db"),
			LogDir:          filepath.Join(baseDir, "log"),
		},
		Search: SearchConfig{
			IndexDir: filepath.Join(baseDir, "index"),
		},
		Sync:   SyncConfig{Interval: Duration(5 * time.Minute)},
		Server: ServerConfig{Listen: "127.0.0.1:8080"},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return enc.Close()
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// WriteToFile writes a Config to the specified file path, creating parent
// directories as needed.
func WriteToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at path. It refuses to overwrite an
// existing file.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := WriteToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// RestartRequired compares two configs and lists the fields whose new
// values only take effect after a restart. Everything else applies live.
func RestartRequired(old, updated *Config) []string {
	var fields []string
	if old.Storage.RepositoriesDir != updated.Storage.RepositoriesDir {
		fields = append(fields, "storage.repositories_dir")
	}
	if old.Storage.DatabasePath != updated.Storage.DatabasePath {
		fields = append(fields, "storage.database_path")
	}
	if old.Storage.LogDir != updated.Storage.LogDir {
		fields = append(fields, "storage.log_dir")
	}
	if old.Search.IndexDir != updated.Search.IndexDir {
		fields = append(fields, "search.index_dir")
	}
	if old.Server.Listen != updated.Server.Listen {
		fields = append(fields, "server.listen")
	}
	if old.Git.TokenEnv != updated.Git.TokenEnv {
		fields = append(fields, "git.token_env")
	}
	return fields
}
