package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// Backend names accepted in cluster.backend.
const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Config holds the CLI's runtime settings.
type Config struct {
	// Database is the SQLite file holding sandbox records.
	Database string `yaml:"database" json:"database"`

	// User owns the recent-sandbox list.
	User string `yaml:"user" json:"user"`

	CallTimeout       time.Duration `yaml:"call_timeout" json:"call_timeout"`
	MaxRetries        int           `yaml:"max_retries" json:"max_retries"`
	RetryBackoff      time.Duration `yaml:"retry_backoff" json:"retry_backoff"`
	StaleAfter        time.Duration `yaml:"stale_after" json:"stale_after"`
	VerifyConcurrency int           `yaml:"verify_concurrency" json:"verify_concurrency"`

	Cluster ClusterConfig `yaml:"cluster" json:"cluster"`
	Log     LogConfig     `yaml:"log" json:"log"`
}

// ClusterConfig describes the table-storage cluster and its filesystem mounts.
type ClusterConfig struct {
	Name string `yaml:"name" json:"name"`

	// Backend selects the table store: "sqlite" (a local cluster file) or
	// "memory" (discarded on exit).
	Backend string `yaml:"backend" json:"backend"`

	// TablesDB is the SQLite file of the local cluster.
	TablesDB string `yaml:"tables_db" json:"tables_db"`

	// Mounts maps logical path prefixes to physical directories.
	Mounts map[string]string `yaml:"mounts" json:"mounts"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level"`
	SeqURL string `yaml:"seq_url" json:"seq_url"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	dir := stateDir()
	return &Config{
		Database:          filepath.Join(dir, "sandbox.db"),
		User:              defaultUser(),
		CallTimeout:       30 * time.Second,
		MaxRetries:        3,
		RetryBackoff:      200 * time.Millisecond,
		StaleAfter:        10 * time.Minute,
		VerifyConcurrency: 8,
		Cluster: ClusterConfig{
			Name:     "my.cluster.com",
			Backend:  BackendSQLite,
			TablesDB: filepath.Join(dir, "cluster.db"),
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads configuration from path, applies environment overrides and
// validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if db := os.Getenv("SANDBOX_DB"); db != "" {
		cfg.Database = db
	}
	if user := os.Getenv("SANDBOX_USER"); user != "" {
		cfg.User = user
	}
	if level := os.Getenv("SANDBOX_LOG_LEVEL"); level != "" {
		cfg.Log.Level = strings.ToLower(level)
	}

	if len(cfg.Cluster.Mounts) == 0 {
		cfg.Cluster.Mounts = map[string]string{
			"/": filepath.Join("/mapr", cfg.Cluster.Name),
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cfg against the embedded CUE schema.
func Validate(cfg *Config) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))

	encoded := *cfg
	if encoded.Cluster.Mounts == nil {
		encoded.Cluster.Mounts = map[string]string{}
	}
	val := ctx.Encode(encoded)
	if err := val.Err(); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := def.Unify(val).Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DefaultConfigPath returns the default location for the CLI config file.
func DefaultConfigPath() string {
	if path := os.Getenv("SANDBOX_CONFIG"); path != "" {
		return path
	}
	return filepath.Join(stateDir(), "config.yaml")
}

// FindConfigFile returns explicit if set. Otherwise it returns
// DefaultConfigPath when that file exists, or "" to run on defaults.
func FindConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	path := DefaultConfigPath()
	if os.Getenv("SANDBOX_CONFIG") != "" {
		return path
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return path
}

func stateDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sandbox")
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "default"
}
