// Package config manages ghlog configuration and the .ghlog directory
// structure.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	GhlogDir     = ".ghlog"
	ConfigFile   = "config"
	DatabaseFile = "ghlog.db"
	WorkDir      = "work"

	// TokenEnv is the environment variable consulted when no token is
	// configured or passed on the command line.
	TokenEnv = "GITHUB_TOKEN"
)

// Mirror is a remote repository the sync stage pushes to.
type Mirror struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// Config represents the ghlog configuration.
type Config struct {
	// Pipeline
	RepoURL      string   `toml:"repo_url"`      // repository the pipeline checks out
	PipelineFile string   `toml:"pipeline_file"` // relative to the repo root; empty = .ghlog.yml
	Mirrors      []Mirror `toml:"mirrors"`       // sync stage targets

	// Activity tool
	GitHubUser string `toml:"github_user"` // default -u for the activity command
	APIBaseURL string `toml:"api_base_url"`

	// Server
	ListenAddr string `toml:"listen_addr"`

	path string // path to the .ghlog directory
}

// FindRoot finds the .ghlog directory by walking up from the current
// directory.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		p := filepath.Join(dir, GhlogDir)
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("not a ghlog directory (or any parent up to root)")
		}
		dir = parent
	}
}

// Load loads the configuration from the nearest .ghlog directory.
func Load() (*Config, error) {
	root, err := FindRoot()
	if err != nil {
		return nil, err
	}
	return LoadFrom(root)
}

// LoadFrom loads the configuration from an explicit .ghlog directory.
func LoadFrom(root string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(root, ConfigFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.path = root
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8144"
	}
	if c.APIBaseURL == "" {
		c.APIBaseURL = "https://api.github.com"
	}
}

// Save saves the configuration to disk.
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(filepath.Join(c.path, ConfigFile), data, 0644)
}

// Root returns the path to the .ghlog directory.
func (c *Config) Root() string {
	return c.path
}

// DatabasePath returns the path to the run-history database.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.path, DatabaseFile)
}

// WorkPath returns the checkout working directory for pipeline runs.
func (c *Config) WorkPath() string {
	return filepath.Join(c.path, WorkDir)
}

// Token resolves the GitHub API token: explicit value first, then the
// GITHUB_TOKEN environment variable.
func (c *Config) Token(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return os.Getenv(TokenEnv)
}

// Initialize creates a new .ghlog directory with initial configuration.
func Initialize(repoURL string) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	root := filepath.Join(cwd, GhlogDir)
	if _, err := os.Stat(root); err == nil {
		return nil, fmt.Errorf("ghlog directory already exists")
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create .ghlog directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(root, WorkDir), 0755); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	cfg := &Config{RepoURL: repoURL, path: root}
	cfg.applyDefaults()

	if err := cfg.Save(); err != nil {
		os.RemoveAll(root)
		return nil, err
	}
	return cfg, nil
}
