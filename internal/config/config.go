package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Relational Relational `yaml:"relational"`
	Retrieval  Retrieval  `yaml:"retrieval"`
	Generation Generation `yaml:"generation"`
	Output     Output     `yaml:"output"`
	Server     Server     `yaml:"server"`
	Logging    Logging    `yaml:"logging"`
}

type Relational struct {
	DSN string `yaml:"dsn"`
}

type Retrieval struct {
	Backend        string        `yaml:"backend"`
	DSN            string        `yaml:"dsn"`
	ChromaURL      string        `yaml:"chroma_url"`
	Collection     string        `yaml:"collection"`
	EmbeddingModel string        `yaml:"embedding_model"`
	OllamaURL      string        `yaml:"ollama_url"`
	TopK           int           `yaml:"top_k"`
	Timeout        time.Duration `yaml:"timeout"`
}

type Generation struct {
	Provider  string        `yaml:"provider"`
	Model     string        `yaml:"model"`
	BaseURL   string        `yaml:"base_url"`
	APIKeyEnv string        `yaml:"api_key_env"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
	RPM       int           `yaml:"rpm"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ConfigDir returns the XDG config directory for offsetvalidator.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "offsetvalidator")
}

// DataDir returns the XDG data directory for offsetvalidator.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "offsetvalidator")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/offsetvalidator/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'offsetvalidator init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies environment
// overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	cfg.EnvOverrides(os.Getenv)
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults. Optional
// subsystems default to disabled.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Retrieval: Retrieval{
			Collection:     "project_documents",
			EmbeddingModel: "nomic-embed-text",
			OllamaURL:      "http://localhost:11434",
			TopK:           5,
			Timeout:        5 * time.Second,
		},
		Generation: Generation{
			APIKeyEnv: "OPENAI_API_KEY",
			MaxTokens: 250,
			Timeout:   30 * time.Second,
		},
		Server:  Server{Addr: "127.0.0.1:3001"},
		Logging: Logging{Level: "info"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Retrieval.Backend = strings.ToLower(strings.TrimSpace(cfg.Retrieval.Backend))
	cfg.Generation.Provider = strings.ToLower(strings.TrimSpace(cfg.Generation.Provider))
	if cfg.Retrieval.TopK <= 0 {
		return nil, fmt.Errorf("retrieval.top_k must be positive, got %d", cfg.Retrieval.TopK)
	}
	switch cfg.Retrieval.Backend {
	case "", "sqlite", "chroma":
	default:
		return nil, fmt.Errorf("unknown retrieval.backend %q", cfg.Retrieval.Backend)
	}
	return cfg, nil
}

// EnvOverrides applies connection settings from the environment. getenv is
// usually os.Getenv.
func (c *Config) EnvOverrides(getenv func(string) string) {
	if v := getenv("DATABASE_URL"); v != "" {
		c.Relational.DSN = v
	}
	if v := getenv("CHROMA_URL"); v != "" {
		c.Retrieval.ChromaURL = v
		if c.Retrieval.Backend == "" {
			c.Retrieval.Backend = "chroma"
		}
	}
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// RelationalDSN returns the relational store DSN, defaulting to a SQLite
// file in the data directory.
func (c *Config) RelationalDSN() string {
	if c.Relational.DSN != "" {
		return c.Relational.DSN
	}
	return "sqlite://" + filepath.Join(c.GetDataDir(), "projects.db")
}

// DocumentDSN returns the SQLite document store DSN.
func (c *Config) DocumentDSN() string {
	if c.Retrieval.DSN != "" {
		return c.Retrieval.DSN
	}
	return "sqlite://" + filepath.Join(c.GetDataDir(), "documents.db")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
