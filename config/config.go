package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/sirupsen/logrus"
)

//go:embed default.yaml
var defaultYAML []byte

type Config struct {
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	APIKeyEnv       string  `yaml:"api_key_env"`
	SystemPrompt    string  `yaml:"system_prompt"`
	MaxStreamHeight int     `yaml:"max_stream_height"`
	Markdown        bool    `yaml:"markdown"`
	MarkdownStyle   string  `yaml:"markdown_style"`
	History         History `yaml:"history"`
	Log             Log     `yaml:"log"`

	// Source is the file the config was read from, empty when only defaults apply.
	Source string `yaml:"-"`
}

type History struct {
	Path string `yaml:"path"`
}

type Log struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

const (
	envConfigPath = "COMPOUND_CONFIG"
	envModel      = "COMPOUND_MODEL"
	envBaseURL    = "COMPOUND_BASE_URL"
	envLogLevel   = "COMPOUND_LOG_LEVEL"
)

// Default returns the embedded defaults.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Errorf("config: embedded defaults are invalid: %w", err))
	}
	return cfg
}

// DefaultPath is $COMPOUND_CONFIG, falling back to ~/.compound/config.yaml.
func DefaultPath() string {
	if p := strings.TrimSpace(os.Getenv(envConfigPath)); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".compound", "config.yaml")
}

// Load reads the config at path over the defaults, applies env overrides, expands `~` in paths
// and validates the result. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	if path != "" {
		content, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("config.Load: failed to read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(content, &cfg); err != nil {
				return cfg, fmt.Errorf("config.Load: failed to parse %s: %w", path, err)
			}
			cfg.Source = path
		}
	}

	applyEnv(&cfg)

	var err error
	if cfg.History.Path, err = expandHomeDir(cfg.History.Path); err != nil {
		return cfg, fmt.Errorf("config.Load: history.path: %w", err)
	}
	if cfg.Log.Path, err = expandHomeDir(cfg.Log.Path); err != nil {
		return cfg, fmt.Errorf("config.Load: log.path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return errors.New("model must not be empty")
	}
	if c.MaxStreamHeight < 0 {
		return fmt.Errorf("max_stream_height must not be negative, got %d", c.MaxStreamHeight)
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if strings.TrimSpace(c.Log.Path) == "" {
		return errors.New("log.path must not be empty")
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(envModel)); v != "" {
		cfg.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(envBaseURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(envLogLevel)); v != "" {
		cfg.Log.Level = v
	}
}

func expandHomeDir(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
