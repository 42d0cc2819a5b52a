// Package config loads graphtutor runtime configuration.
// Configuration lives in a YAML file under a project-local .graphtutor
// directory (falling back to the home directory), with environment
// variables taking precedence for the credential and model selection.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Engine selects the model invocation backend.
const (
	EngineGemini = "gemini" // hand-rolled HTTP client
	EngineGenAI  = "genai"  // official SDK client
)

// Config holds user preferences and model settings.
type Config struct {
	Engine          string  `yaml:"engine"`
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	BaseURL         string  `yaml:"base_url"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Timeout         string  `yaml:"timeout"`

	Theme      string `yaml:"theme"`      // "light" or "dark"
	Difficulty string `yaml:"difficulty"` // free-text hint embedded in prompts
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Engine:          EngineGemini,
		Model:           "gemini-3-flash-preview",
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta",
		Temperature:     0.7,
		MaxOutputTokens: 8192,
		Timeout:         "2m",
		Theme:           "light",
		Difficulty:      "beginner",
	}
}

// Dir returns the directory where config is stored. A project-local
// .graphtutor directory is preferred when present or creatable.
func Dir() (string, error) {
	if cwd, err := os.Getwd(); err == nil {
		localDir := filepath.Join(cwd, ".graphtutor")
		if stat, err := os.Stat(localDir); (err == nil && stat.IsDir()) || os.IsNotExist(err) {
			return localDir, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".graphtutor"), nil
}

// File returns the full path to the config file.
func File() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the configuration from path. A missing file yields defaults
// (plus environment overrides), not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		applyEnv(&cfg)
		return cfg, nil
	}
	if err != nil {
		applyEnv(&cfg)
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		defaults := Default()
		applyEnv(&defaults)
		return defaults, fmt.Errorf("invalid config %s: %w", path, err)
	}
	fillDefaults(&cfg)
	applyEnv(&cfg)
	return cfg, nil
}

// LoadDefault loads the config from the default location.
func LoadDefault() (Config, error) {
	path, err := File()
	if err != nil {
		cfg := Default()
		applyEnv(&cfg)
		return cfg, err
	}
	return Load(path)
}

// Save writes the configuration to the default location.
func Save(cfg Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0600)
}

// TimeoutDuration parses the configured timeout, falling back to 2 minutes.
func (c Config) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 2 * time.Minute
	}
	return d
}

func fillDefaults(cfg *Config) {
	def := Default()
	if cfg.Engine == "" {
		cfg.Engine = def.Engine
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = def.Temperature
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = def.MaxOutputTokens
	}
	if cfg.Timeout == "" {
		cfg.Timeout = def.Timeout
	}
	if cfg.Theme == "" {
		cfg.Theme = def.Theme
	}
	if cfg.Difficulty == "" {
		cfg.Difficulty = def.Difficulty
	}
}

// applyEnv layers environment variables over file values.
// GEMINI_API_KEY wins over the file credential so the key never has to be
// written to disk.
func applyEnv(cfg *Config) {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	if model := os.Getenv("GRAPHTUTOR_MODEL"); model != "" {
		cfg.Model = model
	}
	if engine := os.Getenv("GRAPHTUTOR_ENGINE"); engine != "" {
		cfg.Engine = engine
	}
}
