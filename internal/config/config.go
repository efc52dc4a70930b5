package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	EnvAPIKey  = "OPENAI_API_KEY"
	EnvBaseURL = "OPENAI_BASE_URL"
	EnvPort    = "PROMPTGRID_PORT"
)

// ErrMissingCredential indicates that no provider API key was configured.
var ErrMissingCredential = errors.New("OpenAI API key not found: set " + EnvAPIKey + " in the environment or .env file")

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Provider ProviderConfig `yaml:"provider"`
	Template TemplateConfig `yaml:"template"`
	Form     FormConfig     `yaml:"form"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// ProviderConfig captures authentication and routing info for the completion API.
type ProviderConfig struct {
	APIKey  string            `yaml:"api_key"`
	BaseURL string            `yaml:"base_url"`
	Timeout time.Duration     `yaml:"timeout"`
	Models  []ModelConfig     `yaml:"models"`
	Headers Headers           `yaml:"headers"`
	Aliases map[string]string `yaml:"aliases"`
}

// Headers contains additional HTTP headers to send with a provider request.
type Headers map[string]string

// ModelConfig describes a model offered in the model selector.
type ModelConfig struct {
	ID    string `yaml:"id"`
	Label string `yaml:"label"`
}

// TemplateConfig controls description template rendering.
type TemplateConfig struct {
	Strict *bool `yaml:"strict"`
}

// IsStrict reports whether unknown placeholders fail rendering. Defaults to true.
func (t TemplateConfig) IsStrict() bool {
	return t.Strict == nil || *t.Strict
}

// FormConfig holds the values the form is pre-filled with.
type FormConfig struct {
	Product          string  `yaml:"product"`
	Style            string  `yaml:"style"`
	Template         string  `yaml:"template"`
	Model            string  `yaml:"model"`
	Temperature      float64 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	PresencePenalty  float64 `yaml:"presence_penalty"`
	FrequencyPenalty float64 `yaml:"frequency_penalty"`
	Stop             string  `yaml:"stop"`
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional dotenv file and the process environment, then validates it.
// Empty paths are skipped. A missing dotenv file is not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return Config{}, fmt.Errorf("resolve config path: %w", err)
		}

		data, err := os.ReadFile(absPath)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
		}

		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %q: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvAPIKey); ok && strings.TrimSpace(v) != "" {
		c.Provider.APIKey = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvBaseURL); ok && strings.TrimSpace(v) != "" {
		c.Provider.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvPort); ok && strings.TrimSpace(v) != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s must be an integer: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Provider.APIKey) == "" {
		return ErrMissingCredential
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}
	if err := validateProvider(c.Provider); err != nil {
		return err
	}
	if err := c.Form.validate(c.Provider); err != nil {
		return err
	}
	return nil
}

func validateProvider(provider ProviderConfig) error {
	if strings.TrimSpace(provider.BaseURL) == "" {
		return errors.New("provider: base_url must be provided")
	}
	if provider.Timeout < 0 {
		return fmt.Errorf("provider: timeout must not be negative, got %s", provider.Timeout)
	}
	if len(provider.Models) == 0 {
		return errors.New("provider: at least one model must be configured")
	}

	known := make(map[string]struct{}, len(provider.Models))
	for _, model := range provider.Models {
		if strings.TrimSpace(model.ID) == "" {
			return errors.New("provider: model id must not be empty")
		}
		if _, dup := known[model.ID]; dup {
			return fmt.Errorf("provider: model %q configured twice", model.ID)
		}
		known[model.ID] = struct{}{}
	}

	for headerKey := range provider.Headers {
		if !isCanonicalHTTPHeader(headerKey) {
			return fmt.Errorf("provider: header %q is not a valid canonical HTTP header", headerKey)
		}
	}

	for alias, target := range provider.Aliases {
		if strings.TrimSpace(alias) == "" {
			return errors.New("provider: alias name must not be empty")
		}
		if _, ok := known[target]; !ok {
			return fmt.Errorf("provider: alias %q targets unconfigured model %q", alias, target)
		}
	}

	return nil
}

func (f FormConfig) validate(provider ProviderConfig) error {
	if strings.TrimSpace(f.Template) == "" {
		return errors.New("form: template must not be empty")
	}
	if !provider.hasModel(f.Model) {
		return fmt.Errorf("form: default model %q is not configured", f.Model)
	}
	if err := ValidateParams(f.Temperature, f.MaxTokens, f.PresencePenalty, f.FrequencyPenalty); err != nil {
		return fmt.Errorf("form: %w", err)
	}
	return nil
}

func (p ProviderConfig) hasModel(id string) bool {
	if _, ok := p.Aliases[id]; ok {
		return true
	}
	for _, m := range p.Models {
		if m.ID == id {
			return true
		}
	}
	return false
}

func isCanonicalHTTPHeader(header string) bool {
	if header == "" {
		return false
	}

	for _, r := range header {
		if !(r == '-' || (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')) {
			return false
		}
	}
	return true
}
