// Package config loads campaign-memory settings from config.yaml and the
// environment.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/spf13/viper"

	"github.com/rcliao/campaign-memory/internal/embedding"
	"github.com/rcliao/campaign-memory/internal/logging"
)

const (
	appName   = "campaign-memory"
	envPrefix = "CAMPAIGN_MEMORY"
)

type Config struct {
	DataDir  string         `mapstructure:"data_dir"`
	LogLevel string         `mapstructure:"log_level"`
	Embedder EmbedderConfig `mapstructure:"embedder"`
	Recall   RecallConfig   `mapstructure:"recall"`
}

type EmbedderConfig struct {
	Provider string `mapstructure:"provider"`
	Model    string `mapstructure:"model"`
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Dims     int    `mapstructure:"dims"`
}

type RecallConfig struct {
	SceneK  int           `mapstructure:"scene_k"`
	TurnK   int           `mapstructure:"turn_k"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DefaultDataDir returns ~/.campaign-memory, or ./.campaign-memory when the
// home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".campaign-memory"
	}
	return filepath.Join(home, ".campaign-memory")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("embedder.provider", "hash")
	v.SetDefault("embedder.model", "")
	v.SetDefault("embedder.base_url", "")
	v.SetDefault("embedder.api_key", "")
	v.SetDefault("embedder.dims", 0)
	v.SetDefault("recall.scene_k", 5)
	v.SetDefault("recall.turn_k", 3)
	v.SetDefault("recall.timeout", "5s")
}

// Load reads configuration. When path is empty, config.yaml is searched in the
// working directory, $XDG_CONFIG_HOME/campaign-memory and
// ~/.config/campaign-memory; a missing file is not an error. Environment
// variables prefixed with CAMPAIGN_MEMORY_ override the file, and
// OPENAI_API_KEY is used for embedder.api_key when nothing else sets it.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			v.AddConfigPath(filepath.Join(xdg, appName))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", appName))
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("embedder.api_key", envPrefix+"_EMBEDDER_API_KEY", "OPENAI_API_KEY"); err != nil {
		return nil, goerr.Wrap(err, "bind env")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, goerr.Wrap(err, "read config", goerr.V("path", path))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, goerr.Wrap(err, "decode config")
	}
	cfg.DataDir = os.ExpandEnv(cfg.DataDir)
	cfg.Embedder.APIKey = os.ExpandEnv(cfg.Embedder.APIKey)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return goerr.New("data_dir is required")
	}
	if _, ok := logging.ParseLevel(c.LogLevel); !ok {
		return goerr.New("invalid log_level", goerr.V("log_level", c.LogLevel))
	}
	switch c.Embedder.Provider {
	case "", "hash", "openai", "ollama", "gemini":
	default:
		return goerr.New("unknown embedder provider", goerr.V("provider", c.Embedder.Provider))
	}
	if c.Embedder.Dims < 0 {
		return goerr.New("embedder.dims must not be negative", goerr.V("dims", c.Embedder.Dims))
	}
	if c.Recall.SceneK <= 0 || c.Recall.TurnK <= 0 {
		return goerr.New("recall k values must be positive",
			goerr.V("scene_k", c.Recall.SceneK), goerr.V("turn_k", c.Recall.TurnK))
	}
	if c.Recall.Timeout <= 0 {
		return goerr.New("recall.timeout must be positive", goerr.V("timeout", c.Recall.Timeout.String()))
	}
	return nil
}

// EmbeddingConfig converts the embedder section for embedding.FromConfig.
func (c *Config) EmbeddingConfig() embedding.Config {
	return embedding.Config{
		Provider: c.Embedder.Provider,
		Model:    c.Embedder.Model,
		BaseURL:  c.Embedder.BaseURL,
		APIKey:   c.Embedder.APIKey,
		Dims:     c.Embedder.Dims,
	}
}
