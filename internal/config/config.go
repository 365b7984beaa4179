// Package config loads the harness configuration for the indexing
// engine. The core library never reads files or environment variables
// itself; everything is resolved here and passed in as records.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/hsn0918/docindex/pkg/chunking"
	"github.com/hsn0918/docindex/pkg/enrich"
)

// Common configuration errors.
var (
	ErrConfigNotFound = errors.New("configuration file not found")
)

// ProviderKind selects the enrichment transport.
type ProviderKind string

// Provider kinds.
const (
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOpenAI    ProviderKind = "openai"
	ProviderMock      ProviderKind = "mock"
)

// Config is the complete harness configuration.
type Config struct {
	// Input configuration.
	Input struct {
		Dir     string   `mapstructure:"dir"`
		Globs   []string `mapstructure:"globs"`
		Context map[string]string `mapstructure:"context"`
	} `mapstructure:"input"`

	// Chunking configuration, passed to the optimizer unchanged.
	Chunking chunking.Config `mapstructure:"chunking"`

	// Enrichment configuration.
	Enrichment struct {
		Enabled  bool         `mapstructure:"enabled"`
		Provider ProviderKind `mapstructure:"provider"`
		APIKey   string       `mapstructure:"api_key"`
		BaseURL  string       `mapstructure:"base_url"`

		enrich.Config `mapstructure:",squash"`
	} `mapstructure:"enrichment"`
}

// Validate checks and defaults the full configuration.
func (c *Config) Validate() error {
	if err := c.Chunking.Validate(); err != nil {
		return fmt.Errorf("chunking config: %w", err)
	}
	if err := c.Enrichment.Config.Validate(); err != nil {
		return fmt.Errorf("enrichment config: %w", err)
	}
	if c.Enrichment.Provider == "" {
		c.Enrichment.Provider = ProviderMock
	}
	switch c.Enrichment.Provider {
	case ProviderAnthropic, ProviderOpenAI, ProviderMock:
	default:
		return fmt.Errorf("unknown enrichment provider %q", c.Enrichment.Provider)
	}
	if len(c.Input.Globs) == 0 {
		c.Input.Globs = []string{"*.md", "*.markdown", "*.txt"}
	}
	return nil
}

// Load reads the configuration file (docindex.yaml) from the given
// directory, with environment overrides applied automatically.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("docindex")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvPrefix("DOCINDEX")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Defaults plus environment are enough to run.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if key := v.GetString("api_key"); key != "" && cfg.Enrichment.APIKey == "" {
		cfg.Enrichment.APIKey = key
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input.dir", ".")

	v.SetDefault("chunking.max_chunk_size", chunking.DefaultMaxChunkSize)
	v.SetDefault("chunking.min_chunk_size", chunking.DefaultMinChunkSize)
	v.SetDefault("chunking.overlap_size", chunking.DefaultOverlapSize)
	v.SetDefault("chunking.strategy", string(chunking.StrategyHybrid))
	v.SetDefault("chunking.semantic_threshold", chunking.DefaultSemanticThreshold)
	v.SetDefault("chunking.coherence_threshold", chunking.DefaultCoherenceThreshold)

	v.SetDefault("enrichment.enabled", false)
	v.SetDefault("enrichment.provider", string(ProviderMock))
	v.SetDefault("enrichment.model_name", enrich.DefaultModel)
	v.SetDefault("enrichment.max_concurrent_requests", 5)
	v.SetDefault("enrichment.max_retries", 3)
	v.SetDefault("enrichment.per_call_timeout", 30*time.Second)
	v.SetDefault("enrichment.cache_dir", ".docindex-cache")
	v.SetDefault("enrichment.price_per_million_input", enrich.DefaultPricing.InputPerMillion)
	v.SetDefault("enrichment.price_per_million_output", enrich.DefaultPricing.OutputPerMillion)
}
