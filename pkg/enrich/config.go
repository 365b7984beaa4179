package enrich

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig marks enrichment configuration problems.
var ErrInvalidConfig = errors.New("invalid enrichment configuration")

// ErrEnrichmentDisabled is returned when enrichment is requested from
// an engine constructed without a context provider.
var ErrEnrichmentDisabled = errors.New("enrichment is not configured")

// DefaultModel is the context-generation model used when none is set.
const DefaultModel = "claude-3-5-sonnet-latest"

// Config holds the enrichment pipeline parameters. Validate replaces a
// zero model, numeric limit, delay or pricing with its default; an empty
// CacheDir is kept.
type Config struct {
	Model string `mapstructure:"model_name"`

	// MaxConcurrentRequests bounds in-flight provider calls.
	MaxConcurrentRequests int `mapstructure:"max_concurrent_requests"`

	// MaxRetries bounds retry attempts after a transient failure.
	MaxRetries int `mapstructure:"max_retries"`

	// PerCallTimeout bounds each provider call.
	PerCallTimeout time.Duration `mapstructure:"per_call_timeout"`

	// RetryBaseDelay seeds the exponential backoff schedule.
	RetryBaseDelay time.Duration `mapstructure:"retry_base_delay"`

	// EnablePromptCaching passes the provider's prompt-prefix cache hint.
	EnablePromptCaching bool `mapstructure:"enable_prompt_caching"`

	// CacheDir is the persistent context cache directory. Empty disables
	// persistence.
	CacheDir string `mapstructure:"cache_dir"`

	Pricing Pricing `mapstructure:",squash"`
}

// Validate fills defaults and checks invariants.
func (c *Config) Validate() error {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.MaxConcurrentRequests == 0 {
		c.MaxConcurrentRequests = 5
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.PerCallTimeout == 0 {
		c.PerCallTimeout = 30 * time.Second
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = 500 * time.Millisecond
	}
	if c.Pricing == (Pricing{}) {
		c.Pricing = DefaultPricing
	}

	if c.MaxConcurrentRequests < 1 {
		return fmt.Errorf("%w: max_concurrent_requests must be positive", ErrInvalidConfig)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("%w: max_retries must be non-negative", ErrInvalidConfig)
	}
	return nil
}
