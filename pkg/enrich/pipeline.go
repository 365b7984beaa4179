package enrich

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"github.com/hsn0918/docindex/pkg/chunking"
	"github.com/hsn0918/docindex/pkg/enrich/contextcache"
	"github.com/hsn0918/docindex/pkg/logger"
)

// ProgressFunc is invoked after every chunk completes (success, cache
// hit or permanent per-chunk failure). Panics in the callback are
// caught and logged, never propagated.
type ProgressFunc func(processed, total int)

// flightOutcome is the shared result of one coalesced fingerprint
// flight.
type flightOutcome struct {
	text   string
	cached bool
}

// Service runs the contextual enrichment pipeline.
type Service struct {
	provider ContextProvider
	registry *TemplateRegistry
	cache    *contextcache.Cache
	cfg      Config

	// flights coalesces concurrent same-fingerprint work so the
	// provider is called at most once per fingerprint.
	flights singleflight.Group

	lastMetrics atomic.Pointer[Metrics]
}

// NewService wires the pipeline. The template registry is validated
// here so a missing category template fails at startup, as does an
// unwritable cache directory.
func NewService(provider ContextProvider, cfg Config) (*Service, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider is required", ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	registry, err := NewTemplateRegistry()
	if err != nil {
		return nil, err
	}

	var cache *contextcache.Cache
	if cfg.CacheDir != "" {
		cache, err = contextcache.New(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
	}

	return &Service{
		provider: provider,
		registry: registry,
		cache:    cache,
		cfg:      cfg,
	}, nil
}

// Close releases the cache resources.
func (s *Service) Close() {
	if s.cache != nil {
		s.cache.Close()
	}
}

// Metrics returns the metrics of the most recent batch.
func (s *Service) Metrics() Metrics {
	if m := s.lastMetrics.Load(); m != nil {
		return *m
	}
	return Metrics{}
}

// GenerateContexts produces a context string for every chunk. The
// returned map is keyed by chunk id; input order is preserved in the
// sense that results[chunks[i].ID] always corresponds to chunks[i], and
// failed chunks map to the empty string.
//
// At most MaxConcurrentRequests provider calls are in flight at once.
// Transient failures retry with exponential backoff; exhaustion records
// a per-chunk error and processing continues. Permanent failures and
// cancellation abort remaining work and return the partial result.
func (s *Service) GenerateContexts(
	ctx context.Context,
	chunks []chunking.DocumentChunk,
	docContext map[string]string,
	progress ProgressFunc,
) (map[string]string, Metrics, error) {
	started := time.Now()
	acc := newMetricsAccumulator(len(chunks), s.cfg.Pricing)

	results := make([]string, len(chunks))
	var processed atomic.Int64

	report := func() {
		n := int(processed.Add(1))
		if progress == nil {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				logger.Get().Warn("progress callback panicked", zap.Any("panic", r))
			}
		}()
		progress(n, len(chunks))
	}

	sem := semaphore.NewWeighted(int64(s.cfg.MaxConcurrentRequests))
	g, gctx := errgroup.WithContext(ctx)

	for i := range chunks {
		i := i
		chunk := chunks[i]
		g.Go(func() error {
			category := DetectCategory(chunk, chunk.Metadata.DocumentPath)
			fp := contextcache.Fingerprint(
				chunk.Content,
				chunk.Metadata.SectionHierarchy,
				chunk.Metadata.DocumentPath,
				string(category),
			)

			system, user, err := s.registry.Format(category, chunk, docContext)
			if err != nil {
				acc.recordError(err)
				report()
				return NewProviderError(ErrorPermanent, "format prompt", err)
			}

			// Same-fingerprint chunks coalesce into one flight; the
			// cache is re-checked inside the flight so only the first
			// cold miss ever reaches the provider.
			v, err, _ := s.flights.Do(fp, func() (any, error) {
				if s.cache != nil {
					if e, ok := s.cache.Get(fp); ok {
						return flightOutcome{text: e.Context, cached: true}, nil
					}
				}

				if err := sem.Acquire(gctx, 1); err != nil {
					return nil, NewProviderError(ErrorCancelled, "acquire", err)
				}
				defer sem.Release(1)

				res, err := s.callWithRetry(gctx, GenerateRequest{
					SystemPrompt: system,
					UserPrompt:   user,
					Model:        s.cfg.Model,
					CacheHint:    s.cfg.EnablePromptCaching,
				})
				if err != nil {
					return nil, err
				}
				acc.recordTokens(res.InputTokens, res.OutputTokens)

				if s.cache != nil {
					if err := s.cache.Put(fp, string(category), res.Text); err != nil {
						logger.Get().Warn("context cache write failed",
							zap.String("chunk", chunk.ID),
							zap.Error(err))
					}
				}
				return flightOutcome{text: res.Text}, nil
			})
			switch {
			case err == nil:
			case IsPermanent(err):
				acc.recordError(fmt.Errorf("chunk %s: %w", chunk.ID, err))
				report()
				return err
			case gctx.Err() != nil:
				return err
			default:
				// Transient exhaustion: record, leave the context empty
				// and keep going.
				acc.recordError(fmt.Errorf("chunk %s: %w", chunk.ID, err))
				results[i] = ""
				report()
				return nil
			}

			outcome := v.(flightOutcome)
			results[i] = outcome.text
			if outcome.cached {
				acc.recordCached()
			} else {
				acc.recordProcessed()
			}
			report()
			return nil
		})
	}

	batchErr := g.Wait()
	metrics := acc.finish(time.Since(started))
	s.lastMetrics.Store(&metrics)

	out := make(map[string]string, len(chunks))
	for i, c := range chunks {
		out[c.ID] = results[i]
	}
	return out, metrics, batchErr
}

// callWithRetry runs one provider call with the per-call timeout,
// retrying transient failures with exponential backoff up to MaxRetries.
func (s *Service) callWithRetry(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	var lastErr error
	for attempt := 0; attempt <= s.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := s.cfg.RetryBaseDelay << (attempt - 1)
			select {
			case <-ctx.Done():
				return GenerateResult{}, NewProviderError(ErrorCancelled, "backoff", ctx.Err())
			case <-time.After(delay):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.cfg.PerCallTimeout)
		res, err := s.provider.Generate(callCtx, req)
		cancel()
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return GenerateResult{}, NewProviderError(ErrorCancelled, "generate", ctx.Err())
		}
		if IsPermanent(err) {
			return GenerateResult{}, err
		}
		// Per-call timeouts and transient provider errors retry.
		lastErr = err
		logger.Get().Debug("transient provider failure",
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return GenerateResult{}, NewProviderError(ErrorTransient, "retries exhausted", lastErr)
}
