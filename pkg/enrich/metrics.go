package enrich

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Pricing declares the USD cost per million tokens. Defaults mirror the
// Claude 3.5 Sonnet schedule.
type Pricing struct {
	InputPerMillion  float64 `mapstructure:"price_per_million_input"`
	OutputPerMillion float64 `mapstructure:"price_per_million_output"`
}

// DefaultPricing is the built-in price table.
var DefaultPricing = Pricing{
	InputPerMillion:  3.00,
	OutputPerMillion: 15.00,
}

// Cost computes the charge for a token pair.
func (p Pricing) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1e6*p.InputPerMillion +
		float64(outputTokens)/1e6*p.OutputPerMillion
}

// Metrics accumulates per-batch enrichment statistics. All updates go
// through the owning accumulator's mutex.
type Metrics struct {
	BatchID           string        `json:"batch_id"`
	TotalChunks       int           `json:"total_chunks"`
	ProcessedChunks   int           `json:"processed_chunks"`
	CachedChunks      int           `json:"cached_chunks"`
	TotalTokensInput  int           `json:"total_tokens_input"`
	TotalTokensOutput int           `json:"total_tokens_output"`
	TotalCost         float64       `json:"total_cost"`
	ProcessingTime    time.Duration `json:"processing_time"`
	Errors            []string      `json:"errors,omitempty"`
}

// metricsAccumulator is the single owner of a batch's metrics record.
type metricsAccumulator struct {
	mu      sync.Mutex
	m       Metrics
	pricing Pricing
}

func newMetricsAccumulator(total int, pricing Pricing) *metricsAccumulator {
	return &metricsAccumulator{
		m:       Metrics{BatchID: uuid.NewString(), TotalChunks: total},
		pricing: pricing,
	}
}

func (a *metricsAccumulator) recordCached() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m.CachedChunks++
	a.m.ProcessedChunks++
}

// recordProcessed counts one completed chunk.
func (a *metricsAccumulator) recordProcessed() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m.ProcessedChunks++
}

// recordTokens accounts one actual provider call. Chunks that coalesce
// onto a shared flight contribute token usage exactly once.
func (a *metricsAccumulator) recordTokens(inputTokens, outputTokens int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m.TotalTokensInput += inputTokens
	a.m.TotalTokensOutput += outputTokens
	a.m.TotalCost += a.pricing.Cost(inputTokens, outputTokens)
}

func (a *metricsAccumulator) recordError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m.Errors = append(a.m.Errors, err.Error())
}

func (a *metricsAccumulator) finish(elapsed time.Duration) Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.m.ProcessingTime = elapsed
	return a.m
}

func (a *metricsAccumulator) snapshot() Metrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.m
}
