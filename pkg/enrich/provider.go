package enrich

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync/atomic"
)

// ErrorKind classifies provider failures for retry decisions.
type ErrorKind int

// Provider error kinds.
const (
	// ErrorTransient covers network failures, rate limits and 5xx
	// responses; these are retried with backoff.
	ErrorTransient ErrorKind = iota
	// ErrorPermanent covers auth failures and malformed requests; these
	// abort the batch.
	ErrorPermanent
	// ErrorCancelled marks context cancellation.
	ErrorCancelled
)

// ProviderError is a typed failure from a ContextProvider.
type ProviderError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider: %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err with a kind and operation tag.
func NewProviderError(kind ErrorKind, op string, err error) *ProviderError {
	return &ProviderError{Kind: kind, Op: op, Err: err}
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ErrorTransient
}

// IsPermanent reports whether err aborts the batch.
func IsPermanent(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == ErrorPermanent
}

// GenerateRequest carries one context-generation call.
type GenerateRequest struct {
	SystemPrompt string
	UserPrompt   string
	Model        string

	// CacheHint enables provider-side prompt-prefix caching when set.
	CacheHint bool
}

// GenerateResult is the provider's answer with token accounting.
type GenerateResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// ContextProvider is the LLM transport. Implementations return typed
// errors (ProviderError) so the pipeline can distinguish transient,
// permanent and cancelled failures.
type ContextProvider interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// MockProvider returns deterministic stub contexts without network
// calls. It records call counts for tests and is safe for concurrent use.
type MockProvider struct {
	calls atomic.Int64
	// FailWith, when set, is returned on every call.
	FailWith error
}

// NewMockProvider creates a mock transport.
func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Generate implements ContextProvider with a deterministic stub derived
// from the prompt content.
func (m *MockProvider) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	if err := ctx.Err(); err != nil {
		return GenerateResult{}, NewProviderError(ErrorCancelled, "generate", err)
	}
	m.calls.Add(1)
	if m.FailWith != nil {
		return GenerateResult{}, m.FailWith
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(req.UserPrompt))
	text := fmt.Sprintf("This chunk (ref %08x) belongs to the surrounding document and summarizes part of its content.", h.Sum32())
	return GenerateResult{
		Text:         text,
		InputTokens:  len(req.SystemPrompt)/4 + len(req.UserPrompt)/4,
		OutputTokens: len(text) / 4,
	}, nil
}

// Calls reports how many times Generate ran.
func (m *MockProvider) Calls() int {
	return int(m.calls.Load())
}
