// Package engine exposes the document processing facade: parse a
// document into structure, chunks and metadata, and enrich chunk
// batches with generated context.
package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hsn0918/docindex/pkg/chunking"
	"github.com/hsn0918/docindex/pkg/enrich"
	"github.com/hsn0918/docindex/pkg/logger"
	"github.com/hsn0918/docindex/pkg/metadata"
	"github.com/hsn0918/docindex/pkg/parser"
	"github.com/hsn0918/docindex/pkg/section"
	"github.com/hsn0918/docindex/pkg/textutil"
)

// Document is one unit of input: raw bytes plus a logical path. The
// path does not need to exist on disk; it carries category hints and
// identity.
type Document struct {
	Path    string
	Content []byte

	// Context optionally carries document-level key/value context used
	// during enrichment.
	Context map[string]string
}

// ProcessResult is the full output for one document.
type ProcessResult struct {
	Structure *section.DocumentStructure
	Chunks    []chunking.DocumentChunk
	Metadata  map[string]any
}

// Config wires the engine's components.
type Config struct {
	Chunking   chunking.Config
	Enrichment enrich.Config
}

// Option customizes engine construction.
type Option func(*Engine)

// WithFileSystem sets the filesystem used for file metadata. The
// default never touches disk.
func WithFileSystem(fs metadata.FileSystem) Option {
	return func(e *Engine) {
		e.extractor = metadata.NewExtractor(fs)
	}
}

// WithProvider enables enrichment through the given transport.
func WithProvider(p enrich.ContextProvider) Option {
	return func(e *Engine) {
		e.provider = p
	}
}

// Engine processes documents. Construction validates configuration and
// prompt templates; a misconfigured engine never starts.
type Engine struct {
	parser    *parser.Parser
	optimizer *chunking.Optimizer
	extractor *metadata.Extractor
	provider  enrich.ContextProvider
	enricher  *enrich.Service
	cfg       Config
}

// New builds an engine.
func New(cfg Config, opts ...Option) (*Engine, error) {
	optimizer, err := chunking.NewOptimizer(cfg.Chunking)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		parser:    parser.New(),
		optimizer: optimizer,
		extractor: metadata.NewExtractor(nil),
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.provider != nil {
		e.enricher, err = enrich.NewService(e.provider, cfg.Enrichment)
		if err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Close releases enrichment resources.
func (e *Engine) Close() {
	if e.enricher != nil {
		e.enricher.Close()
	}
}

// ProcessDocument parses, sections and chunks one document. Invalid
// UTF-8 is replaced lossily at ingestion. An empty document yields zero
// chunks, empty metadata and no error.
func (e *Engine) ProcessDocument(doc Document) (*ProcessResult, error) {
	content := textutil.Sanitize(string(doc.Content))

	res := e.parser.Parse(content)
	structure := section.Extract(res, doc.Path)

	out := &ProcessResult{
		Structure: structure,
		Metadata:  map[string]any{},
	}
	// A truly empty document yields zero chunks and empty metadata; a
	// front-matter-only document still yields its metadata.
	if strings.TrimSpace(content) == "" {
		return out, nil
	}

	out.Metadata = mergeMetadata(res.FrontMatter, e.extractor.Extract(res, doc.Path))
	structure.Metadata = out.Metadata
	if strings.TrimSpace(res.Body) == "" {
		return out, nil
	}
	out.Chunks = e.optimizer.Chunk(res, structure, doc.Path)

	logger.Get().Debug("document processed",
		zap.String("path", doc.Path),
		zap.Int("sections", len(structure.Sections)),
		zap.Int("chunks", len(out.Chunks)))
	return out, nil
}

// Enrich generates per-chunk context strings for a batch. It returns a
// mapping from chunk id to context with one entry per input chunk; the
// map itself carries no order. The engine must have been constructed
// with a provider.
func (e *Engine) Enrich(
	ctx context.Context,
	chunks []chunking.DocumentChunk,
	docContext map[string]string,
	progress enrich.ProgressFunc,
) (map[string]string, enrich.Metrics, error) {
	if e.enricher == nil {
		return nil, enrich.Metrics{}, enrich.ErrEnrichmentDisabled
	}
	return e.enricher.GenerateContexts(ctx, chunks, docContext, progress)
}

// mergeMetadata overlays extracted metadata on top of raw front-matter;
// extracted values win on key collisions.
func mergeMetadata(frontMatter map[string]any, extracted map[string]any) map[string]any {
	merged := make(map[string]any, len(frontMatter)+len(extracted))
	for k, v := range frontMatter {
		merged[k] = v
	}
	for k, v := range extracted {
		merged[k] = v
	}
	return merged
}
