package chunking

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hsn0918/docindex/pkg/logger"
	"github.com/hsn0918/docindex/pkg/metadata"
	"github.com/hsn0918/docindex/pkg/parser"
	"github.com/hsn0918/docindex/pkg/section"
	"github.com/hsn0918/docindex/pkg/token"
)

// maxChunkKeywords is the keyword count attached to each chunk.
const maxChunkKeywords = 10

// rawChunk is a chunk under construction: an ordered group of units plus
// the section hierarchy it belongs to.
type rawChunk struct {
	units     []unit
	hierarchy []string
}

func (r rawChunk) text() string {
	parts := make([]string, 0, len(r.units))
	for _, u := range r.units {
		parts = append(parts, u.text)
	}
	return strings.Join(parts, "\n\n")
}

func (r rawChunk) span() (int, int) {
	start, end := 0, 0
	for _, u := range r.units {
		if start == 0 || u.startLine < start {
			start = u.startLine
		}
		if u.endLine > end {
			end = u.endLine
		}
	}
	return start, end
}

func (r rawChunk) tokens() int {
	return token.Estimate(r.text())
}

func sameHierarchy(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Optimizer turns a parsed document into a balanced chunk sequence.
type Optimizer struct {
	cfg Config
}

// NewOptimizer validates the configuration and creates an optimizer.
func NewOptimizer(cfg Config) (*Optimizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Optimizer{cfg: cfg}, nil
}

// Config returns the validated configuration in use.
func (o *Optimizer) Config() Config {
	return o.cfg
}

// Chunk emits the chunk sequence for a parsed document. The sequence is
// deterministic for identical inputs and configuration; every chunk has
// non-empty content and a valid line span.
func (o *Optimizer) Chunk(res *parser.Result, doc *section.DocumentStructure, path string) []DocumentChunk {
	units := unitsFromBlocks(res.Blocks)
	if len(units) == 0 {
		return nil
	}

	var raws []rawChunk
	switch o.cfg.Strategy {
	case StrategyFixed:
		raws = o.fixedChunks(res.Body, doc)
	case StrategySentence:
		raws = o.sentenceChunks(units, doc)
	case StrategyParagraph:
		raws = o.paragraphChunks(units, doc)
	case StrategySemantic:
		raws = o.semanticChunks(units, doc)
	default:
		raws = o.hybridChunks(units, doc)
	}

	raws = o.balance(raws)
	if o.cfg.Strategy == StrategySemantic || o.cfg.Strategy == StrategyHybrid {
		raws = o.adjustCoherence(raws)
	}

	chunks := o.finalize(raws, path)
	logger.Get().Debug("chunking complete",
		zap.String("path", path),
		zap.String("strategy", string(o.cfg.Strategy)),
		zap.Int("chunks", len(chunks)))
	return chunks
}

// hierarchyAt returns the precomputed root-to-leaf heading path covering
// a body line.
func hierarchyAt(doc *section.DocumentStructure, line int) []string {
	if doc == nil {
		return nil
	}
	if s := doc.SectionAtLine(line); s != nil {
		return s.Path
	}
	return nil
}

// balance merges under-size chunks into a neighbor sharing the same
// hierarchy and splits chunks that still exceed the maximum.
func (o *Optimizer) balance(raws []rawChunk) []rawChunk {
	// Merge pass.
	var merged []rawChunk
	for _, r := range raws {
		if len(merged) > 0 {
			prev := &merged[len(merged)-1]
			if r.tokens() < o.cfg.MinChunkSize &&
				sameHierarchy(prev.hierarchy, r.hierarchy) &&
				prev.tokens()+r.tokens() <= o.cfg.MaxChunkSize {
				prev.units = append(prev.units, r.units...)
				continue
			}
			if prev.tokens() < o.cfg.MinChunkSize &&
				sameHierarchy(prev.hierarchy, r.hierarchy) &&
				prev.tokens()+r.tokens() <= o.cfg.MaxChunkSize {
				prev.units = append(prev.units, r.units...)
				continue
			}
		}
		merged = append(merged, r)
	}

	// Split pass.
	var out []rawChunk
	for _, r := range merged {
		if r.tokens() <= o.cfg.MaxChunkSize {
			out = append(out, r)
			continue
		}
		out = append(out, o.splitOversize(r)...)
	}
	return out
}

// splitOversize breaks a chunk at unit boundaries, then splits single
// oversize units by sentence and finally by word. A single atomic unit
// that cannot be split further is emitted as-is.
func (o *Optimizer) splitOversize(r rawChunk) []rawChunk {
	var groups []rawChunk
	var current rawChunk
	current.hierarchy = r.hierarchy

	flush := func() {
		if len(current.units) > 0 {
			groups = append(groups, current)
			current = rawChunk{hierarchy: r.hierarchy}
		}
	}

	for _, u := range r.units {
		if token.Estimate(u.text) > o.cfg.MaxChunkSize {
			flush()
			for _, piece := range o.splitUnit(u) {
				groups = append(groups, rawChunk{units: []unit{piece}, hierarchy: r.hierarchy})
			}
			continue
		}
		test := append(append([]unit{}, current.units...), u)
		if (rawChunk{units: test}).tokens() > o.cfg.MaxChunkSize {
			flush()
		}
		current.units = append(current.units, u)
	}
	flush()
	return groups
}

// splitUnit splits one oversize unit by sentence, falling back to word
// boundaries. Code, table and list units are atomic and returned whole.
func (o *Optimizer) splitUnit(u unit) []unit {
	switch u.kind {
	case ChunkTypeCodeBlock, ChunkTypeTable, ChunkTypeList:
		return []unit{u}
	}

	sentences := SplitSentences(u.text)
	if len(sentences) <= 1 {
		return o.splitByWords(u)
	}

	var out []unit
	var current []string
	flush := func() {
		if len(current) > 0 {
			out = append(out, unit{
				text:      strings.Join(current, " "),
				kind:      u.kind,
				startLine: u.startLine,
				endLine:   u.endLine,
				language:  u.language,
			})
			current = nil
		}
	}
	for _, s := range sentences {
		joined := strings.Join(append(append([]string{}, current...), s), " ")
		if token.Estimate(joined) > o.cfg.MaxChunkSize && len(current) > 0 {
			flush()
		}
		if token.Estimate(s) > o.cfg.MaxChunkSize {
			flush()
			out = append(out, o.splitByWords(unit{
				text: s, kind: u.kind, startLine: u.startLine, endLine: u.endLine,
			})...)
			continue
		}
		current = append(current, s)
	}
	flush()
	return out
}

func (o *Optimizer) splitByWords(u unit) []unit {
	words := strings.Fields(u.text)
	if len(words) <= 1 {
		return []unit{u}
	}
	var out []unit
	var current []string
	flush := func() {
		if len(current) > 0 {
			out = append(out, unit{
				text:      strings.Join(current, " "),
				kind:      u.kind,
				startLine: u.startLine,
				endLine:   u.endLine,
				language:  u.language,
			})
			current = nil
		}
	}
	for _, w := range words {
		joined := strings.Join(append(append([]string{}, current...), w), " ")
		if token.Estimate(joined) > o.cfg.MaxChunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, w)
	}
	flush()
	return out
}

// adjustCoherence nudges boundaries between highly similar adjacent
// chunks to a nearby paragraph break that raises similarity. Boundaries
// at headings are never moved, and size bounds are preserved.
func (o *Optimizer) adjustCoherence(raws []rawChunk) []rawChunk {
	for i := 0; i+1 < len(raws); i++ {
		a, b := &raws[i], &raws[i+1]
		if len(b.units) == 0 || len(a.units) < 2 {
			continue
		}
		if b.units[0].isHeading || a.units[len(a.units)-1].isHeading {
			continue
		}

		sim := cosineSimilarity(termVector(a.text()), termVector(b.text()))
		if sim < o.cfg.CoherenceThreshold {
			continue
		}

		// Candidate move: shift the trailing paragraph of a into b.
		moved := a.units[len(a.units)-1]
		if token.Estimate(moved.text) > o.cfg.OverlapSize {
			continue
		}
		newA := rawChunk{units: a.units[:len(a.units)-1], hierarchy: a.hierarchy}
		newB := rawChunk{units: append([]unit{moved}, b.units...), hierarchy: b.hierarchy}
		if newA.tokens() < o.cfg.MinChunkSize || newB.tokens() > o.cfg.MaxChunkSize {
			continue
		}
		if cosineSimilarity(termVector(newA.text()), termVector(newB.text())) > sim {
			a.units = newA.units
			b.units = newB.units
		}
	}
	return raws
}

// finalize materializes DocumentChunks: metadata, overlap context,
// relationships, ids and the back-patched total count.
func (o *Optimizer) finalize(raws []rawChunk, path string) []DocumentChunk {
	// Drop anything that ended up empty.
	kept := raws[:0]
	for _, r := range raws {
		if strings.TrimSpace(r.text()) != "" {
			kept = append(kept, r)
		}
	}

	chunks := make([]DocumentChunk, 0, len(kept))
	for i, r := range kept {
		content := r.text()
		start, end := r.span()
		c := DocumentChunk{
			ID:      ChunkID(path, i),
			Content: content,
			Type:    chunkTypeFor(r.units),
			Metadata: ChunkMetadata{
				DocumentPath:     path,
				SectionHierarchy: r.hierarchy,
				ChunkIndex:       i,
				HasCode:          hasCode(r.units),
				Language:         firstLanguage(r.units),
				Keywords:         metadata.Keywords(content, maxChunkKeywords),
				WordCount:        countWords(content),
				LineStart:        start,
				LineEnd:          end,
			},
		}
		chunks = append(chunks, c)
	}

	for i := range chunks {
		chunks[i].Metadata.TotalChunks = len(chunks)
		if o.cfg.OverlapSize > 0 {
			if i > 0 {
				chunks[i].ContextBefore = trailingOverlap(chunks[i-1].Content, o.cfg.OverlapSize)
			}
			if i+1 < len(chunks) {
				chunks[i].ContextAfter = leadingOverlap(chunks[i+1].Content, o.cfg.OverlapSize)
			}
		}
		chunks[i].Metadata.Relationships = relationships(chunks, i)
	}
	return chunks
}

// chunkTypeFor derives the chunk type from its member units: the single
// content unit's kind when unambiguous, otherwise paragraph.
func chunkTypeFor(units []unit) ChunkType {
	var content []unit
	for _, u := range units {
		if !u.isHeading {
			content = append(content, u)
		}
	}
	switch len(content) {
	case 0:
		return ChunkTypeHeading
	case 1:
		return content[0].kind
	}
	kind := content[0].kind
	for _, u := range content[1:] {
		if u.kind != kind {
			return ChunkTypeParagraph
		}
	}
	return kind
}

func hasCode(units []unit) bool {
	for _, u := range units {
		if u.kind == ChunkTypeCodeBlock {
			return true
		}
	}
	return false
}

func firstLanguage(units []unit) string {
	for _, u := range units {
		if u.language != "" {
			return u.language
		}
	}
	return ""
}

// relationships lists previous, next and parent-section chunk ids.
func relationships(chunks []DocumentChunk, i int) []string {
	var rel []string
	if i > 0 {
		rel = append(rel, chunks[i-1].ID)
	}
	if i+1 < len(chunks) {
		rel = append(rel, chunks[i+1].ID)
	}
	h := chunks[i].Metadata.SectionHierarchy
	if len(h) > 1 {
		parent := h[:len(h)-1]
		for j := i - 1; j >= 0; j-- {
			if sameHierarchy(chunks[j].Metadata.SectionHierarchy, parent) {
				rel = append(rel, chunks[j].ID)
				break
			}
		}
	}
	return rel
}

// trailingOverlap returns up to sizeTokens of trailing context, preferring
// sentence boundaries.
func trailingOverlap(content string, sizeTokens int) string {
	sentences := SplitSentences(content)
	var parts []string
	total := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		t := token.Estimate(sentences[i])
		if total+t > sizeTokens && len(parts) > 0 {
			break
		}
		parts = append([]string{sentences[i]}, parts...)
		total += t
		if total >= sizeTokens {
			break
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// leadingOverlap returns up to sizeTokens of leading context, preferring
// sentence boundaries.
func leadingOverlap(content string, sizeTokens int) string {
	sentences := SplitSentences(content)
	var parts []string
	total := 0
	for _, s := range sentences {
		t := token.Estimate(s)
		if total+t > sizeTokens && len(parts) > 0 {
			break
		}
		parts = append(parts, s)
		total += t
		if total >= sizeTokens {
			break
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

// OptimizeForSearch trims whitespace-heavy content and drops chunks that
// became empty, re-patching indices and totals.
func OptimizeForSearch(chunks []DocumentChunk) []DocumentChunk {
	out := make([]DocumentChunk, 0, len(chunks))
	for _, c := range chunks {
		c.Content = strings.TrimSpace(c.Content)
		if c.Content == "" {
			continue
		}
		out = append(out, c)
	}
	for i := range out {
		out[i].Metadata.ChunkIndex = i
		out[i].Metadata.TotalChunks = len(out)
		out[i].ID = ChunkID(out[i].Metadata.DocumentPath, i)
	}
	for i := range out {
		out[i].Metadata.Relationships = relationships(out, i)
	}
	return out
}

// String implements fmt.Stringer for debugging.
func (r rawChunk) String() string {
	start, end := r.span()
	return fmt.Sprintf("chunk[%d-%d %d units]", start, end, len(r.units))
}
