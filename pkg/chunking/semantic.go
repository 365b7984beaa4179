package chunking

import (
	"github.com/hsn0918/docindex/pkg/section"
	"github.com/hsn0918/docindex/pkg/token"
)

// semanticChunks splits at topic boundaries: heading transitions,
// transition cue words, and cosine-similarity drops between adjacent
// paragraphs below the semantic threshold. Candidate boundaries are
// preferred split points; paragraph boundaries are the fallback.
func (o *Optimizer) semanticChunks(units []unit, doc *section.DocumentStructure) []rawChunk {
	boundaries := o.topicBoundaries(units)

	var raws []rawChunk
	var current []unit
	lastCandidate := -1 // index into current after which a boundary sits

	flushAt := func(cut int) {
		if cut <= 0 || cut > len(current) {
			cut = len(current)
		}
		group := current[:cut]
		if len(group) == 0 {
			return
		}
		r := rawChunk{units: append([]unit{}, group...)}
		start, _ := r.span()
		r.hierarchy = hierarchyAt(doc, start)
		raws = append(raws, r)
		current = append([]unit{}, current[cut:]...)
		lastCandidate = -1
	}

	for i, u := range units {
		if boundaries[i] && len(current) > 0 {
			lastCandidate = len(current)
		}
		test := append(append([]unit{}, current...), u)
		if (rawChunk{units: test}).tokens() > o.cfg.MaxChunkSize && len(current) > 0 {
			if lastCandidate > 0 {
				flushAt(lastCandidate)
			} else {
				flushAt(len(current))
			}
		}
		// An oversize atomic unit goes through the standard splitter.
		if token.Estimate(u.text) > o.cfg.MaxChunkSize {
			flushAt(len(current))
			for _, piece := range o.splitUnit(u) {
				raws = append(raws, rawChunk{
					units:     []unit{piece},
					hierarchy: hierarchyAt(doc, piece.startLine),
				})
			}
			continue
		}
		current = append(current, u)
	}
	flushAt(len(current))
	return raws
}

// topicBoundaries marks unit indices that open a new topic.
func (o *Optimizer) topicBoundaries(units []unit) []bool {
	boundaries := make([]bool, len(units))
	for i, u := range units {
		if i == 0 {
			continue
		}
		if u.isHeading {
			boundaries[i] = true
			continue
		}
		if startsWithTransitionCue(u.text) {
			boundaries[i] = true
			continue
		}
		// Similarity drop between adjacent paragraph shingles.
		prev := units[i-1]
		if u.kind == ChunkTypeParagraph && prev.kind == ChunkTypeParagraph {
			sim := cosineSimilarity(termVector(prev.text), termVector(u.text))
			if sim < o.cfg.SemanticThreshold {
				boundaries[i] = true
			}
		}
	}
	return boundaries
}
