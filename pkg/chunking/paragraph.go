package chunking

import (
	"github.com/hsn0918/docindex/pkg/section"
	"github.com/hsn0918/docindex/pkg/token"
)

// paragraphChunks accumulates whole paragraphs (units) up to the size
// budget. A paragraph that alone exceeds the budget is split by sentence
// and then by word.
func (o *Optimizer) paragraphChunks(units []unit, doc *section.DocumentStructure) []rawChunk {
	var raws []rawChunk
	var current []unit

	flush := func() {
		if len(current) == 0 {
			return
		}
		r := rawChunk{units: current}
		start, _ := r.span()
		r.hierarchy = hierarchyAt(doc, start)
		raws = append(raws, r)
		current = nil
	}

	for _, u := range units {
		if token.Estimate(u.text) > o.cfg.MaxChunkSize {
			flush()
			for _, piece := range o.splitUnit(u) {
				r := rawChunk{units: []unit{piece}, hierarchy: hierarchyAt(doc, piece.startLine)}
				raws = append(raws, r)
			}
			continue
		}
		test := append(append([]unit{}, current...), u)
		if (rawChunk{units: test}).tokens() > o.cfg.MaxChunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, u)
	}
	flush()
	return raws
}
