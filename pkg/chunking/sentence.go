package chunking

import (
	"github.com/hsn0918/docindex/pkg/section"
	"github.com/hsn0918/docindex/pkg/token"
)

// sentenceChunks accumulates sentences greedily up to the size budget.
// Code fences, tables and list items are atomic; a trailing slice of
// sentences worth up to the overlap budget is carried into the next
// chunk.
func (o *Optimizer) sentenceChunks(units []unit, doc *section.DocumentStructure) []rawChunk {
	sentences := sentenceUnits(units)
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

		// Carry trailing sentences into the next chunk.
		var carry []unit
		total := 0
		for i := len(current) - 1; i >= 0 && o.cfg.OverlapSize > 0; i-- {
			t := token.Estimate(current[i].text)
			if total+t > o.cfg.OverlapSize {
				break
			}
			carry = append([]unit{current[i]}, carry...)
			total += t
		}
		current = carry
	}

	for _, s := range sentences {
		test := append(append([]unit{}, current...), s)
		if (rawChunk{units: test}).tokens() > o.cfg.MaxChunkSize && len(current) > 0 {
			flush()
		}
		current = append(current, s)
	}
	if len(current) > 0 {
		r := rawChunk{units: current}
		start, _ := r.span()
		r.hierarchy = hierarchyAt(doc, start)
		raws = append(raws, r)
	}
	return dedupeCarryOnly(raws)
}

// sentenceUnits expands prose units into per-sentence units; atomic
// kinds pass through whole.
func sentenceUnits(units []unit) []unit {
	var out []unit
	for _, u := range units {
		switch u.kind {
		case ChunkTypeCodeBlock, ChunkTypeTable, ChunkTypeList, ChunkTypeHeading:
			out = append(out, u)
			continue
		}
		for _, s := range SplitSentences(u.text) {
			out = append(out, unit{
				text:      s,
				kind:      u.kind,
				startLine: u.startLine,
				endLine:   u.endLine,
				language:  u.language,
			})
		}
	}
	return out
}

// dedupeCarryOnly drops a trailing chunk that consists solely of carried
// overlap already emitted in full by its predecessor.
func dedupeCarryOnly(raws []rawChunk) []rawChunk {
	if len(raws) < 2 {
		return raws
	}
	last := raws[len(raws)-1]
	prev := raws[len(raws)-2]
	if len(last.units) > 0 && containsAllUnits(prev, last) {
		return raws[:len(raws)-1]
	}
	return raws
}

func containsAllUnits(haystack, needle rawChunk) bool {
	seen := map[string]bool{}
	for _, u := range haystack.units {
		seen[u.text] = true
	}
	for _, u := range needle.units {
		if !seen[u.text] {
			return false
		}
	}
	return true
}
