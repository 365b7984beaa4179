package chunking

import (
	"strings"

	"github.com/hsn0918/docindex/pkg/section"
	"github.com/hsn0918/docindex/pkg/token"
)

// hybridChunks walks the section tree. A section whose direct content
// fits the budget becomes one chunk carrying its full hierarchy; larger
// sections delegate to paragraph splitting with each sub-chunk
// inheriting the hierarchy and code flags.
func (o *Optimizer) hybridChunks(units []unit, doc *section.DocumentStructure) []rawChunk {
	var raws []rawChunk
	for i := range doc.Sections {
		s := &doc.Sections[i]
		direct := directUnits(units, doc, s)
		if len(direct) == 0 {
			continue
		}

		sectionChunk := rawChunk{units: direct, hierarchy: s.Path}
		if sectionChunk.tokens() <= o.cfg.MaxChunkSize {
			raws = append(raws, sectionChunk)
			continue
		}

		// Oversize section: paragraph-level accumulation under the
		// section's hierarchy.
		var current []unit
		flush := func() {
			if len(current) > 0 {
				raws = append(raws, rawChunk{units: current, hierarchy: s.Path})
				current = nil
			}
		}
		for _, u := range direct {
			if token.Estimate(u.text) > o.cfg.MaxChunkSize {
				flush()
				for _, piece := range o.splitUnit(u) {
					raws = append(raws, rawChunk{units: []unit{piece}, hierarchy: s.Path})
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
	}
	return raws
}

// directUnits returns the units belonging to a section itself: its
// heading plus content before the first child section.
func directUnits(units []unit, doc *section.DocumentStructure, s *section.Section) []unit {
	directEnd := s.EndLine
	for _, childID := range s.ChildIDs {
		if child := doc.SectionByID(childID); child != nil && child.StartLine-1 < directEnd {
			directEnd = child.StartLine - 1
		}
	}

	var out []unit
	for _, u := range units {
		if u.startLine < s.StartLine || u.startLine > directEnd {
			continue
		}
		if u.isHeading {
			// Only this section's own heading belongs here.
			if u.startLine == s.StartLine && s.Level > 0 &&
				strings.TrimSpace(u.text) != "" && headingMatches(u, s) {
				out = append(out, u)
			}
			continue
		}
		out = append(out, u)
	}
	return out
}

func headingMatches(u unit, s *section.Section) bool {
	return strings.Contains(u.text, s.Heading)
}
