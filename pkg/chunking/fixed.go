package chunking

import (
	"sort"
	"strings"

	"github.com/hsn0918/docindex/pkg/section"
)

// charBudget converts a token budget into an approximate character
// budget using the estimator's baseline ratio.
func charBudget(tokens int) int {
	chars := int(float64(tokens) / 0.75)
	if chars < 1 {
		chars = 1
	}
	return chars
}

// fixedChunks slides a window over the raw body. Each window end backs
// off to the nearest paragraph break, then to the nearest sentence
// terminator, then cuts at the raw boundary. The next window starts
// overlap-sized before the previous end.
func (o *Optimizer) fixedChunks(body string, doc *section.DocumentStructure) []rawChunk {
	maxChars := charBudget(o.cfg.MaxChunkSize)
	overlapChars := charBudget(o.cfg.OverlapSize)
	if o.cfg.OverlapSize == 0 {
		overlapChars = 0
	}

	lineStarts := buildLineStarts(body)
	var raws []rawChunk

	start := 0
	for start < len(body) {
		end := start + maxChars
		if end >= len(body) {
			end = len(body)
		} else {
			end = backOff(body, start, end)
		}

		text := body[start:end]
		trimmed := strings.TrimSpace(text)
		if trimmed != "" {
			startLine := lineOfOffset(lineStarts, start+leadingWhitespace(text))
			endLine := lineOfOffset(lineStarts, end-1-trailingWhitespace(text))
			raws = append(raws, rawChunk{
				units: []unit{{
					text:      trimmed,
					kind:      ChunkTypeUnknown,
					startLine: startLine,
					endLine:   endLine,
				}},
				hierarchy: hierarchyAt(doc, startLine),
			})
		}

		if end >= len(body) {
			break
		}
		next := end - overlapChars
		if next <= start {
			next = end
		}
		start = next
	}
	return raws
}

// backOff moves the cut point to the nearest paragraph break after the
// window midpoint, then to the nearest sentence terminator, else keeps
// the raw boundary.
func backOff(body string, start, end int) int {
	window := body[start:end]
	floor := len(window) / 2

	if idx := strings.LastIndex(window, "\n\n"); idx > floor {
		return start + idx + 2
	}
	for i := len(window) - 1; i > floor; i-- {
		switch window[i] {
		case '.', '!', '?':
			if i+1 < len(window) && (window[i+1] == ' ' || window[i+1] == '\n') {
				return start + i + 1
			}
		}
	}
	return end
}

func buildLineStarts(body string) []int {
	lines := strings.Split(body, "\n")
	starts := make([]int, len(lines))
	off := 0
	for i, line := range lines {
		starts[i] = off
		off += len(line) + 1
	}
	return starts
}

func lineOfOffset(starts []int, offset int) int {
	idx := sort.Search(len(starts), func(i int) bool {
		return starts[i] > offset
	})
	if idx == 0 {
		return 1
	}
	return idx
}

func leadingWhitespace(s string) int {
	return len(s) - len(strings.TrimLeft(s, " \t\n"))
}

func trailingWhitespace(s string) int {
	return len(s) - len(strings.TrimRight(s, " \t\n"))
}
