package chunking

import (
	"math"
	"regexp"
	"strings"

	"github.com/hsn0918/docindex/pkg/parser"
)

var (
	listItemRegex = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)
	wordRegex     = regexp.MustCompile(`[A-Za-z0-9_]+`)
)

// abbreviations that do not terminate a sentence.
var abbreviations = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "dr": true, "prof": true,
	"sr": true, "jr": true, "st": true, "vs": true, "etc": true,
	"e.g": true, "i.e": true, "cf": true, "al": true, "fig": true,
	"no": true, "vol": true, "approx": true,
}

// unit is an atomic piece of text carrying its source span. Strategies
// assemble chunks out of units so that line accounting stays exact.
type unit struct {
	text      string
	kind      ChunkType
	startLine int
	endLine   int
	language  string
	isHeading bool
}

// unitsFromBlocks converts parser blocks into chunking units.
func unitsFromBlocks(blocks []parser.Block) []unit {
	units := make([]unit, 0, len(blocks))
	for _, b := range blocks {
		text := strings.TrimRight(b.Text, "\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		u := unit{
			text:      text,
			kind:      chunkTypeForBlock(b),
			startLine: b.StartLine,
			endLine:   b.EndLine,
			language:  b.Language,
			isHeading: b.Type == parser.BlockHeading,
		}
		units = append(units, u)
	}
	return units
}

func chunkTypeForBlock(b parser.Block) ChunkType {
	switch b.Type {
	case parser.BlockHeading:
		return ChunkTypeHeading
	case parser.BlockParagraph:
		return ChunkTypeParagraph
	case parser.BlockCode:
		return ChunkTypeCodeBlock
	case parser.BlockList:
		return ChunkTypeList
	case parser.BlockTable:
		return ChunkTypeTable
	case parser.BlockQuote:
		return ChunkTypeQuote
	case parser.BlockFootnoteDef, parser.BlockLinkDef:
		return ChunkTypeMetadata
	default:
		return ChunkTypeUnknown
	}
}

// SplitSentences splits text into sentences. Fenced code blocks and list
// items are kept as single atomic units; common abbreviations do not end
// a sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var fence []string
	inFence := false

	flushFence := func() {
		if len(fence) > 0 {
			sentences = append(sentences, strings.Join(fence, "\n"))
			fence = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			fence = append(fence, line)
			if inFence {
				flushFence()
			}
			inFence = !inFence
			continue
		}
		if inFence {
			fence = append(fence, line)
			continue
		}
		if listItemRegex.MatchString(line) {
			sentences = append(sentences, trimmed)
			continue
		}
		if trimmed == "" {
			continue
		}
		sentences = append(sentences, splitProseSentences(trimmed)...)
	}
	// An unclosed fence is still one atomic unit.
	flushFence()
	return sentences
}

// splitProseSentences splits one prose line at sentence terminators,
// skipping terminators that follow known abbreviations.
func splitProseSentences(line string) []string {
	var out []string
	start := 0
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Consume runs of terminators ("?!", "...").
		j := i
		for j+1 < len(runes) && (runes[j+1] == '.' || runes[j+1] == '!' || runes[j+1] == '?') {
			j++
		}
		atEnd := j+1 >= len(runes)
		followedBySpace := !atEnd && runes[j+1] == ' '
		if !atEnd && !followedBySpace {
			i = j
			continue
		}
		if r == '.' && isAbbreviation(string(runes[start:i])) {
			i = j
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : j+1]))
		if sentence != "" {
			out = append(out, sentence)
		}
		start = j + 1
		i = j
	}
	if rest := strings.TrimSpace(string(runes[start:])); rest != "" {
		out = append(out, rest)
	}
	return out
}

func isAbbreviation(prefix string) bool {
	idx := strings.LastIndexFunc(prefix, func(r rune) bool {
		return r == ' ' || r == '(' || r == '"'
	})
	word := strings.ToLower(strings.TrimSpace(prefix[idx+1:]))
	return abbreviations[word]
}

// SplitParagraphs splits text at blank lines, keeping fenced code blocks
// intact.
func SplitParagraphs(text string) []string {
	var paragraphs []string
	var current []string
	inFence := false

	flush := func() {
		if len(current) > 0 {
			paragraphs = append(paragraphs, strings.Join(current, "\n"))
			current = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			current = append(current, line)
			continue
		}
		if trimmed == "" && !inFence {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return paragraphs
}

// transitionCues mark topic boundaries for the semantic strategy.
var transitionCues = []string{
	"however", "furthermore", "moreover", "in conclusion", "in summary",
	"on the other hand", "in contrast", "meanwhile", "next", "finally",
	"additionally", "as a result", "therefore", "first", "second", "third",
}

// startsWithTransitionCue reports whether text opens with a transition
// cue word.
func startsWithTransitionCue(text string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, cue := range transitionCues {
		if strings.HasPrefix(lower, cue+" ") || strings.HasPrefix(lower, cue+",") {
			return true
		}
	}
	return false
}

// termVector builds a term-frequency vector over lowercased word tokens.
func termVector(text string) map[string]float64 {
	vec := map[string]float64{}
	for _, w := range wordRegex.FindAllString(strings.ToLower(text), -1) {
		vec[w]++
	}
	return vec
}

// cosineSimilarity computes the cosine similarity of two term vectors.
func cosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for w, va := range a {
		normA += va * va
		if vb, ok := b[w]; ok {
			dot += va * vb
		}
	}
	for _, vb := range b {
		normB += vb * vb
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// countWords counts whitespace-separated words.
func countWords(text string) int {
	return len(strings.Fields(text))
}
