// Package token provides cheap token-count estimation for chunk sizing.
//
// The estimate approximates LLM tokenization without invoking a real
// tokenizer: a character-based baseline with adjustments for code-like
// content and punctuation density. Estimates are deterministic and O(n).
package token

import (
	"math"
	"strings"
)

// Estimation tuning constants.
const (
	// baseRatio converts character count into the baseline token estimate.
	baseRatio = 0.75
	// codeMultiplier boosts code-like content, which tokenizes denser.
	codeMultiplier = 1.15
	// punctuationThreshold is the punctuation density above which the
	// additive boost applies.
	punctuationThreshold = 0.12
	// punctuationBoost scales the additive boost for symbol-heavy text.
	punctuationBoost = 0.25
)

// codeSigils are substrings whose presence marks content as code-like.
var codeSigils = []string{
	"```", "~~~", "def ", "func ", "function ", "class ", "import ",
	"return ", "=>", "->", "();", "{}", ":=", "==", "!=", "&&", "||",
}

// Estimate returns the estimated token count for text.
//
// Empty or whitespace-only input returns 0. The baseline is
// ceil(len(text) * 0.75); code-like input is scaled by a multiplier and
// punctuation-dense input receives an additive boost.
func Estimate(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	estimate := float64(len(text)) * baseRatio

	if IsCodeLike(text) {
		estimate *= codeMultiplier
	}

	if density := punctuationDensity(text); density > punctuationThreshold {
		estimate += density * float64(len(text)) * punctuationBoost
	}

	return int(math.Ceil(estimate))
}

// IsCodeLike reports whether text looks like source code: common
// programming sigils, fenced-code framing, or indentation patterns.
func IsCodeLike(text string) bool {
	for _, sigil := range codeSigils {
		if strings.Contains(text, sigil) {
			return true
		}
	}

	// Indented blocks: a meaningful share of lines starting with a tab
	// or four spaces marks the text as code.
	lines := strings.Split(text, "\n")
	if len(lines) < 2 {
		return false
	}
	indented := 0
	nonEmpty := 0
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		nonEmpty++
		if strings.HasPrefix(line, "\t") || strings.HasPrefix(line, "    ") {
			indented++
		}
	}
	return nonEmpty > 0 && indented*2 >= nonEmpty
}

// punctuationDensity returns the share of bytes that are punctuation
// characters commonly produced by source code and structured text.
func punctuationDensity(text string) float64 {
	if len(text) == 0 {
		return 0
	}
	count := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '.', ',', ';', ':', '(', ')', '[', ']', '{', '}',
			'<', '>', '=', '+', '-', '*', '/', '&', '|', '!', '?', '"', '\'':
			count++
		}
	}
	return float64(count) / float64(len(text))
}
