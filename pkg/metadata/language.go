package metadata

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// extensionLanguages maps file extensions to language tags. Extension
// hints outrank content scoring.
var extensionLanguages = map[string]string{
	".py":   "python",
	".js":   "javascript",
	".jsx":  "javascript",
	".ts":   "javascript",
	".tsx":  "javascript",
	".java": "java",
	".go":   "go",
	".rs":   "rust",
	".md":   "markdown",
	".mdx":  "markdown",
	".html": "html",
	".htm":  "html",
	".yaml": "yaml",
	".yml":  "yaml",
	".json": "json",
	".txt":  "plaintext",
}

// languagePatterns score body content when the path gives no hint.
var languagePatterns = map[string][]*regexp.Regexp{
	"python": {
		regexp.MustCompile(`(?m)^\s*def\s+\w+\s*\(`),
		regexp.MustCompile(`(?m)^\s*import\s+\w+`),
		regexp.MustCompile(`(?m)^\s*from\s+\w+\s+import\b`),
		regexp.MustCompile(`(?m)^\s*class\s+\w+.*:\s*$`),
	},
	"javascript": {
		regexp.MustCompile(`(?m)\bfunction\s+\w+\s*\(`),
		regexp.MustCompile(`(?m)\b(const|let|var)\s+\w+\s*=`),
		regexp.MustCompile(`\brequire\s*\(`),
		regexp.MustCompile(`=>`),
	},
	"java": {
		regexp.MustCompile(`(?m)\bpublic\s+(class|interface)\s+\w+`),
		regexp.MustCompile(`(?m)\bprivate\s+\w+\s+\w+\s*;`),
		regexp.MustCompile(`System\.out\.println`),
	},
	"go": {
		regexp.MustCompile(`(?m)^func\s+\w+\s*\(`),
		regexp.MustCompile(`(?m)^package\s+\w+`),
		regexp.MustCompile(`:=`),
	},
	"markdown": {
		regexp.MustCompile(`(?m)^#{1,6}\s+\S`),
		regexp.MustCompile(`(?m)^[-*]\s+\S`),
		regexp.MustCompile(`\[[^\]]+\]\([^)]+\)`),
	},
	"html": {
		regexp.MustCompile(`(?i)<!DOCTYPE\s+html`),
		regexp.MustCompile(`(?i)<html\b`),
		regexp.MustCompile(`(?i)</\w+>`),
	},
}

// DetectLanguage classifies body content into a closed tag set. A known
// file extension decides directly; otherwise content pattern scores
// break the tie, and "plaintext" is the fallback.
func DetectLanguage(path, body string) string {
	if lang, ok := extensionLanguages[strings.ToLower(filepath.Ext(path))]; ok {
		return lang
	}

	scores := map[string]int{}
	for lang, patterns := range languagePatterns {
		for _, re := range patterns {
			scores[lang] += len(re.FindAllStringIndex(body, -1))
		}
	}

	langs := make([]string, 0, len(scores))
	for l := range scores {
		langs = append(langs, l)
	}
	sort.Strings(langs)

	best, bestScore := "plaintext", 0
	for _, l := range langs {
		if scores[l] > bestScore {
			best, bestScore = l, scores[l]
		}
	}
	return best
}
