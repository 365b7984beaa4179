// Package enrich generates per-chunk contextual summaries through an
// external LLM with caching, bounded concurrency and cost accounting.
package enrich

import (
	"path/filepath"
	"strings"

	"github.com/hsn0918/docindex/pkg/chunking"
)

// DocumentCategory classifies a chunk's document for prompt selection.
type DocumentCategory string

// The closed category set. Every category must have a prompt template.
const (
	CategoryCode          DocumentCategory = "code"
	CategoryDocumentation DocumentCategory = "documentation"
	CategoryTutorial      DocumentCategory = "tutorial"
	CategoryConfiguration DocumentCategory = "configuration"
	CategoryReference     DocumentCategory = "reference"
	CategoryGeneral       DocumentCategory = "general"
)

// AllCategories lists every category, in declaration order.
var AllCategories = []DocumentCategory{
	CategoryCode,
	CategoryDocumentation,
	CategoryTutorial,
	CategoryConfiguration,
	CategoryReference,
	CategoryGeneral,
}

var codeExtensions = map[string]bool{
	".py": true, ".js": true, ".ts": true, ".jsx": true, ".tsx": true,
	".go": true, ".rs": true, ".java": true, ".c": true, ".cc": true,
	".cpp": true, ".h": true, ".rb": true, ".php": true, ".sh": true,
}

var configExtensions = map[string]bool{
	".yaml": true, ".yml": true, ".toml": true, ".ini": true,
	".conf": true, ".env": true, ".properties": true,
}

var tutorialCues = []string{
	"to install", "getting started", "step 1", "first,", "let's",
	"in this tutorial", "in this guide", "follow these steps",
}

// DetectCategory classifies a chunk. The classifier is pure and
// deterministic: file extension first, then path name tokens, then
// chunk-type signals, then content heuristics.
func DetectCategory(chunk chunking.DocumentChunk, path string) DocumentCategory {
	ext := strings.ToLower(filepath.Ext(path))
	if codeExtensions[ext] {
		return CategoryCode
	}
	if configExtensions[ext] || ext == ".json" {
		return CategoryConfiguration
	}

	lower := strings.ToLower(path)
	switch {
	case strings.Contains(lower, "tutorial"), strings.Contains(lower, "guide"),
		strings.Contains(lower, "getting-started"), strings.Contains(lower, "quickstart"):
		return CategoryTutorial
	case strings.Contains(lower, "config"), strings.Contains(lower, "settings"):
		return CategoryConfiguration
	case strings.Contains(lower, "reference"), strings.Contains(lower, "api/"),
		strings.HasSuffix(lower, "api.md"):
		return CategoryReference
	case strings.Contains(lower, "readme"), strings.Contains(lower, "docs/"),
		strings.Contains(lower, "documentation"):
		return CategoryDocumentation
	}

	if chunk.Type == chunking.ChunkTypeCodeBlock {
		return CategoryCode
	}

	content := strings.ToLower(chunk.Content)
	for _, cue := range tutorialCues {
		if strings.Contains(content, cue) {
			return CategoryTutorial
		}
	}
	return CategoryGeneral
}
