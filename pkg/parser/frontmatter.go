package parser

import (
	"bytes"
	"strings"

	"github.com/adrg/frontmatter"
	"go.uber.org/zap"

	"github.com/hsn0918/docindex/pkg/logger"
)

// ExtractFrontMatter splits content into its leading metadata block and the
// remaining body. YAML ("---"), TOML ("+++") and JSON ("{" on its own line)
// dialects are recognized, in that order, by their opening fence.
//
// Malformed front-matter is non-fatal: the returned map is empty and the
// body is the original content unchanged.
func ExtractFrontMatter(content string) (map[string]any, string) {
	if !hasFrontMatterFence(content) {
		return map[string]any{}, content
	}

	var fm map[string]any
	rest, err := frontmatter.Parse(bytes.NewReader([]byte(content)), &fm)
	if err != nil {
		logger.Get().Debug("front-matter parse failed, keeping body intact",
			zap.Error(err))
		return map[string]any{}, content
	}
	if fm == nil {
		fm = map[string]any{}
	}
	return fm, string(rest)
}

// hasFrontMatterFence reports whether content opens with a recognized
// front-matter fence. Only the leading block is ever considered.
func hasFrontMatterFence(content string) bool {
	firstLine := content
	if idx := strings.IndexByte(content, '\n'); idx >= 0 {
		firstLine = content[:idx]
	}
	firstLine = strings.TrimRight(firstLine, "\r")

	switch firstLine {
	case "---", "+++", "{":
		return true
	}
	return false
}
