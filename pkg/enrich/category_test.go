package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hsn0918/docindex/pkg/chunking"
)

func chunkOf(content string, ctype chunking.ChunkType, path string) chunking.DocumentChunk {
	return chunking.DocumentChunk{
		Content: content,
		Type:    ctype,
		Metadata: chunking.ChunkMetadata{
			DocumentPath: path,
		},
	}
}

func TestDetectCategory(t *testing.T) {
	tests := []struct {
		name  string
		chunk chunking.DocumentChunk
		path  string
		want  DocumentCategory
	}{
		{
			name:  "code by extension",
			chunk: chunkOf("def f(): pass", chunking.ChunkTypeCodeBlock, "/src/math_utils.py"),
			path:  "/src/math_utils.py",
			want:  CategoryCode,
		},
		{
			name:  "config by extension",
			chunk: chunkOf("server:\n  port: 8080", chunking.ChunkTypeCodeBlock, "/config/server.yaml"),
			path:  "/config/server.yaml",
			want:  CategoryConfiguration,
		},
		{
			name:  "tutorial by path token",
			chunk: chunkOf("text", chunking.ChunkTypeParagraph, "/docs/tutorial/basics.md"),
			path:  "/docs/tutorial/basics.md",
			want:  CategoryTutorial,
		},
		{
			name:  "reference by path token",
			chunk: chunkOf("text", chunking.ChunkTypeParagraph, "/site/reference/errors.md"),
			path:  "/site/reference/errors.md",
			want:  CategoryReference,
		},
		{
			name:  "documentation by path token",
			chunk: chunkOf("text", chunking.ChunkTypeParagraph, "/project/README.md"),
			path:  "/project/README.md",
			want:  CategoryDocumentation,
		},
		{
			name:  "code by chunk type",
			chunk: chunkOf("x := 1", chunking.ChunkTypeCodeBlock, "/notes/snippet"),
			path:  "/notes/snippet",
			want:  CategoryCode,
		},
		{
			name:  "tutorial by content cue",
			chunk: chunkOf("To install the server, run the following command.", chunking.ChunkTypeParagraph, "/misc/page"),
			path:  "/misc/page",
			want:  CategoryTutorial,
		},
		{
			name:  "general fallback",
			chunk: chunkOf("Nothing special here.", chunking.ChunkTypeParagraph, "/misc/page"),
			path:  "/misc/page",
			want:  CategoryGeneral,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectCategory(tt.chunk, tt.path))
			// Purity: repeated classification is identical.
			assert.Equal(t, tt.want, DetectCategory(tt.chunk, tt.path))
		})
	}
}

func TestReadmeLowercase(t *testing.T) {
	c := chunkOf("text", chunking.ChunkTypeParagraph, "/p/readme.md")
	assert.Equal(t, CategoryDocumentation, DetectCategory(c, "/p/readme.md"))
}
