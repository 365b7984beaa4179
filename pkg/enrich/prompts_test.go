package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsn0918/docindex/pkg/chunking"
)

func TestRegistryCoversAllCategories(t *testing.T) {
	r, err := NewTemplateRegistry()
	require.NoError(t, err)

	for _, cat := range AllCategories {
		tpl, err := r.Template(cat)
		require.NoError(t, err, "category %s", cat)
		assert.NotEmpty(t, tpl.SystemPrompt)
		assert.NotEmpty(t, tpl.UserPromptTemplate)
	}
}

func TestUnknownCategoryRejected(t *testing.T) {
	r, err := NewTemplateRegistry()
	require.NoError(t, err)

	_, err = r.Template(DocumentCategory("made-up"))
	assert.Error(t, err)
}

func TestFormatSubstitution(t *testing.T) {
	r, err := NewTemplateRegistry()
	require.NoError(t, err)

	chunk := chunking.DocumentChunk{
		Content: "the chunk body",
		Metadata: chunking.ChunkMetadata{
			DocumentPath:     "/docs/guide.md",
			SectionHierarchy: []string{"Guide", "Install"},
		},
	}
	system, user, err := r.Format(CategoryDocumentation, chunk, map[string]string{
		"repo":  "docindex",
		"owner": "platform team",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, system)
	assert.Contains(t, user, "/docs/guide.md")
	assert.Contains(t, user, "Guide > Install")
	assert.Contains(t, user, "the chunk body")
	assert.Contains(t, user, "owner: platform team")
	assert.Contains(t, user, "repo: docindex")
}

func TestFormatEmptyHierarchyAndContext(t *testing.T) {
	r, err := NewTemplateRegistry()
	require.NoError(t, err)

	chunk := chunking.DocumentChunk{
		Content:  "body",
		Metadata: chunking.ChunkMetadata{DocumentPath: "/x"},
	}
	_, user, err := r.Format(CategoryGeneral, chunk, nil)
	require.NoError(t, err)
	assert.Contains(t, user, "(document root)")
	assert.Contains(t, user, "(none)")
}
