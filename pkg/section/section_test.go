package section

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsn0918/docindex/pkg/parser"
)

func extract(t *testing.T, content, path string) *DocumentStructure {
	t.Helper()
	return Extract(parser.New().Parse(content), path)
}

func TestNestedHierarchy(t *testing.T) {
	doc := extract(t, "# A\n\npara1\n\n## B\n\npara2\n\n## C\n\npara3\n\n# D\n\npara4\n", "doc.md")

	a := doc.SectionByID("a")
	require.NotNil(t, a)
	assert.Equal(t, 1, a.Level)
	assert.Equal(t, []string{"b", "c"}, a.ChildIDs)

	b := doc.SectionByID("b")
	require.NotNil(t, b)
	assert.Equal(t, a.ID, b.ParentID)
	assert.Equal(t, []string{"A", "B"}, b.Path)
	assert.Equal(t, "para2", b.Content)

	d := doc.SectionByID("d")
	require.NotNil(t, d)
	assert.Equal(t, doc.Root.ID, d.ParentID)
}

func TestPreorderReproducesDocumentOrder(t *testing.T) {
	doc := extract(t, "# A\n\n## B\n\n# C\n\n## D\n\n### E\n", "doc.md")

	var ids []string
	for _, s := range doc.Sections {
		if s.Level > 0 {
			ids = append(ids, s.ID)
		}
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, ids)

	prev := 0
	for _, s := range doc.Sections[1:] {
		assert.GreaterOrEqual(t, s.StartLine, prev)
		prev = s.StartLine
	}
}

func TestChildLevelStrictlyGreater(t *testing.T) {
	doc := extract(t, "# A\n\n## B\n\n### C\n\n## B2\n", "doc.md")
	for _, s := range doc.Sections {
		if s.ParentID == "" {
			continue
		}
		parent := doc.SectionByID(s.ParentID)
		require.NotNil(t, parent)
		assert.Greater(t, s.Level, parent.Level)
	}
}

func TestLevelJumpNoSyntheticIntermediates(t *testing.T) {
	doc := extract(t, "# Top\n\n#### Deep\n\ncontent\n", "doc.md")

	deep := doc.SectionByID("deep")
	require.NotNil(t, deep)
	assert.Equal(t, 4, deep.Level)
	assert.Equal(t, "top", deep.ParentID)
	assert.Equal(t, []string{"Top", "Deep"}, deep.Path)
}

func TestSlugCollision(t *testing.T) {
	doc := extract(t, "# Setup\n\n## Setup\n\n### Setup\n", "doc.md")

	var slugs []string
	for _, s := range doc.Sections[1:] {
		slugs = append(slugs, s.ID)
	}
	assert.Equal(t, []string{"setup", "setup-2", "setup-3"}, slugs)
}

func TestOrphanContentOnImplicitRoot(t *testing.T) {
	doc := extract(t, "intro before any heading\n\n# First\n\nbody\n", "notes.md")

	assert.Equal(t, "notes", doc.Title)
	assert.Equal(t, 0, doc.Root.Level)
	assert.Contains(t, doc.Root.Content, "intro before any heading")
	assert.NotContains(t, doc.Root.Content, "body")
}

func TestTitleFromFrontMatter(t *testing.T) {
	doc := extract(t, "---\ntitle: My Title\n---\norphan text\n", "whatever.md")
	assert.Equal(t, "My Title", doc.Title)
	assert.Equal(t, "My Title", doc.Root.Heading)
}

func TestFenceContentStaysInSection(t *testing.T) {
	doc := extract(t, "# Real\n\n```md\n# Not A Heading\n```\n", "doc.md")

	real := doc.SectionByID("real")
	require.NotNil(t, real)
	assert.Contains(t, real.Content, "# Not A Heading")
	assert.Nil(t, doc.SectionByID("not-a-heading"))
}

func TestSectionAtLine(t *testing.T) {
	doc := extract(t, "# A\n\npara\n\n## B\n\ndeep para\n", "doc.md")

	s := doc.SectionAtLine(7)
	require.NotNil(t, s)
	assert.Equal(t, "b", s.ID)

	s = doc.SectionAtLine(3)
	require.NotNil(t, s)
	assert.Equal(t, "a", s.ID)
}

func TestWikiLinkCrossReferences(t *testing.T) {
	doc := extract(t, "# A\n\nsee [[Other Page]]\n", "doc.md")

	require.Len(t, doc.CrossReferences, 1)
	assert.Equal(t, "a", doc.CrossReferences[0].From)
	assert.Equal(t, "other-page", doc.CrossReferences[0].To)
	assert.Equal(t, "wiki-link", doc.CrossReferences[0].Relation)
}

func TestSlugify(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Hello World", "hello-world"},
		{"  Spaces  ", "spaces"},
		{"C++ & Go!", "c-go"},
		{"", "section"},
		{"---", "section"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in))
	}
}

func TestMalformedInputNoPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		extract(t, "######## too deep\n\x00\xff\n# ok\n", "doc.md")
	})
}
