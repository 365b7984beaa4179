package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsn0918/docindex/pkg/chunking"
	"github.com/hsn0918/docindex/pkg/enrich"
	"github.com/hsn0918/docindex/pkg/token"
)

func newEngine(t *testing.T, cfg chunking.Config, opts ...Option) *Engine {
	t.Helper()
	e, err := New(Config{Chunking: cfg}, opts...)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestBasicHybridChunking(t *testing.T) {
	e := newEngine(t, chunking.Config{
		MaxChunkSize: 100,
		MinChunkSize: 10,
		OverlapSize:  0,
		Strategy:     chunking.StrategyHybrid,
	})

	res, err := e.ProcessDocument(Document{
		Path:    "/docs/a.md",
		Content: []byte("# A\n\npara1\n\npara2\n\n## B\n\npara3"),
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(res.Chunks), 2)

	first := res.Chunks[0]
	last := res.Chunks[len(res.Chunks)-1]
	assert.Equal(t, []string{"A"}, first.Metadata.SectionHierarchy)
	assert.Equal(t, []string{"A", "B"}, last.Metadata.SectionHierarchy)

	for _, c := range res.Chunks {
		assert.Equal(t, len(res.Chunks), c.Metadata.TotalChunks)
	}
}

func TestFrontMatterStripping(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 200, MinChunkSize: 10})

	res, err := e.ProcessDocument(Document{
		Path:    "/docs/fm.md",
		Content: []byte("---\ntitle: T\n---\n# H\n\nsome body text here\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, "T", res.Structure.Title)
	require.NotEmpty(t, res.Structure.Sections)

	var headings []string
	for _, s := range res.Structure.Sections {
		if s.Level > 0 {
			headings = append(headings, s.Heading)
		}
	}
	require.NotEmpty(t, headings)
	assert.Equal(t, "H", headings[0])

	for _, c := range res.Chunks {
		assert.NotContains(t, c.Content, "---")
	}
}

func TestUnclosedCodeFence(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 200, MinChunkSize: 10})

	res, err := e.ProcessDocument(Document{
		Path:    "/docs/code.md",
		Content: []byte("# H\n\n```py\ndef f():\n"),
	})
	require.NoError(t, err)

	var codeChunks []chunking.DocumentChunk
	for _, c := range res.Chunks {
		if c.Type == chunking.ChunkTypeCodeBlock {
			codeChunks = append(codeChunks, c)
		}
	}
	require.Len(t, codeChunks, 1)
	assert.Contains(t, codeChunks[0].Content, "def f():")
	assert.True(t, codeChunks[0].Metadata.HasCode)
	assert.Equal(t, "py", codeChunks[0].Metadata.Language)
}

func TestEmptyDocument(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 200, MinChunkSize: 10})

	res, err := e.ProcessDocument(Document{Path: "/docs/empty.md", Content: nil})
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Empty(t, res.Metadata)
}

func TestSingleCharacterDocument(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 200, MinChunkSize: 10})

	res, err := e.ProcessDocument(Document{Path: "/d.md", Content: []byte("x")})
	require.NoError(t, err)
	require.Len(t, res.Chunks, 1)
	assert.Equal(t, "x", res.Chunks[0].Content)

	res, err = e.ProcessDocument(Document{Path: "/d.md", Content: []byte("   \n")})
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
}

func TestFrontMatterOnlyDocument(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 200, MinChunkSize: 10})

	res, err := e.ProcessDocument(Document{
		Path:    "/d.md",
		Content: []byte("---\ntitle: Only FM\nauthor: A\n---\n"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Chunks)
	assert.Equal(t, "Only FM", res.Structure.Title)
	assert.NotEmpty(t, res.Metadata)
	assert.Equal(t, "Only FM", res.Metadata["title"])
}

func TestInvalidUTF8LossyIngestion(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 200, MinChunkSize: 10})

	res, err := e.ProcessDocument(Document{
		Path:    "/d.md",
		Content: []byte("valid text \xff\xfe more text"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)
	assert.Contains(t, res.Chunks[0].Content, "valid text")
}

func TestDeterminism(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 120, MinChunkSize: 10})
	doc := Document{
		Path:    "/docs/det.md",
		Content: []byte("# A\n\nalpha beta gamma delta.\n\n## B\n\n```go\nfunc f() {}\n```\n\nmore prose here.\n"),
	}

	first, err := e.ProcessDocument(doc)
	require.NoError(t, err)
	second, err := e.ProcessDocument(doc)
	require.NoError(t, err)

	require.Equal(t, len(first.Chunks), len(second.Chunks))
	for i := range first.Chunks {
		assert.Equal(t, first.Chunks[i].ID, second.Chunks[i].ID)
		assert.Equal(t, first.Chunks[i].Content, second.Chunks[i].Content)
		assert.Equal(t, first.Chunks[i].Metadata, second.Chunks[i].Metadata)
	}
}

func TestChunkInvariants(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 80, MinChunkSize: 10})
	content := "# Top\n\nfirst paragraph with some words in it.\n\nsecond paragraph follows here.\n\n" +
		"## Sub\n\n- item one\n- item two\n\n```py\nprint('hi')\n```\n\nclosing prose paragraph.\n"

	res, err := e.ProcessDocument(Document{Path: "/docs/inv.md", Content: []byte(content)})
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)

	covered := map[int]bool{}
	for i, c := range res.Chunks {
		assert.NotEmpty(t, c.Content)
		assert.LessOrEqual(t, c.Metadata.LineStart, c.Metadata.LineEnd)
		assert.Equal(t, i, c.Metadata.ChunkIndex)
		assert.Equal(t, len(res.Chunks), c.Metadata.TotalChunks)
		for l := c.Metadata.LineStart; l <= c.Metadata.LineEnd; l++ {
			covered[l] = true
		}
	}

	// Every non-empty body line is covered by at least one chunk span.
	body := strings.Join(strings.Split(content, "\n"), "\n")
	for i, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		assert.True(t, covered[i+1], "line %d (%q) not covered", i+1, line)
	}
}

func TestSizeBoundRespected(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 60, MinChunkSize: 10, Strategy: chunking.StrategyParagraph})
	long := strings.Repeat("lengthy sentence with many words keeps going. ", 20)

	res, err := e.ProcessDocument(Document{Path: "/d.md", Content: []byte(long)})
	require.NoError(t, err)
	require.Greater(t, len(res.Chunks), 1)
	for _, c := range res.Chunks {
		assert.LessOrEqual(t, token.Estimate(c.Content), 60,
			"chunk %d exceeds the size bound", c.Metadata.ChunkIndex)
	}
}

func TestEnrichWithoutProvider(t *testing.T) {
	e := newEngine(t, chunking.Config{MaxChunkSize: 200, MinChunkSize: 10})
	_, _, err := e.Enrich(context.Background(), nil, nil, nil)
	assert.ErrorIs(t, err, enrich.ErrEnrichmentDisabled)
}

func TestEnrichEndToEnd(t *testing.T) {
	mock := enrich.NewMockProvider()
	e, err := New(Config{
		Chunking:   chunking.Config{MaxChunkSize: 200, MinChunkSize: 10},
		Enrichment: enrich.Config{CacheDir: t.TempDir()},
	}, WithProvider(mock))
	require.NoError(t, err)
	defer e.Close()

	res, err := e.ProcessDocument(Document{
		Path:    "/docs/guide.md",
		Content: []byte("# Guide\n\nhow to use the tool properly.\n"),
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Chunks)

	contexts, metrics, err := e.Enrich(context.Background(), res.Chunks, map[string]string{"repo": "x"}, nil)
	require.NoError(t, err)
	assert.Len(t, contexts, len(res.Chunks))
	assert.Equal(t, len(res.Chunks), metrics.ProcessedChunks)
}
