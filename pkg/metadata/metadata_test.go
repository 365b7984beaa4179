package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hsn0918/docindex/pkg/parser"
)

func parse(content string) *parser.Result {
	return parser.New().Parse(content)
}

func TestTitlePrecedence(t *testing.T) {
	e := NewExtractor(nil)

	// Front-matter wins.
	meta := e.Extract(parse("---\ntitle: FM Title\n---\n# Heading Title\n"), "doc.md")
	assert.Equal(t, "FM Title", meta["title"])

	// Then the first H1.
	meta = e.Extract(parse("# Heading Title\n\ntext\n"), "doc.md")
	assert.Equal(t, "Heading Title", meta["title"])

	// Then a Title: pattern.
	meta = e.Extract(parse("Title: Scanned Title\nbody\n"), "doc.md")
	assert.Equal(t, "Scanned Title", meta["title"])

	// Fallback: filename stem in Title-Case.
	meta = e.Extract(parse(""), "getting-started.md")
	assert.Equal(t, "Getting Started", meta["title"])
}

func TestAuthorSources(t *testing.T) {
	e := NewExtractor(nil)

	meta := e.Extract(parse("---\nauthor: Jane Doe\n---\ntext\n"), "a.md")
	assert.Equal(t, "Jane Doe", meta["author"])

	meta = e.Extract(parse("Author: John Smith\n"), "a.md")
	assert.Equal(t, "John Smith", meta["author"])

	meta = e.Extract(parse("some text\n__author__ = \"Py Author\"\n"), "a.txt")
	assert.Equal(t, "Py Author", meta["author"])
}

func TestHTMLTitle(t *testing.T) {
	e := NewExtractor(nil)
	meta := e.Extract(parse("<html><title>Page Title</title></html>\n"), "page")
	assert.Equal(t, "Page Title", meta["title"])
}

func TestDateExtraction(t *testing.T) {
	e := NewExtractor(nil)
	meta := e.Extract(parse("---\ndate: 2024-03-01\n---\ntext\n"), "a.md")
	assert.Equal(t, "2024-03-01", meta["date"])
}

func TestFileIdentityFromPathAlone(t *testing.T) {
	e := NewExtractor(NullFileSystem{})
	meta := e.Extract(parse("content"), "/docs/guide.md")

	assert.Equal(t, "guide.md", meta["filename"])
	assert.Equal(t, "md", meta["extension"])
	assert.NotEmpty(t, meta["absolute_path"])
	assert.NotContains(t, meta, "size")
}

func TestDetectLanguageByExtension(t *testing.T) {
	assert.Equal(t, "python", DetectLanguage("x.py", "whatever"))
	assert.Equal(t, "javascript", DetectLanguage("x.ts", ""))
	assert.Equal(t, "markdown", DetectLanguage("x.md", ""))
	assert.Equal(t, "plaintext", DetectLanguage("x.txt", "def f():"))
}

func TestDetectLanguageByContent(t *testing.T) {
	py := "import os\nfrom sys import argv\n\ndef main():\n    pass\n\nclass App:\n    pass\n"
	assert.Equal(t, "python", DetectLanguage("noext", py))

	js := "const x = require('fs')\nfunction go() {}\nconst f = () => 1\n"
	assert.Equal(t, "javascript", DetectLanguage("noext", js))

	assert.Equal(t, "plaintext", DetectLanguage("noext", "just words here"))
}

func TestKeywords(t *testing.T) {
	text := "chunking chunking chunking parser parser tokens a the and of tiny"
	kws := Keywords(text, 3)
	require.Len(t, kws, 3)
	assert.Equal(t, "chunking", kws[0])
	assert.Equal(t, "parser", kws[1])
}

func TestKeywordsDeterministicTieBreak(t *testing.T) {
	// Equal frequency: first occurrence wins.
	text := "zebra apple zebra apple"
	kws := Keywords(text, 2)
	assert.Equal(t, []string{"zebra", "apple"}, kws)
	assert.Equal(t, kws, Keywords(text, 2))
}

func TestKeywordsFiltersShortAndStopWords(t *testing.T) {
	kws := Keywords("the and with a to go it is", 10)
	assert.Empty(t, kws)
}

func TestSummarySkipsCodeAndHeadings(t *testing.T) {
	body := "# Heading\n\nFirst prose sentence. Second one here.\n\n```go\ncode()\n```\n\n| a | b |\n"
	s := Summary(body, 200)
	assert.Contains(t, s, "First prose sentence.")
	assert.NotContains(t, s, "code()")
	assert.NotContains(t, s, "Heading")
	assert.NotContains(t, s, "| a |")
}

func TestSummaryBudgetCutsAtSentence(t *testing.T) {
	body := "One short sentence. " + "Another sentence that follows the first one closely. " +
		"And a third that will not fit within the budget at all, truly."
	s := Summary(body, 60)
	assert.LessOrEqual(t, len(s), 60)
	assert.True(t, s[len(s)-1] == '.', "should end at a sentence boundary, got %q", s)
}

func TestSummaryEmptyForCodeOnly(t *testing.T) {
	assert.Empty(t, Summary("```py\nx = 1\n```\n", 200))
}

func TestPythonCodeMetadata(t *testing.T) {
	body := "import os.path\nfrom collections.abc import Mapping\n\ndef main():\n    pass\n\nclass Indexer:\n    pass\n"
	meta := CodeMetadata("python", body)
	require.NotNil(t, meta)
	assert.Contains(t, meta["imports"], "os")
	assert.Contains(t, meta["imports"], "collections")
	assert.Contains(t, meta["functions"], "main")
	assert.Contains(t, meta["classes"], "Indexer")
}

func TestJavascriptCodeMetadata(t *testing.T) {
	body := "const fs = require('fs')\nimport path from 'path'\nfunction run() {}\nconst go = () => {}\nclass Server {}\n"
	meta := CodeMetadata("javascript", body)
	require.NotNil(t, meta)
	assert.Contains(t, meta["imports"], "fs")
	assert.Contains(t, meta["imports"], "path")
	assert.Contains(t, meta["functions"], "run")
	assert.Contains(t, meta["classes"], "Server")
}

func TestCodeMetadataOtherLanguagesNil(t *testing.T) {
	assert.Nil(t, CodeMetadata("markdown", "# nothing"))
}
