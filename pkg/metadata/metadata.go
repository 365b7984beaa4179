// Package metadata extracts per-document metadata: titles, authors,
// language hints, keywords, summaries and coarse code symbols.
package metadata

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hsn0918/docindex/pkg/parser"
)

var (
	titlePatternRegex  = regexp.MustCompile(`(?mi)^title:\s*(.+)$`)
	authorPatternRegex = regexp.MustCompile(`(?mi)^author:\s*(.+)$`)
	authorTagRegex     = regexp.MustCompile(`@author\s+(.+)`)
	htmlTitleRegex     = regexp.MustCompile(`(?is)<title>(.*?)</title>`)
	dunderAuthorRegex  = regexp.MustCompile(`__author__\s*=\s*["']([^"']+)["']`)
	datePatternRegex   = regexp.MustCompile(`(?mi)^date:\s*(.+)$`)
	isoDateRegex       = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	keywordTokenRegex  = regexp.MustCompile(`[A-Za-z0-9]+`)
)

// stopWords excluded from keyword extraction.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "is": true,
	"are": true, "was": true, "were": true, "be": true, "been": true,
	"this": true, "that": true, "these": true, "those": true,
	"from": true, "into": true, "then": true, "than": true,
	"will": true, "would": true, "could": true, "should": true,
	"have": true, "has": true, "had": true, "not": true, "can": true,
	"when": true, "where": true, "which": true, "while": true,
	"your": true, "their": true, "there": true, "here": true,
	"more": true, "most": true, "some": true, "such": true,
	"also": true, "only": true, "other": true, "about": true,
	"each": true, "between": true, "both": true, "same": true, "over": true,
}

// minKeywordLen is the minimum token length considered a keyword.
const minKeywordLen = 4

// DefaultSummaryBudget is the character budget for generated summaries.
const DefaultSummaryBudget = 200

// FileInfo is the filesystem metadata of a document.
type FileInfo struct {
	Size       int64
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// FileSystem supplies file metadata. Stat returns nil for missing files
// so in-memory documents never fail extraction.
type FileSystem interface {
	Stat(path string) *FileInfo
}

// OSFileSystem reads metadata from the host filesystem.
type OSFileSystem struct{}

// Stat implements FileSystem over os.Stat.
func (OSFileSystem) Stat(path string) *FileInfo {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return &FileInfo{
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

// NullFileSystem never finds a file; it keeps extraction pure in tests
// and for in-memory documents.
type NullFileSystem struct{}

// Stat implements FileSystem.
func (NullFileSystem) Stat(string) *FileInfo { return nil }

// Extractor derives document metadata. The zero value is not usable;
// construct with NewExtractor.
type Extractor struct {
	fs FileSystem
}

// NewExtractor creates an extractor backed by the given filesystem.
// A nil filesystem behaves like NullFileSystem.
func NewExtractor(fs FileSystem) *Extractor {
	if fs == nil {
		fs = NullFileSystem{}
	}
	return &Extractor{fs: fs}
}

// Extract merges metadata in precedence order: explicit front-matter,
// body pattern scan, heuristic fallback. Missing fields stay absent.
func (e *Extractor) Extract(res *parser.Result, path string) map[string]any {
	meta := map[string]any{}

	// File identity is always available from the path alone.
	meta["filename"] = filepath.Base(path)
	meta["extension"] = strings.TrimPrefix(filepath.Ext(path), ".")
	if abs, err := filepath.Abs(path); err == nil {
		meta["absolute_path"] = abs
	} else {
		meta["absolute_path"] = path
	}

	if fi := e.fs.Stat(path); fi != nil {
		meta["size"] = fi.Size
		if !fi.CreatedAt.IsZero() {
			meta["created_at"] = fi.CreatedAt.Unix()
		}
		if !fi.ModifiedAt.IsZero() {
			meta["modified_at"] = fi.ModifiedAt.Unix()
		}
	}

	meta["title"] = e.title(res, path)
	if author := e.author(res); author != "" {
		meta["author"] = author
	}
	if date := e.date(res); date != "" {
		meta["date"] = date
	}

	lang := DetectLanguage(path, res.Body)
	meta["language"] = lang

	if kws := Keywords(res.Body, 10); len(kws) > 0 {
		meta["keywords"] = kws
	}
	if summary := Summary(res.Body, DefaultSummaryBudget); summary != "" {
		meta["summary"] = summary
	}

	if code := CodeMetadata(lang, res.Body); len(code) > 0 {
		for k, v := range code {
			meta[k] = v
		}
	}
	return meta
}

// title resolves the document title: front-matter, then the first level-1
// heading, then pattern scan, then first non-empty line, then the
// Title-Cased filename stem.
func (e *Extractor) title(res *parser.Result, path string) string {
	if t, ok := res.FrontMatter["title"].(string); ok && strings.TrimSpace(t) != "" {
		return strings.TrimSpace(t)
	}
	for _, b := range res.Blocks {
		if b.Type == parser.BlockHeading && b.Level == 1 {
			return b.Heading
		}
	}
	if m := titlePatternRegex.FindStringSubmatch(res.Body); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := htmlTitleRegex.FindStringSubmatch(res.Body); m != nil {
		return strings.TrimSpace(m[1])
	}
	for _, line := range strings.Split(res.Body, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return strings.TrimLeft(t, "# ")
		}
	}
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return titleCase(strings.NewReplacer("-", " ", "_", " ").Replace(stem))
}

func (e *Extractor) author(res *parser.Result) string {
	if a, ok := res.FrontMatter["author"].(string); ok && strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	for _, re := range []*regexp.Regexp{authorPatternRegex, authorTagRegex, dunderAuthorRegex} {
		if m := re.FindStringSubmatch(res.Body); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

func (e *Extractor) date(res *parser.Result) string {
	for _, key := range []string{"date", "created", "published"} {
		switch v := res.FrontMatter[key].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return strings.TrimSpace(v)
			}
		case time.Time:
			return v.Format("2006-01-02")
		}
	}
	if m := datePatternRegex.FindStringSubmatch(res.Body); m != nil {
		return strings.TrimSpace(m[1])
	}
	if m := isoDateRegex.FindString(res.Body); m != "" {
		return m
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Keywords returns the top n keywords of text by term frequency over
// alphanumeric tokens of at least four characters, excluding stop words.
// Frequency ties break by first occurrence, keeping output deterministic.
func Keywords(text string, n int) []string {
	if n <= 0 {
		n = 10
	}
	type stat struct {
		count int
		first int
	}
	counts := map[string]*stat{}
	for i, tok := range keywordTokenRegex.FindAllString(strings.ToLower(text), -1) {
		if len(tok) < minKeywordLen || stopWords[tok] {
			continue
		}
		if s, ok := counts[tok]; ok {
			s.count++
		} else {
			counts[tok] = &stat{count: 1, first: i}
		}
	}
	if len(counts) == 0 {
		return nil
	}

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		a, b := counts[words[i]], counts[words[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return a.first < b.first
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// Summary strips code fences, tables and headings, then concatenates the
// remaining prose up to the character budget, cutting at a sentence
// boundary. An all-code document yields an empty summary.
func Summary(body string, budget int) string {
	if budget <= 0 {
		budget = DefaultSummaryBudget
	}

	var prose []string
	inFence := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence || trimmed == "" {
			continue
		}
		if strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "|") {
			continue
		}
		prose = append(prose, trimmed)
	}
	if len(prose) == 0 {
		return ""
	}

	joined := strings.Join(prose, " ")
	if len(joined) <= budget {
		return joined
	}

	cut := budget
	if idx := lastSentenceEnd(joined[:budget]); idx > 0 {
		cut = idx
	} else if idx := strings.LastIndexByte(joined[:budget], ' '); idx > 0 {
		cut = idx
	}
	return strings.TrimSpace(joined[:cut])
}

func lastSentenceEnd(s string) int {
	for i := len(s) - 1; i > 0; i-- {
		switch s[i] {
		case '.', '!', '?':
			return i + 1
		}
	}
	return 0
}
