// Package section builds the nested section hierarchy of a parsed document.
//
// Sections use 1-based inclusive line spans in body coordinates, matching
// the parser package.
package section

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/hsn0918/docindex/pkg/parser"
)

var slugStripRegex = regexp.MustCompile(`[^a-z0-9]+`)

// Section is one node of the document outline.
//
// The implicit root has level 0 and holds content that precedes the first
// heading. Invariant: a child's level is strictly greater than its
// parent's, and the flat section list is the preorder traversal of the
// tree, which reproduces document order.
type Section struct {
	ID        string   `json:"id"`
	Heading   string   `json:"heading"`
	Level     int      `json:"level"`
	Content   string   `json:"content"`
	StartLine int      `json:"start_line"`
	EndLine   int      `json:"end_line"`
	ParentID  string   `json:"parent_id,omitempty"`
	ChildIDs  []string `json:"child_ids,omitempty"`

	// Path is the precomputed root-to-leaf heading path. The implicit
	// root is excluded from the paths of real headings.
	Path []string `json:"path,omitempty"`
}

// CrossReference links two sections with a relation tag.
type CrossReference struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Relation string `json:"relation"`
}

// DocumentStructure is the extracted outline of one document.
type DocumentStructure struct {
	Title           string           `json:"title,omitempty"`
	Sections        []Section        `json:"sections"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
	Root            *Section         `json:"-"`
	CrossReferences []CrossReference `json:"cross_references,omitempty"`
}

// SectionByID returns the section with the given id, or nil.
func (d *DocumentStructure) SectionByID(id string) *Section {
	for i := range d.Sections {
		if d.Sections[i].ID == id {
			return &d.Sections[i]
		}
	}
	return nil
}

// SectionAtLine returns the deepest section whose span contains the
// 1-based body line, or nil.
func (d *DocumentStructure) SectionAtLine(line int) *Section {
	var best *Section
	for i := range d.Sections {
		s := &d.Sections[i]
		if line < s.StartLine || line > s.EndLine {
			continue
		}
		if best == nil || s.Level >= best.Level {
			best = s
		}
	}
	return best
}

// Extract builds the section tree from a parse result. Malformed input
// yields whatever partial tree has been constructed; Extract never fails.
func Extract(res *parser.Result, path string) *DocumentStructure {
	doc := &DocumentStructure{Metadata: res.FrontMatter}
	doc.Title = documentTitle(res, path)

	lines := strings.Split(res.Body, "\n")
	slugs := newSlugger()

	root := Section{
		ID:        slugs.assign(doc.Title),
		Heading:   doc.Title,
		Level:     0,
		StartLine: 1,
		EndLine:   len(lines),
	}
	if doc.Title != "" {
		root.Path = []string{doc.Title}
	}
	doc.Sections = append(doc.Sections, root)

	// Heading-stack walk: pop until the stack top is strictly shallower,
	// then attach. Stack holds indices into doc.Sections.
	stack := []int{0}
	for _, b := range res.Blocks {
		if b.Type != parser.BlockHeading {
			continue
		}

		for len(stack) > 1 && doc.Sections[stack[len(stack)-1]].Level >= b.Level {
			top := stack[len(stack)-1]
			doc.Sections[top].EndLine = b.StartLine - 1
			stack = stack[:len(stack)-1]
		}

		parentIdx := stack[len(stack)-1]
		sec := Section{
			ID:        slugs.assign(b.Heading),
			Heading:   b.Heading,
			Level:     b.Level,
			StartLine: b.StartLine,
			EndLine:   len(lines),
		}
		sec.ParentID = doc.Sections[parentIdx].ID
		if doc.Sections[parentIdx].Level == 0 {
			sec.Path = []string{b.Heading}
		} else {
			parentPath := doc.Sections[parentIdx].Path
			sec.Path = append(append([]string{}, parentPath...), b.Heading)
		}

		doc.Sections = append(doc.Sections, sec)
		idx := len(doc.Sections) - 1
		doc.Sections[parentIdx].ChildIDs = append(doc.Sections[parentIdx].ChildIDs, sec.ID)
		stack = append(stack, idx)
	}

	attachContent(doc, res, lines)
	doc.Root = &doc.Sections[0]
	doc.CrossReferences = crossReferences(doc, res)
	return doc
}

// attachContent fills each section's content: the lines between its
// heading and the next heading of equal or higher level. Code fences
// inside a section stay with that section even when their text looks
// like a heading.
func attachContent(doc *DocumentStructure, res *parser.Result, lines []string) {
	for i := range doc.Sections {
		s := &doc.Sections[i]

		contentStart := s.StartLine
		if s.Level > 0 {
			contentStart = headingEnd(res, s.StartLine) + 1
		}
		// A heading section's span already ends before the next heading of
		// equal or higher level. The implicit root spans the whole body, so
		// its content stops where the first heading section starts.
		contentEnd := s.EndLine
		for j := i + 1; s.Level == 0 && j < len(doc.Sections); j++ {
			c := doc.Sections[j]
			if c.StartLine >= contentStart && c.StartLine <= contentEnd {
				contentEnd = c.StartLine - 1
				break
			}
		}
		if contentStart > len(lines) || contentEnd < contentStart {
			continue
		}
		if contentEnd > len(lines) {
			contentEnd = len(lines)
		}
		s.Content = strings.Trim(strings.Join(lines[contentStart-1:contentEnd], "\n"), "\n")
	}
}

// headingEnd returns the last line of the heading block starting at line
// (setext headings span two lines).
func headingEnd(res *parser.Result, line int) int {
	for _, b := range res.Blocks {
		if b.Type == parser.BlockHeading && b.StartLine == line {
			return b.EndLine
		}
	}
	return line
}

// crossReferences resolves wiki-links into section-id pairs.
func crossReferences(doc *DocumentStructure, res *parser.Result) []CrossReference {
	var refs []CrossReference
	for _, wl := range res.WikiLinks {
		from := doc.Root.ID
		if s := doc.SectionAtLine(wl.Line); s != nil {
			from = s.ID
		}
		refs = append(refs, CrossReference{
			From:     from,
			To:       Slugify(wl.Target),
			Relation: "wiki-link",
		})
	}
	return refs
}

// documentTitle picks the implicit root title: front-matter title first,
// then the filename stem.
func documentTitle(res *parser.Result, path string) string {
	if t, ok := res.FrontMatter["title"]; ok {
		if s, ok := t.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "." || stem == "" {
		return "document"
	}
	return stem
}

// Slugify converts heading text into a stable id fragment: lowercase,
// non-alphanumerics collapsed to single dashes, trimmed.
func Slugify(text string) string {
	slug := slugStripRegex.ReplaceAllString(strings.ToLower(text), "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return "section"
	}
	return slug
}

// slugger assigns collision-free ids in encounter order.
type slugger struct {
	seen map[string]int
}

func newSlugger() *slugger {
	return &slugger{seen: map[string]int{}}
}

func (s *slugger) assign(text string) string {
	slug := Slugify(text)
	s.seen[slug]++
	if n := s.seen[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}
