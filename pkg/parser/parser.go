// Package parser converts raw document text into an annotated block list
// with front-matter, inline features and cross-reference candidates.
//
// All line numbers produced by this package are 1-based and inclusive, in
// body coordinates (after the front-matter block has been stripped).
package parser

import (
	"regexp"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	gparser "github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"go.uber.org/zap"

	"github.com/hsn0918/docindex/pkg/logger"
)

var (
	wikiLinkRegex    = regexp.MustCompile(`\[\[([^\]|]+)(?:\|([^\]]+))?\]\]`)
	linkDefRegex     = regexp.MustCompile(`^ {0,3}\[([^\^\]][^\]]*)\]:\s*(\S+)`)
	footnoteDefRegex = regexp.MustCompile(`^ {0,3}\[\^([^\]]+)\]:`)
	componentRegex   = regexp.MustCompile(`^<[A-Z][A-Za-z0-9]*(\s|/|>)`)
	hrRegex          = regexp.MustCompile(`^ {0,3}(\*\s*\*\s*\*[\s*]*|-\s*-\s*-[\s-]*|_\s*_\s*_[\s_]*)$`)
	setextRegex      = regexp.MustCompile(`^ {0,3}(=+|-+)\s*$`)
	displayMathRegex = regexp.MustCompile(`(?s)\$\$(.+?)\$\$`)
	inlineMathRegex  = regexp.MustCompile(`\$([^$\n]+)\$`)
	fenceRegex       = regexp.MustCompile("^ {0,3}(`{3,}|~{3,})")
)

// Parser parses document text into structural blocks. It is safe for
// concurrent use; each Parse call uses independent state.
type Parser struct {
	md goldmark.Markdown
}

// New creates a structural parser with GFM and footnote support.
func New() *Parser {
	return &Parser{
		md: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Footnote,
			),
			goldmark.WithParserOptions(
				gparser.WithAutoHeadingID(),
			),
		),
	}
}

// Parse converts content into a Result. It never fails: malformed input
// produces a best-effort block list and recoverable problems are logged
// at debug level.
func (p *Parser) Parse(content string) *Result {
	res := &Result{
		FrontMatter: map[string]any{},
		LinkDefs:    map[string]string{},
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Get().Debug("parser recovered from malformed input",
				zap.Any("panic", r))
		}
	}()

	content = normalizeNewlines(content)
	res.FrontMatter, res.Body = ExtractFrontMatter(content)

	if strings.TrimSpace(res.Body) == "" {
		return res
	}

	w := &walker{
		source: []byte(res.Body),
		lines:  strings.Split(res.Body, "\n"),
	}
	w.buildLineIndex()

	doc := p.md.Parser().Parse(text.NewReader(w.source))
	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		w.visit(node)
	}

	w.scanLinkDefs()
	w.scanWikiLinks()
	sort.SliceStable(w.blocks, func(i, j int) bool {
		return w.blocks[i].StartLine < w.blocks[j].StartLine
	})
	w.attachRawInlines()

	res.Blocks = w.blocks
	res.WikiLinks = w.wikiLinks
	for id, dest := range w.linkDefs {
		res.LinkDefs[id] = dest
	}
	return res
}

// Canonical returns the canonical textual form of the parsed body:
// block texts in source order, separated by blank lines. Re-parsing the
// canonical form reproduces the same block structure.
func (r *Result) Canonical() string {
	parts := make([]string, 0, len(r.Blocks))
	for _, b := range r.Blocks {
		parts = append(parts, strings.TrimRight(b.Text, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

// normalizeNewlines converts CRLF and lone CR line endings to LF.
func normalizeNewlines(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return strings.ReplaceAll(content, "\r", "\n")
}

// walker accumulates blocks while visiting the goldmark AST.
type walker struct {
	source     []byte
	lines      []string
	lineStarts []int
	blocks     []Block
	wikiLinks  []WikiLink
	linkDefs   map[string]string
	prevEnd    int
}

func (w *walker) buildLineIndex() {
	w.lineStarts = make([]int, len(w.lines))
	off := 0
	for i, line := range w.lines {
		w.lineStarts[i] = off
		off += len(line) + 1
	}
	w.linkDefs = map[string]string{}
}

// lineOf maps a byte offset to a 1-based line number.
func (w *walker) lineOf(offset int) int {
	idx := sort.Search(len(w.lineStarts), func(i int) bool {
		return w.lineStarts[i] > offset
	})
	if idx == 0 {
		return 1
	}
	return idx
}

// textOf returns the raw source text for a 1-based inclusive line span.
func (w *walker) textOf(start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(w.lines) {
		end = len(w.lines)
	}
	if start > end {
		return ""
	}
	return strings.Join(w.lines[start-1:end], "\n")
}

func (w *walker) visit(node ast.Node) {
	var b Block
	switch n := node.(type) {
	case *ast.Heading:
		b = w.headingBlock(n)
	case *ast.FencedCodeBlock:
		b = w.fencedCodeBlock(n)
	case *ast.CodeBlock:
		start, end, ok := w.span(n)
		if !ok {
			return
		}
		b = Block{Type: BlockCode, StartLine: start, EndLine: end}
	case *ast.List:
		start, end, ok := w.span(n)
		if !ok {
			return
		}
		b = Block{
			Type:      BlockList,
			StartLine: start,
			EndLine:   end,
			Ordered:   n.IsOrdered(),
			TaskList:  hasTaskCheckBox(n),
		}
	case *ast.Blockquote:
		start, end, ok := w.span(n)
		if !ok {
			return
		}
		b = Block{Type: BlockQuote, StartLine: start, EndLine: end}
	case *ast.ThematicBreak:
		line, ok := w.findLineAfter(w.prevEnd, hrRegex)
		if !ok {
			return
		}
		b = Block{Type: BlockHorizontalRule, StartLine: line, EndLine: line}
	case *ast.HTMLBlock:
		start, end, ok := w.span(n)
		if !ok {
			return
		}
		b = Block{Type: BlockHTML, StartLine: start, EndLine: end}
		if componentRegex.MatchString(strings.TrimSpace(w.textOf(start, end))) {
			b.Type = BlockComponent
		}
	case *ast.Paragraph:
		start, end, ok := w.span(n)
		if !ok {
			return
		}
		b = Block{Type: BlockParagraph, StartLine: start, EndLine: end}
		if componentRegex.MatchString(strings.TrimSpace(w.textOf(start, end))) {
			b.Type = BlockComponent
		}
	default:
		switch node.Kind() {
		case east.KindTable:
			start, end, ok := w.span(node)
			if !ok {
				return
			}
			b = Block{Type: BlockTable, StartLine: start, EndLine: end}
		case east.KindFootnoteList:
			for fn := node.FirstChild(); fn != nil; fn = fn.NextSibling() {
				w.visitFootnote(fn)
			}
			return
		default:
			// Unrecognized container: cover its span as a paragraph so
			// no body line is lost.
			start, end, ok := w.span(node)
			if !ok {
				return
			}
			b = Block{Type: BlockParagraph, StartLine: start, EndLine: end}
		}
	}

	b.Text = w.textOf(b.StartLine, b.EndLine)
	if b.Type != BlockCode {
		b.Inlines = w.astInlines(node)
	}
	w.blocks = append(w.blocks, b)
	if b.EndLine > w.prevEnd {
		w.prevEnd = b.EndLine
	}
}

func (w *walker) visitFootnote(fn ast.Node) {
	start, end, ok := w.span(fn)
	if !ok {
		return
	}
	// The marker line "[^id]:" may precede the first content segment.
	if start > 1 && footnoteDefRegex.MatchString(w.lines[start-2]) {
		start--
	}
	b := Block{
		Type:      BlockFootnoteDef,
		StartLine: start,
		EndLine:   end,
		Text:      w.textOf(start, end),
	}
	w.blocks = append(w.blocks, b)
	if end > w.prevEnd {
		w.prevEnd = end
	}
}

func (w *walker) headingBlock(n *ast.Heading) Block {
	start, end, ok := w.span(n)
	if !ok {
		line, found := w.findLineAfter(w.prevEnd, regexp.MustCompile(`^ {0,3}#{1,6}(\s|$)`))
		if !found {
			line = w.prevEnd + 1
		}
		start, end = line, line
	}
	b := Block{
		Type:      BlockHeading,
		Level:     n.Level,
		Heading:   extractText(n, w.source),
		StartLine: start,
		EndLine:   end,
	}
	// Setext headings span the text line plus the underline.
	if end < len(w.lines) && !strings.HasPrefix(strings.TrimLeft(w.lines[start-1], " "), "#") &&
		setextRegex.MatchString(w.lines[end]) {
		b.EndLine = end + 1
	}
	return b
}

func (w *walker) fencedCodeBlock(n *ast.FencedCodeBlock) Block {
	b := Block{Type: BlockCode, Language: string(n.Language(w.source))}

	start, end, ok := w.span(n)
	if ok {
		// Extend to the opening fence line.
		if start > 1 && fenceRegex.MatchString(w.lines[start-2]) {
			start--
		}
		// Include the closing fence when present; an unclosed fence
		// simply runs to the last content line.
		if end < len(w.lines) && fenceRegex.MatchString(w.lines[end]) {
			end++
		}
	} else {
		// Empty code block: locate the fence pair directly.
		line, found := w.findLineAfter(w.prevEnd, fenceRegex)
		if !found {
			line = w.prevEnd + 1
		}
		start, end = line, line
		if line < len(w.lines) && fenceRegex.MatchString(w.lines[line]) {
			end = line + 1
		}
	}

	b.StartLine, b.EndLine = start, end
	return b
}

// span computes the 1-based inclusive line span covered by a node's text
// segments, including those of its descendants.
func (w *walker) span(node ast.Node) (int, int, bool) {
	minOff, maxOff := -1, -1
	update := func(start, stop int) {
		if stop <= start {
			return
		}
		if minOff < 0 || start < minOff {
			minOff = start
		}
		if stop-1 > maxOff {
			maxOff = stop - 1
		}
	}

	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if hl, ok := n.(interface{ Lines() *text.Segments }); ok {
			segs := hl.Lines()
			for i := 0; i < segs.Len(); i++ {
				seg := segs.At(i)
				update(seg.Start, seg.Stop)
			}
		}
		if t, ok := n.(*ast.Text); ok {
			update(t.Segment.Start, t.Segment.Stop)
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(node)

	if minOff < 0 {
		return 0, 0, false
	}
	return w.lineOf(minOff), w.lineOf(maxOff), true
}

// findLineAfter returns the first 1-based line number after prevEnd whose
// text matches re.
func (w *walker) findLineAfter(prevEnd int, re *regexp.Regexp) (int, bool) {
	for i := prevEnd; i < len(w.lines); i++ {
		if re.MatchString(w.lines[i]) {
			return i + 1, true
		}
	}
	return 0, false
}

func hasTaskCheckBox(node ast.Node) bool {
	found := false
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if found {
			return
		}
		if n.Kind() == east.KindTaskCheckBox {
			found = true
			return
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(node)
	return found
}

// astInlines collects inline features known to the goldmark AST.
func (w *walker) astInlines(node ast.Node) []Inline {
	var inlines []Inline
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch v := n.(type) {
		case *ast.Emphasis:
			kind := InlineItalic
			if v.Level >= 2 {
				kind = InlineBold
			}
			inlines = append(inlines, Inline{Kind: kind, Text: extractText(v, w.source)})
		case *ast.CodeSpan:
			inlines = append(inlines, Inline{Kind: InlineCode, Text: extractText(v, w.source)})
		case *ast.AutoLink:
			inlines = append(inlines, Inline{Kind: InlineAutoLink, Target: string(v.URL(w.source))})
		case *ast.Link:
			inlines = append(inlines, Inline{
				Kind:   InlineLink,
				Text:   extractText(v, w.source),
				Target: string(v.Destination),
			})
		case *ast.Image:
			inlines = append(inlines, Inline{
				Kind:   InlineImage,
				Text:   extractText(v, w.source),
				Target: string(v.Destination),
			})
		}
		if n.Kind() == east.KindFootnoteLink {
			inlines = append(inlines, Inline{Kind: InlineFootnoteRef, Text: extractText(n, w.source)})
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	for c := node.FirstChild(); c != nil; c = c.NextSibling() {
		walk(c)
	}
	return inlines
}

// attachRawInlines adds inline features recognized by raw-text scanning
// (math and wiki-links) to the blocks whose spans contain them.
func (w *walker) attachRawInlines() {
	for i := range w.blocks {
		b := &w.blocks[i]
		if b.Type == BlockCode {
			continue
		}
		for _, m := range displayMathRegex.FindAllStringSubmatch(b.Text, -1) {
			b.Inlines = append(b.Inlines, Inline{Kind: InlineDisplayMath, Text: strings.TrimSpace(m[1])})
		}
		stripped := displayMathRegex.ReplaceAllString(b.Text, "")
		for _, m := range inlineMathRegex.FindAllStringSubmatch(stripped, -1) {
			b.Inlines = append(b.Inlines, Inline{Kind: InlineMath, Text: strings.TrimSpace(m[1])})
		}
		for _, m := range wikiLinkRegex.FindAllStringSubmatch(b.Text, -1) {
			b.Inlines = append(b.Inlines, Inline{Kind: InlineWikiLink, Text: m[2], Target: m[1]})
		}
	}
}

// scanLinkDefs records reference-style link definitions. Each definition
// is recorded as seen; circular chains are tolerated because lookups never
// follow a definition into another.
func (w *walker) scanLinkDefs() {
	inFence := false
	for i, line := range w.lines {
		if fenceRegex.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		m := linkDefRegex.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id := strings.ToLower(strings.TrimSpace(m[1]))
		if _, seen := w.linkDefs[id]; !seen {
			w.linkDefs[id] = m[2]
		}
		if !w.lineCovered(i + 1) {
			w.blocks = append(w.blocks, Block{
				Type:      BlockLinkDef,
				Text:      line,
				StartLine: i + 1,
				EndLine:   i + 1,
			})
		}
	}
}

// scanWikiLinks records [[target|label]] references with their lines.
func (w *walker) scanWikiLinks() {
	inFence := false
	for i, line := range w.lines {
		if fenceRegex.MatchString(line) {
			inFence = !inFence
			continue
		}
		if inFence {
			continue
		}
		for _, m := range wikiLinkRegex.FindAllStringSubmatch(line, -1) {
			w.wikiLinks = append(w.wikiLinks, WikiLink{
				Target: strings.TrimSpace(m[1]),
				Label:  strings.TrimSpace(m[2]),
				Line:   i + 1,
			})
		}
	}
}

func (w *walker) lineCovered(line int) bool {
	for _, b := range w.blocks {
		if line >= b.StartLine && line <= b.EndLine {
			return true
		}
	}
	return false
}

// extractText returns the concatenated plain text beneath a node.
func extractText(node ast.Node, source []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		if t, ok := n.(*ast.Text); ok {
			seg := t.Segment
			if seg.Stop <= len(source) {
				sb.Write(seg.Value(source))
			}
		}
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(node)
	return strings.TrimSpace(sb.String())
}
