package parser

// BlockType enumerates the block kinds recognized by the structural parser.
type BlockType string

// Block kind constants.
const (
	BlockHeading        BlockType = "heading"
	BlockParagraph      BlockType = "paragraph"
	BlockCode           BlockType = "code_block"
	BlockList           BlockType = "list"
	BlockTable          BlockType = "table"
	BlockQuote          BlockType = "quote"
	BlockFootnoteDef    BlockType = "footnote_def"
	BlockLinkDef        BlockType = "link_def"
	BlockHorizontalRule BlockType = "horizontal_rule"
	BlockComponent      BlockType = "component"
	BlockHTML           BlockType = "html"
)

// InlineKind enumerates inline features recognized within a block.
type InlineKind string

// Inline feature constants.
const (
	InlineBold        InlineKind = "bold"
	InlineItalic      InlineKind = "italic"
	InlineCode        InlineKind = "inline_code"
	InlineAutoLink    InlineKind = "autolink"
	InlineLink        InlineKind = "link"
	InlineImage       InlineKind = "image"
	InlineMath        InlineKind = "math"
	InlineDisplayMath InlineKind = "display_math"
	InlineFootnoteRef InlineKind = "footnote_ref"
	InlineWikiLink    InlineKind = "wiki_link"
)

// Inline is a single inline feature found inside a block.
type Inline struct {
	Kind   InlineKind `json:"kind"`
	Text   string     `json:"text"`
	Target string     `json:"target,omitempty"`
}

// Block is one structural unit of the document body.
//
// StartLine and EndLine are 1-based inclusive line numbers in body
// coordinates (after front-matter removal).
type Block struct {
	Type      BlockType `json:"type"`
	Text      string    `json:"text"`
	StartLine int       `json:"start_line"`
	EndLine   int       `json:"end_line"`

	// Heading fields.
	Level   int    `json:"level,omitempty"`
	Heading string `json:"heading,omitempty"`

	// Code fields.
	Language string `json:"language,omitempty"`

	// List fields.
	Ordered  bool `json:"ordered,omitempty"`
	TaskList bool `json:"task_list,omitempty"`

	Inlines []Inline `json:"inlines,omitempty"`
}

// WikiLink is a [[target|label]] reference with its source line.
type WikiLink struct {
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
	Line   int    `json:"line"`
}

// Result is the full output of a structural parse.
type Result struct {
	// FrontMatter holds the parsed leading metadata block. Malformed
	// front-matter yields an empty map.
	FrontMatter map[string]any

	// Body is the document text with the front-matter block stripped.
	Body string

	// Blocks lists recognized blocks in source order with line spans.
	Blocks []Block

	// WikiLinks lists [[target]] references found in the body.
	WikiLinks []WikiLink

	// LinkDefs maps reference-link ids to their destinations. Lookups
	// are non-recursive, so circular definitions are harmless.
	LinkDefs map[string]string
}
