package enrich

import (
	"fmt"
	"strings"

	"github.com/hsn0918/docindex/pkg/chunking"
	"github.com/hsn0918/docindex/pkg/textutil"
)

// maxPromptContentBytes bounds the chunk content embedded in a prompt.
const maxPromptContentBytes = 8192

// PromptTemplate pairs the system prompt with a user prompt template for
// one document category.
type PromptTemplate struct {
	SystemPrompt       string
	UserPromptTemplate string
}

// TemplateRegistry maps every DocumentCategory to its prompt template.
// A missing template is a programmer error surfaced at construction.
type TemplateRegistry struct {
	templates map[DocumentCategory]PromptTemplate
}

// NewTemplateRegistry builds the registry with the default templates and
// verifies completeness over the closed category set.
func NewTemplateRegistry() (*TemplateRegistry, error) {
	r := &TemplateRegistry{templates: defaultTemplates()}
	for _, cat := range AllCategories {
		if _, ok := r.templates[cat]; !ok {
			return nil, fmt.Errorf("enrich: missing prompt template for category %q", cat)
		}
	}
	return r, nil
}

// Template returns the template for a category.
func (r *TemplateRegistry) Template(cat DocumentCategory) (PromptTemplate, error) {
	t, ok := r.templates[cat]
	if !ok {
		return PromptTemplate{}, fmt.Errorf("enrich: unknown category %q", cat)
	}
	return t, nil
}

// Format renders the user prompt for a chunk: document path, joined
// section hierarchy, optional document-level context and the chunk
// content are substituted into the template.
func (r *TemplateRegistry) Format(cat DocumentCategory, chunk chunking.DocumentChunk, docContext map[string]string) (system, user string, err error) {
	t, err := r.Template(cat)
	if err != nil {
		return "", "", err
	}

	hierarchy := strings.Join(chunk.Metadata.SectionHierarchy, " > ")
	if hierarchy == "" {
		hierarchy = "(document root)"
	}

	var ctxLines []string
	for _, key := range sortedKeys(docContext) {
		ctxLines = append(ctxLines, fmt.Sprintf("%s: %s", key, docContext[key]))
	}
	docCtx := strings.Join(ctxLines, "\n")
	if docCtx == "" {
		docCtx = "(none)"
	}

	user = strings.NewReplacer(
		"{document_path}", chunk.Metadata.DocumentPath,
		"{section_hierarchy}", hierarchy,
		"{document_context}", docCtx,
		"{chunk_content}", textutil.TruncateUTF8(chunk.Content, maxPromptContentBytes),
	).Replace(t.UserPromptTemplate)
	return t.SystemPrompt, user, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
	return keys
}

const userPromptBody = `Document: {document_path}
Section: {section_hierarchy}
Document context:
{document_context}

Chunk content:
{chunk_content}

Write one short paragraph situating this chunk within its document. Respond with the context paragraph only.`

func defaultTemplates() map[DocumentCategory]PromptTemplate {
	return map[DocumentCategory]PromptTemplate{
		CategoryCode: {
			SystemPrompt: "You are a senior engineer describing source code for a search index. " +
				"Summarize what the code does, its key symbols, and how it relates to the surrounding module.",
			UserPromptTemplate: userPromptBody,
		},
		CategoryDocumentation: {
			SystemPrompt: "You are a technical writer situating documentation passages. " +
				"State the topic of the passage and where it fits in the document's structure.",
			UserPromptTemplate: userPromptBody,
		},
		CategoryTutorial: {
			SystemPrompt: "You are describing a step in a tutorial. " +
				"Note which stage of the walkthrough this chunk covers and what the reader achieves by it.",
			UserPromptTemplate: userPromptBody,
		},
		CategoryConfiguration: {
			SystemPrompt: "You are describing configuration content. " +
				"Name the component being configured and the effect of the listed settings.",
			UserPromptTemplate: userPromptBody,
		},
		CategoryReference: {
			SystemPrompt: "You are describing API reference material. " +
				"Identify the API surface covered by this chunk and its role in the larger reference.",
			UserPromptTemplate: userPromptBody,
		},
		CategoryGeneral: {
			SystemPrompt: "You situate text passages within their documents for retrieval. " +
				"Describe what this chunk discusses and how it connects to the rest of the document.",
			UserPromptTemplate: userPromptBody,
		},
	}
}
