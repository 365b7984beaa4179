package chunking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitStandardSentences(t *testing.T) {
	sentences := SplitSentences("First sentence. Second sentence! Third sentence? Fourth.")
	require.Len(t, sentences, 4)
	assert.Equal(t, "First sentence.", sentences[0])
	assert.Equal(t, "Second sentence!", sentences[1])
	assert.Equal(t, "Third sentence?", sentences[2])
	assert.Equal(t, "Fourth.", sentences[3])
}

func TestSplitRespectsAbbreviations(t *testing.T) {
	sentences := SplitSentences("Dr. Smith spoke. Then Mr. Jones replied.")
	require.Len(t, sentences, 2)
	assert.Equal(t, "Dr. Smith spoke.", sentences[0])
	assert.Equal(t, "Then Mr. Jones replied.", sentences[1])
}

func TestSplitPreservesCodeFence(t *testing.T) {
	text := "Here's an example:\n\n```python\ndef hello():\n    print(\"Hello. World!\")\n```\n\nAnd another sentence."
	sentences := SplitSentences(text)

	var code string
	for _, s := range sentences {
		if len(s) > 3 && s[:3] == "```" {
			code = s
		}
	}
	require.NotEmpty(t, code, "fenced block should survive as one unit")
	assert.Contains(t, code, "def hello():")
	assert.Contains(t, code, "print(\"Hello. World!\")")
}

func TestSplitListItemsAtomic(t *testing.T) {
	text := "Intro line.\n\n- first item. with a period\n- second item\n1. ordered one"
	sentences := SplitSentences(text)
	assert.Contains(t, sentences, "- first item. with a period")
	assert.Contains(t, sentences, "- second item")
	assert.Contains(t, sentences, "1. ordered one")
}

func TestSplitUnclosedFenceAtomic(t *testing.T) {
	sentences := SplitSentences("```go\nfunc f() {}\n")
	require.Len(t, sentences, 1)
	assert.Contains(t, sentences[0], "func f()")
}

func TestSplitParagraphs(t *testing.T) {
	paras := SplitParagraphs("one\n\ntwo two\n\n\nthree")
	assert.Equal(t, []string{"one", "two two", "three"}, paras)
}

func TestSplitParagraphsKeepsFences(t *testing.T) {
	text := "before\n\n```\na\n\nb\n```\n\nafter"
	paras := SplitParagraphs(text)
	require.Len(t, paras, 3)
	assert.Contains(t, paras[1], "a\n\nb")
}

func TestTransitionCues(t *testing.T) {
	assert.True(t, startsWithTransitionCue("However, the result differs."))
	assert.True(t, startsWithTransitionCue("In conclusion this works."))
	assert.False(t, startsWithTransitionCue("The weather is nice."))
}

func TestCosineSimilarity(t *testing.T) {
	a := termVector("the quick brown fox")
	b := termVector("the quick brown fox")
	assert.InDelta(t, 1.0, cosineSimilarity(a, b), 1e-9)

	c := termVector("entirely unrelated words here")
	assert.InDelta(t, 0.0, cosineSimilarity(a, c), 1e-9)

	assert.Zero(t, cosineSimilarity(nil, a))
}
