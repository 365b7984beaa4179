package textutil

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeValidPassthrough(t *testing.T) {
	s := "héllo 世界"
	assert.Equal(t, s, Sanitize(s))
}

func TestSanitizeReplacesInvalidBytes(t *testing.T) {
	s := Sanitize("ok\xffbad")
	assert.True(t, utf8.ValidString(s))
	assert.Contains(t, s, "ok")
	assert.Contains(t, s, "bad")
}

func TestTruncateUTF8KeepsBoundaries(t *testing.T) {
	s := "你好世界"
	out := TruncateUTF8(s, 7)
	assert.True(t, utf8.ValidString(out))
	assert.Equal(t, "你好", out)
}

func TestTruncateNoop(t *testing.T) {
	assert.Equal(t, "abc", TruncateUTF8("abc", 10))
}

func TestCollapseBlankLines(t *testing.T) {
	in := "a\n\n\n\nb\n\nc"
	assert.Equal(t, "a\n\nb\n\nc", CollapseBlankLines(in))
}
