package contextcache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) *Cache {
	t.Helper()
	c, err := New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestFingerprintStable(t *testing.T) {
	a := Fingerprint("content", []string{"A", "B"}, "/d.md", "code")
	b := Fingerprint("content", []string{"A", "B"}, "/d.md", "code")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	// Any input change produces a different key.
	assert.NotEqual(t, a, Fingerprint("content2", []string{"A", "B"}, "/d.md", "code"))
	assert.NotEqual(t, a, Fingerprint("content", []string{"A"}, "/d.md", "code"))
	assert.NotEqual(t, a, Fingerprint("content", []string{"A", "B"}, "/e.md", "code"))
	assert.NotEqual(t, a, Fingerprint("content", []string{"A", "B"}, "/d.md", "docs"))
}

func TestPutGetRoundTrip(t *testing.T) {
	c := newCache(t)
	fp := Fingerprint("hello", nil, "/a.md", "general")

	require.NoError(t, c.Put(fp, "general", "the context"))

	e, ok := c.Get(fp)
	require.True(t, ok)
	assert.Equal(t, "the context", e.Context)
	assert.Equal(t, "general", e.Category)
	assert.Equal(t, fp, e.Fingerprint)
	assert.NotZero(t, e.CreatedAt)
}

func TestMissOnUnknownFingerprint(t *testing.T) {
	c := newCache(t)
	_, ok := c.Get(Fingerprint("nope", nil, "", ""))
	assert.False(t, ok)
}

func TestTruncatedFileIsMiss(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	defer c.Close()

	fp := Fingerprint("x", nil, "/x.md", "general")
	require.NoError(t, os.WriteFile(filepath.Join(dir, fp[:16]+".json"), []byte("{trunc"), 0o644))

	_, ok := c.Get(fp)
	assert.False(t, ok)
}

func TestEntriesWriteOnce(t *testing.T) {
	c := newCache(t)
	fp := Fingerprint("once", nil, "/o.md", "general")

	require.NoError(t, c.Put(fp, "general", "first"))
	require.NoError(t, c.Put(fp, "general", "second"))

	e, ok := c.Get(fp)
	require.True(t, ok)
	assert.Equal(t, "first", e.Context)
}

func TestOnDiskLayout(t *testing.T) {
	dir := t.TempDir()
	c, err := New(dir)
	require.NoError(t, err)
	defer c.Close()

	fp := Fingerprint("layout", nil, "/l.md", "code")
	require.NoError(t, c.Put(fp, "code", "ctx"))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fp[:16]+".json", entries[0].Name())
}

func TestConcurrentWritesDistinctFingerprints(t *testing.T) {
	c := newCache(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		fp := Fingerprint(string(rune('a'+i)), nil, "/c.md", "general")
		wg.Add(1)
		go func(fp string) {
			defer wg.Done()
			assert.NoError(t, c.Put(fp, "general", "ctx-"+fp[:4]))
		}(fp)
	}
	wg.Wait()

	for i := 0; i < 32; i++ {
		fp := Fingerprint(string(rune('a'+i)), nil, "/c.md", "general")
		e, ok := c.Get(fp)
		require.True(t, ok)
		assert.Equal(t, "ctx-"+fp[:4], e.Context)
	}
}

func TestUnwritableDirFailsAtStartup(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}
	dir := t.TempDir()
	require.NoError(t, os.Chmod(dir, 0o500))
	defer os.Chmod(dir, 0o755)

	_, err := New(filepath.Join(dir, "sub"))
	assert.Error(t, err)
}
