package cache

import (
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, maxSize uint64) *Cache {
	t.Helper()
	dir := t.TempDir()
	c, err := New(dir, maxSize, nil)
	require.NoError(t, err)
	return c
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := newTestCache(t, 1<<20)
	key := Key("https://h/", url.Values{"p": {"1"}})

	require.NoError(t, c.Put(key, time.Minute, map[string]string{"hello": "world"}))

	var out map[string]string
	require.True(t, c.Get(key, &out))
	require.Equal(t, "world", out["hello"])
}

func TestCache_KeyIsolation(t *testing.T) {
	c := newTestCache(t, 1<<20)
	k1 := Key("https://h/", url.Values{"p": {"1"}})
	k2 := Key("https://h/", url.Values{"p": {"2"}})

	require.NoError(t, c.Put(k1, time.Minute, "a"))

	var out string
	require.False(t, c.Get(k2, &out))
}

func TestCache_ExpiredEntryAbsent(t *testing.T) {
	c := newTestCache(t, 1<<20)
	key := Key("https://h/", nil)
	require.NoError(t, c.Put(key, -time.Second, "stale"))

	var out string
	require.False(t, c.Get(key, &out))
	require.Equal(t, 0, c.Len())
}

func TestCache_CleanupRemovesExpiredEntries(t *testing.T) {
	c := newTestCache(t, 1<<20)

	k1 := Key("https://h/a", nil)
	k2 := Key("https://h/b", nil)
	require.NoError(t, c.Put(k1, time.Second, "a"))
	require.NoError(t, c.Put(k2, time.Hour, "b"))

	require.Equal(t, 2, c.Len())

	time.Sleep(1100 * time.Millisecond)
	c.Cleanup()

	require.Equal(t, 1, c.Len())
	var out string
	require.False(t, c.Get(k1, &out))
	require.True(t, c.Get(k2, &out))
}

func TestCache_NoSpace(t *testing.T) {
	c := newTestCache(t, 8)
	key := Key("https://h/huge", nil)
	err := c.Put(key, time.Minute, "this payload is much larger than eight bytes")
	require.Error(t, err)
}

func TestCache_TotalSizeInvariant(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("total_size equals sum of live entry sizes", prop.ForAll(
		func(values []string) bool {
			c := newTestCache(t, 1<<30)
			for i, v := range values {
				key := Key("https://h/", url.Values{"i": {string(rune('a' + i%26))}})
				_ = c.Put(key, time.Hour, v)
			}
			var want uint64
			for _, e := range c.metadata {
				want += e.size
			}
			return want == c.TotalSize()
		},
		gen.SliceOfN(10, gen.AlphaString()),
	))

	properties.TestingRun(t)
}

func TestCache_StartupScrubsStrayFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/stray", []byte("leftover"), 0o644))

	c, err := New(dir, 1<<20, nil)
	require.NoError(t, err)
	require.Equal(t, 0, c.Len())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries)
}
