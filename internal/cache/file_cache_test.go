package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCache_SetGet(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[[]byte]("scenes")

	key := fc.GenerateKey("sentinel-2-l2a", "2023-04-03")
	_, ok := fc.Get(key)
	assert.False(t, ok)

	require.NoError(t, fc.Set(key, []byte("raster-bytes")))
	data, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("raster-bytes"), data)
}

func TestFileCache_KeyIsDeterministic(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[string]("test")

	assert.Equal(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 1))
	assert.NotEqual(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 2))
}

func TestFileCache_CorruptEntryIsAMiss(t *testing.T) {
	t.Setenv("ROOT_PATH", t.TempDir())
	fc := NewFileCache[[]byte]("scenes")

	require.NoError(t, fc.Set("good", []byte("x")))

	_, ok := fc.Get("missing")
	assert.False(t, ok)
}
