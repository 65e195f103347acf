package nativelog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterAppendsToDailyFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	w, err := NewWriter(dir)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "footprint_2024-03-01.log"))
	require.NoError(t, err)
	assert.Equal(t, "first\nsecond\n", string(data))

	n, err := w.Write(nil)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestResolveDirPrefersExplicit(t *testing.T) {
	assert.Equal(t, "/var/log/fp", ResolveDir("  /var/log/fp "))
	assert.NotEmpty(t, ResolveDir(""))
}
