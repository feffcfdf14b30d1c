package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// writeTestConfig writes a config file with the cache directory pointed at a
// temp location and geocoding disabled, and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := fmt.Sprintf("cache:\n  dir: %s\ngeocoding:\n  enabled: false\n", filepath.Join(dir, "cache"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// seedSource creates a source directory with n same-day photos.
func seedSource(t *testing.T, n int) string {
	t.Helper()
	src := t.TempDir()
	for i := 0; i < n; i++ {
		name := fmt.Sprintf("IMG_20250315_1200%02d.jpg", i)
		require.NoError(t, os.WriteFile(filepath.Join(src, name), []byte(name), 0644))
	}
	return src
}
