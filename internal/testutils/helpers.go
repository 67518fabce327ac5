// Package testutils holds fixtures shared by the package tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/olynch/presentations/internal/config"
	"github.com/stretchr/testify/require"
)

// NewProject lays out a deck project in a temp dir: the source and template
// with the given contents and a static tree holding an empty css/ directory.
// Output goes to <root>/out, which is not created.
func NewProject(t testing.TB, source, template string) *config.Config {
	t.Helper()
	root := t.TempDir()

	cfg := &config.Config{
		Src:      filepath.Join(root, "slides.md"),
		Out:      filepath.Join(root, "out"),
		Template: filepath.Join(root, "template.html"),
		Static:   filepath.Join(root, "static"),
	}
	WriteFile(t, cfg.Src, source)
	WriteFile(t, cfg.Template, template)
	require.NoError(t, os.MkdirAll(filepath.Join(cfg.Static, "css"), 0o755))
	return cfg
}

// WriteFile writes content to path, creating parent directories.
func WriteFile(t testing.TB, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// ReadFile returns the contents of path.
func ReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}
