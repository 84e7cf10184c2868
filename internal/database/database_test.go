package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationSource(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "migrations"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "cmd"), 0o755))

	tests := []struct {
		name     string
		workDir  string
		dir      string
		expected string
	}{
		{"present in working directory", root, "migrations", "file://migrations"},
		{"found in parent", filepath.Join(root, "cmd"), "migrations", "file://../migrations"},
		{"missing everywhere", filepath.Join(root, "cmd"), "schema", "file://schema"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(tt.workDir)
			assert.Equal(t, tt.expected, migrationSource(tt.dir))
		})
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("booklog:booklog@tcp(127.0.0.1:1)/booklog?timeout=200ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
}
