package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// createTestStore opens a sidecar for a throwaway document.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(PathFor(filepath.Join(t.TempDir(), "fw.i64"), ""))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}
