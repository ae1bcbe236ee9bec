package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_HashValUnset(t *testing.T) {
	s := createTestStore(t)

	v, ok, err := s.Node("$ idarling").HashVal(context.Background(), "project")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestNode_HashSetReplaces(t *testing.T) {
	ctx := context.Background()
	n := createTestStore(t).Node("$ idarling")

	require.NoError(t, n.HashSet(ctx, "tick", "1"))
	require.NoError(t, n.HashSet(ctx, "tick", "2"))

	v, ok, err := n.HashVal(ctx, "tick")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)
}

func TestNode_HashDel(t *testing.T) {
	ctx := context.Background()
	n := createTestStore(t).Node("$ idarling")

	require.NoError(t, n.HashSet(ctx, "project", "alpha"))
	require.NoError(t, n.HashDel(ctx, "project"))
	require.NoError(t, n.HashDel(ctx, "project"), "deleting an unset key is not an error")

	_, ok, err := n.HashVal(ctx, "project")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNode_Isolation(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.Node("a").HashSet(ctx, "k", "from-a"))
	require.NoError(t, s.Node("b").HashSet(ctx, "k", "from-b"))

	v, _, err := s.Node("a").HashVal(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "from-a", v)

	keys, err := s.Node("b").Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)
}

func TestNode_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "fw.idb.idarling.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Node("$ idarling").HashSet(ctx, "database", "fw.idb"))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	v, ok, err := s.Node("$ idarling").HashVal(ctx, "database")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "fw.idb", v)
}
