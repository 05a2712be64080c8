package archive

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/newthinker/momentum/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS_ImplementsStorage(t *testing.T) {
	var _ Storage = (*LocalFS)(nil)
}

func TestLocalFS_WriteRead(t *testing.T) {
	store, err := NewLocalFS(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "scans/2024/01/02/a.csv", []byte("ticker\nRELI\n")))
	require.NoError(t, store.Write(ctx, "scans/2024/01/02/a.csv", []byte("ticker\nGNS\n")))

	got, err := store.Read(ctx, "scans/2024/01/02/a.csv")
	require.NoError(t, err)
	assert.Equal(t, "ticker\nGNS\n", string(got))

	_, err = store.Read(ctx, "scans/missing.csv")
	assert.True(t, errors.Is(err, core.ErrNoData))
}

func TestLocalFS_RejectsEscapingKeys(t *testing.T) {
	dir := t.TempDir()
	store, _ := NewLocalFS(filepath.Join(dir, "root"))
	ctx := context.Background()

	for _, key := range []string{"../outside.txt", "a/../../b", ""} {
		err := store.Write(ctx, key, []byte("x"))
		assert.True(t, errors.Is(err, core.ErrInvalidInput), key)
	}
	_, err := os.Stat(filepath.Join(dir, "outside.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocalFS_Exists(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	exists, err := store.Exists(ctx, "nonexistent.txt")
	require.NoError(t, err)
	assert.False(t, exists)

	store.Write(ctx, "exists.txt", []byte("data"))
	exists, _ = store.Exists(ctx, "exists.txt")
	assert.True(t, exists)
}

func TestLocalFS_List(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	store.Write(ctx, "scans/2024/01/b.csv", []byte("b"))
	store.Write(ctx, "scans/2024/01/a.csv", []byte("a"))
	store.Write(ctx, "scans/2024/02/c.csv", []byte("c"))

	keys, err := store.List(ctx, "scans/2024/01")
	require.NoError(t, err)
	assert.Equal(t, []string{"scans/2024/01/a.csv", "scans/2024/01/b.csv"}, keys)

	all, _ := store.List(ctx, "")
	assert.Len(t, all, 3)

	none, err := store.List(ctx, "scans/1999")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestLocalFS_Delete(t *testing.T) {
	store, _ := NewLocalFS(t.TempDir())
	ctx := context.Background()

	store.Write(ctx, "delete.txt", []byte("data"))
	require.NoError(t, store.Delete(ctx, "delete.txt"))
	require.NoError(t, store.Delete(ctx, "delete.txt"), "deleting twice is not an error")

	exists, _ := store.Exists(ctx, "delete.txt")
	assert.False(t, exists)
}
