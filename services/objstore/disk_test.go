package objstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore_Put(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root, "http://localhost:8000/files/")
	require.NoError(t, err)

	url, err := store.Put(context.Background(), "notes/abc/file.txt", strings.NewReader("hello"), 5, "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000/files/notes/abc/file.txt", url)

	data, err := os.ReadFile(filepath.Join(root, "notes", "abc", "file.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDiskStore_Put_InvalidKey(t *testing.T) {
	store, err := NewDiskStore(t.TempDir(), "/files")
	require.NoError(t, err)

	for _, key := range []string{"", "../escape.txt", "notes/../../escape.txt", "/abs.txt"} {
		t.Run(key, func(t *testing.T) {
			_, err := store.Put(context.Background(), key, strings.NewReader("x"), 1, "")
			assert.Equal(t, errInvalidKey, errors.Cause(err))
		})
	}
}

func TestDiskStore_Delete(t *testing.T) {
	root := t.TempDir()
	store, err := NewDiskStore(root, "/files")
	require.NoError(t, err)

	ctx := context.Background()
	_, err = store.Put(ctx, "notes/abc/file.txt", strings.NewReader("hello"), 5, "")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "notes/abc/file.txt"))
	_, err = os.Stat(filepath.Join(root, "notes", "abc", "file.txt"))
	assert.True(t, os.IsNotExist(err))

	// missing keys are ignored
	assert.NoError(t, store.Delete(ctx, "notes/abc/file.txt"))
}
