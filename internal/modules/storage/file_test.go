package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackend_PutGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "store.json")
	b, err := NewFileBackend(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.Get(ctx, "cart")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Put(ctx, map[string][]byte{
		"cart":   []byte(`{"version":1,"data":[]}`),
		"orders": []byte(`{"version":1,"data":[]}`),
	}))

	got, err := b.Get(ctx, "orders")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"data":[]}`, string(got))

	// A second backend on the same file sees the data, as after a restart.
	again, err := NewFileBackend(path)
	require.NoError(t, err)
	got, err = again.Get(ctx, "cart")
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1,"data":[]}`, string(got))
}

func TestFileBackend_RejectsInvalidJSONWithoutPartialWrite(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "store.json"))
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, map[string][]byte{"a": []byte(`1`)}))
	err = b.Put(ctx, map[string][]byte{"a": []byte(`2`), "b": []byte(`{oops`)})
	assert.Error(t, err)

	got, err := b.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))
}

func TestFileBackend_CorruptedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	require.NoError(t, os.WriteFile(path, []byte("\x00garbage"), 0o644))
	b, err := NewFileBackend(path)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.Get(ctx, "cart")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	// Adapter turns that into "no data".
	a := newTestAdapter(t, b)
	_, ok := a.Load(ctx, "cart")
	assert.False(t, ok)

	// Writes replace the corrupted document.
	require.NoError(t, b.Put(ctx, map[string][]byte{"cart": []byte(`[]`)}))
	got, err := b.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestFileBackend_RequiresPath(t *testing.T) {
	_, err := NewFileBackend("")
	assert.Error(t, err)
}
