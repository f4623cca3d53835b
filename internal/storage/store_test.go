package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testDoc struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := NewStore(t.TempDir())

	saved := testDoc{Name: "get_readme", Count: 42}
	path, err := store.Save("middleware/usage/get_readme", &saved)
	require.NoError(t, err)
	assert.FileExists(t, path)

	var loaded testDoc
	found, err := store.Load("middleware/usage/get_readme", &loaded)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, saved, loaded)
}

func TestStore_LoadMissing(t *testing.T) {
	store := NewStore(t.TempDir())

	var out testDoc
	found, err := store.Load("middleware/usage/never_saved", &out)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, testDoc{}, out)
}

func TestStore_SaveOverwrites(t *testing.T) {
	store := NewStore(t.TempDir())

	_, err := store.Save("doc", &testDoc{Count: 1})
	require.NoError(t, err)
	_, err = store.Save("doc", &testDoc{Count: 2})
	require.NoError(t, err)

	var out testDoc
	found, err := store.Load("doc", &out)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 2, out.Count)
}

func TestStore_EnvelopeTimestamp(t *testing.T) {
	store := NewStore(t.TempDir())
	fixed := time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	_, err := store.Save("doc", &testDoc{Name: "x"})
	require.NoError(t, err)

	env, found, err := store.LoadEnvelope("doc")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, env.Timestamp.Equal(fixed))

	var out testDoc
	require.NoError(t, json.Unmarshal(env.Data, &out))
	assert.Equal(t, "x", out.Name)
}

func TestStore_KeyValidation(t *testing.T) {
	store := NewStore(t.TempDir())

	tests := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"absolute", "/etc/passwd"},
		{"traversal", "../escape"},
		{"nested traversal", "middleware/../escape"},
		{"dot segment", "middleware/./usage"},
		{"empty segment", "middleware//usage"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Save(tt.key, &testDoc{})
			assert.Error(t, err)

			_, err = store.Load(tt.key, &testDoc{})
			assert.Error(t, err)
		})
	}
}

func TestStore_CreatesNestedDirectories(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	_, err := store.Save("a/b/c/doc", &testDoc{})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, "a", "b", "c", "doc.json"))
}

func TestStore_LoadCorruptDocument(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "doc.json"), []byte("{not json"), 0o600))

	var out testDoc
	_, err := store.Load("doc", &out)
	assert.Error(t, err)
}

func TestStore_NoTempFilesLeftBehind(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	_, err := store.Save("doc", &testDoc{})
	require.NoError(t, err)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())
}
