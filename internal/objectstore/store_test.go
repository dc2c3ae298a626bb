package objectstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-radar/agentic-radar/pkg/errors"
)

func TestNewLocalStoreCreatesDirectory(t *testing.T) {
	root := filepath.Join(t.TempDir(), "artifacts", "store")

	store, err := NewLocalStore(root)
	require.NoError(t, err)

	info, err := os.Stat(store.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewLocalStoreEmptyPath(t *testing.T) {
	_, err := NewLocalStore("")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeObjectStore))
}

func TestPutFileCopiesAndPreservesMode(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(source, []byte(`{"ok": true}`), 0o600))

	store, err := NewLocalStore(filepath.Join(dir, "store"))
	require.NoError(t, err)

	stored, err := store.PutFile(source, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "report.json"), stored)

	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, `{"ok": true}`, string(data))

	info, err := os.Stat(stored)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestPutFileMissingSource(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.PutFile(filepath.Join(t.TempDir(), "absent.json"), "")

	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeObjectStore))
	assert.Contains(t, err.Error(), "does not exist")
}

func TestPutFileCustomName(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "report.json")
	require.NoError(t, os.WriteFile(source, []byte("{}"), 0o644))

	store, err := NewLocalStore(filepath.Join(dir, "store"))
	require.NoError(t, err)

	stored, err := store.PutFile(source, "renamed.json")
	require.NoError(t, err)

	assert.Equal(t, "renamed.json", filepath.Base(stored))
}

func TestPutJSONGeneratedName(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	stored, err := store.PutJSON(map[string]int{"count": 3}, "")
	require.NoError(t, err)

	name := filepath.Base(stored)
	assert.True(t, strings.HasSuffix(name, ".json"))
	assert.Len(t, strings.TrimSuffix(name, ".json"), 32)

	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	var decoded map[string]int
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded["count"])
}

func TestPutJSONLeavesNoTempFiles(t *testing.T) {
	store, err := NewLocalStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.PutJSON([]string{"a"}, "list.json")
	require.NoError(t, err)

	entries, err := os.ReadDir(store.Root())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "list.json", entries[0].Name())
}
