package clusterpath

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestFS(t *testing.T) (*FS, string) {
	t.Helper()
	root := t.TempDir()
	r, err := NewResolver(map[string]string{"/dataset": root})
	require.NoError(t, err)
	return NewFS(r), root
}

func TestFS_WriteCreatesParents(t *testing.T) {
	fs, root := createTestFS(t)

	require.NoError(t, fs.WriteFile("/dataset/sandbox/t_meta", []byte("id: x\n")))

	data, err := os.ReadFile(filepath.Join(root, "sandbox", "t_meta"))
	require.NoError(t, err)
	assert.Equal(t, "id: x\n", string(data))
}

func TestFS_WriteReplaces(t *testing.T) {
	fs, _ := createTestFS(t)

	require.NoError(t, fs.WriteFile("/dataset/t_meta", []byte("first")))
	require.NoError(t, fs.WriteFile("/dataset/t_meta", []byte("second")))

	data, err := fs.ReadFile("/dataset/t_meta")
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestFS_Exists(t *testing.T) {
	fs, _ := createTestFS(t)

	ok, err := fs.Exists("/dataset/t_meta")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, fs.WriteFile("/dataset/t_meta", []byte("x")))

	ok, err = fs.Exists("/dataset/t_meta")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestFS_RemoveTolerantOfMissing(t *testing.T) {
	fs, _ := createTestFS(t)

	require.NoError(t, fs.WriteFile("/dataset/t_meta", []byte("x")))
	require.NoError(t, fs.Remove("/dataset/t_meta"))
	require.NoError(t, fs.Remove("/dataset/t_meta"))

	ok, err := fs.Exists("/dataset/t_meta")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFS_UnresolvedPath(t *testing.T) {
	fs, _ := createTestFS(t)

	var unresolved *UnresolvedPathError
	_, err := fs.Exists("/elsewhere/t")
	assert.ErrorAs(t, err, &unresolved)
	assert.ErrorAs(t, fs.WriteFile("/elsewhere/t", nil), &unresolved)
	assert.ErrorAs(t, fs.Remove("/elsewhere/t"), &unresolved)
	_, err = fs.ReadFile("/elsewhere/t")
	assert.ErrorAs(t, err, &unresolved)
}

func TestFS_ReadMissing(t *testing.T) {
	fs, _ := createTestFS(t)

	_, err := fs.ReadFile("/dataset/absent")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
