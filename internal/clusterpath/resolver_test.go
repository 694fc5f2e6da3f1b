package clusterpath

import (
	"path/filepath"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_LongestPrefixWins(t *testing.T) {
	r, err := NewResolver(map[string]string{
		"/":                "/mapr/default",
		"/dataset":         "/mapr/my.cluster.com/dataset",
		"/dataset/archive": "/mapr/cold.cluster.com/archive",
	})
	require.NoError(t, err)

	tests := []struct {
		logical  string
		expected string
	}{
		{"/dataset/production", "/mapr/my.cluster.com/dataset/production"},
		{"/dataset/archive/2019", "/mapr/cold.cluster.com/archive/2019"},
		{"/dataset/archive", "/mapr/cold.cluster.com/archive"},
		{"/dataset", "/mapr/my.cluster.com/dataset"},
		{"/other/table", "/mapr/default/other/table"},
	}

	for _, tt := range tests {
		t.Run(tt.logical, func(t *testing.T) {
			got, err := r.Resolve(tt.logical)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.expected), got)
		})
	}
}

func TestResolve_MatchesOnComponentBoundary(t *testing.T) {
	r, err := NewResolver(map[string]string{"/data": "/mapr/c/data"})
	require.NoError(t, err)

	_, err = r.Resolve("/dataset/production")
	var unresolved *UnresolvedPathError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, "/dataset/production", unresolved.Path)
}

func TestResolve_UnknownPrefix(t *testing.T) {
	r, err := NewResolver(map[string]string{"/dataset": "/mapr/c/dataset"})
	require.NoError(t, err)

	_, err = r.Resolve("/nowhere/table")
	var unresolved *UnresolvedPathError
	assert.ErrorAs(t, err, &unresolved)
	assert.Contains(t, err.Error(), "/nowhere/table")
}

func TestResolve_EmptyMountTable(t *testing.T) {
	r, err := NewResolver(nil)
	require.NoError(t, err)

	_, err = r.Resolve("/dataset/production")
	var unresolved *UnresolvedPathError
	assert.ErrorAs(t, err, &unresolved)
}

func TestResolve_IsPure(t *testing.T) {
	r, err := NewResolver(map[string]string{"/dataset": "/mapr/c/dataset"})
	require.NoError(t, err)

	first, err := r.Resolve("/dataset/t")
	require.NoError(t, err)
	second, err := r.Resolve("/dataset/t")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestResolve_CleansPath(t *testing.T) {
	r, err := NewResolver(map[string]string{"/dataset": "/mapr/c/dataset"})
	require.NoError(t, err)

	got, err := r.Resolve("/dataset//sandbox/./t/")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/mapr/c/dataset/sandbox/t"), got)
}

func TestResolve_NFCNormalisation(t *testing.T) {
	r, err := NewResolver(map[string]string{"/dataset": "/mapr/c/dataset"})
	require.NoError(t, err)

	composed, err := r.Resolve("/dataset/caf\u00e9")
	require.NoError(t, err)
	decomposed, err := r.Resolve("/dataset/cafe\u0301")
	require.NoError(t, err)
	assert.Equal(t, composed, decomposed)
}

func TestResolve_RelativePathRejected(t *testing.T) {
	r, err := NewResolver(map[string]string{"/": "/mapr/c"})
	require.NoError(t, err)

	_, err = r.Resolve("dataset/t")
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestNewResolver_RejectsBadMounts(t *testing.T) {
	_, err := NewResolver(map[string]string{"dataset": "/mapr/c"})
	assert.True(t, errdefs.IsInvalidArgument(err))

	_, err = NewResolver(map[string]string{"/dataset": "  "})
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestMounts_LongestFirst(t *testing.T) {
	r, err := NewResolver(map[string]string{
		"/a":     "/x",
		"/a/b/c": "/z",
		"/a/b":   "/y",
	})
	require.NoError(t, err)

	mounts := r.Mounts()
	require.Len(t, mounts, 3)
	assert.Equal(t, "/a/b/c", mounts[0].Prefix)
	assert.Equal(t, "/a/b", mounts[1].Prefix)
	assert.Equal(t, "/a", mounts[2].Prefix)
}

func TestClean(t *testing.T) {
	tests := []struct {
		in       string
		expected string
		wantErr  bool
	}{
		{"/dataset/production", "/dataset/production", false},
		{" /dataset/production/ ", "/dataset/production", false},
		{"/dataset/../other", "/other", false},
		{"/", "/", false},
		{"", "", true},
		{"   ", "", true},
		{"relative/path", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Clean(tt.in)
			if tt.wantErr {
				assert.True(t, errdefs.IsInvalidArgument(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
