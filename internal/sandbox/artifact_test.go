package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sandbox/internal/record"
	"github.com/roach88/sandbox/internal/testutil"
)

func TestArtifact_Encode(t *testing.T) {
	a := NewArtifact(record.Record{
		ID:           "sb-0001",
		OriginalPath: "/dataset/production",
		SandboxPath:  "/dataset/sandbox/production_sb",
		ShadowFamily: "_shadow",
		State:        record.StateActive,
		CreatedAt:    testutil.Epoch,
	})

	data, err := a.Encode()
	require.NoError(t, err)
	assert.Equal(t, `id: sb-0001
original: /dataset/production
shadow_family: _shadow
state: active
created_at: 2026-01-02T03:04:05Z
`, string(data))

	decoded, err := DecodeArtifact(data)
	require.NoError(t, err)
	assert.Equal(t, a, decoded)
}

func TestDecodeArtifact_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "id: [unterminated"},
		{"missing id", "original: /dataset/t\nstate: active\n"},
		{"missing original", "id: x\nstate: active\n"},
		{"bad state", "id: x\noriginal: /dataset/t\nstate: pushed\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeArtifact([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestArtifactPath(t *testing.T) {
	assert.Equal(t, "/dataset/sandbox/t_meta", ArtifactPath("/dataset/sandbox/t"))
}
