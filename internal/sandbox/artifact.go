package sandbox

import (
	"fmt"
	"time"

	"github.com/roach88/sandbox/internal/record"
	"gopkg.in/yaml.v3"
)

// ArtifactSuffix is appended to a sandbox path to name its metadata artifact.
const ArtifactSuffix = "_meta"

// Artifact is the metadata file written next to a sandbox table on the
// cluster mount. It lets tools that only see the filesystem find the
// original table of a sandbox.
type Artifact struct {
	ID           string       `yaml:"id"`
	Original     string       `yaml:"original"`
	ShadowFamily string       `yaml:"shadow_family"`
	State        record.State `yaml:"state"`
	CreatedAt    time.Time    `yaml:"created_at"`
}

// ArtifactPath returns the logical path of the metadata artifact for a sandbox.
func ArtifactPath(sandboxPath string) string {
	return sandboxPath + ArtifactSuffix
}

// NewArtifact builds the artifact describing rec.
func NewArtifact(rec record.Record) Artifact {
	return Artifact{
		ID:           rec.ID,
		Original:     rec.OriginalPath,
		ShadowFamily: rec.ShadowFamily,
		State:        rec.State,
		CreatedAt:    rec.CreatedAt.UTC(),
	}
}

// Encode renders the artifact as YAML.
func (a Artifact) Encode() ([]byte, error) {
	data, err := yaml.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

// DecodeArtifact parses an artifact previously written by Encode.
func DecodeArtifact(data []byte) (Artifact, error) {
	var a Artifact
	if err := yaml.Unmarshal(data, &a); err != nil {
		return Artifact{}, fmt.Errorf("decode artifact: %w", err)
	}
	if a.ID == "" || a.Original == "" {
		return Artifact{}, fmt.Errorf("decode artifact: missing id or original")
	}
	if !a.State.Valid() {
		return Artifact{}, fmt.Errorf("decode artifact: invalid state %q", a.State)
	}
	return a, nil
}
