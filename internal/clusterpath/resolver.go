package clusterpath

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/containerd/errdefs"
	"golang.org/x/text/unicode/norm"
)

// UnresolvedPathError reports a logical path that no mount covers.
type UnresolvedPathError struct {
	Path string
}

func (e *UnresolvedPathError) Error() string {
	return fmt.Sprintf("no cluster mount for path %s", e.Path)
}

// Mount maps a logical prefix onto a physical root directory.
type Mount struct {
	Prefix string
	Root   string
}

// Resolver maps logical paths to physical paths.
//
// Resolver is immutable after construction and safe for concurrent use.
type Resolver struct {
	mounts []Mount // longest prefix first
}

// NewResolver builds a resolver from a prefix -> root table.
// Prefixes must be absolute logical paths; roots must be non-empty.
func NewResolver(mounts map[string]string) (*Resolver, error) {
	r := &Resolver{mounts: make([]Mount, 0, len(mounts))}
	for prefix, root := range mounts {
		clean, err := Clean(prefix)
		if err != nil {
			return nil, fmt.Errorf("mount %q: %w", prefix, err)
		}
		if strings.TrimSpace(root) == "" {
			return nil, fmt.Errorf("mount %q: empty root: %w", prefix, errdefs.ErrInvalidArgument)
		}
		r.mounts = append(r.mounts, Mount{Prefix: clean, Root: filepath.Clean(root)})
	}

	sort.Slice(r.mounts, func(i, j int) bool {
		if len(r.mounts[i].Prefix) != len(r.mounts[j].Prefix) {
			return len(r.mounts[i].Prefix) > len(r.mounts[j].Prefix)
		}
		return r.mounts[i].Prefix < r.mounts[j].Prefix
	})
	return r, nil
}

// Mounts returns the mount table, longest prefix first.
func (r *Resolver) Mounts() []Mount {
	out := make([]Mount, len(r.mounts))
	copy(out, r.mounts)
	return out
}

// Resolve maps a logical path to its physical path.
func (r *Resolver) Resolve(logical string) (string, error) {
	clean, err := Clean(logical)
	if err != nil {
		return "", err
	}

	for _, m := range r.mounts {
		rest, ok := under(clean, m.Prefix)
		if !ok {
			continue
		}
		if rest == "" {
			return m.Root, nil
		}
		return filepath.Join(m.Root, filepath.FromSlash(rest)), nil
	}
	return "", &UnresolvedPathError{Path: clean}
}

// Clean normalises a logical path: NFC, slash-separated, absolute, no
// trailing slash, no "." or ".." elements.
func Clean(logical string) (string, error) {
	trimmed := strings.TrimSpace(logical)
	if trimmed == "" {
		return "", fmt.Errorf("empty path: %w", errdefs.ErrInvalidArgument)
	}
	normalized := norm.NFC.String(trimmed)
	if !strings.HasPrefix(normalized, "/") {
		return "", fmt.Errorf("path %q is not absolute: %w", logical, errdefs.ErrInvalidArgument)
	}
	return path.Clean(normalized), nil
}

// under reports whether p lies under prefix and returns the remainder
// without a leading slash.
func under(p, prefix string) (string, bool) {
	if prefix == "/" {
		return strings.TrimPrefix(p, "/"), true
	}
	if p == prefix {
		return "", true
	}
	if strings.HasPrefix(p, prefix+"/") {
		return p[len(prefix)+1:], true
	}
	return "", false
}
