package clusterpath

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/moby/sys/atomicwriter"
)

// FS performs file operations on the cluster mount, addressed by logical path.
type FS struct {
	resolver *Resolver
}

// NewFS returns an FS resolving paths through r.
func NewFS(r *Resolver) *FS {
	return &FS{resolver: r}
}

// Resolve maps a logical path to its physical path.
func (f *FS) Resolve(logical string) (string, error) {
	return f.resolver.Resolve(logical)
}

// Exists reports whether the file at logical exists on the mount.
func (f *FS) Exists(logical string) (bool, error) {
	physical, err := f.resolver.Resolve(logical)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(physical)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat %s: %w", physical, err)
}

// WriteFile atomically replaces the file at logical with data, creating
// parent directories as needed. Readers see either the old or the new
// content, never a partial write.
func (f *FS) WriteFile(logical string, data []byte) error {
	physical, err := f.resolver.Resolve(logical)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(physical), 0o755); err != nil {
		return fmt.Errorf("write %s: %w", physical, err)
	}
	if err := atomicwriter.WriteFile(physical, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", physical, err)
	}
	return nil
}

// ReadFile returns the content of the file at logical.
func (f *FS) ReadFile(logical string) ([]byte, error) {
	physical, err := f.resolver.Resolve(logical)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(physical)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", physical, err)
	}
	return data, nil
}

// Remove deletes the file at logical. A missing file is not an error.
func (f *FS) Remove(logical string) error {
	physical, err := f.resolver.Resolve(logical)
	if err != nil {
		return err
	}
	if err := os.Remove(physical); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", physical, err)
	}
	return nil
}
