package sources

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// DirProvider reads artifacts from files on disk
type DirProvider struct {
	BaseProvider
	paths map[string]string
}

// NewDirProvider creates a provider that maps artifact names to file paths
func NewDirProvider(paths map[string]string) *DirProvider {
	cp := make(map[string]string, len(paths))
	for name, path := range paths {
		cp[name] = path
	}
	return &DirProvider{
		BaseProvider: BaseProvider{providerType: "dir"},
		paths:        cp,
	}
}

// Path returns the file backing an artifact
func (p *DirProvider) Path(name string) (string, bool) {
	path, ok := p.paths[name]
	return path, ok
}

// Fetch reads the artifact file
func (p *DirProvider) Fetch(ctx context.Context, name string) ([]byte, error) {
	path, ok := p.paths[name]
	if !ok {
		return nil, fmt.Errorf("%w: no path configured for %s", ErrArtifactNotFound, name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// HealthCheck verifies that the artifact directories exist
func (p *DirProvider) HealthCheck(ctx context.Context) error {
	for name, path := range p.paths {
		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			return fmt.Errorf("artifact %s: %w", name, err)
		}
	}
	return nil
}
