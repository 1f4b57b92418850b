package sources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/terra-clan/carprice-engine/internal/models"
)

// ErrArtifactNotFound is returned when a provider has no artifact of that name
var ErrArtifactNotFound = errors.New("artifact not found")

// ErrChecksumMismatch is returned when stored content no longer matches its published checksum
var ErrChecksumMismatch = errors.New("artifact checksum mismatch")

// verifyChecksum compares data with a hex sha256 digest. Rows stored without
// a checksum are accepted as is.
func verifyChecksum(name string, data []byte, checksum string) error {
	if checksum == "" {
		return nil
	}
	sum := sha256.Sum256(data)
	if got := hex.EncodeToString(sum[:]); got != checksum {
		return fmt.Errorf("%w: %s has sha256 %s, published as %s", ErrChecksumMismatch, name, got, checksum)
	}
	return nil
}

// Provider defines the interface for reading training artifacts
type Provider interface {
	// Fetch returns the raw bytes of the named artifact
	Fetch(ctx context.Context, name string) ([]byte, error)

	// Type returns the provider type name
	Type() string

	// HealthCheck checks if the backing store is reachable
	HealthCheck(ctx context.Context) error
}

// Publisher is a provider that can also store artifacts
type Publisher interface {
	Provider

	Publish(ctx context.Context, a *models.Artifact) error
}

// Lister is a store that can report the artifacts it holds, without content
type Lister interface {
	List(ctx context.Context) ([]*models.Artifact, error)
}

// BaseProvider provides common functionality for providers
type BaseProvider struct {
	providerType string
}

// Type returns the provider type
func (p *BaseProvider) Type() string {
	return p.providerType
}
