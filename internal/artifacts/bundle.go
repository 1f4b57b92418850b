package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/terra-clan/carprice-engine/internal/models"
	"github.com/terra-clan/carprice-engine/internal/sources"
)

// NewArtifact wraps raw artifact bytes with their content type and sha256 checksum
func NewArtifact(name string, data []byte) *models.Artifact {
	sum := sha256.Sum256(data)
	return &models.Artifact{
		Name:        name,
		Content:     data,
		ContentType: ContentTypes[name],
		Checksum:    hex.EncodeToString(sum[:]),
		Size:        len(data),
		UpdatedAt:   time.Now().UTC(),
	}
}

// Bundle fetches all artifacts from a provider for publishing. The fetched
// bytes are decoded first, so an inconsistent set is never published, and
// exactly those bytes end up in the bundle.
func Bundle(ctx context.Context, provider sources.Provider) ([]*models.Artifact, error) {
	raw, err := fetchAll(ctx, provider)
	if err != nil {
		return nil, err
	}
	if _, err := decode(raw, provider.Type()); err != nil {
		return nil, fmt.Errorf("artifact set is not loadable: %w", err)
	}

	bundle := make([]*models.Artifact, 0, len(Names))
	for _, name := range Names {
		bundle = append(bundle, NewArtifact(name, raw[name]))
	}
	return bundle, nil
}

// Publish writes a bundle to a store
func Publish(ctx context.Context, pub sources.Publisher, bundle []*models.Artifact) error {
	for _, a := range bundle {
		if err := pub.Publish(ctx, a); err != nil {
			return fmt.Errorf("failed to publish %s to %s: %w", a.Name, pub.Type(), err)
		}
	}
	return nil
}
