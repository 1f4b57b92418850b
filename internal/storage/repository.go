package storage

import (
	"context"

	"github.com/terra-clan/carprice-engine/internal/models"
)

// Repository stores serialized training artifacts
type Repository interface {
	// GetArtifact returns nil, nil when no artifact has that name
	GetArtifact(ctx context.Context, name string) (*models.Artifact, error)
	PutArtifact(ctx context.Context, a *models.Artifact) error
	ListArtifacts(ctx context.Context) ([]*models.Artifact, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
