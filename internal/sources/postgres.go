package sources

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/terra-clan/carprice-engine/internal/models"
	"github.com/terra-clan/carprice-engine/internal/storage"
)

// PostgresProvider reads artifacts from the artifacts table
type PostgresProvider struct {
	BaseProvider
	repo storage.Repository
}

// NewPostgresProvider wraps an artifact repository
func NewPostgresProvider(repo storage.Repository) *PostgresProvider {
	return &PostgresProvider{
		BaseProvider: BaseProvider{providerType: "postgres"},
		repo:         repo,
	}
}

// Fetch loads one artifact row
func (p *PostgresProvider) Fetch(ctx context.Context, name string) ([]byte, error) {
	a, err := p.repo.GetArtifact(ctx, name)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err := verifyChecksum(name, a.Content, a.Checksum); err != nil {
		return nil, err
	}

	slog.Debug("artifact fetched from postgres",
		"name", name,
		"bytes", a.Size,
		"checksum", a.Checksum,
		"updated_at", a.UpdatedAt,
	)
	return a.Content, nil
}

// Publish stores an artifact row
func (p *PostgresProvider) Publish(ctx context.Context, a *models.Artifact) error {
	return p.repo.PutArtifact(ctx, a)
}

// List returns the stored artifact rows without content
func (p *PostgresProvider) List(ctx context.Context) ([]*models.Artifact, error) {
	return p.repo.ListArtifacts(ctx)
}

// HealthCheck pings the database
func (p *PostgresProvider) HealthCheck(ctx context.Context) error {
	return p.repo.Ping(ctx)
}
