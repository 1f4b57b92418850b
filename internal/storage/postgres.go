package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/carprice-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Artifacts are read once at startup, a small pool is enough
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 4
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the underlying pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetArtifact retrieves an artifact by name
func (r *PostgresRepository) GetArtifact(ctx context.Context, name string) (*models.Artifact, error) {
	query := `
		SELECT name, content, content_type, checksum, updated_at
		FROM artifacts
		WHERE name = $1
	`

	var a models.Artifact
	var checksum sql.NullString

	err := r.pool.QueryRow(ctx, query, name).Scan(
		&a.Name,
		&a.Content,
		&a.ContentType,
		&checksum,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get artifact: %w", err)
	}

	a.Checksum = checksum.String
	a.Size = len(a.Content)

	return &a, nil
}

// PutArtifact inserts or replaces an artifact
func (r *PostgresRepository) PutArtifact(ctx context.Context, a *models.Artifact) error {
	query := `
		INSERT INTO artifacts (name, content, content_type, checksum, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (name) DO UPDATE
		SET content = EXCLUDED.content,
		    content_type = EXCLUDED.content_type,
		    checksum = EXCLUDED.checksum,
		    updated_at = NOW()
	`

	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if _, err := r.pool.Exec(ctx, query, a.Name, a.Content, contentType, nullString(a.Checksum)); err != nil {
		return fmt.Errorf("failed to put artifact %s: %w", a.Name, err)
	}

	return nil
}

// ListArtifacts returns artifact metadata without content
func (r *PostgresRepository) ListArtifacts(ctx context.Context) ([]*models.Artifact, error) {
	query := `
		SELECT name, content_type, checksum, octet_length(content), updated_at
		FROM artifacts
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []*models.Artifact

	for rows.Next() {
		var a models.Artifact
		var checksum sql.NullString

		if err := rows.Scan(&a.Name, &a.ContentType, &checksum, &a.Size, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan artifact: %w", err)
		}
		a.Checksum = checksum.String

		artifacts = append(artifacts, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating artifacts: %w", err)
	}

	return artifacts, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
