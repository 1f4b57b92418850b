package storage

import (
	"context"
	"os"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"

	"github.com/terra-clan/carprice-engine/internal/models"
)

func TestPendingMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"002_index.sql":     {Data: []byte("CREATE INDEX ...")},
		"001_artifacts.sql": {Data: []byte("CREATE TABLE ...")},
		"README.md":         {Data: []byte("notes")},
		"old/003_skip.sql":  {Data: []byte("nested dirs are ignored")},
	}

	got, err := PendingMigrations(fsys, map[string]bool{})
	if err != nil {
		t.Fatalf("PendingMigrations failed: %v", err)
	}
	if diff := cmp.Diff([]string{"001_artifacts.sql", "002_index.sql"}, got); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}

	got, err = PendingMigrations(fsys, map[string]bool{"001_artifacts.sql": true})
	if err != nil {
		t.Fatalf("PendingMigrations failed: %v", err)
	}
	if diff := cmp.Diff([]string{"002_index.sql"}, got); diff != "" {
		t.Errorf("pending mismatch (-want +got):\n%s", diff)
	}
}

func TestEmbeddedMigrations(t *testing.T) {
	got, err := PendingMigrations(Migrations(), nil)
	if err != nil {
		t.Fatalf("PendingMigrations failed: %v", err)
	}
	if len(got) == 0 || got[0] != "001_artifacts.sql" {
		t.Errorf("expected embedded 001_artifacts.sql first, got %v", got)
	}
}

// TestPostgresRepository_RoundTrip needs a live database:
// TEST_DATABASE_DSN=postgres://... go test ./internal/storage/
func TestPostgresRepository_RoundTrip(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping")
	}

	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, PostgresConfig{DSN: dsn})
	if err != nil {
		t.Fatalf("NewPostgresRepository failed: %v", err)
	}
	defer repo.Close()

	if err := RunMigrations(ctx, repo.Pool(), Migrations()); err != nil {
		t.Fatalf("RunMigrations failed: %v", err)
	}

	missing, err := repo.GetArtifact(ctx, "does-not-exist")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing artifact, got %v, %v", missing, err)
	}

	in := &models.Artifact{Name: "test_columns", Content: []byte("[a, b]"), ContentType: "application/yaml"}
	if err := repo.PutArtifact(ctx, in); err != nil {
		t.Fatalf("PutArtifact failed: %v", err)
	}

	out, err := repo.GetArtifact(ctx, "test_columns")
	if err != nil {
		t.Fatalf("GetArtifact failed: %v", err)
	}
	if string(out.Content) != "[a, b]" || out.ContentType != "application/yaml" {
		t.Errorf("unexpected artifact: %+v", out)
	}
}
