package artifacts

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/terra-clan/carprice-engine/internal/models"
	"github.com/terra-clan/carprice-engine/internal/predictor"
	"github.com/terra-clan/carprice-engine/internal/sources"
)

var fixtureDir = filepath.Join("..", "..", "testdata", "artifacts")

// copyFixtures copies the fixture artifacts into a temp dir so a test can break one
func copyFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, file := range DefaultFiles {
		data, err := os.ReadFile(filepath.Join(fixtureDir, file))
		if err != nil {
			t.Fatalf("failed to read fixture %s: %v", file, err)
		}
		if err := os.WriteFile(filepath.Join(dir, file), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	reg, err := Load(context.Background(), sources.NewDirProvider(DirPaths(fixtureDir)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cols := reg.Columns()
	if len(cols) != 14 {
		t.Errorf("expected 14 columns, got %d", len(cols))
	}
	if cols[0] != "power_kw" || cols[13] != "fuel_type_Petrol" {
		t.Errorf("unexpected column order: %v", cols)
	}
	if reg.Model().NumFeatures() != len(cols) {
		t.Errorf("model width %d != columns %d", reg.Model().NumFeatures(), len(cols))
	}
	if diff := cmp.Diff(cols, reg.Encoder().Columns()); diff != "" {
		t.Errorf("encoder columns differ from registry (-registry +encoder):\n%s", diff)
	}

	brands, err := reg.Universe().Values(models.FieldBrand)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	if diff := cmp.Diff([]string{"Toyota", "BMW", "Audi"}, brands); diff != "" {
		t.Errorf("brands mismatch (-want +got):\n%s", diff)
	}

	if reg.Source() != "dir" {
		t.Errorf("expected source dir, got %s", reg.Source())
	}
	if reg.LoadedAt().IsZero() {
		t.Error("LoadedAt should be set")
	}
}

func TestLoad_MissingColumnsArtifact(t *testing.T) {
	dir := copyFixtures(t)
	if err := os.Remove(filepath.Join(dir, DefaultFiles[NameColumns])); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(context.Background(), sources.NewDirProvider(DirPaths(dir)))
	if reg != nil {
		t.Error("no registry may be returned on failure")
	}

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected *LoadError, got %v", err)
	}
	if loadErr.Artifact != NameColumns {
		t.Errorf("expected artifact %s, got %s", NameColumns, loadErr.Artifact)
	}
	if !errors.Is(err, sources.ErrArtifactNotFound) {
		t.Errorf("expected wrapped ErrArtifactNotFound, got %v", err)
	}
}

func TestLoad_BrokenArtifacts(t *testing.T) {
	tests := []struct {
		name     string
		artifact string
		content  string
	}{
		{"columns not a list", NameColumns, "power_kw: 1"},
		{"columns empty", NameColumns, "[]"},
		{"scaler garbage", NameScaler, "{{{"},
		{"scaler shape", NameScaler, "columns: [power_kw]\nmean: [1, 2]\nscale: [1]"},
		{"scaler column outside schema", NameScaler, "columns: [engine_cc]\nmean: [1]\nscale: [1]"},
		{"model pickle", NameModel, "\x80\x04\x95"},
		{"scaler nan mean", NameScaler, "columns: [power_kw]\nmean: [.nan]\nscale: [1]"},
		{"model negative flat index", NameModel, `{"features_info": {"float_features": [{"feature_index": 0, "flat_feature_index": -1}]}}`},
		{"reference missing field", NameReference, "brand,model\nToyota,Corolla\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := copyFixtures(t)
			path := filepath.Join(dir, DefaultFiles[tt.artifact])
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := Load(context.Background(), sources.NewDirProvider(DirPaths(dir)))
			var loadErr *LoadError
			if !errors.As(err, &loadErr) {
				t.Fatalf("expected *LoadError, got %v", err)
			}
			if loadErr.Artifact != tt.artifact {
				t.Errorf("expected artifact %s, got %s", tt.artifact, loadErr.Artifact)
			}
		})
	}
}

func TestLoad_ModelWidthMismatch(t *testing.T) {
	dir := copyFixtures(t)
	cols := "[power_kw, power_ps, fuel_consumption_l_100km.1, mileage_in_km, vehicle_age, brand_BMW]"
	if err := os.WriteFile(filepath.Join(dir, DefaultFiles[NameColumns]), []byte(cols), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(context.Background(), sources.NewDirProvider(DirPaths(dir)))
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Artifact != NameModel {
		t.Fatalf("expected model LoadError, got %v", err)
	}
	if !errors.Is(err, predictor.ErrSchemaMismatch) {
		t.Errorf("expected wrapped ErrSchemaMismatch, got %v", err)
	}
}

func TestParseColumns_JSON(t *testing.T) {
	cols, err := ParseColumns([]byte(`["power_kw", "brand_BMW"]`))
	if err != nil {
		t.Fatalf("ParseColumns failed: %v", err)
	}
	if diff := cmp.Diff([]string{"power_kw", "brand_BMW"}, cols); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}
}
