package artifacts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/terra-clan/carprice-engine/internal/models"
	"github.com/terra-clan/carprice-engine/internal/sources"
)

// memStore is an in-memory Publisher
type memStore struct {
	items map[string]*models.Artifact
	fail  error
}

func (m *memStore) Type() string                          { return "memory" }
func (m *memStore) HealthCheck(ctx context.Context) error { return nil }

func (m *memStore) Fetch(ctx context.Context, name string) ([]byte, error) {
	a, ok := m.items[name]
	if !ok {
		return nil, sources.ErrArtifactNotFound
	}
	return a.Content, nil
}

func (m *memStore) Publish(ctx context.Context, a *models.Artifact) error {
	if m.fail != nil {
		return m.fail
	}
	if m.items == nil {
		m.items = make(map[string]*models.Artifact)
	}
	m.items[a.Name] = a
	return nil
}

func TestNewArtifact(t *testing.T) {
	data := []byte("columns: [a, b]\n")
	a := NewArtifact(NameColumns, data)

	sum := sha256.Sum256(data)
	if a.Checksum != hex.EncodeToString(sum[:]) {
		t.Errorf("unexpected checksum %s", a.Checksum)
	}
	if a.ContentType != "application/yaml" || a.Size != len(data) || a.Name != NameColumns {
		t.Errorf("unexpected artifact: %+v", a)
	}
	if a.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set")
	}
}

func TestBundleAndPublish_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := sources.NewDirProvider(DirPaths(fixtureDir))

	bundle, err := Bundle(ctx, dir)
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	var names []string
	for _, a := range bundle {
		names = append(names, a.Name)
	}
	if diff := cmp.Diff(Names, names); diff != "" {
		t.Errorf("bundle order mismatch (-want +got):\n%s", diff)
	}

	store := &memStore{}
	if err := Publish(ctx, store, bundle); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	fromDir, err := Load(ctx, dir)
	if err != nil {
		t.Fatal(err)
	}
	fromStore, err := Load(ctx, store)
	if err != nil {
		t.Fatalf("Load from published store failed: %v", err)
	}
	if diff := cmp.Diff(fromDir.Columns(), fromStore.Columns()); diff != "" {
		t.Errorf("columns differ after publish (-dir +store):\n%s", diff)
	}
	if fromStore.Source() != "memory" {
		t.Errorf("expected source memory, got %s", fromStore.Source())
	}
}

func TestBundle_RejectsBrokenSet(t *testing.T) {
	dir := copyFixtures(t)
	if err := os.WriteFile(filepath.Join(dir, DefaultFiles[NameScaler]), []byte("mean: [1]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Bundle(context.Background(), sources.NewDirProvider(DirPaths(dir)))

	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("expected LoadError, got %v", err)
	}
	if loadErr.Artifact != NameScaler {
		t.Errorf("expected scaler to be blamed, got %s", loadErr.Artifact)
	}
}

func TestPublish_StopsOnFirstError(t *testing.T) {
	boom := errors.New("read-only replica")
	store := &memStore{fail: boom}
	bundle := []*models.Artifact{NewArtifact(NameColumns, []byte("x")), NewArtifact(NameScaler, []byte("y"))}

	err := Publish(context.Background(), store, bundle)
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
	if len(store.items) != 0 {
		t.Errorf("nothing should be stored, got %d", len(store.items))
	}
}

// flakyProvider serves real artifacts on the first read and garbage afterwards
type flakyProvider struct {
	sources.Provider
	reads map[string]int
}

func (p *flakyProvider) Fetch(ctx context.Context, name string) ([]byte, error) {
	p.reads[name]++
	if p.reads[name] > 1 {
		return []byte("overwritten"), nil
	}
	return p.Provider.Fetch(ctx, name)
}

func TestBundle_PublishesTheBytesItValidated(t *testing.T) {
	ctx := context.Background()
	dir := sources.NewDirProvider(DirPaths(fixtureDir))
	p := &flakyProvider{Provider: dir, reads: make(map[string]int)}

	bundle, err := Bundle(ctx, p)
	if err != nil {
		t.Fatalf("Bundle failed: %v", err)
	}

	for _, a := range bundle {
		if p.reads[a.Name] != 1 {
			t.Errorf("%s fetched %d times", a.Name, p.reads[a.Name])
		}
		want, err := dir.Fetch(ctx, a.Name)
		if err != nil {
			t.Fatal(err)
		}
		if string(a.Content) != string(want) {
			t.Errorf("%s: bundled bytes differ from the validated file", a.Name)
		}
	}
}
