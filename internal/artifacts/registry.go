package artifacts

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/carprice-engine/internal/catalog"
	"github.com/terra-clan/carprice-engine/internal/encoder"
	"github.com/terra-clan/carprice-engine/internal/logging"
	"github.com/terra-clan/carprice-engine/internal/models"
	"github.com/terra-clan/carprice-engine/internal/predictor"
	"github.com/terra-clan/carprice-engine/internal/sources"
)

// Artifact names as stored by every provider
const (
	NameColumns   = "expected_columns"
	NameScaler    = "scaler"
	NameModel     = "model"
	NameReference = "reference_data"
)

// Names lists all artifacts in load order
var Names = []string{NameColumns, NameScaler, NameModel, NameReference}

// ContentTypes records how each artifact is serialized
var ContentTypes = map[string]string{
	NameColumns:   "application/yaml",
	NameScaler:    "application/yaml",
	NameModel:     "application/json",
	NameReference: "text/csv",
}

// DefaultFiles are the file names the training export writes
var DefaultFiles = map[string]string{
	NameColumns:   "expected_columns.yaml",
	NameScaler:    "scaler.yaml",
	NameModel:     "catboost_model.json",
	NameReference: "Cars_Data.csv",
}

// DirPaths maps every artifact to its default file inside dir
func DirPaths(dir string) map[string]string {
	paths := make(map[string]string, len(DefaultFiles))
	for name, file := range DefaultFiles {
		paths[name] = filepath.Join(dir, file)
	}
	return paths
}

// Registry holds the decoded artifacts. It is built once by Load and never
// mutated, so it can be shared by reference without locking.
type Registry struct {
	columns  []string
	encoder  *encoder.Encoder
	model    predictor.Model
	universe *catalog.Universe
	source   string
	loadedAt time.Time
}

// Load fetches and decodes every artifact from provider.
// Any failure is returned as a *LoadError; there is no partial registry.
func Load(ctx context.Context, provider sources.Provider) (*Registry, error) {
	start := time.Now()

	raw, err := fetchAll(ctx, provider)
	if err != nil {
		return nil, err
	}

	reg, err := decode(raw, provider.Type())
	if err != nil {
		return nil, err
	}

	logging.New("artifacts").Info("artifacts loaded",
		"source", provider.Type(),
		"columns", len(reg.columns),
		"model_features", reg.model.NumFeatures(),
		"reference_rows", reg.universe.Rows(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return reg, nil
}

// fetchAll reads the raw bytes of every artifact
func fetchAll(ctx context.Context, provider sources.Provider) (map[string][]byte, error) {
	raw := make(map[string][]byte, len(Names))
	for _, name := range Names {
		data, err := provider.Fetch(ctx, name)
		if err != nil {
			return nil, loadErr(name, err)
		}
		raw[name] = data
	}
	return raw, nil
}

// decode builds a registry from raw artifact bytes
func decode(raw map[string][]byte, source string) (*Registry, error) {
	columns, err := ParseColumns(raw[NameColumns])
	if err != nil {
		return nil, loadErr(NameColumns, err)
	}

	scaler, err := encoder.ParseScaler(raw[NameScaler])
	if err != nil {
		return nil, loadErr(NameScaler, err)
	}

	enc, err := encoder.New(columns, scaler, encoder.DefaultOptions())
	if err != nil {
		return nil, loadErr(NameScaler, err)
	}

	model, err := predictor.ParseCatBoostJSON(raw[NameModel])
	if err != nil {
		return nil, loadErr(NameModel, err)
	}
	if model.NumFeatures() != len(columns) {
		return nil, loadErr(NameModel, &predictor.SchemaMismatchError{Want: model.NumFeatures(), Got: len(columns)})
	}
	warnOnNameDrift(columns, model.FeatureNames())

	universe, err := catalog.Parse(bytes.NewReader(raw[NameReference]), models.CategoricalFields)
	if err != nil {
		return nil, loadErr(NameReference, err)
	}

	return &Registry{
		columns:  columns,
		encoder:  enc,
		model:    model,
		universe: universe,
		source:   source,
		loadedAt: time.Now().UTC(),
	}, nil
}

// New assembles a registry from already decoded parts
func New(enc *encoder.Encoder, model predictor.Model, universe *catalog.Universe) (*Registry, error) {
	if enc == nil || model == nil || universe == nil {
		return nil, fmt.Errorf("encoder, model and universe are required")
	}
	columns := enc.Columns()
	if model.NumFeatures() != len(columns) {
		return nil, &predictor.SchemaMismatchError{Want: model.NumFeatures(), Got: len(columns)}
	}
	return &Registry{
		columns:  columns,
		encoder:  enc,
		model:    model,
		universe: universe,
		source:   "memory",
		loadedAt: time.Now().UTC(),
	}, nil
}

// ParseColumns decodes the expected column list. JSON arrays parse as YAML.
func ParseColumns(data []byte) ([]string, error) {
	var columns []string
	if err := yaml.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("failed to parse column list: %w", err)
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("column list is empty")
	}
	return columns, nil
}

// warnOnNameDrift logs when the model was trained on differently named columns.
// The model only sees positions, so this cannot fail the load.
func warnOnNameDrift(columns, modelNames []string) {
	for i, name := range modelNames {
		if name != "" && i < len(columns) && name != columns[i] {
			logging.New("artifacts").Warn("model feature name differs from expected column",
				"position", i,
				"model", name,
				"expected", columns[i],
			)
			return
		}
	}
}

// Columns returns a copy of the expected column list
func (r *Registry) Columns() []string {
	return append([]string(nil), r.columns...)
}

// Encoder returns the feature encoder
func (r *Registry) Encoder() *encoder.Encoder {
	return r.encoder
}

// Model returns the regression model
func (r *Registry) Model() predictor.Model {
	return r.model
}

// Universe returns the category universe
func (r *Registry) Universe() *catalog.Universe {
	return r.universe
}

// Source returns the provider type the artifacts came from
func (r *Registry) Source() string {
	return r.source
}

// LoadedAt returns when the registry was built
func (r *Registry) LoadedAt() time.Time {
	return r.loadedAt
}
