package pricing

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/terra-clan/carprice-engine/internal/artifacts"
	"github.com/terra-clan/carprice-engine/internal/logging"
	"github.com/terra-clan/carprice-engine/internal/models"
	"github.com/terra-clan/carprice-engine/internal/predictor"
)

// Currency is the ISO code of predicted prices
const Currency = "USD"

// Service estimates car prices from user attributes
type Service interface {
	// Estimate validates, encodes and predicts one record
	Estimate(attrs models.CarAttributes) (*models.Prediction, error)

	// Encode returns the feature vector the model would receive
	Encode(attrs models.CarAttributes) (models.Vector, error)

	// Registry exposes the loaded artifacts
	Registry() *artifacts.Registry
}

type service struct {
	registry *artifacts.Registry
	modelID  string
	now      func() time.Time
}

// NewService creates a pricing service over a loaded registry
func NewService(registry *artifacts.Registry, modelID string) (Service, error) {
	if registry == nil {
		return nil, errors.New("artifact registry is required")
	}
	if modelID == "" {
		modelID = "catboost"
	}
	return &service{
		registry: registry,
		modelID:  modelID,
		now:      time.Now,
	}, nil
}

func (s *service) Registry() *artifacts.Registry {
	return s.registry
}

func (s *service) Encode(attrs models.CarAttributes) (models.Vector, error) {
	if err := attrs.Validate(); err != nil {
		return models.Vector{}, err
	}
	return s.registry.Encoder().Encode(attrs.Record())
}

func (s *service) Estimate(attrs models.CarAttributes) (*models.Prediction, error) {
	vec, err := s.Encode(attrs)
	if err != nil {
		return nil, err
	}

	s.logUnseen(attrs)

	price, err := s.registry.Model().Predict(vec.Values)
	if err != nil {
		if errors.Is(err, predictor.ErrSchemaMismatch) {
			logging.New("pricing").Error("encoded vector does not fit model", "error", err, "columns", vec.Len())
		}
		return nil, fmt.Errorf("failed to predict: %w", err)
	}

	return &models.Prediction{
		ID:        uuid.New().String(),
		Price:     price,
		Formatted: FormatPrice(price),
		Currency:  Currency,
		Model:     s.modelID,
		CreatedAt: s.now().UTC(),
	}, nil
}

// logUnseen notes categorical values outside the reference data. They are
// encoded as the baseline category, which can hide a typo.
func (s *service) logUnseen(attrs models.CarAttributes) {
	u := s.registry.Universe()
	log := logging.New("pricing")
	for _, f := range models.CategoricalFields {
		if v := attrs.Categorical(f); !u.Contains(f, v) {
			log.Warn("categorical value not in reference data, using baseline", "field", f, "value", v)
		}
	}
}

// FormatPrice renders a price as grouped US dollars, e.g. $12,345.68
func FormatPrice(v float64) string {
	// Printers are not safe for concurrent use.
	return message.NewPrinter(language.English).Sprintf("$%.2f", v)
}
