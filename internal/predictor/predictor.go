package predictor

import (
	"errors"
	"fmt"
	"math"
)

// ErrSchemaMismatch marks a vector whose width differs from the model's inputs.
// It signals out-of-sync artifacts, not bad user input.
var ErrSchemaMismatch = errors.New("feature vector does not match model input shape")

// SchemaMismatchError carries the expected and actual widths
type SchemaMismatchError struct {
	Want int
	Got  int
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s: model expects %d features, got %d", ErrSchemaMismatch, e.Want, e.Got)
}

func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// Model is a trained regression model with positional inputs
type Model interface {
	// NumFeatures returns the input width the model was trained on
	NumFeatures() int

	// Predict returns one value for one feature row
	Predict(features []float64) (float64, error)
}

// CheckShape returns a SchemaMismatchError when features do not fit m
func CheckShape(m Model, features []float64) error {
	if len(features) != m.NumFeatures() {
		return &SchemaMismatchError{Want: m.NumFeatures(), Got: len(features)}
	}
	return nil
}

// ErrNonFinite is returned when a model produces NaN or Inf
var ErrNonFinite = errors.New("model produced a non-finite prediction")

func finite(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrNonFinite
	}
	return nil
}
