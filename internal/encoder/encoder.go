package encoder

import (
	"fmt"
	"math"

	"github.com/terra-clan/carprice-engine/internal/models"
)

// Encoder turns a raw record into a feature vector aligned to the model's columns.
// It holds no mutable state and is safe for concurrent use.
type Encoder struct {
	columns     []string
	index       map[string]int
	scaler      *Scaler
	scaledIndex []int // position in columns for each scaler column
	numeric     []string
	categorical []string
}

// Options selects which raw fields the encoder reads
type Options struct {
	NumericFields     []string
	CategoricalFields []string
}

// DefaultOptions returns the car attribute fields
func DefaultOptions() Options {
	return Options{
		NumericFields:     models.NumericFields,
		CategoricalFields: models.CategoricalFields,
	}
}

// New creates an encoder for the expected column list and fitted scaler
func New(columns []string, scaler *Scaler, opts Options) (*Encoder, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("expected column list is empty")
	}
	if scaler == nil {
		return nil, fmt.Errorf("scaler is required")
	}
	if err := scaler.Validate(); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := index[c]; dup {
			return nil, fmt.Errorf("expected column %q listed twice", c)
		}
		index[c] = i
	}

	scaledIndex := make([]int, len(scaler.Columns))
	for i, c := range scaler.Columns {
		pos, ok := index[c]
		if !ok {
			return nil, fmt.Errorf("scaler column %q is not an expected column", c)
		}
		scaledIndex[i] = pos
	}

	return &Encoder{
		columns:     append([]string(nil), columns...),
		index:       index,
		scaler:      scaler,
		scaledIndex: scaledIndex,
		numeric:     append([]string(nil), opts.NumericFields...),
		categorical: append([]string(nil), opts.CategoricalFields...),
	}, nil
}

// Columns returns a copy of the expected column list
func (e *Encoder) Columns() []string {
	return append([]string(nil), e.columns...)
}

// NumericFields returns the raw numeric fields the encoder requires
func (e *Encoder) NumericFields() []string {
	return append([]string(nil), e.numeric...)
}

// CategoricalFields returns the raw categorical fields the encoder expands
func (e *Encoder) CategoricalFields() []string {
	return append([]string(nil), e.categorical...)
}

// IndicatorColumn returns the one-hot column name for a categorical value
func IndicatorColumn(field, value string) string {
	return field + "_" + value
}

// Encode expands, aligns and scales one record.
// The result has exactly len(Columns()) values in column order.
func (e *Encoder) Encode(rec models.RawRecord) (models.Vector, error) {
	values := make([]float64, len(e.columns))

	// Numeric fields land on their own column when the model knows it.
	for _, f := range e.numeric {
		x, ok := rec.Numeric[f]
		if !ok {
			return models.Vector{}, &models.ValidationError{Field: f, Reason: "is required"}
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return models.Vector{}, &models.ValidationError{Field: f, Reason: "must be a finite number"}
		}
		if pos, ok := e.index[f]; ok {
			values[pos] = x
		}
	}

	// The baseline value and values unseen at training time have no
	// indicator column, so they leave every indicator of the field at 0.
	for _, f := range e.categorical {
		if pos, ok := e.index[IndicatorColumn(f, rec.Categorical[f])]; ok {
			values[pos] = 1
		}
	}

	for i, pos := range e.scaledIndex {
		values[pos] = e.scaler.Transform(i, values[pos])
	}

	return models.Vector{Columns: e.Columns(), Values: values}, nil
}
