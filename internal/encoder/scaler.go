package encoder

import (
	"fmt"
	"math"

	"gopkg.in/yaml.v3"
)

// Scaler holds the per-column location and scale fitted at training time
type Scaler struct {
	Columns []string  `yaml:"columns" json:"columns"`
	Mean    []float64 `yaml:"mean" json:"mean"`
	Scale   []float64 `yaml:"scale" json:"scale"`
}

// ParseScaler decodes a YAML (or JSON) scaler artifact
func ParseScaler(data []byte) (*Scaler, error) {
	var s Scaler
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scaler: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that the parameter slices line up and hold usable numbers.
// Means may be negative; scales are standard deviations and may not.
func (s *Scaler) Validate() error {
	if len(s.Columns) == 0 {
		return fmt.Errorf("scaler has no columns")
	}
	if len(s.Mean) != len(s.Columns) || len(s.Scale) != len(s.Columns) {
		return fmt.Errorf("scaler shape mismatch: %d columns, %d means, %d scales",
			len(s.Columns), len(s.Mean), len(s.Scale))
	}
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if seen[c] {
			return fmt.Errorf("scaler column %q listed twice", c)
		}
		seen[c] = true
	}
	for i, c := range s.Columns {
		if math.IsNaN(s.Mean[i]) || math.IsInf(s.Mean[i], 0) {
			return fmt.Errorf("scaler mean for %q is not finite", c)
		}
		if math.IsNaN(s.Scale[i]) || math.IsInf(s.Scale[i], 0) || s.Scale[i] < 0 {
			return fmt.Errorf("scaler scale for %q must be a finite non-negative number, got %v", c, s.Scale[i])
		}
	}
	return nil
}

// Transform standardizes x for column i.
// A zero scale means the column was constant at training time and is left unscaled.
func (s *Scaler) Transform(i int, x float64) float64 {
	scale := s.Scale[i]
	if scale == 0 {
		scale = 1
	}
	return (x - s.Mean[i]) / scale
}
