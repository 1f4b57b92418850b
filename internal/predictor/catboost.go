package predictor

import (
	"encoding/json"
	"fmt"
)

// Ensemble evaluates a CatBoost oblivious-tree regressor exported as JSON.
// Only float features are supported; categorical features are one-hot encoded
// upstream.
type Ensemble struct {
	featureNames []string
	numFeatures  int
	trees        []tree
	scale        float64
	bias         float64
}

type tree struct {
	splits []split
	leaves []float64
}

type split struct {
	feature int // position in the input row
	border  float64
}

// maxTreeDepth bounds the splits per tree so the leaf index fits an int
const maxTreeDepth = 62

// catboostFile mirrors the parts of the CatBoost JSON export we evaluate
type catboostFile struct {
	FeaturesInfo struct {
		FloatFeatures []struct {
			FeatureIndex     int       `json:"feature_index"`
			FlatFeatureIndex int       `json:"flat_feature_index"`
			FeatureName      string    `json:"feature_name"`
			Borders          []float64 `json:"borders"`
		} `json:"float_features"`
		CategoricalFeatures []json.RawMessage `json:"categorical_features"`
	} `json:"features_info"`
	ObliviousTrees []struct {
		LeafValues []float64 `json:"leaf_values"`
		Splits     []struct {
			Border            float64 `json:"border"`
			FloatFeatureIndex int     `json:"float_feature_index"`
			SplitType         string  `json:"split_type"`
		} `json:"splits"`
	} `json:"oblivious_trees"`
	ScaleAndBias []json.RawMessage `json:"scale_and_bias"`
}

// ParseCatBoostJSON decodes a model saved with save_model(format="json")
func ParseCatBoostJSON(data []byte) (*Ensemble, error) {
	var f catboostFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catboost model: %w", err)
	}

	if len(f.FeaturesInfo.CategoricalFeatures) > 0 {
		return nil, fmt.Errorf("catboost model uses %d categorical features; only float features are supported",
			len(f.FeaturesInfo.CategoricalFeatures))
	}

	floats := f.FeaturesInfo.FloatFeatures
	if len(floats) == 0 {
		return nil, fmt.Errorf("catboost model declares no float features")
	}

	// float_feature_index in splits refers to feature_index; inputs are laid
	// out by flat_feature_index.
	numFeatures := len(floats)
	flat := make(map[int]int, numFeatures)
	names := make([]string, numFeatures)
	taken := make([]bool, numFeatures)
	for _, ff := range floats {
		if ff.FlatFeatureIndex < 0 || ff.FlatFeatureIndex >= numFeatures {
			return nil, fmt.Errorf("catboost float features are not contiguous: flat index %d outside [0, %d)",
				ff.FlatFeatureIndex, numFeatures)
		}
		if _, dup := flat[ff.FeatureIndex]; dup {
			return nil, fmt.Errorf("catboost float feature index %d declared twice", ff.FeatureIndex)
		}
		if taken[ff.FlatFeatureIndex] {
			return nil, fmt.Errorf("catboost flat feature index %d declared twice", ff.FlatFeatureIndex)
		}
		flat[ff.FeatureIndex] = ff.FlatFeatureIndex
		taken[ff.FlatFeatureIndex] = true
		names[ff.FlatFeatureIndex] = ff.FeatureName
	}

	e := &Ensemble{
		featureNames: names,
		numFeatures:  numFeatures,
		trees:        make([]tree, 0, len(f.ObliviousTrees)),
		scale:        1,
	}

	for i, ot := range f.ObliviousTrees {
		if len(ot.Splits) > maxTreeDepth {
			return nil, fmt.Errorf("tree %d: depth %d exceeds %d", i, len(ot.Splits), maxTreeDepth)
		}
		if len(ot.LeafValues) != 1<<len(ot.Splits) {
			return nil, fmt.Errorf("tree %d: %d splits need %d leaf values, got %d",
				i, len(ot.Splits), 1<<len(ot.Splits), len(ot.LeafValues))
		}

		t := tree{
			splits: make([]split, len(ot.Splits)),
			leaves: ot.LeafValues,
		}
		for j, s := range ot.Splits {
			if s.SplitType != "" && s.SplitType != "FloatFeature" {
				return nil, fmt.Errorf("tree %d: unsupported split type %q", i, s.SplitType)
			}
			pos, ok := flat[s.FloatFeatureIndex]
			if !ok {
				return nil, fmt.Errorf("tree %d: split on unknown float feature %d", i, s.FloatFeatureIndex)
			}
			t.splits[j] = split{feature: pos, border: s.Border}
		}
		e.trees = append(e.trees, t)
	}

	if err := e.parseScaleAndBias(f.ScaleAndBias); err != nil {
		return nil, err
	}

	return e, nil
}

// parseScaleAndBias accepts both [scale, bias] and [scale, [bias]]
func (e *Ensemble) parseScaleAndBias(raw []json.RawMessage) error {
	if len(raw) == 0 {
		return nil
	}
	if len(raw) != 2 {
		return fmt.Errorf("scale_and_bias must have 2 entries, got %d", len(raw))
	}

	if err := json.Unmarshal(raw[0], &e.scale); err != nil {
		return fmt.Errorf("failed to parse model scale: %w", err)
	}

	var bias float64
	if err := json.Unmarshal(raw[1], &bias); err == nil {
		e.bias = bias
		return nil
	}

	var biases []float64
	if err := json.Unmarshal(raw[1], &biases); err != nil {
		return fmt.Errorf("failed to parse model bias: %w", err)
	}
	switch len(biases) {
	case 0:
	case 1:
		e.bias = biases[0]
	default:
		return fmt.Errorf("multi-dimensional bias (%d) is not a regression model", len(biases))
	}
	return nil
}

// NumFeatures returns the input width
func (e *Ensemble) NumFeatures() int {
	return e.numFeatures
}

// FeatureNames returns the training column names stored in the model, if any
func (e *Ensemble) FeatureNames() []string {
	return append([]string(nil), e.featureNames...)
}

// NumTrees returns the ensemble size
func (e *Ensemble) NumTrees() int {
	return len(e.trees)
}

// Predict sums the leaf reached in every tree.
// Split d contributes bit d of the leaf index when the feature exceeds its border.
func (e *Ensemble) Predict(features []float64) (float64, error) {
	if err := CheckShape(e, features); err != nil {
		return 0, err
	}

	var sum float64
	for _, t := range e.trees {
		idx := 0
		for d, s := range t.splits {
			if features[s.feature] > s.border {
				idx |= 1 << d
			}
		}
		sum += t.leaves[idx]
	}

	v := e.scale*sum + e.bias
	if err := finite(v); err != nil {
		return 0, err
	}
	return v, nil
}
