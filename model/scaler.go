package model

import (
	"math"

	"github.com/rotisserie/eris"
)

/*
StandardScaler standardizes each column with the mean and scale fitted offline.

The JSON form mirrors the mean_ and scale_ attributes of a fitted
scikit-learn StandardScaler.
*/
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// Validate checks that the scaler fits a FeatureVector.
func (s *StandardScaler) Validate() error {
	if len(s.Mean) != NumFeatures || len(s.Scale) != NumFeatures {
		return eris.Wrapf(ErrInvalidArtifact, "scaler has %d means and %d scales, want %d",
			len(s.Mean), len(s.Scale), NumFeatures)
	}
	for i := 0; i < NumFeatures; i++ {
		if math.IsNaN(s.Mean[i]) || math.IsNaN(s.Scale[i]) || math.IsInf(s.Mean[i], 0) || math.IsInf(s.Scale[i], 0) {
			return eris.Wrapf(ErrInvalidArtifact, "scaler column %d is not finite", i)
		}
	}
	return nil
}

// Transform returns (x - mean) / scale per column; a zero scale counts as 1.
func (s *StandardScaler) Transform(x FeatureVector) FeatureVector {
	var out FeatureVector
	for j := 0; j < NumFeatures; j++ {
		scale := s.Scale[j]
		if scale == 0 {
			scale = 1
		}
		out[j] = (x[j] - s.Mean[j]) / scale
	}
	return out
}
