package model

import "math"

// RiskThreshold is the probability at or above which a request is classified HIGH.
const RiskThreshold = 0.4

/*
Predictor scales feature vectors and runs them through the booster.

A Predictor built from nil artifacts is the degraded "not ready" state:
Status reports nothing loaded and Predict fails with ErrModelNotLoaded.
*/
type Predictor struct {
	artifacts *Artifacts
}

/*
NewPredictor creates a predictor over already loaded artifacts, which may be nil
*/
func NewPredictor(artifacts *Artifacts) *Predictor {
	return &Predictor{
		artifacts: artifacts,
	}
}

/*
Ready reports whether both the booster and the scaler are available
*/
func (p *Predictor) Ready() bool {
	return p.artifacts != nil && p.artifacts.Booster != nil && p.artifacts.Scaler != nil
}

/*
Status reports which artifacts were loaded
*/
func (p *Predictor) Status() Status {
	if p.artifacts == nil {
		return Status{}
	}
	return Status{
		ModelLoaded:    p.artifacts.Booster != nil,
		ScalerLoaded:   p.artifacts.Scaler != nil,
		FeaturesLoaded: len(p.artifacts.Features) > 0,
	}
}

/*
Predict returns the risk probability and level for a feature vector
*/
func (p *Predictor) Predict(x FeatureVector) (Prediction, error) {
	if !p.Ready() {
		return Prediction{}, ErrModelNotLoaded
	}

	scaled := p.artifacts.Scaler.Transform(x)
	prob := p.artifacts.Booster.PredictProba(scaled[:])
	prob = math.Min(math.Max(prob, 0), 1)

	return Prediction{
		Probability: prob,
		Level:       Classify(prob),
	}, nil
}

/*
Classify thresholds a probability into a risk level
*/
func Classify(prob float64) RiskLevel {
	if prob >= RiskThreshold {
		return RiskHigh
	}
	return RiskLow
}
