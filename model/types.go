package model

// NumFeatures is the width of the feature vector fed to the scaler and booster.
const NumFeatures = 5

// FeatureOrder names the feature vector columns in order.
var FeatureOrder = []string{"hour", "day", "month", "victim_age", "night_factor"}

/*
FeatureVector is the ordered numeric input of the classifier
*/
type FeatureVector [NumFeatures]float64

/*
RiskLevel is the thresholded classification of a risk probability
*/
type RiskLevel string

const (
	RiskHigh RiskLevel = "HIGH"
	RiskLow  RiskLevel = "LOW"
)

/*
Prediction is the output of the inference step
*/
type Prediction struct {
	Probability float64   `json:"probability"`
	Level       RiskLevel `json:"level"`
}

/*
Status reports which artifacts are available
*/
type Status struct {
	ModelLoaded    bool `json:"model_loaded"`
	ScalerLoaded   bool `json:"scaler_loaded"`
	FeaturesLoaded bool `json:"features_loaded"`
}
