package backend

const (
	LabelAbove = ">50K"
	LabelBelow = "<=50K"
)

// PredictRequest is the JSON body accepted by POST /predict. The hyphenated
// capital fields are fixed at zero; the form never collects them.
type PredictRequest struct {
	Age            int    `json:"age"`
	Workclass      string `json:"workclass"`
	EducationalNum int    `json:"educational_num"`
	MaritalStatus  string `json:"marital_status"`
	Occupation     string `json:"occupation"`
	Relationship   string `json:"relationship"`
	Race           string `json:"race"`
	Gender         string `json:"gender"`
	HoursPerWeek   int    `json:"hours_per_week"`
	NativeCountry  string `json:"native_country"`
	CapitalGain    int    `json:"capital-gain"`
	CapitalLoss    int    `json:"capital-loss"`
}

// Prediction is the classification returned for one record.
type Prediction struct {
	Label         string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Probability returns the probability reported for label, or 0.
func (p Prediction) Probability(label string) float64 {
	if p.Probabilities == nil {
		return 0
	}
	return p.Probabilities[label]
}

// AboveThreshold reports whether the predicted class is the >50K bracket.
func (p Prediction) AboveThreshold() bool {
	return p.Label == LabelAbove
}

type predictResponse struct {
	Success       *bool              `json:"success"`
	Prediction    string             `json:"prediction"`
	Confidence    float64            `json:"confidence"`
	Probabilities map[string]float64 `json:"probabilities"`
	Message       string             `json:"message"`
}

// Health is the payload of GET /health.
type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ModelInfo is the payload of GET /model-info.
type ModelInfo struct {
	ModelTrained  bool    `json:"model_trained"`
	ModelType     string  `json:"model_type,omitempty"`
	FeaturesCount int     `json:"features_count,omitempty"`
	Accuracy      float64 `json:"accuracy,omitempty"`
}
