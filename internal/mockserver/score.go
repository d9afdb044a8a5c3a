package mockserver

import (
	"math"

	"incomecast/internal/backend"
)

// Coefficients of the stub scorer. They loosely follow the direction of the
// real model's strongest features and carry no statistical meaning.
const (
	biasTerm        = -8.2
	educationWeight = 0.42
	ageWeight       = 0.045
	hoursWeight     = 0.038
	marriedBonus    = 1.1
	managerialBonus = 0.6
)

// Score returns a deterministic prediction for req.
func Score(req backend.PredictRequest) backend.Prediction {
	z := biasTerm +
		educationWeight*float64(req.EducationalNum) +
		ageWeight*float64(min(req.Age, 60)) +
		hoursWeight*float64(req.HoursPerWeek)
	switch req.MaritalStatus {
	case "Married-civ-spouse", "Married-spouse-absent":
		z += marriedBonus
	}
	switch req.Occupation {
	case "Exec-managerial", "Prof-specialty":
		z += managerialBonus
	}

	above := 1 / (1 + math.Exp(-z))
	above = math.Round(above*10000) / 10000
	below := math.Round((1-above)*10000) / 10000

	label := backend.LabelBelow
	confidence := below
	if above >= 0.5 {
		label = backend.LabelAbove
		confidence = above
	}
	return backend.Prediction{
		Label:      label,
		Confidence: confidence,
		Probabilities: map[string]float64{
			backend.LabelBelow: below,
			backend.LabelAbove: above,
		},
	}
}
