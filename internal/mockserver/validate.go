package mockserver

import (
	"fmt"
	"strings"

	"incomecast/internal/backend"
)

type validationIssue struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

type intBound struct {
	field    string
	value    int
	min, max int
}

// validate applies the backend's request schema bounds.
func validate(req backend.PredictRequest) []validationIssue {
	var issues []validationIssue
	for _, b := range []intBound{
		{"age", req.Age, 17, 75},
		{"educational_num", req.EducationalNum, 1, 16},
		{"hours_per_week", req.HoursPerWeek, 1, 99},
	} {
		switch {
		case b.value < b.min:
			issues = append(issues, validationIssue{
				Loc:  []string{"body", b.field},
				Msg:  fmt.Sprintf("ensure this value is greater than or equal to %d", b.min),
				Type: "value_error.number.not_ge",
			})
		case b.value > b.max:
			issues = append(issues, validationIssue{
				Loc:  []string{"body", b.field},
				Msg:  fmt.Sprintf("ensure this value is less than or equal to %d", b.max),
				Type: "value_error.number.not_le",
			})
		}
	}
	for field, value := range map[string]string{
		"workclass":      req.Workclass,
		"marital_status": req.MaritalStatus,
		"occupation":     req.Occupation,
		"relationship":   req.Relationship,
		"race":           req.Race,
		"gender":         req.Gender,
		"native_country": req.NativeCountry,
	} {
		if strings.TrimSpace(value) == "" {
			issues = append(issues, validationIssue{
				Loc:  []string{"body", field},
				Msg:  "field required",
				Type: "value_error.missing",
			})
		}
	}
	return issues
}
