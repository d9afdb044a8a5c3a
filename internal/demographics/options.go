package demographics

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Field names as they appear in record files and CLI flags.
const (
	FieldAge           = "age"
	FieldWorkclass     = "workclass"
	FieldEducation     = "education"
	FieldMaritalStatus = "marital_status"
	FieldOccupation    = "occupation"
	FieldRelationship  = "relationship"
	FieldRace          = "race"
	FieldGender        = "gender"
	FieldHoursPerWeek  = "hours_per_week"
	FieldNativeCountry = "native_country"
)

// educationNumbers is the education-level lookup shared with the backend.
// The values are part of the request contract.
var educationNumbers = map[string]int{
	"9th":          5,
	"10th":         6,
	"11th":         7,
	"12th":         8,
	"HS-grad":      9,
	"Some-college": 10,
	"Assoc-voc":    11,
	"Assoc-acdm":   12,
	"Bachelors":    13,
	"Masters":      14,
	"Prof-school":  15,
	"Doctorate":    16,
}

var options = map[string][]string{
	FieldWorkclass: {
		"Private", "Self-emp-not-inc", "Self-emp-inc", "Federal-gov",
		"Local-gov", "State-gov", "Others",
	},
	FieldEducation: {
		"9th", "10th", "11th", "12th", "HS-grad", "Some-college", "Assoc-voc",
		"Assoc-acdm", "Bachelors", "Masters", "Prof-school", "Doctorate",
	},
	FieldMaritalStatus: {
		"Married-civ-spouse", "Divorced", "Never-married", "Separated",
		"Widowed", "Married-spouse-absent",
	},
	FieldOccupation: {
		"Tech-support", "Craft-repair", "Other-service", "Sales",
		"Exec-managerial", "Prof-specialty", "Handlers-cleaners",
		"Machine-op-inspct", "Adm-clerical", "Farming-fishing",
		"Transport-moving", "Priv-house-serv", "Protective-serv",
		"Armed-Forces", "Others",
	},
	FieldRelationship: {
		"Wife", "Own-child", "Husband", "Not-in-family", "Other-relative", "Unmarried",
	},
	FieldRace: {
		"White", "Asian-Pac-Islander", "Amer-Indian-Eskimo", "Other", "Black",
	},
	FieldGender: {"Female", "Male"},
	FieldNativeCountry: {
		"United-States", "Cambodia", "England", "Puerto-Rico", "Canada",
		"Germany", "India", "Japan", "China", "Cuba", "Mexico", "Philippines",
		"Italy", "Poland", "Other",
	},
}

// EducationNumber maps an education label to the backend's numeric encoding.
func EducationNumber(label string) (int, bool) {
	n, ok := educationNumbers[strings.TrimSpace(label)]
	return n, ok
}

// Options returns the accepted values for a categorical field, or nil for
// numeric and unknown fields.
func Options(field string) []string {
	values, ok := options[normalizeField(field)]
	if !ok {
		return nil
	}
	return slices.Clone(values)
}

// CategoricalFields lists the fields that take a value from Options, in form order.
func CategoricalFields() []string {
	return []string{
		FieldWorkclass, FieldEducation, FieldMaritalStatus, FieldOccupation,
		FieldRelationship, FieldRace, FieldGender, FieldNativeCountry,
	}
}

// Fields lists every record field in form order.
func Fields() []string {
	return []string{
		FieldAge, FieldWorkclass, FieldEducation, FieldMaritalStatus,
		FieldOccupation, FieldRelationship, FieldRace, FieldGender,
		FieldHoursPerWeek, FieldNativeCountry,
	}
}

var titleCaser = cases.Title(language.English)

// Label renders a field name for display ("marital_status" -> "Marital Status").
func Label(field string) string {
	return titleCaser.String(strings.ReplaceAll(normalizeField(field), "_", " "))
}

func normalizeField(field string) string {
	f := strings.ToLower(strings.TrimSpace(field))
	return strings.ReplaceAll(f, "-", "_")
}
