package demographics

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"incomecast/internal/backend"
)

// Record is one set of demographic answers as collected by the form.
type Record struct {
	Age           int    `yaml:"age" json:"age"`
	Workclass     string `yaml:"workclass" json:"workclass"`
	Education     string `yaml:"education" json:"education"`
	MaritalStatus string `yaml:"marital_status" json:"marital_status"`
	Occupation    string `yaml:"occupation" json:"occupation"`
	Relationship  string `yaml:"relationship" json:"relationship"`
	Race          string `yaml:"race" json:"race"`
	Gender        string `yaml:"gender" json:"gender"`
	HoursPerWeek  int    `yaml:"hours_per_week" json:"hours_per_week"`
	NativeCountry string `yaml:"native_country" json:"native_country"`
}

// Default returns the values the form starts out with.
func Default() Record {
	return Record{
		Age:           50,
		Workclass:     "Private",
		Education:     "Bachelors",
		MaritalStatus: "Never-married",
		Occupation:    "Tech-support",
		Relationship:  "Not-in-family",
		Race:          "White",
		Gender:        "Male",
		HoursPerWeek:  50,
		NativeCountry: "India",
	}
}

// Request converts the record into the backend request body. Unknown
// education labels encode as 0, matching the form's behaviour.
func (r Record) Request() backend.PredictRequest {
	educationNum, _ := EducationNumber(r.Education)
	return backend.PredictRequest{
		Age:            r.Age,
		Workclass:      strings.TrimSpace(r.Workclass),
		EducationalNum: educationNum,
		MaritalStatus:  strings.TrimSpace(r.MaritalStatus),
		Occupation:     strings.TrimSpace(r.Occupation),
		Relationship:   strings.TrimSpace(r.Relationship),
		Race:           strings.TrimSpace(r.Race),
		Gender:         strings.TrimSpace(r.Gender),
		HoursPerWeek:   r.HoursPerWeek,
		NativeCountry:  strings.TrimSpace(r.NativeCountry),
		CapitalGain:    0,
		CapitalLoss:    0,
	}
}

// Value returns the record's value for field rendered as a string.
func (r Record) Value(field string) string {
	switch normalizeField(field) {
	case FieldAge:
		return strconv.Itoa(r.Age)
	case FieldWorkclass:
		return r.Workclass
	case FieldEducation:
		return r.Education
	case FieldMaritalStatus:
		return r.MaritalStatus
	case FieldOccupation:
		return r.Occupation
	case FieldRelationship:
		return r.Relationship
	case FieldRace:
		return r.Race
	case FieldGender:
		return r.Gender
	case FieldHoursPerWeek:
		return strconv.Itoa(r.HoursPerWeek)
	case FieldNativeCountry:
		return r.NativeCountry
	default:
		return ""
	}
}

// Set assigns value to field, parsing numeric fields.
func (r *Record) Set(field, value string) error {
	value = strings.TrimSpace(value)
	switch normalizeField(field) {
	case FieldAge, FieldHoursPerWeek:
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%s must be a whole number, got %q", normalizeField(field), value)
		}
		if normalizeField(field) == FieldAge {
			r.Age = n
		} else {
			r.HoursPerWeek = n
		}
	case FieldWorkclass:
		r.Workclass = value
	case FieldEducation:
		r.Education = value
	case FieldMaritalStatus:
		r.MaritalStatus = value
	case FieldOccupation:
		r.Occupation = value
	case FieldRelationship:
		r.Relationship = value
	case FieldRace:
		r.Race = value
	case FieldGender:
		r.Gender = value
	case FieldNativeCountry:
		r.NativeCountry = value
	default:
		return fmt.Errorf("unknown field %q", field)
	}
	return nil
}

// Merge overlays non-zero fields from other onto r.
func (r Record) Merge(other Record) Record {
	if other.Age != 0 {
		r.Age = other.Age
	}
	if other.HoursPerWeek != 0 {
		r.HoursPerWeek = other.HoursPerWeek
	}
	for _, pair := range []struct {
		dst *string
		src string
	}{
		{&r.Workclass, other.Workclass},
		{&r.Education, other.Education},
		{&r.MaritalStatus, other.MaritalStatus},
		{&r.Occupation, other.Occupation},
		{&r.Relationship, other.Relationship},
		{&r.Race, other.Race},
		{&r.Gender, other.Gender},
		{&r.NativeCountry, other.NativeCountry},
	} {
		if v := strings.TrimSpace(pair.src); v != "" {
			*pair.dst = v
		}
	}
	return r
}

// LoadFile reads a record from a YAML or JSON file. Missing fields keep their
// zero value; callers usually Merge the result over Default().
func LoadFile(path string) (Record, error) {
	var rec Record
	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("read record file: %w", err)
	}
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("parse record file %s: %w", path, err)
	}
	return rec, nil
}
