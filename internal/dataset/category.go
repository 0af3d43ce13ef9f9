// Package dataset describes the Aadhaar dataset categories: where their CSV
// chunks live and which age-bracket columns make up a record's total.
package dataset

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Category identifies one collection of Aadhaar records.
type Category string

const (
	Enrolment   Category = "enrolment"
	Demographic Category = "demographic"
	Biometric   Category = "biometric"
)

// String returns the category name.
func (c Category) String() string { return string(c) }

// ParseCategory converts a user-supplied name into a Category.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enrolment", "enrollment", "enrol":
		return Enrolment, nil
	case "demographic", "demo":
		return Demographic, nil
	case "biometric", "bio":
		return Biometric, nil
	default:
		return "", eris.Errorf("unknown category: %q (valid: enrolment, demographic, biometric)", s)
	}
}

// Column names shared by every category.
const (
	ColDate     = "date"
	ColState    = "state"
	ColDistrict = "district"
	ColPincode  = "pincode"
	ColTotal    = "total"
)

// Spec describes the on-disk layout and count columns of a category.
type Spec struct {
	Category    Category `yaml:"category" json:"category"`
	Dir         string   `yaml:"dir" json:"dir"`                   // directory under the dataset root
	Brackets    []string `yaml:"brackets" json:"brackets"`         // age-bracket count columns
	TotalColumn string   `yaml:"total_column" json:"total_column"` // alias for the derived total
}

// Required returns every column a raw chunk must carry for this category.
func (s Spec) Required() []string {
	cols := []string{ColDate, ColState, ColDistrict, ColPincode}
	return append(cols, s.Brackets...)
}

// IsUpdate reports whether the category counts updates rather than new enrolments.
func (s Spec) IsUpdate() bool {
	return s.Category != Enrolment
}

// EnrolmentSpec returns the enrolment category layout.
func EnrolmentSpec() Spec {
	return Spec{
		Category:    Enrolment,
		Dir:         "api_data_aadhar_enrolment",
		Brackets:    []string{"age_0_5", "age_5_17", "age_18_greater"},
		TotalColumn: "total_enrolments",
	}
}

// DemographicSpec returns the demographic-update category layout.
func DemographicSpec() Spec {
	return Spec{
		Category:    Demographic,
		Dir:         "api_data_aadhar_demographic",
		Brackets:    []string{"demo_age_5_17", "demo_age_17_"},
		TotalColumn: "total_demo_updates",
	}
}

// BiometricSpec returns the biometric-update category layout.
func BiometricSpec() Spec {
	return Spec{
		Category:    Biometric,
		Dir:         "api_data_aadhar_biometric",
		Brackets:    []string{"bio_age_5_17", "bio_age_17_"},
		TotalColumn: "total_bio_updates",
	}
}
