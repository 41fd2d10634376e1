package pii

import "strings"

// Category identifies one class of sensitive data. The set is closed: adding
// a category means adding a default pattern, a partial-mask shape, and
// (optionally) a checksum validator.
type Category string

const (
	CategoryNationalID     Category = "national_id"
	CategoryTaxID          Category = "tax_id"
	CategoryCard           Category = "card"
	CategoryEmail          Category = "email"
	CategoryPassport       Category = "passport"
	CategoryDrivingLicense Category = "driving_license"
	CategoryPhone          Category = "phone"
	CategoryPersonName     Category = "person_name"
	CategoryVoterID        Category = "voter_id"
	CategoryDateOfBirth    Category = "date_of_birth"
)

// categoryOrder is the fixed order handlers run in. Keeping it stable makes
// pseudonym allocation deterministic when several pseudonymizable categories
// occur in a single cell.
var categoryOrder = []Category{
	CategoryNationalID,
	CategoryTaxID,
	CategoryCard,
	CategoryEmail,
	CategoryPassport,
	CategoryDrivingLicense,
	CategoryPhone,
	CategoryPersonName,
	CategoryVoterID,
	CategoryDateOfBirth,
}

// categoryLabels are the human-readable names used in reports.
var categoryLabels = map[Category]string{
	CategoryNationalID:     "National ID",
	CategoryTaxID:          "Tax ID",
	CategoryCard:           "Card",
	CategoryEmail:          "Email",
	CategoryPassport:       "Passport",
	CategoryDrivingLicense: "Driving License",
	CategoryPhone:          "Phone",
	CategoryPersonName:     "Person Name",
	CategoryVoterID:        "Voter ID",
	CategoryDateOfBirth:    "Date of Birth",
}

// Categories returns all categories in processing order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the display name for the category.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return string(c)
}

// redactToken returns the fixed literal used by the redact strategy,
// e.g. "[NATIONAL_ID_REDACTED]".
func (c Category) redactToken() string {
	return "[" + strings.ToUpper(string(c)) + "_REDACTED]"
}
