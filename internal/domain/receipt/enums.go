package receipt

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FeeType represents the kind of fee a receipt is issued for
type FeeType string

const (
	FeeTypeAdmission FeeType = "Admission Fee"
	FeeTypeTuition   FeeType = "Tuition Fee"
)

// IsValid checks if the fee type is a known FeeType
func (f FeeType) IsValid() bool {
	switch f {
	case FeeTypeAdmission, FeeTypeTuition:
		return true
	}
	return false
}

// String returns the string representation of FeeType
func (f FeeType) String() string {
	return string(f)
}

// RequiresMonth returns true if receipts of this type name a month
func (f FeeType) RequiresMonth() bool {
	return f == FeeTypeTuition
}

// Slug returns the fee type with spaces replaced by underscores,
// as used in document file names
func (f FeeType) Slug() string {
	return strings.ReplaceAll(string(f), " ", "_")
}

// AllFeeTypes returns every supported fee type
func AllFeeTypes() []FeeType {
	return []FeeType{FeeTypeTuition, FeeTypeAdmission}
}

// titleCase returns s in English title case. A Caser keeps state, so a
// fresh one is used for every call.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// ParseFeeType parses user input case-insensitively, accepting either the
// display name ("tuition fee") or the slug ("Tuition_Fee")
func ParseFeeType(s string) (FeeType, bool) {
	normalized := titleCase(strings.TrimSpace(strings.ReplaceAll(s, "_", " ")))
	f := FeeType(normalized)
	return f, f.IsValid()
}

// Month is an English calendar month name used on tuition receipts
type Month string

// IsValid checks if m is one of the twelve month names
func (m Month) IsValid() bool {
	for i := time.January; i <= time.December; i++ {
		if string(m) == i.String() {
			return true
		}
	}
	return false
}

// String returns the string representation of Month
func (m Month) String() string {
	return string(m)
}

// AllMonths returns January through December
func AllMonths() []Month {
	months := make([]Month, 0, 12)
	for i := time.January; i <= time.December; i++ {
		months = append(months, Month(i.String()))
	}
	return months
}

// ParseMonth parses a month name case-insensitively
func ParseMonth(s string) (Month, bool) {
	m := Month(titleCase(strings.TrimSpace(s)))
	return m, m.IsValid()
}
