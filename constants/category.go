package constants

import "strings"

type Category string

const (
	Meals          Category = "Meals"
	OfficeSupplies Category = "OfficeSupplies"
	Software       Category = "Software"
	Travel         Category = "Travel"
	Utilities      Category = "Utilities"
	Equipment      Category = "Equipment"
	Services       Category = "Services"
	Other          Category = "Other"
)

var allCategories = []Category{
	Meals,
	OfficeSupplies,
	Software,
	Travel,
	Utilities,
	Equipment,
	Services,
	Other,
}

func AsStringSlice() []string {
	result := make([]string, len(allCategories))
	for i, cat := range allCategories {
		result[i] = string(cat)
	}
	return result
}

// Canonicalize maps free-form category text onto the fixed taxonomy.
func Canonicalize(input string) (Category, bool) {
	if input == "" {
		return Other, false
	}

	normalized := strings.ToLower(strings.TrimSpace(input))

	synonyms := map[string]Category{
		"food":         Meals,
		"restaurant":   Meals,
		"supplies":     OfficeSupplies,
		"stationery":   OfficeSupplies,
		"saas":         Software,
		"subscription": Software,
		"uber":         Travel,
		"lyft":         Travel,
		"airline":      Travel,
		"hotel":        Travel,
		"taxi":         Travel,
		"internet":     Utilities,
		"phone":        Utilities,
		"electricity":  Utilities,
		"hardware":     Equipment,
		"consulting":   Services,
	}

	if cat, ok := synonyms[normalized]; ok {
		return cat, true
	}

	// "office supplies" and "OfficeSupplies" are the same category
	collapsed := strings.ReplaceAll(normalized, " ", "")
	for _, cat := range allCategories {
		if collapsed == strings.ToLower(string(cat)) {
			return cat, true
		}
	}

	return Other, false
}
