package pricing

import (
	"strings"
	"unicode"

	"github.com/seaward/offer-service/internal/types"
)

// codeAliases maps raw stateroom codes and labels (upper case, letters and digits only)
// to a broad category. Codes not listed are left out of the minima.
var codeAliases = map[string]types.Category{
	// Interior
	"I":        types.CategoryInterior,
	"IN":       types.CategoryInterior,
	"INT":      types.CategoryInterior,
	"INSIDE":   types.CategoryInterior,
	"INTERIOR": types.CategoryInterior,
	"VI":       types.CategoryInterior, // virtual balcony interior

	// Outside
	"O":          types.CategoryOutside,
	"OV":         types.CategoryOutside,
	"OS":         types.CategoryOutside,
	"OUT":        types.CategoryOutside,
	"OUTSIDE":    types.CategoryOutside,
	"OCEANVIEW":  types.CategoryOutside,
	"OCEAN":      types.CategoryOutside,
	"PORTHOLE":   types.CategoryOutside,
	"OBSTRUCTED": types.CategoryOutside,

	// Balcony
	"B":        types.CategoryBalcony,
	"BA":       types.CategoryBalcony,
	"BAL":      types.CategoryBalcony,
	"BALCONY":  types.CategoryBalcony,
	"VERANDA":  types.CategoryBalcony,
	"VERANDAH": types.CategoryBalcony,

	// Suites
	"D":           types.CategoryDeluxe,
	"DL":          types.CategoryDeluxe,
	"DLX":         types.CategoryDeluxe,
	"DELUXE":      types.CategoryDeluxe,
	"S":           types.CategoryDeluxe,
	"SU":          types.CategoryDeluxe,
	"SUITE":       types.CategoryDeluxe,
	"SUITES":      types.CategoryDeluxe,
	"JS":          types.CategoryDeluxe,
	"JUNIORSUITE": types.CategoryDeluxe,
	"GS":          types.CategoryDeluxe,
	"GRANDSUITE":  types.CategoryDeluxe,
}

// canonicalCode upper-cases and strips everything but letters and digits
func canonicalCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeCode maps a stateroom code to its broad category via the alias table
func NormalizeCode(code string) (types.Category, bool) {
	cat, ok := codeAliases[canonicalCode(code)]
	return cat, ok
}

// categoryKeywords are searched in free text such as "Balcony or Better"
var categoryKeywords = []struct {
	word string
	cat  types.Category
}{
	{"SUITE", types.CategoryDeluxe},
	{"DELUXE", types.CategoryDeluxe},
	{"BALCONY", types.CategoryBalcony},
	{"VERANDA", types.CategoryBalcony},
	{"OCEAN VIEW", types.CategoryOutside},
	{"OCEANVIEW", types.CategoryOutside},
	{"OUTSIDE", types.CategoryOutside},
	{"INTERIOR", types.CategoryInterior},
	{"INSIDE", types.CategoryInterior},
}

// CategoryFromText resolves a label to a category: alias table first, then the
// earliest category keyword in the text.
func CategoryFromText(text string) (types.Category, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	if cat, ok := NormalizeCode(text); ok {
		return cat, true
	}

	upper := strings.ToUpper(text)
	best := -1
	var found types.Category
	for _, kw := range categoryKeywords {
		idx := strings.Index(upper, kw.word)
		if idx < 0 {
			continue
		}
		if best < 0 || idx < best {
			best = idx
			found = kw.cat
		}
	}
	return found, best >= 0
}

// Rank returns the tier of a category, INTERIOR=0 through DELUXE=3, or -1
func Rank(cat types.Category) int {
	for i, c := range types.Categories {
		if c == cat {
			return i
		}
	}
	return -1
}
