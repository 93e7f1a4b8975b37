package types

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// MoneyKind tags which variant of Money is populated
type MoneyKind uint8

const (
	// MoneyUnknown means no usable amount (missing, null, sold out)
	MoneyUnknown MoneyKind = iota
	// MoneyNumeric carries a parsed per-person amount
	MoneyNumeric
	// MoneyRaw keeps a source string that could not be parsed
	MoneyRaw
)

// Money is a per-person amount as scraped from third-party listings.
// Sources send numbers, formatted strings, objects or nothing at all; every shape is
// funneled through CoerceMoney so the rest of the code only sees these three variants.
type Money struct {
	Kind  MoneyKind
	Value float64
	Raw   string
}

// UnknownMoney returns the Unknown variant
func UnknownMoney() Money {
	return Money{Kind: MoneyUnknown}
}

// NumericMoney returns a Numeric variant holding v
func NumericMoney(v float64) Money {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return UnknownMoney()
	}
	return Money{Kind: MoneyNumeric, Value: v}
}

// RawMoney returns a Raw variant holding s
func RawMoney(s string) Money {
	return Money{Kind: MoneyRaw, Raw: s}
}

// Float returns the numeric amount and whether one is known
func (m Money) Float() (float64, bool) {
	if m.Kind == MoneyNumeric {
		return m.Value, true
	}
	return 0, false
}

// IsKnown reports whether the amount is numeric
func (m Money) IsKnown() bool {
	return m.Kind == MoneyNumeric
}

// IsBlank reports whether no value at all was supplied
func (m Money) IsBlank() bool {
	return m.Kind == MoneyUnknown
}

func (m Money) String() string {
	switch m.Kind {
	case MoneyNumeric:
		return strconv.FormatFloat(m.Value, 'f', -1, 64)
	case MoneyRaw:
		return m.Raw
	default:
		return ""
	}
}

// MarshalJSON encodes Unknown as null, Numeric as a number and Raw as a string
func (m Money) MarshalJSON() ([]byte, error) {
	switch m.Kind {
	case MoneyNumeric:
		return json.Marshal(m.Value)
	case MoneyRaw:
		return json.Marshal(m.Raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts any JSON shape and coerces it
func (m *Money) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = CoerceMoney(v)
	return nil
}

// objectAmountKeys are the field names probed when an amount arrives wrapped in an object
var objectAmountKeys = []string{"value", "amount", "price", "perPerson"}

// CoerceMoney normalizes a decoded JSON value into Money.
// Default: anything without a recognizable amount is Unknown.
func CoerceMoney(v any) Money {
	switch val := v.(type) {
	case nil:
		return UnknownMoney()
	case Money:
		return val
	case float64:
		return NumericMoney(val)
	case float32:
		return NumericMoney(float64(val))
	case int:
		return NumericMoney(float64(val))
	case int64:
		return NumericMoney(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return RawMoney(val.String())
		}
		return NumericMoney(f)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return UnknownMoney()
		}
		f, err := ParseAmount(s)
		if err != nil {
			return RawMoney(s)
		}
		return NumericMoney(f)
	case map[string]any:
		for _, key := range objectAmountKeys {
			if inner, ok := val[key]; ok {
				return CoerceMoney(inner)
			}
		}
		return UnknownMoney()
	default:
		return UnknownMoney()
	}
}

var currencySuffixRe = regexp.MustCompile(`\s*(USD|EUR|GBP|CAD|AUD|PERPERSON|PP)\s*$`)

// ParseAmount parses a formatted amount string.
// Handles "1299", "$1,299.00", "1.299,00", "USD 899", "899 USD".
func ParseAmount(value string) (float64, error) {
	if value == "" {
		return 0, fmt.Errorf("empty amount value")
	}

	cleaned := strings.TrimSpace(value)
	cleaned = strings.Map(func(r rune) rune {
		if r == '€' || r == '$' || r == '£' || r == '\u00A0' || r == ' ' {
			return -1
		}
		return r
	}, cleaned)

	cleaned = strings.ToUpper(cleaned)
	cleaned = strings.TrimPrefix(cleaned, "USD")
	cleaned = strings.TrimPrefix(cleaned, "EUR")
	cleaned = currencySuffixRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return 0, fmt.Errorf("no numeric value found")
	}

	// Whichever separator comes last is the decimal separator
	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	if lastComma > lastDot {
		// 1.234,56 or 1,5
		if lastDot >= 0 || len(cleaned)-lastComma-1 != 3 {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			// 1,299 is a thousands separator
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	} else if lastDot > lastComma {
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	}

	hasDigit := false
	for _, r := range cleaned {
		if unicode.IsDigit(r) {
			hasDigit = true
			break
		}
	}
	if !hasDigit {
		return 0, fmt.Errorf("no digits found in %q", value)
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount format: %w", err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("amount is not finite: %q", value)
	}
	return f, nil
}
