package filter

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/seaward/offer-service/internal/types"
)

// Operators
const (
	OpIn          = "in"
	OpNotIn       = "not in"
	OpContains    = "contains"
	OpNotContains = "not contains"
	OpStartsWith  = "starts with" // alias of contains
	OpLessThan    = "less than"
	OpGreaterThan = "greater than"
	OpDateRange   = "date range"
)

// Predicate is one committed filter condition. Predicates on a row AND-combine.
type Predicate struct {
	FieldKey string   `json:"fieldKey" jsonschema:"required"`
	Operator string   `json:"operator" jsonschema:"required,enum=in,enum=not in,enum=contains,enum=not contains,enum=starts with,enum=less than,enum=greater than,enum=date range"`
	Values   []string `json:"values"`
	// Complete is false while the user is still editing the predicate. Nil means complete.
	Complete *bool `json:"complete,omitempty"`
}

// IsComplete reports whether p is committed and has a field, an operator and values
func (p Predicate) IsComplete() bool {
	if p.Complete != nil && !*p.Complete {
		return false
	}
	return strings.TrimSpace(p.FieldKey) != "" && strings.TrimSpace(p.Operator) != "" && len(p.Values) > 0
}

// Evaluate reports whether value passes p. offer and sailing are used to resolve
// date fields. Anything that cannot be evaluated passes, except a numeric comparison
// against a non-numeric actual value, which fails.
func Evaluate(p Predicate, value any, offer *types.Offer, sailing *types.Sailing) (pass bool) {
	defer func() {
		if r := recover(); r != nil {
			predicatePanics.Inc()
			pass = true
		}
	}()

	op := strings.ToLower(strings.TrimSpace(p.Operator))
	if op == OpStartsWith {
		op = OpContains
	}

	if p.FieldKey == KeyVisits {
		return evaluateVisits(op, p.Values, value)
	}

	switch op {
	case OpIn, OpNotIn:
		if len(p.Values) == 0 {
			return true
		}
		found := false
		actual := Normalize(FormatValue(value))
		for _, v := range p.Values {
			if Normalize(v) == actual {
				found = true
				break
			}
		}
		return found == (op == OpIn)
	case OpContains, OpNotContains:
		needles := normalizedValues(p.Values)
		if len(needles) == 0 {
			return true
		}
		actual := Normalize(FormatValue(value))
		found := false
		for _, n := range needles {
			if strings.Contains(actual, n) {
				found = true
				break
			}
		}
		return found == (op == OpContains)
	case OpLessThan, OpGreaterThan:
		return compareNumeric(op, p.Values, value)
	case OpDateRange:
		return inDateRange(p.FieldKey, p.Values, value, offer, sailing)
	}
	return true
}

// compareNumeric applies a strict comparison. A blank or non-finite target passes;
// a non-finite actual value fails.
func compareNumeric(op string, values []string, value any) bool {
	if len(values) == 0 || strings.TrimSpace(values[0]) == "" {
		return true
	}
	target, ok := toNumber(values[0])
	if !ok {
		return true
	}
	actual, ok := toNumber(value)
	if !ok {
		return false
	}
	if op == OpLessThan {
		return actual < target
	}
	return actual > target
}

// evaluateVisits matches selected port or region names against the itinerary.
// in/contains pass when any selected name is visited; not in/not contains pass
// when none is.
func evaluateVisits(op string, values []string, value any) bool {
	selected := normalizedValues(values)
	if len(selected) == 0 {
		return true
	}
	visited := make(map[string]bool)
	switch v := value.(type) {
	case []string:
		for _, name := range v {
			visited[Normalize(name)] = true
		}
	case string:
		for _, name := range tokenize(Normalize(v)) {
			visited[name] = true
		}
	}

	switch op {
	case OpIn, OpContains:
		for _, s := range selected {
			if visited[s] {
				return true
			}
		}
		return false
	case OpNotIn, OpNotContains:
		for _, s := range selected {
			if visited[s] {
				return false
			}
		}
		return true
	}
	return true
}

// inDateRange checks an inclusive UTC epoch-day range. Incomplete bounds and
// unparsable actual dates pass.
func inDateRange(fieldKey string, values []string, value any, offer *types.Offer, sailing *types.Sailing) bool {
	if len(values) < 2 {
		return true
	}
	from, okFrom := parseDate(values[0])
	to, okTo := parseDate(values[1])
	if !okFrom || !okTo {
		return true
	}
	actual, ok := parseDate(actualDate(fieldKey, value, offer, sailing))
	if !ok {
		return true
	}
	day := epochDay(actual)
	return day >= epochDay(from) && day <= epochDay(to)
}

// actualDate picks the raw date a date-range predicate compares against
func actualDate(fieldKey string, value any, offer *types.Offer, sailing *types.Sailing) string {
	switch fieldKey {
	case KeyOfferDate:
		if offer != nil {
			return offer.StartDate
		}
	case KeyExpiration:
		if offer != nil {
			return offer.ReserveBy
		}
	case KeySailDate:
		if sailing != nil {
			return sailing.SailDate
		}
	}
	s, _ := value.(string)
	return s
}

var dateLayouts = []string{
	time.DateOnly,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"01/02/2006",
	"1/2/2006",
}

// parseDate accepts ISO dates, ISO timestamps and US-style month/day/year
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" || s == unknownValue {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func epochDay(t time.Time) int64 {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// toNumber converts a column value or predicate target to a finite number
func toNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case string:
		s := strings.TrimSpace(x)
		s = strings.TrimPrefix(s, "$")
		s = strings.ReplaceAll(s, ",", "")
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func normalizedValues(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if n := Normalize(v); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Engine evaluates committed predicates against rows
type Engine struct {
	resolver *Resolver
}

// NewEngine creates an engine that reads field values through resolver
func NewEngine(resolver *Resolver) *Engine {
	return &Engine{resolver: resolver}
}

// Match reports whether row passes every predicate
func (e *Engine) Match(row types.Row, predicates []Predicate) bool {
	for _, p := range predicates {
		if !e.evaluateRow(p, row) {
			return false
		}
	}
	return true
}

// evaluateRow resolves the field value and evaluates one predicate. A panic while
// computing the value counts as a pass.
func (e *Engine) evaluateRow(p Predicate, row types.Row) (pass bool) {
	defer func() {
		if r := recover(); r != nil {
			predicatePanics.Inc()
			pass = true
		}
	}()
	value := e.resolver.Value(row.Offer, row.Sailing, p.FieldKey)
	return Evaluate(p, value, row.Offer, row.Sailing)
}
