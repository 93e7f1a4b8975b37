package filter

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seaward/offer-service/internal/pricing"
	"github.com/seaward/offer-service/internal/rowstate"
	"github.com/seaward/offer-service/internal/types"
)

func TestEvaluate_NumericNonNumericActualFails(t *testing.T) {
	actuals := []any{"-", "", nil, "n/a", []string{"Cozumel"}, math.NaN(), math.Inf(1)}
	for _, op := range []string{OpLessThan, OpGreaterThan} {
		for _, actual := range actuals {
			p := Predicate{FieldKey: KeyOfferValue, Operator: op, Values: []string{"500"}}
			assert.False(t, Evaluate(p, actual, nil, nil), "%s with actual %#v", op, actual)
		}
	}
}

func TestEvaluate_NumericIncompleteTargetPasses(t *testing.T) {
	targets := [][]string{nil, {}, {""}, {"   "}, {"abc"}, {"NaN"}, {"Inf"}}
	actuals := []any{100.0, "-", nil, "abc"}
	for _, op := range []string{OpLessThan, OpGreaterThan} {
		for _, target := range targets {
			for _, actual := range actuals {
				p := Predicate{FieldKey: KeyOfferValue, Operator: op, Values: target}
				assert.True(t, Evaluate(p, actual, nil, nil), "%s target %q actual %#v", op, target, actual)
			}
		}
	}
}

func TestEvaluate_NumericStrictComparison(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		target string
		actual any
		want   bool
	}{
		{"less than", OpLessThan, "500", 499.0, true},
		{"less than equal fails", OpLessThan, "500", 500.0, false},
		{"greater than", OpGreaterThan, "500", 501.0, true},
		{"greater than equal fails", OpGreaterThan, "500", 500.0, false},
		{"numeric string actual", OpLessThan, "1,000", "$999", true},
		{"int actual", OpGreaterThan, "2", 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Predicate{FieldKey: KeyOfferValue, Operator: tt.op, Values: []string{tt.target}}
			assert.Equal(t, tt.want, Evaluate(p, tt.actual, nil, nil))
		})
	}
}

// A valid target against an unknown suite price must exclude the row.
func TestScenarioB_UnknownSuitePriceFailsLessThan(t *testing.T) {
	resolver := NewResolver(newCache(scenarioAEntry()), nil, nil)
	r := scenarioARow()
	p := Predicate{FieldKey: "minSuitePrice", Operator: "less than", Values: []string{"500"}}

	value := resolver.Value(r.Offer, r.Sailing, "minSuitePrice")
	assert.Equal(t, "-", value)
	assert.False(t, Evaluate(p, value, r.Offer, r.Sailing))
	assert.False(t, NewEngine(resolver).Match(r, []Predicate{p}))
}

func TestEvaluate_SetMembership(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		values []string
		actual any
		want   bool
	}{
		{"in matches normalized", OpIn, []string{"oasis of the seas"}, "Oasis of  the Seas", true},
		{"in misses", OpIn, []string{"Wonder"}, "Oasis of the Seas", false},
		{"in is not substring", OpIn, []string{"Oasis"}, "Oasis of the Seas", false},
		{"in with diacritics", OpIn, []string{"Roatan"}, "Roatán", true},
		{"in numeric value", OpIn, []string{"7"}, 7.0, true},
		{"not in", OpNotIn, []string{"Wonder"}, "Oasis of the Seas", true},
		{"not in present", OpNotIn, []string{"Wonder", "Oasis of the Seas"}, "Oasis of the Seas", false},
		{"in without values passes", OpIn, nil, "anything", true},
		{"operator case", "IN", []string{"a"}, "A", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Predicate{FieldKey: KeyShip, Operator: tt.op, Values: tt.values}
			assert.Equal(t, tt.want, Evaluate(p, tt.actual, nil, nil))
		})
	}
}

func TestEvaluate_Contains(t *testing.T) {
	tests := []struct {
		name   string
		op     string
		values []string
		actual any
		want   bool
	}{
		{"contains", OpContains, []string{"caribbean"}, "7 Night Western Caribbean", true},
		{"contains any", OpContains, []string{"alaska", "western"}, "7 Night Western Caribbean", true},
		{"contains miss", OpContains, []string{"alaska"}, "7 Night Western Caribbean", false},
		{"starts with is substring", OpStartsWith, []string{"western"}, "7 Night Western Caribbean", true},
		{"not contains", OpNotContains, []string{"alaska"}, "7 Night Western Caribbean", true},
		{"not contains present", OpNotContains, []string{"night"}, "7 Night Western Caribbean", false},
		{"blank values pass", OpContains, []string{"", " "}, "x", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Predicate{FieldKey: KeyItinerary, Operator: tt.op, Values: tt.values}
			assert.Equal(t, tt.want, Evaluate(p, tt.actual, nil, nil))
		})
	}
}

func TestEvaluate_DateRange(t *testing.T) {
	offer := &types.Offer{StartDate: "2026-01-05", ReserveBy: "01/31/2026"}
	sailing := &types.Sailing{SailDate: "2026-03-01T00:00:00"}

	tests := []struct {
		name   string
		field  string
		values []string
		value  any
		sail   *types.Sailing
		want   bool
	}{
		{"sail date inclusive lower", KeySailDate, []string{"2026-03-01", "2026-03-31"}, nil, sailing, true},
		{"sail date inclusive upper", KeySailDate, []string{"2026-02-01", "2026-03-01"}, nil, sailing, true},
		{"sail date outside", KeySailDate, []string{"2026-03-02", "2026-03-31"}, nil, sailing, false},
		{"offer start date", KeyOfferDate, []string{"2026-01-01", "2026-01-10"}, nil, sailing, true},
		{"reserve by us format", KeyExpiration, []string{"2026-02-01", "2026-02-28"}, nil, sailing, false},
		{"derived end date", KeyEndDate, []string{"2026-03-08", "2026-03-08"}, "2026-03-08", sailing, true},
		{"utc day of offset timestamp", KeySailDate, []string{"2026-03-02", "2026-03-02"}, nil, &types.Sailing{SailDate: "2026-03-01T23:30:00-05:00"}, true},
		{"missing upper bound passes", KeySailDate, []string{"2026-04-01"}, nil, sailing, true},
		{"blank bound passes", KeySailDate, []string{"", "2026-02-01"}, nil, sailing, true},
		{"unparsable bound passes", KeySailDate, []string{"soon", "2026-02-01"}, nil, sailing, true},
		{"unparsable actual passes", KeySailDate, []string{"2026-01-01", "2026-01-02"}, nil, &types.Sailing{SailDate: "TBD"}, true},
		{"unknown end date passes", KeyEndDate, []string{"2026-01-01", "2026-01-02"}, "-", sailing, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Predicate{FieldKey: tt.field, Operator: OpDateRange, Values: tt.values}
			assert.Equal(t, tt.want, Evaluate(p, tt.value, offer, tt.sail))
		})
	}
}

func TestEvaluate_Visits(t *testing.T) {
	ports := []string{"Port Canaveral", "Florida", "Cozumel", "Mexico", "Roatán", "Honduras"}

	tests := []struct {
		name   string
		op     string
		values []string
		want   bool
	}{
		{"in any present", OpIn, []string{"Nassau", "Cozumel"}, true},
		{"in none present", OpIn, []string{"Nassau"}, false},
		{"contains region", OpContains, []string{"mexico"}, true},
		{"in diacritics folded", OpIn, []string{"Roatan"}, true},
		{"not in all absent", OpNotIn, []string{"Nassau", "Bermuda"}, true},
		{"not in one present", OpNotIn, []string{"Nassau", "Cozumel"}, false},
		{"not contains present", OpNotContains, []string{"Honduras"}, false},
		{"no selection passes", OpNotIn, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Predicate{FieldKey: KeyVisits, Operator: tt.op, Values: tt.values}
			assert.Equal(t, tt.want, Evaluate(p, ports, nil, nil))
		})
	}
}

func TestEvaluate_UnknownOperatorPasses(t *testing.T) {
	assert.True(t, Evaluate(Predicate{FieldKey: KeyShip, Operator: "sounds like", Values: []string{"x"}}, "y", nil, nil))
}

func TestEngine_PanicWhileComputingValuePasses(t *testing.T) {
	depth := rowstate.DepthFunc(func(types.Row) int { panic("depth provider exploded") })
	engine := NewEngine(NewResolver(newCache(scenarioAEntry()), nil, depth))

	p := Predicate{FieldKey: KeyB2BDepth, Operator: OpGreaterThan, Values: []string{"5"}}
	assert.True(t, engine.Match(scenarioARow(), []Predicate{p}))
}

func TestEngine_AllPredicatesMustPass(t *testing.T) {
	engine := NewEngine(NewResolver(newCache(scenarioAEntry()), pricing.NewEstimator(nil), nil))
	r := scenarioARow()

	pass := Predicate{FieldKey: KeyOfferValue, Operator: OpGreaterThan, Values: []string{"1000"}}
	fail := Predicate{FieldKey: KeyNights, Operator: OpLessThan, Values: []string{"5"}}
	incomplete := Predicate{FieldKey: KeyNights, Operator: OpLessThan, Values: []string{""}}

	assert.True(t, engine.Match(r, []Predicate{pass, incomplete}))
	assert.False(t, engine.Match(r, []Predicate{pass, fail}))
	assert.True(t, engine.Match(r, nil))
}
