package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/seaward/offer-service/internal/pricing"
	"github.com/seaward/offer-service/internal/rowstate"
	"github.com/seaward/offer-service/internal/types"
)

func TestResolverValue_ScenarioA(t *testing.T) {
	rendered := rowstate.NewTable()
	depth := rowstate.TableDepth{Table: rendered}
	resolver := NewResolver(newCache(scenarioAEntry()), pricing.NewEstimator(rendered), depth)
	r := scenarioARow()
	rendered.Set(r.Identity(), map[string]string{rowstate.ColumnB2BDepth: "3"})

	tests := []struct {
		key  string
		want any
	}{
		{KeyOfferCode, "26WAVE"},
		{KeyOfferName, "Balcony Bonus"},
		{KeyOfferDate, "2026-01-05"},
		{KeyExpiration, "2026-02-15"},
		{KeyShip, "Oasis of the Seas"},
		{KeySailDate, "2026-03-01"},
		{KeyDeparturePort, "Port Canaveral"},
		{KeyDestination, "Western Caribbean"},
		{KeyNights, 7.0},
		{KeyCategory, "BALCONY"},
		{KeyGuests, "2 Guests"},
		{KeyMinInteriorPrice, 800.0},
		{KeyMinOutsidePrice, "-"},
		{KeyMinBalconyPrice, 1400.0},
		{KeyMinSuitePrice, "-"},
		{KeyTaxesAndFees, 240.0},
		{KeyOfferValue, 1160.0},
		{KeyEndDate, "2026-03-08"},
		{KeyVisits, []string{"Port Canaveral", "Florida", "Cozumel", "Mexico", "Roatán", "Honduras"}},
		{KeyB2BDepth, 3.0},
		{"noSuchColumn", nil},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.Value(r.Offer, r.Sailing, tt.key))
		})
	}
}

func TestResolverValue_UncachedSailing(t *testing.T) {
	resolver := NewResolver(newCache(), nil, nil)
	r := row(
		types.Offer{OfferCode: "X", Name: "Solo", GuestsLabel: "1 Guest Interior"},
		types.Sailing{ShipCode: "WN", SailDate: "2026-04-10", ItineraryDescription: "4 Night Bahamas Cruise from Miami"},
	)

	assert.Equal(t, "WN", resolver.Value(r.Offer, r.Sailing, KeyShip))
	assert.Equal(t, 4.0, resolver.Value(r.Offer, r.Sailing, KeyNights))
	assert.Equal(t, "Bahamas", resolver.Value(r.Offer, r.Sailing, KeyDestination))
	assert.Equal(t, "2026-04-14", resolver.Value(r.Offer, r.Sailing, KeyEndDate))
	assert.Equal(t, "-", resolver.Value(r.Offer, r.Sailing, KeyMinInteriorPrice))
	assert.Equal(t, "-", resolver.Value(r.Offer, r.Sailing, KeyTaxesAndFees))
	assert.Equal(t, 0.0, resolver.Value(r.Offer, r.Sailing, KeyOfferValue))
	assert.Equal(t, "1 Guest Interior", resolver.Value(r.Offer, r.Sailing, KeyGuests))
	assert.Equal(t, 1.0, resolver.Value(r.Offer, r.Sailing, KeyB2BDepth))
	assert.Empty(t, resolver.Value(r.Offer, r.Sailing, KeyVisits))
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Miami", "Miami"},
		{"whole number", 1400.0, "1400"},
		{"fraction", 822.857142, "822.86"},
		{"list", []string{"Cozumel", "Mexico"}, "Cozumel, Mexico"},
		{"unsupported", struct{}{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Roatán", "roatan"},
		{"  Curaçao   Willemstad ", "curacao willemstad"},
		{"STRASSE", "strasse"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}
