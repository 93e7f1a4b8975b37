package filter

import (
	"time"

	"github.com/seaward/offer-service/internal/pricing"
	"github.com/seaward/offer-service/internal/types"
)

type fakeCache map[string]*types.CacheEntry

func (f fakeCache) GetByShipDate(shipCode, sailDate string) (*types.CacheEntry, bool) {
	e, ok := f[types.CompositeKey(shipCode, sailDate)]
	if !ok {
		return nil, false
	}
	return e.Clone(), true
}

func (f fakeCache) DerivedPricing(shipCode, sailDate string) (*types.PricingDerived, bool) {
	e, ok := f[types.CompositeKey(shipCode, sailDate)]
	if !ok {
		return nil, false
	}
	return pricing.Derive(e.StateroomPricing, e.TaxesAndFees, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)), true
}

func scenarioAEntry() *types.CacheEntry {
	return &types.CacheEntry{
		ShipCode:        "OA",
		SailDate:        "2026-03-01",
		ShipName:        "Oasis of the Seas",
		DestinationName: "Western Caribbean",
		TotalNights:     7,
		OfferCodes:      []string{"26WAVE"},
		Days: []types.ItineraryDay{
			{Number: 1, Ports: []types.PortCall{{Port: types.Port{Name: "Port Canaveral", Region: "Florida"}}}},
			{Number: 3, Ports: []types.PortCall{{Port: types.Port{Name: "Cozumel", Region: "Mexico"}}}},
			{Number: 4, Ports: []types.PortCall{{Port: types.Port{Name: "Roatán", Region: "Honduras"}}}},
		},
		StateroomPricing: map[string]types.StateroomPrice{
			"INTERIOR": {Code: "INTERIOR", Price: types.NumericMoney(400), Currency: "USD"},
			"BALCONY":  {Code: "BALCONY", Price: types.NumericMoney(700), Currency: "USD"},
		},
		TaxesAndFees: types.NumericMoney(120),
		Enriched:     true,
	}
}

func newCache(entries ...*types.CacheEntry) fakeCache {
	c := fakeCache{}
	for _, e := range entries {
		c[e.Key()] = e
	}
	return c
}

func row(offer types.Offer, sailing types.Sailing) types.Row {
	return types.Row{Offer: &offer, Sailing: &sailing}
}

func scenarioARow() types.Row {
	return row(
		types.Offer{OfferCode: "26WAVE", Name: "Balcony Bonus", StartDate: "2026-01-05", ReserveBy: "2026-02-15"},
		types.Sailing{
			ShipCode:             "OA",
			ShipName:             "Oasis of the Seas",
			SailDate:             "2026-03-01T00:00:00",
			RoomType:             "Balcony",
			ItineraryDescription: "7 Night Western Caribbean",
			DeparturePort:        "Port Canaveral",
		},
	)
}

func uncachedRow(code, ship, date string) types.Row {
	return row(
		types.Offer{OfferCode: code, Name: "Interior Special"},
		types.Sailing{ShipCode: ship, ShipName: ship + " Ship", SailDate: date, RoomType: "Interior"},
	)
}
