// Package sailings is the network capability used to hydrate the itinerary cache:
// one date-range search per ship returning itinerary and cabin pricing per sailing.
package sailings

import (
	"context"
	"encoding/json"

	"github.com/seaward/offer-service/internal/types"
)

// Query selects the sailings of one ship between two dates, both inclusive (YYYY-MM-DD)
type Query struct {
	ShipCode  string `json:"shipCode"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Searcher finds sailings for a ship across a date range
type Searcher interface {
	SearchSailings(ctx context.Context, q Query) ([]Sailing, error)
}

// SearcherFunc adapts a function to Searcher
type SearcherFunc func(ctx context.Context, q Query) ([]Sailing, error)

// SearchSailings implements Searcher
func (f SearcherFunc) SearchSailings(ctx context.Context, q Query) ([]Sailing, error) {
	return f(ctx, q)
}

// Name is a label that sources send either as a plain string or as {"name": "..."}
type Name string

// UnmarshalJSON accepts "Miami" or {"name":"Miami"}
func (n *Name) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*n = Name(s)
		return nil
	}
	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*n = Name(obj.Name)
	return nil
}

// Ship identifies the vessel of a sailing
type Ship struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Itinerary is the route part of a sailing
type Itinerary struct {
	Name          string               `json:"name"`
	Type          string               `json:"type"`
	Destination   Name                 `json:"destination"`
	DeparturePort Name                 `json:"departurePort"`
	TotalNights   int                  `json:"totalNights"`
	Days          []types.ItineraryDay `json:"days"`
}

// Sailing is one search result
type Sailing struct {
	SailDate              string                 `json:"sailDate"`
	Ship                  Ship                   `json:"ship"`
	Itinerary             Itinerary              `json:"itinerary"`
	StateroomClassPricing []types.StateroomPrice `json:"stateroomClassPricing"`
	TaxesAndFees          types.Money            `json:"taxesAndFees"`
	TaxesAndFeesIncluded  *bool                  `json:"taxesAndFeesIncluded"`
	BookingLink           string                 `json:"bookingLink"`
	StartDate             string                 `json:"startDate"`
	EndDate               string                 `json:"endDate"`
}

// Key returns the composite cache key this sailing hydrates.
// fallbackShip is used when the response omits the ship code.
func (s *Sailing) Key(fallbackShip string) string {
	ship := s.Ship.Code
	if ship == "" {
		ship = fallbackShip
	}
	return types.CompositeKey(ship, s.SailDate)
}

// PricingMap indexes the class pricing by code. Later duplicates win.
func (s *Sailing) PricingMap() map[string]types.StateroomPrice {
	if len(s.StateroomClassPricing) == 0 {
		return nil
	}
	m := make(map[string]types.StateroomPrice, len(s.StateroomClassPricing))
	for _, p := range s.StateroomClassPricing {
		if p.Code == "" {
			continue
		}
		m[p.Code] = p
	}
	return m
}
