package types

import (
	"maps"
	"strings"
	"time"
)

// CompositeKeyPrefix marks cache keys built by CompositeKey.
// Keys without it are legacy and are purged on load.
const CompositeKeyPrefix = "SD_"

// CompositeKey returns the cache key for a (ship, sail date) pair
func CompositeKey(shipCode, sailDate string) string {
	return CompositeKeyPrefix + shipCode + "_" + NormalizeSailDate(sailDate)
}

// ParseCompositeKey splits a composite key back into ship code and sail date
func ParseCompositeKey(key string) (shipCode, sailDate string, ok bool) {
	if !strings.HasPrefix(key, CompositeKeyPrefix) {
		return "", "", false
	}
	rest := key[len(CompositeKeyPrefix):]
	idx := strings.LastIndex(rest, "_")
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// Category is one of the four broad stateroom buckets
type Category string

const (
	CategoryInterior Category = "INTERIOR"
	CategoryOutside  Category = "OUTSIDE"
	CategoryBalcony  Category = "BALCONY"
	CategoryDeluxe   Category = "DELUXE"
)

// Categories lists broad categories from lowest to highest tier
var Categories = []Category{CategoryInterior, CategoryOutside, CategoryBalcony, CategoryDeluxe}

// Port is a named port of call
type Port struct {
	Name   string `json:"name"`
	Region string `json:"region,omitempty"`
}

// PortCall is one stop on an itinerary day
type PortCall struct {
	Port          Port   `json:"port"`
	ArrivalTime   string `json:"arrivalTime,omitempty"`
	DepartureTime string `json:"departureTime,omitempty"`
}

// ItineraryDay is one day of a sailing's day-by-day itinerary
type ItineraryDay struct {
	Number int        `json:"number"`
	Ports  []PortCall `json:"ports"`
}

// StateroomPrice is the per-person price of one stateroom code.
// Price is Unknown when the code is sold out.
type StateroomPrice struct {
	Code     string `json:"code"`
	Price    Money  `json:"price"`
	Currency string `json:"currency,omitempty"`
}

// PricingDerived holds dual-occupancy minima computed from StateroomPricing.
// Nil category prices mean unknown or sold out, never zero.
type PricingDerived struct {
	Categories       map[Category]*float64              `json:"categories"`
	TaxesAndFeesDual float64                            `json:"taxesAndFeesDual"`
	BaseCurrency     string                             `json:"baseCurrency,omitempty"`
	UpgradeDelta     map[Category]map[Category]*float64 `json:"upgradeDelta"`
	ComputedAt       time.Time                          `json:"computedAt"`
	Signature        string                             `json:"signature"`
}

// CacheEntry is everything known about one (ship, sail date)
type CacheEntry struct {
	ShipCode             string                    `json:"shipCode"`
	SailDate             string                    `json:"sailDate"`
	ShipName             string                    `json:"shipName,omitempty"`
	ItineraryDescription string                    `json:"itineraryDescription,omitempty"`
	DestinationName      string                    `json:"destinationName,omitempty"`
	DeparturePortName    string                    `json:"departurePortName,omitempty"`
	TotalNights          int                       `json:"totalNights,omitempty"`
	Days                 []ItineraryDay            `json:"days,omitempty"`
	Type                 string                    `json:"type,omitempty"`
	OfferCodes           []string                  `json:"offerCodes"`
	TaxesAndFees         Money                     `json:"taxesAndFees"`
	TaxesAndFeesIncluded *bool                     `json:"taxesAndFeesIncluded"`
	StateroomPricing     map[string]StateroomPrice `json:"stateroomPricing,omitempty"`
	PricingDerived       *PricingDerived           `json:"pricingDerived,omitempty"`
	BookingLink          string                    `json:"bookingLink,omitempty"`
	StartDate            string                    `json:"startDate,omitempty"`
	EndDate              string                    `json:"endDate,omitempty"`
	Enriched             bool                      `json:"enriched"`
	UpdatedAt            time.Time                 `json:"updatedAt"`
	HydratedAt           time.Time                 `json:"hydratedAt,omitzero"`
}

// Key returns the entry's composite key
func (e *CacheEntry) Key() string {
	return CompositeKey(e.ShipCode, e.SailDate)
}

// HasOfferCode reports whether code is already associated
func (e *CacheEntry) HasOfferCode(code string) bool {
	for _, c := range e.OfferCodes {
		if c == code {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand out of the cache.
// PricingDerived is shared: it is never mutated once built.
func (e *CacheEntry) Clone() *CacheEntry {
	if e == nil {
		return nil
	}
	c := *e
	c.OfferCodes = append([]string(nil), e.OfferCodes...)
	if e.Days != nil {
		c.Days = make([]ItineraryDay, len(e.Days))
		for i, d := range e.Days {
			c.Days[i] = ItineraryDay{Number: d.Number, Ports: append([]PortCall(nil), d.Ports...)}
		}
	}
	if e.TaxesAndFeesIncluded != nil {
		v := *e.TaxesAndFeesIncluded
		c.TaxesAndFeesIncluded = &v
	}
	c.StateroomPricing = maps.Clone(e.StateroomPricing)
	return &c
}

// PortNames returns every port and region name visited, in itinerary order, without duplicates
func (e *CacheEntry) PortNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, d := range e.Days {
		for _, pc := range d.Ports {
			for _, n := range []string{pc.Port.Name, pc.Port.Region} {
				if n == "" || seen[n] {
					continue
				}
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}
