package itinerary

import (
	"context"
	"maps"
	"slices"

	"github.com/seaward/offer-service/internal/sailings"
	"github.com/seaward/offer-service/internal/types"
)

// BuildSummary counts what a BuildOrUpdateFromOffers batch did
type BuildSummary struct {
	Created   int `json:"created"`
	Updated   int `json:"updated"`
	Unchanged int `json:"unchanged"`
	Skipped   int `json:"skipped"`
}

// Changed reports whether the batch modified the cache
func (s BuildSummary) Changed() bool {
	return s.Created > 0 || s.Updated > 0
}

// BuildOrUpdateFromOffers creates stubs for unseen sailings and fills blank fields of
// existing ones. Offer codes are appended once. UpdatedAt moves only when an entry
// actually changed, and the cache is persisted once after the batch.
func (c *Cache) BuildOrUpdateFromOffers(ctx context.Context, offers []types.Offer) (BuildSummary, error) {
	var summary BuildSummary
	if err := c.EnsureLoaded(ctx); err != nil {
		return summary, err
	}

	now := c.opts.Now()

	c.mu.Lock()
	for i := range offers {
		offer := &offers[i]
		for j := range offer.Sailings {
			sailing := &offer.Sailings[j]
			ship := sailing.ShipCode
			date := types.NormalizeSailDate(sailing.SailDate)
			if ship == "" || date == "" {
				summary.Skipped++
				continue
			}

			key := types.CompositeKey(ship, date)
			existing, ok := c.entries[key]
			if !ok {
				e := &types.CacheEntry{ShipCode: ship, SailDate: date}
				c.fillFromScrape(e, offer, sailing)
				e.UpdatedAt = now
				c.entries[key] = e
				c.index.add(ship, date, key)
				summary.Created++
				continue
			}

			next := existing.Clone()
			if !c.fillFromScrape(next, offer, sailing) {
				summary.Unchanged++
				continue
			}
			next.UpdatedAt = now
			c.entries[key] = next
			summary.Updated++
		}
	}
	n := len(c.entries)
	c.mu.Unlock()

	c.metrics.recordEntries(n)
	c.logger.Debug().
		Int("offers", len(offers)).
		Int("created", summary.Created).
		Int("updated", summary.Updated).
		Int("unchanged", summary.Unchanged).
		Int("skipped", summary.Skipped).
		Msg("Merged scraped offers into itinerary cache")

	if !summary.Changed() {
		return summary, nil
	}
	return summary, c.persist(ctx)
}

// fillFromScrape fills blank fields of e from a scraped offer/sailing pair and appends
// the offer code. It reports whether anything changed.
func (c *Cache) fillFromScrape(e *types.CacheEntry, offer *types.Offer, sailing *types.Sailing) bool {
	changed := false
	changed = fillString(&e.ShipName, sailing.ShipName) || changed
	changed = fillString(&e.ItineraryDescription, sailing.ItineraryDescription) || changed
	changed = fillString(&e.DeparturePortName, sailing.DeparturePort) || changed
	changed = fillInt(&e.TotalNights, sailing.Nights) || changed
	changed = c.backfillFromDescription(e) || changed

	if offer.OfferCode != "" && !e.HasOfferCode(offer.OfferCode) {
		e.OfferCodes = append(e.OfferCodes, offer.OfferCode)
		changed = true
	}
	return changed
}

// backfillFromDescription fills nights and destination from the itinerary text
func (c *Cache) backfillFromDescription(e *types.CacheEntry) bool {
	if e.ItineraryDescription == "" || (e.TotalNights > 0 && e.DestinationName != "") {
		return false
	}
	parsed := c.opts.Parse(e.ItineraryDescription)
	changed := fillInt(&e.TotalNights, parsed.Nights)
	changed = fillString(&e.DestinationName, parsed.Destination) || changed
	return changed
}

// applySailing merges a hydration result into e: blank scalars are filled, days and
// pricing are replaced wholesale when the response carries them. Reports content changes.
func (c *Cache) applySailing(e *types.CacheEntry, s *sailings.Sailing) bool {
	changed := false
	changed = fillString(&e.ShipName, s.Ship.Name) || changed
	changed = fillString(&e.ItineraryDescription, s.Itinerary.Name) || changed
	changed = fillString(&e.DestinationName, string(s.Itinerary.Destination)) || changed
	changed = fillString(&e.DeparturePortName, string(s.Itinerary.DeparturePort)) || changed
	changed = fillInt(&e.TotalNights, s.Itinerary.TotalNights) || changed
	changed = fillString(&e.Type, s.Itinerary.Type) || changed
	changed = fillString(&e.BookingLink, s.BookingLink) || changed
	changed = fillString(&e.StartDate, s.StartDate) || changed
	changed = fillString(&e.EndDate, s.EndDate) || changed
	changed = c.backfillFromDescription(e) || changed

	if len(s.Itinerary.Days) > 0 && !daysEqual(e.Days, s.Itinerary.Days) {
		e.Days = cloneDays(s.Itinerary.Days)
		changed = true
	}
	if p := s.PricingMap(); p != nil && !maps.Equal(e.StateroomPricing, p) {
		e.StateroomPricing = p
		changed = true
	}
	if !s.TaxesAndFees.IsBlank() && e.TaxesAndFees != s.TaxesAndFees {
		e.TaxesAndFees = s.TaxesAndFees
		changed = true
	}
	if s.TaxesAndFeesIncluded != nil && (e.TaxesAndFeesIncluded == nil || *e.TaxesAndFeesIncluded != *s.TaxesAndFeesIncluded) {
		v := *s.TaxesAndFeesIncluded
		e.TaxesAndFeesIncluded = &v
		changed = true
	}
	if !e.Enriched {
		e.Enriched = true
		changed = true
	}
	return changed
}

func fillString(dst *string, src string) bool {
	if *dst != "" || src == "" {
		return false
	}
	*dst = src
	return true
}

func fillInt(dst *int, src int) bool {
	if *dst != 0 || src <= 0 {
		return false
	}
	*dst = src
	return true
}

func daysEqual(a, b []types.ItineraryDay) bool {
	return slices.EqualFunc(a, b, func(x, y types.ItineraryDay) bool {
		return x.Number == y.Number && slices.Equal(x.Ports, y.Ports)
	})
}

func cloneDays(days []types.ItineraryDay) []types.ItineraryDay {
	out := make([]types.ItineraryDay, len(days))
	for i, d := range days {
		out[i] = types.ItineraryDay{Number: d.Number, Ports: slices.Clone(d.Ports)}
	}
	return out
}
