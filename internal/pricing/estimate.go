package pricing

import (
	"math"

	"github.com/seaward/offer-service/internal/rowstate"
	"github.com/seaward/offer-service/internal/types"
)

const (
	// singleGuestSurcharge and singleGuestDivisor shape the one-guest formula:
	// value = ((base + surcharge) - taxes) / divisor - surcharge
	singleGuestSurcharge = 200.0
	singleGuestDivisor   = 1.4
)

// Estimate is the breakdown behind an offer value. All money is dual occupancy.
type Estimate struct {
	Category    types.Category `json:"category,omitempty"`
	BasePrice   *float64       `json:"basePrice"`
	TaxesDual   float64        `json:"taxesDual"`
	SingleGuest bool           `json:"singleGuest"`
	Value       float64        `json:"value"`
}

// Estimator computes the implied discount value of an offer against retail cabin pricing
type Estimator struct {
	// Rendered is consulted for single-guest detection when the offer itself is silent. May be nil.
	Rendered *rowstate.Table
}

// NewEstimator creates an estimator backed by the given rendered-row table
func NewEstimator(rendered *rowstate.Table) *Estimator {
	return &Estimator{Rendered: rendered}
}

// Estimate resolves category, base price and guest count for one row and applies the
// matching formula. entry and derived may be nil when the sailing is not cached yet.
func (e *Estimator) Estimate(offer *types.Offer, sailing *types.Sailing, entry *types.CacheEntry, derived *types.PricingDerived) Estimate {
	est := Estimate{SingleGuest: e.IsSingleGuest(offer, sailing)}

	cat, ok := ResolveCategory(offer, sailing)
	if ok {
		est.Category = cat
	}
	if derived != nil {
		est.TaxesDual = derived.TaxesAndFeesDual
	}

	roomType := ""
	if sailing != nil {
		roomType = sailing.RoomType
	}
	if ok {
		est.BasePrice = BasePriceDual(entry, derived, cat, roomType)
	}

	if est.SingleGuest {
		est.Value = SingleGuestValue(est.BasePrice, est.TaxesDual)
	} else {
		est.Value = DualGuestValue(est.BasePrice, est.TaxesDual)
	}
	return est
}

// ResolveCategory returns the broad category an offer awards, from the sailing room
// type, then the offer category, then the offer name.
func ResolveCategory(offer *types.Offer, sailing *types.Sailing) (types.Category, bool) {
	var candidates []string
	if sailing != nil {
		candidates = append(candidates, sailing.RoomType)
	}
	if offer != nil {
		candidates = append(candidates, offer.Category, offer.Name)
	}
	for _, c := range candidates {
		if cat, ok := CategoryFromText(c); ok {
			return cat, true
		}
	}
	return "", false
}

// BasePriceDual returns the dual-occupancy retail price for the awarded category.
// An exact stateroom code match wins; otherwise the category minimum is used. A sold-out
// category yields nil: another tier's price is never substituted.
func BasePriceDual(entry *types.CacheEntry, derived *types.PricingDerived, cat types.Category, roomType string) *float64 {
	if want := canonicalCode(roomType); entry != nil && want != "" {
		for key, p := range entry.StateroomPricing {
			if canonicalCode(key) != want && canonicalCode(p.Code) != want {
				continue
			}
			if v, ok := p.Price.Float(); ok {
				dual := v * 2
				return &dual
			}
		}
	}
	if derived == nil {
		return nil
	}
	if v := derived.Categories[cat]; v != nil {
		dual := *v
		return &dual
	}
	return nil
}

// IsSingleGuest reports whether an offer covers one guest: GOBO flags, a guest count or
// occupancy of 1, a "1 Guest" label, or the rendered guests column.
func (e *Estimator) IsSingleGuest(offer *types.Offer, sailing *types.Sailing) bool {
	if offer != nil {
		if offer.IsGOBO || offer.Occupancy == 1 || rowstate.IsSingleGuestLabel(offer.GuestsLabel) {
			return true
		}
	}
	if sailing != nil {
		if sailing.IsGOBO || sailing.GuestCount == 1 || rowstate.IsSingleGuestLabel(sailing.GuestsLabel) {
			return true
		}
	}
	if e == nil || e.Rendered == nil || offer == nil || sailing == nil {
		return false
	}
	return e.Rendered.IsSingleGuest(types.RowIdentity(offer, sailing))
}

// SingleGuestValue applies ((base+200)-taxes)/1.4-200 floored at 0. Unknown base → 0.
func SingleGuestValue(base *float64, taxesDual float64) float64 {
	if base == nil {
		return 0
	}
	v := ((*base+singleGuestSurcharge)-taxesDual)/singleGuestDivisor - singleGuestSurcharge
	return math.Max(0, v)
}

// DualGuestValue applies max(0, base-taxes). Unknown base → 0.
func DualGuestValue(base *float64, taxesDual float64) float64 {
	if base == nil {
		return 0
	}
	return math.Max(0, *base-taxesDual)
}
