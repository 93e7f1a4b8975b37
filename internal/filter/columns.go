package filter

import (
	"math"
	"strconv"
	"strings"
	"time"

	parser "github.com/seaward/offer-service/internal/parsers/itinerary"
	"github.com/seaward/offer-service/internal/pricing"
	"github.com/seaward/offer-service/internal/rowstate"
	"github.com/seaward/offer-service/internal/types"
)

// Column is one entry of the offers table header
type Column struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Column keys
const (
	KeyOfferCode     = "offerCode"
	KeyOfferName     = "offerName"
	KeyOfferDate     = "offerDate"
	KeyExpiration    = "expiration"
	KeyShip          = "ship"
	KeySailDate      = "sailDate"
	KeyDeparturePort = "departurePort"
	KeyItinerary     = "itinerary"
	KeyDestination   = "destination"
	KeyNights        = "nights"
	KeyCategory      = "category"

	KeyMinInteriorPrice = "minInteriorPrice"
	KeyMinOutsidePrice  = "minOutsidePrice"
	KeyMinBalconyPrice  = "minBalconyPrice"
	KeyMinSuitePrice    = "minSuitePrice"
	KeyOfferValue       = "offerValue"
	KeyTaxesAndFees     = "taxesAndFees"
	KeyEndDate          = "endDate"
	KeyVisits           = "visits"
	KeyB2BDepth         = rowstate.ColumnB2BDepth
	KeyGuests           = rowstate.ColumnGuests
)

// DefaultColumns is the header set used when a caller does not supply one
var DefaultColumns = []Column{
	{Key: KeyOfferCode, Label: "Code"},
	{Key: KeyOfferName, Label: "Offer Name"},
	{Key: KeyOfferDate, Label: "Received"},
	{Key: KeyExpiration, Label: "Expiration"},
	{Key: KeyShip, Label: "Ship"},
	{Key: KeySailDate, Label: "Sail Date"},
	{Key: KeyDeparturePort, Label: "Departure Port"},
	{Key: KeyItinerary, Label: "Itinerary"},
	{Key: KeyDestination, Label: "Destination"},
	{Key: KeyNights, Label: "Nights"},
	{Key: KeyCategory, Label: "Category"},
	{Key: KeyGuests, Label: "Guests"},
	{Key: KeyOfferValue, Label: "Offer Value"},
}

// VirtualFields are computed columns that predicates may reference even when they
// are not part of the active header set.
var VirtualFields = map[string]bool{
	KeyMinInteriorPrice: true,
	KeyMinOutsidePrice:  true,
	KeyMinBalconyPrice:  true,
	KeyMinSuitePrice:    true,
	KeyOfferValue:       true,
	KeyTaxesAndFees:     true,
	KeyEndDate:          true,
	KeyVisits:           true,
	KeyB2BDepth:         true,
	KeyGuests:           true,
}

// unknownValue is rendered for prices and dates that cannot be computed
const unknownValue = "-"

var priceColumns = map[string]types.Category{
	KeyMinInteriorPrice: types.CategoryInterior,
	KeyMinOutsidePrice:  types.CategoryOutside,
	KeyMinBalconyPrice:  types.CategoryBalcony,
	KeyMinSuitePrice:    types.CategoryDeluxe,
}

// CacheReader is the part of the itinerary cache the resolver reads
type CacheReader interface {
	GetByShipDate(shipCode, sailDate string) (*types.CacheEntry, bool)
	DerivedPricing(shipCode, sailDate string) (*types.PricingDerived, bool)
}

// Resolver computes column values for (offer, sailing) rows
type Resolver struct {
	Cache     CacheReader
	Estimator *pricing.Estimator
	Depth     rowstate.DepthProvider
}

// NewResolver creates a resolver. cache and depth may be nil.
func NewResolver(cache CacheReader, estimator *pricing.Estimator, depth rowstate.DepthProvider) *Resolver {
	if estimator == nil {
		estimator = pricing.NewEstimator(nil)
	}
	return &Resolver{Cache: cache, Estimator: estimator, Depth: depth}
}

// lookup returns the cache entry and derived pricing behind a sailing, if cached
func (r *Resolver) lookup(sailing *types.Sailing) (*types.CacheEntry, *types.PricingDerived) {
	if r == nil || r.Cache == nil || sailing == nil || sailing.ShipCode == "" {
		return nil, nil
	}
	entry, ok := r.Cache.GetByShipDate(sailing.ShipCode, sailing.SailDate)
	if !ok {
		return nil, nil
	}
	derived, _ := r.Cache.DerivedPricing(sailing.ShipCode, sailing.SailDate)
	return entry, derived
}

// Value returns the value of column key for a row. The result is a string, a float64,
// a []string (visits) or nil for unknown keys. Prices that cannot be computed are "-".
func (r *Resolver) Value(offer *types.Offer, sailing *types.Sailing, key string) any {
	if offer == nil {
		offer = &types.Offer{}
	}
	if sailing == nil {
		sailing = &types.Sailing{}
	}
	entry, derived := r.lookup(sailing)
	if entry == nil {
		entry = &types.CacheEntry{}
	}

	switch key {
	case KeyOfferCode:
		return offer.OfferCode
	case KeyOfferName:
		return offer.Name
	case KeyOfferDate:
		return offer.StartDate
	case KeyExpiration:
		return offer.ReserveBy
	case KeyShip:
		return firstNonEmpty(sailing.ShipName, entry.ShipName, sailing.ShipCode)
	case KeySailDate:
		return types.NormalizeSailDate(sailing.SailDate)
	case KeyDeparturePort:
		return firstNonEmpty(sailing.DeparturePort, entry.DeparturePortName)
	case KeyItinerary:
		return firstNonEmpty(sailing.ItineraryDescription, entry.ItineraryDescription)
	case KeyDestination:
		if entry.DestinationName != "" {
			return entry.DestinationName
		}
		return parser.Parse(firstNonEmpty(sailing.ItineraryDescription, entry.ItineraryDescription)).Destination
	case KeyNights:
		if n := nights(sailing, entry); n > 0 {
			return float64(n)
		}
		return unknownValue
	case KeyCategory:
		if cat, ok := pricing.ResolveCategory(offer, sailing); ok {
			return string(cat)
		}
		return firstNonEmpty(sailing.RoomType, offer.Category)
	case KeyGuests:
		return guestsLabel(r.Estimator, offer, sailing)
	case KeyMinInteriorPrice, KeyMinOutsidePrice, KeyMinBalconyPrice, KeyMinSuitePrice:
		if derived == nil {
			return unknownValue
		}
		if v := derived.Categories[priceColumns[key]]; v != nil {
			return *v
		}
		return unknownValue
	case KeyOfferValue:
		return r.Estimator.Estimate(offer, sailing, nonZeroEntry(entry), derived).Value
	case KeyTaxesAndFees:
		if derived == nil || !entry.TaxesAndFees.IsKnown() {
			return unknownValue
		}
		return derived.TaxesAndFeesDual
	case KeyEndDate:
		return endDate(sailing, entry)
	case KeyVisits:
		return entry.PortNames()
	case KeyB2BDepth:
		if r.Depth == nil {
			return float64(1)
		}
		return float64(r.Depth.Depth(types.Row{Offer: offer, Sailing: sailing}))
	}
	return nil
}

// Render returns the display string of a column value
func (r *Resolver) Render(row types.Row, key string) string {
	return FormatValue(r.Value(row.Offer, row.Sailing, key))
}

// RenderRow renders every column of headers for a row
func (r *Resolver) RenderRow(row types.Row, headers []Column) map[string]string {
	out := make(map[string]string, len(headers))
	for _, h := range headers {
		out[h.Key] = r.Render(row, h.Key)
	}
	return out
}

// FormatValue renders a Value result as text
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return unknownValue
		}
		if x == math.Trunc(x) {
			return strconv.FormatFloat(x, 'f', 0, 64)
		}
		return strconv.FormatFloat(x, 'f', 2, 64)
	case []string:
		return strings.Join(x, ", ")
	}
	return ""
}

func nonZeroEntry(e *types.CacheEntry) *types.CacheEntry {
	if e.ShipCode == "" {
		return nil
	}
	return e
}

func nights(sailing *types.Sailing, entry *types.CacheEntry) int {
	if sailing.Nights > 0 {
		return sailing.Nights
	}
	if entry.TotalNights > 0 {
		return entry.TotalNights
	}
	return parser.Parse(firstNonEmpty(sailing.ItineraryDescription, entry.ItineraryDescription)).Nights
}

// endDate is the sail date plus the number of nights
func endDate(sailing *types.Sailing, entry *types.CacheEntry) string {
	n := nights(sailing, entry)
	start, ok := parseDate(sailing.SailDate)
	if n <= 0 || !ok {
		return unknownValue
	}
	return start.AddDate(0, 0, n).Format(time.DateOnly)
}

func guestsLabel(est *pricing.Estimator, offer *types.Offer, sailing *types.Sailing) string {
	if label := firstNonEmpty(sailing.GuestsLabel, offer.GuestsLabel); label != "" {
		return label
	}
	if est.IsSingleGuest(offer, sailing) {
		return "1 Guest"
	}
	return "2 Guests"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
