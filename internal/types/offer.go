package types

import "strings"

// Offer is one scraped promotional offer with the sailings it can be redeemed on
type Offer struct {
	OfferCode   string    `json:"offerCode"`
	Name        string    `json:"name"`
	Category    string    `json:"category,omitempty"`    // offer-level room category, e.g. "Balcony"
	Occupancy   int       `json:"occupancy,omitempty"`   // guests covered, 0 when not stated
	GuestsLabel string    `json:"guestsLabel,omitempty"` // e.g. "1 Guest Interior"
	IsGOBO      bool      `json:"isGOBO,omitempty"`
	StartDate   string    `json:"startDate,omitempty"`
	ReserveBy   string    `json:"reserveBy,omitempty"`
	TradeIn     Money     `json:"tradeInValue"`
	Sailings    []Sailing `json:"sailings"`
}

// Sailing is one (ship, sail date) an offer applies to, as scraped
type Sailing struct {
	ShipCode             string `json:"shipCode"`
	ShipName             string `json:"shipName,omitempty"`
	SailDate             string `json:"sailDate"`
	RoomType             string `json:"roomType,omitempty"`
	ItineraryDescription string `json:"itineraryDescription,omitempty"`
	DeparturePort        string `json:"departurePort,omitempty"`
	Nights               int    `json:"nights,omitempty"`
	GuestCount           int    `json:"guestCount,omitempty"`
	GuestsLabel          string `json:"guestsLabel,omitempty"`
	IsGOBO               bool   `json:"isGOBO,omitempty"`
}

// Row is a single (offer, sailing) pair as shown in the offers table
type Row struct {
	Offer   *Offer   `json:"offer"`
	Sailing *Sailing `json:"sailing"`
}

// Rows flattens offers into one row per sailing, keeping source order
func Rows(offers []Offer) []Row {
	rows := make([]Row, 0, len(offers))
	for i := range offers {
		o := &offers[i]
		for j := range o.Sailings {
			rows = append(rows, Row{Offer: o, Sailing: &o.Sailings[j]})
		}
	}
	return rows
}

// NormalizeSailDate trims a scraped date or timestamp down to YYYY-MM-DD
func NormalizeSailDate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

// RowIdentity returns "offerCode|ship|sailDate" where ship is the ship code, or the
// ship name when no code was scraped.
func RowIdentity(offer *Offer, sailing *Sailing) string {
	var code, ship, date string
	if offer != nil {
		code = offer.OfferCode
	}
	if sailing != nil {
		ship = sailing.ShipCode
		if ship == "" {
			ship = sailing.ShipName
		}
		date = NormalizeSailDate(sailing.SailDate)
	}
	return code + "|" + ship + "|" + date
}

// Identity returns the row's RowIdentity
func (r Row) Identity() string {
	return RowIdentity(r.Offer, r.Sailing)
}
