package sailings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/seaward/offer-service/internal/http"
	"github.com/seaward/offer-service/internal/http/ratelimit"
	"github.com/seaward/offer-service/internal/types"
)

const searchFixture = `{
  "sailings": [
    {
      "sailDate": "2026-03-01",
      "ship": {"code": "OA", "name": "Oasis of the Seas"},
      "itinerary": {
        "name": "7 Night Western Caribbean",
        "type": "CRUISE",
        "destination": {"name": "Western Caribbean"},
        "departurePort": "Port Canaveral",
        "totalNights": 7,
        "days": [
          {"number": 1, "ports": [{"port": {"name": "Port Canaveral", "region": "Florida"}, "departureTime": "16:00"}]},
          {"number": 3, "ports": [{"port": {"name": "Cozumel", "region": "Mexico"}, "arrivalTime": "08:00"}]}
        ]
      },
      "stateroomClassPricing": [
        {"code": "INTERIOR", "price": {"value": 400}, "currency": "USD"},
        {"code": "BALCONY", "price": "$700.00", "currency": "USD"},
        {"code": "DELUXE", "price": null, "currency": "USD"}
      ],
      "taxesAndFees": {"amount": 120},
      "taxesAndFeesIncluded": false,
      "bookingLink": "https://example.test/book/OA/2026-03-01"
    }
  ]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	hc := apphttp.NewClient(ratelimit.Config{MaxRetries: 0, InitialBackoffMs: 1, MaxBackoffMs: 1}, 0)
	return NewClient(srv.URL+"/", hc, nil)
}

func TestClient_SearchSailings(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sailings", r.URL.Path)
		assert.Equal(t, "OA", r.URL.Query().Get("shipCode"))
		assert.Equal(t, "2026-03-01", r.URL.Query().Get("startDate"))
		assert.Equal(t, "2026-03-15", r.URL.Query().Get("endDate"))
		w.Write([]byte(searchFixture))
	})

	got, err := c.SearchSailings(context.Background(), Query{ShipCode: "OA", StartDate: "2026-03-01", EndDate: "2026-03-15"})
	require.NoError(t, err)
	require.Len(t, got, 1)

	s := got[0]
	assert.Equal(t, "SD_OA_2026-03-01", s.Key(""))
	assert.Equal(t, Name("Western Caribbean"), s.Itinerary.Destination)
	assert.Equal(t, Name("Port Canaveral"), s.Itinerary.DeparturePort)
	assert.Equal(t, 7, s.Itinerary.TotalNights)
	require.Len(t, s.Itinerary.Days, 2)
	assert.Equal(t, "Cozumel", s.Itinerary.Days[1].Ports[0].Port.Name)

	pricing := s.PricingMap()
	assert.Equal(t, types.NumericMoney(400), pricing["INTERIOR"].Price)
	assert.Equal(t, types.NumericMoney(700), pricing["BALCONY"].Price)
	assert.False(t, pricing["DELUXE"].Price.IsKnown())
	assert.Equal(t, types.NumericMoney(120), s.TaxesAndFees)
	require.NotNil(t, s.TaxesAndFeesIncluded)
	assert.False(t, *s.TaxesAndFeesIncluded)
}

func TestClient_SearchSailings_Error(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.SearchSailings(context.Background(), Query{ShipCode: "OA"})
	var fetchErr *ratelimit.FetchRetryError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusInternalServerError, fetchErr.LastStatus)
}

func TestName_UnmarshalJSON(t *testing.T) {
	var n Name
	require.NoError(t, json.Unmarshal([]byte(`"Miami"`), &n))
	assert.Equal(t, Name("Miami"), n)
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Nassau","code":"NAS"}`), &n))
	assert.Equal(t, Name("Nassau"), n)
	assert.Error(t, json.Unmarshal([]byte(`42`), &n))
}

func TestSailing_KeyFallsBackToQueriedShip(t *testing.T) {
	s := Sailing{SailDate: "2026-03-01T00:00:00Z"}
	assert.Equal(t, "SD_OA_2026-03-01", s.Key("OA"))
}
