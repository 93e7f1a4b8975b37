package sailings

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	apphttp "github.com/seaward/offer-service/internal/http"
)

var tracer = otel.Tracer("offer-service.sailings")

// searchResponse is the envelope returned by the search endpoint
type searchResponse struct {
	Sailings []Sailing `json:"sailings"`
}

// Client searches sailings over HTTP
type Client struct {
	baseURL string
	http    *apphttp.Client
	logger  zerolog.Logger
}

// NewClient creates a search client against baseURL
func NewClient(baseURL string, httpClient *apphttp.Client, logger *zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = apphttp.NewClientDefault()
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger.With().Str("component", "sailings_client").Logger(),
	}
}

// SearchSailings runs one date-range query for a ship
func (c *Client) SearchSailings(ctx context.Context, q Query) ([]Sailing, error) {
	ctx, span := tracer.Start(ctx, "SearchSailings")
	defer span.End()
	span.SetAttributes(
		attribute.String("ship_code", q.ShipCode),
		attribute.String("start_date", q.StartDate),
		attribute.String("end_date", q.EndDate),
	)

	params := url.Values{}
	params.Set("shipCode", q.ShipCode)
	params.Set("startDate", q.StartDate)
	params.Set("endDate", q.EndDate)
	endpoint := c.baseURL + "/sailings?" + params.Encode()

	var resp searchResponse
	if err := c.http.GetJSON(ctx, endpoint, &resp); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("search sailings for %s: %w", q.ShipCode, err)
	}

	span.SetAttributes(attribute.Int("sailings", len(resp.Sailings)))
	c.logger.Debug().
		Str("ship_code", q.ShipCode).
		Str("start_date", q.StartDate).
		Str("end_date", q.EndDate).
		Int("sailings", len(resp.Sailings)).
		Msg("Sailing search completed")

	return resp.Sailings, nil
}
