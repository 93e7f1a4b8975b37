package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seaward/offer-service/internal/filter"
	"github.com/seaward/offer-service/internal/itinerary"
	"github.com/seaward/offer-service/internal/types"
)

// IngestRequest carries a batch of scraped offers
type IngestRequest struct {
	Offers []types.Offer `json:"offers" binding:"required"`
	// Hydrate starts a background staleness-driven hydration of the touched keys
	Hydrate bool `json:"hydrate"`
}

// IngestResponse reports what the merge did
type IngestResponse struct {
	Summary          itinerary.BuildSummary `json:"summary"`
	Keys             int                    `json:"keys"`
	HydrationStarted bool                   `json:"hydrationStarted"`
}

// FilterRequest is the display state plus the offers to filter
type FilterRequest struct {
	State  filter.State  `json:"state"`
	Offers []types.Offer `json:"offers"`
}

// RenderedRow is one row of the last filter run as the user sees it
type RenderedRow struct {
	Identity string            `json:"identity"`
	Values   map[string]string `json:"values"`
}

// FilteredRow is a surviving row with its rendered column values
type FilteredRow struct {
	Identity string            `json:"identity"`
	Row      types.Row         `json:"row"`
	Values   map[string]string `json:"values"`
}

// FilterResponse lists surviving rows in input order
type FilterResponse struct {
	Total    int           `json:"total"`
	Returned int           `json:"returned"`
	Rows     []FilteredRow `json:"rows"`
}

// ValueRequest identifies one offer row to price
type ValueRequest struct {
	Offer   types.Offer   `json:"offer"`
	Sailing types.Sailing `json:"sailing"`
}

// IngestOffers merges scraped offers into the itinerary cache
// POST /offers/ingest
func (h *OfferHandler) IngestOffers(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.cache.BuildOrUpdateFromOffers(c.Request.Context(), req.Offers)
	if err != nil {
		h.logger.Error().Err(err).Int("offers", len(req.Offers)).Msg("Failed to merge offers")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	keys := h.cache.KeysForOffers(req.Offers)
	resp := IngestResponse{Summary: summary, Keys: len(keys)}

	if req.Hydrate && len(keys) > 0 {
		resp.HydrationStarted = true
		go func() {
			report, err := h.cache.HydrateIfNeeded(h.background, keys)
			if err != nil {
				h.logger.Error().Err(err).Msg("Background hydration failed")
				return
			}
			h.logger.Info().
				Str("run_id", report.RunID).
				Bool("skipped", report.Skipped).
				Int("updated", report.Updated).
				Msg("Background hydration finished")
		}()
	}

	c.JSON(http.StatusOK, resp)
}

// FilterOffers applies hidden groups and advanced search to the submitted offers
// and records what was rendered.
// POST /offers/filter
func (h *OfferHandler) FilterOffers(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	headers := req.State.Headers
	if len(headers) == 0 {
		headers = filter.DefaultColumns
	}

	rows := types.Rows(req.Offers)
	kept := h.pipeline.FilterOffers(c.Request.Context(), req.State, rows)

	resolver := h.pipeline.Resolver()
	render := func(r types.Row) map[string]string { return resolver.RenderRow(r, headers) }
	if h.rendered != nil {
		h.rendered.Replace(kept, render)
	}

	resp := FilterResponse{
		Total:    len(rows),
		Returned: len(kept),
		Rows:     make([]FilteredRow, 0, len(kept)),
	}
	for _, r := range kept {
		resp.Rows = append(resp.Rows, FilteredRow{
			Identity: r.Identity(),
			Row:      r,
			Values:   render(r),
		})
	}
	c.JSON(http.StatusOK, resp)
}

// EstimateValue returns the offer value breakdown for one offer row
// POST /offers/value
func (h *OfferHandler) EstimateValue(c *gin.Context) {
	var req ValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var (
		entry   *types.CacheEntry
		derived *types.PricingDerived
	)
	if e, ok := h.cache.GetByShipDate(req.Sailing.ShipCode, req.Sailing.SailDate); ok {
		entry = e
		derived, _ = h.cache.DerivedPricing(req.Sailing.ShipCode, req.Sailing.SailDate)
	}

	c.JSON(http.StatusOK, h.estimator.Estimate(&req.Offer, &req.Sailing, entry, derived))
}

// CheckHidden reports the memoized hidden decision for a row identity
// GET /offers/hidden?identity=CODE|SHIP|DATE
func (h *OfferHandler) CheckHidden(c *gin.Context) {
	identity := c.Query("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "identity is required"})
		return
	}

	hidden, known := h.pipeline.IsHidden(identity)
	c.JSON(http.StatusOK, gin.H{
		"identity": identity,
		"hidden":   hidden,
		"known":    known,
	})
}

// RenderedRows lists the rows of the last filter run in render order
// GET /offers/rendered
func (h *OfferHandler) RenderedRows(c *gin.Context) {
	rows := []RenderedRow{}
	if h.rendered == nil {
		c.JSON(http.StatusOK, gin.H{"rows": rows, "total": 0})
		return
	}
	for _, id := range h.rendered.Identities() {
		if values, ok := h.rendered.Values(id); ok {
			rows = append(rows, RenderedRow{Identity: id, Values: values})
		}
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "total": len(rows)})
}
