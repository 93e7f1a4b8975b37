package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seaward/offer-service/internal/itinerary"
	"github.com/seaward/offer-service/internal/types"
)

// HydrateRequest selects cache keys to refresh. Empty Keys means every entry.
type HydrateRequest struct {
	Keys  []string `json:"keys"`
	Force bool     `json:"force"`
}

// SailingResponse is one cache entry with its derived pricing
type SailingResponse struct {
	Entry   *types.CacheEntry     `json:"entry"`
	Derived *types.PricingDerived `json:"derived,omitempty"`
}

// GetCacheStats returns cache counters
// GET /itinerary/stats
func (h *OfferHandler) GetCacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.cache.Stats())
}

// ListCacheKeys returns every composite key in the cache
// GET /itinerary/keys
func (h *OfferHandler) ListCacheKeys(c *gin.Context) {
	keys := h.cache.Keys()
	c.JSON(http.StatusOK, gin.H{
		"keys":  keys,
		"total": len(keys),
	})
}

// GetSailing returns the cache entry for one ship and sail date
// GET /itinerary/:ship/:date
func (h *OfferHandler) GetSailing(c *gin.Context) {
	ship := c.Param("ship")
	date := c.Param("date")

	entry, ok := h.cache.GetByShipDate(ship, date)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "sailing not cached"})
		return
	}

	derived, _ := h.cache.DerivedPricing(ship, date)
	c.JSON(http.StatusOK, SailingResponse{Entry: entry, Derived: derived})
}

// GetDerivedPricing returns only the derived pricing of one sailing
// GET /itinerary/:ship/:date/pricing
func (h *OfferHandler) GetDerivedPricing(c *gin.Context) {
	derived, ok := h.cache.DerivedPricing(c.Param("ship"), c.Param("date"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no pricing for sailing"})
		return
	}
	c.JSON(http.StatusOK, derived)
}

// Hydrate refreshes cache entries from the sailing search API.
// A hydration already in flight yields a skipped report with 202.
// POST /itinerary/hydrate
func (h *OfferHandler) Hydrate(c *gin.Context) {
	var req HydrateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var (
		report itinerary.HydrationReport
		err    error
	)
	if req.Force {
		report, err = h.cache.HydrateAlways(c.Request.Context(), req.Keys)
	} else {
		report, err = h.cache.HydrateIfNeeded(c.Request.Context(), req.Keys)
	}
	if err != nil {
		h.logger.Error().Err(err).Str("mode", report.Mode).Msg("Hydration failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	status := http.StatusOK
	if report.Skipped {
		status = http.StatusAccepted
	}
	c.JSON(status, report)
}

// Prune removes entries that no longer carry any offer code
// POST /itinerary/prune
func (h *OfferHandler) Prune(c *gin.Context) {
	removed, err := h.cache.PruneNoOffers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}
