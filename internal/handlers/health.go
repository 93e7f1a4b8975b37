package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seaward/offer-service/internal/database"
	"github.com/seaward/offer-service/internal/itinerary"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string           `json:"status"`
	Database string           `json:"database"`
	Cache    *itinerary.Stats `json:"cache,omitempty"`
}

// HealthCheck handles the health check endpoint
// GET /health
func (h *OfferHandler) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status: "ok",
	}

	if h.cache != nil {
		stats := h.cache.Stats()
		response.Cache = &stats
	}

	if database.Pool() != nil {
		if err := database.Status(c.Request.Context()); err != nil {
			response.Status = "degraded"
			response.Database = "disconnected"
			c.JSON(http.StatusServiceUnavailable, response)
			return
		}
		response.Database = "connected"
	} else {
		response.Database = "not configured"
	}

	c.JSON(http.StatusOK, response)
}
