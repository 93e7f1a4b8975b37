package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/seaward/offer-service/internal/filter"
	"github.com/seaward/offer-service/internal/itinerary"
	"github.com/seaward/offer-service/internal/pricing"
	"github.com/seaward/offer-service/internal/rowstate"
)

// OfferHandler serves the itinerary cache, offer filtering and hidden-group endpoints
type OfferHandler struct {
	cache     *itinerary.Cache
	pipeline  *filter.Pipeline
	hidden    *filter.HiddenGroups
	estimator *pricing.Estimator
	rendered  *rowstate.Table
	logger    zerolog.Logger

	// background bounds hydrations started by ingest requests
	background context.Context
}

// Deps are the collaborators an OfferHandler needs
type Deps struct {
	Cache     *itinerary.Cache
	Pipeline  *filter.Pipeline
	Hidden    *filter.HiddenGroups
	Estimator *pricing.Estimator
	Rendered  *rowstate.Table
	Logger    *zerolog.Logger
	// Background is the parent context for hydrations that outlive a request
	Background context.Context
}

// NewOfferHandler creates a new offer handler
func NewOfferHandler(d Deps) *OfferHandler {
	if d.Logger == nil {
		nop := zerolog.Nop()
		d.Logger = &nop
	}
	if d.Estimator == nil {
		d.Estimator = pricing.NewEstimator(d.Rendered)
	}
	if d.Background == nil {
		d.Background = context.Background()
	}
	return &OfferHandler{
		cache:      d.Cache,
		pipeline:   d.Pipeline,
		hidden:     d.Hidden,
		estimator:  d.Estimator,
		rendered:   d.Rendered,
		logger:     d.Logger.With().Str("component", "offer_handler").Logger(),
		background: d.Background,
	}
}

// RegisterOfferRoutes registers every offer-service route on r
func RegisterOfferRoutes(r *gin.RouterGroup, h *OfferHandler) {
	itin := r.Group("/itinerary")
	{
		itin.GET("/stats", h.GetCacheStats)
		itin.GET("/keys", h.ListCacheKeys)
		itin.GET("/:ship/:date", h.GetSailing)
		itin.GET("/:ship/:date/pricing", h.GetDerivedPricing)
		itin.POST("/hydrate", h.Hydrate)
		itin.POST("/prune", h.Prune)
	}

	offers := r.Group("/offers")
	{
		offers.POST("/ingest", h.IngestOffers)
		offers.POST("/filter", h.FilterOffers)
		offers.POST("/value", h.EstimateValue)
		offers.GET("/hidden", h.CheckHidden)
		offers.GET("/rendered", h.RenderedRows)
	}

	hidden := r.Group("/hidden-groups")
	{
		hidden.GET("", h.ListHiddenGroups)
		hidden.POST("", h.AddHiddenGroup)
		hidden.DELETE("", h.RemoveHiddenGroup)
	}
}
