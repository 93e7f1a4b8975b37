package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/seaward/offer-service/internal/filter"
)

// HiddenGroupRequest carries one "Label:Value" rule
type HiddenGroupRequest struct {
	Rule string `json:"rule" binding:"required"`
}

// ListHiddenGroups returns the stored rules in insertion order
// GET /hidden-groups
func (h *OfferHandler) ListHiddenGroups(c *gin.Context) {
	if err := h.hidden.EnsureLoaded(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rules := h.hidden.List()
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.String()
	}
	c.JSON(http.StatusOK, gin.H{
		"rules": out,
		"total": len(out),
	})
}

// AddHiddenGroup stores a new rule
// POST /hidden-groups
func (h *OfferHandler) AddHiddenGroup(c *gin.Context) {
	var req HiddenGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	added, err := h.hidden.Add(c.Request.Context(), req.Rule)
	if err != nil {
		h.hiddenError(c, err)
		return
	}

	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"rule": req.Rule, "added": added})
}

// RemoveHiddenGroup deletes a rule
// DELETE /hidden-groups
func (h *OfferHandler) RemoveHiddenGroup(c *gin.Context) {
	var req HiddenGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	removed, err := h.hidden.Remove(c.Request.Context(), req.Rule)
	if err != nil {
		h.hiddenError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rule": req.Rule, "removed": true})
}

func (h *OfferHandler) hiddenError(c *gin.Context, err error) {
	if errors.Is(err, filter.ErrInvalidRule) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error().Err(err).Msg("Hidden group update failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
