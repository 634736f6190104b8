package handlers

import (
	"net/http"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
	"github.com/gin-gonic/gin"
)

type disputeHandler struct {
	coordinator portssvc.CoordinatorSvc
}

func registerDisputeRoutes(rg *gin.RouterGroup, coordinator portssvc.CoordinatorSvc) {
	h := &disputeHandler{coordinator: coordinator}
	rg.POST("/orders/:orderID/disputes", h.raise)
	rg.POST("/disputes/:disputeID/resolve", middleware.RequireRoles(domain.RoleAdmin), h.resolve)
}

// raise godoc
// @Summary Raise a dispute on a delivered order
// @Description Freezes escrow until an admin resolves the dispute.
// @Tags disputes
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   dispute body dto.RaiseDisputeRequest true "Reason"
// @Success 201 {object} domain.Dispute
// @Failure 409 {object} map[string]string "Window closed or already raised"
// @Security BearerAuth
// @Router /orders/{orderID}/disputes [post]
func (h *disputeHandler) raise(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.RaiseDisputeRequest
	if !bindJSON(c, &req) {
		return
	}
	dispute, err := h.coordinator.RaiseDispute(c.Request.Context(), actor, c.Param("orderID"), req.Reason)
	if err != nil {
		respondError(c, err, "raise dispute")
		return
	}
	c.JSON(http.StatusCreated, dispute)
}

// resolve godoc
// @Summary Resolve a dispute
// @Tags disputes
// @Accept  json
// @Produce  json
// @Param   disputeID path string true "Dispute ID"
// @Param   resolution body dto.ResolveDisputeRequest true "Resolution"
// @Success 200 {object} domain.Dispute
// @Security BearerAuth
// @Router /disputes/{disputeID}/resolve [post]
func (h *disputeHandler) resolve(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.ResolveDisputeRequest
	if !bindJSON(c, &req) {
		return
	}
	dispute, err := h.coordinator.ResolveDispute(c.Request.Context(), actor, c.Param("disputeID"), req)
	if err != nil {
		respondError(c, err, "resolve dispute")
		return
	}
	c.JSON(http.StatusOK, dispute)
}
