package handlers

import (
	"net/http"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/gin-gonic/gin"
)

// dispatchHandler handles rider assignment and delivery execution.
type dispatchHandler struct {
	coordinator portssvc.CoordinatorSvc
}

func registerDispatchRoutes(rg *gin.RouterGroup, coordinator portssvc.CoordinatorSvc) {
	h := &dispatchHandler{coordinator: coordinator}

	order := rg.Group("/orders/:orderID")
	{
		order.POST("/dispatch", h.dispatchOrder)
		order.POST("/pickup-proof", h.uploadProof(domain.ProofPickup))
		order.POST("/picked-up", h.markPickedUp)
		order.POST("/delivery-proof", h.uploadProof(domain.ProofDelivery))
		order.POST("/delivered", h.markDelivered)
	}

	offers := rg.Group("/offers")
	{
		offers.POST("/:offerID/accept", h.acceptOffer)
		offers.POST("/:offerID/decline", h.declineOffer)
	}
}

// dispatchOrder godoc
// @Summary Open a dispatch job for an order
// @Tags dispatch
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   dispatch body dto.DispatchOrderRequest false "Purpose (delivery by default)"
// @Success 200 {object} domain.DispatchJob
// @Failure 409 {object} map[string]string "Payment not captured or order paused"
// @Security BearerAuth
// @Router /orders/{orderID}/dispatch [post]
func (h *dispatchHandler) dispatchOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.DispatchOrderRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	purpose := req.Purpose
	if purpose == "" {
		purpose = domain.PurposeDelivery
	}
	job, err := h.coordinator.DispatchOrder(c.Request.Context(), actor, c.Param("orderID"), purpose)
	if err != nil {
		respondError(c, err, "dispatch order")
		return
	}
	c.JSON(http.StatusOK, job)
}

// acceptOffer godoc
// @Summary Accept a dispatch offer
// @Description Exactly one rider wins a job; later acceptances fail with 409.
// @Tags dispatch
// @Produce  json
// @Param   offerID path string true "Offer ID"
// @Success 200 {object} domain.DispatchJob
// @Failure 409 {object} map[string]string "Job already assigned"
// @Security BearerAuth
// @Router /offers/{offerID}/accept [post]
func (h *dispatchHandler) acceptOffer(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	job, err := h.coordinator.AcceptOffer(c.Request.Context(), actor, c.Param("offerID"))
	if err != nil {
		respondError(c, err, "accept offer")
		return
	}
	c.JSON(http.StatusOK, job)
}

// declineOffer godoc
// @Summary Decline a dispatch offer
// @Tags dispatch
// @Produce  json
// @Param   offerID path string true "Offer ID"
// @Success 200 {object} domain.DispatchOffer
// @Security BearerAuth
// @Router /offers/{offerID}/decline [post]
func (h *dispatchHandler) declineOffer(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	offer, err := h.coordinator.DeclineOffer(c.Request.Context(), actor, c.Param("offerID"))
	if err != nil {
		respondError(c, err, "decline offer")
		return
	}
	c.JSON(http.StatusOK, offer)
}

// uploadProof godoc
// @Summary Upload a pickup or delivery proof
// @Tags dispatch
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   proof body dto.ProofRequest true "Proof"
// @Success 201 {object} domain.DeliveryProof
// @Security BearerAuth
// @Router /orders/{orderID}/pickup-proof [post]
// @Router /orders/{orderID}/delivery-proof [post]
func (h *dispatchHandler) uploadProof(kind domain.ProofKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := mustActor(c)
		if !ok {
			return
		}
		var req dto.ProofRequest
		if !bindJSON(c, &req) {
			return
		}
		proof, err := h.coordinator.UploadProof(c.Request.Context(), actor, c.Param("orderID"), kind, req)
		if err != nil {
			respondError(c, err, "upload "+string(kind)+" proof")
			return
		}
		c.JSON(http.StatusCreated, proof)
	}
}

// markPickedUp godoc
// @Summary Mark an order as picked up
// @Tags dispatch
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} map[string]string "Missing pickup proof"
// @Security BearerAuth
// @Router /orders/{orderID}/picked-up [post]
func (h *dispatchHandler) markPickedUp(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	order, err := h.coordinator.MarkPickedUp(c.Request.Context(), actor, c.Param("orderID"))
	if err != nil {
		respondError(c, err, "mark picked up")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// markDelivered godoc
// @Summary Mark an order as delivered
// @Tags dispatch
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   otp body dto.MarkDeliveredRequest false "Delivery OTP when required"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} map[string]string "Invalid OTP"
// @Security BearerAuth
// @Router /orders/{orderID}/delivered [post]
func (h *dispatchHandler) markDelivered(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.MarkDeliveredRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	order, err := h.coordinator.MarkDelivered(c.Request.Context(), actor, c.Param("orderID"), req.OTP)
	if err != nil {
		respondError(c, err, "mark delivered")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}
