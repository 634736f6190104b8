package handlers

import (
	"log/slog"
	"net/http"

	"github.com/SscSPs/fulfillment_coordinator/internal/core/domain"
	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/SscSPs/fulfillment_coordinator/internal/middleware"
	"github.com/gin-gonic/gin"
)

// orderHandler handles HTTP requests related to the order lifecycle.
type orderHandler struct {
	coordinator portssvc.CoordinatorSvc
}

func newOrderHandler(coordinator portssvc.CoordinatorSvc) *orderHandler {
	return &orderHandler{coordinator: coordinator}
}

// registerOrderRoutes registers routes related to orders.
func registerOrderRoutes(rg *gin.RouterGroup, coordinator portssvc.CoordinatorSvc) {
	h := newOrderHandler(coordinator)

	orders := rg.Group("/orders")
	{
		orders.POST("", h.placeOrder)
		orders.GET("/:orderID", h.getOrder)
		orders.GET("/:orderID/timeline", h.getTimeline)
		orders.POST("/:orderID/payment-confirmations",
			middleware.RequireRoles(domain.RoleAdmin, domain.RoleSystem), h.confirmPayment)
		orders.POST("/:orderID/accept", h.acceptOrder)
		orders.POST("/:orderID/confirm", h.confirmDelivery)
		orders.POST("/:orderID/cancel", h.cancelOrder)
		orders.POST("/:orderID/pause", middleware.RequireRoles(domain.RoleAdmin), h.pauseOrder)
	}
}

// placeOrder godoc
// @Summary Place an order
// @Description Reserves stock and freezes the monetary breakdown of a new order
// @Tags orders
// @Accept  json
// @Produce  json
// @Param   order body dto.PlaceOrderRequest true "Order details"
// @Success 201 {object} dto.OrderResponse
// @Failure 400 {object} map[string]string "Invalid input format or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Out of stock"
// @Failure 500 {object} map[string]string "Failed to place order"
// @Security BearerAuth
// @Router /orders [post]
func (h *orderHandler) placeOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.coordinator.PlaceOrder(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err, "place order")
		return
	}

	middleware.GetLoggerFromCtx(c.Request.Context()).Info("Order placed", slog.String("order_id", order.OrderID))
	c.JSON(http.StatusCreated, dto.ToOrderResponse(order))
}

// getOrder godoc
// @Summary Get an order
// @Tags orders
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 403 {object} map[string]string "Not a party to the order"
// @Failure 404 {object} map[string]string "Order not found"
// @Security BearerAuth
// @Router /orders/{orderID} [get]
func (h *orderHandler) getOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	order, err := h.coordinator.GetOrder(c.Request.Context(), actor, c.Param("orderID"))
	if err != nil {
		respondError(c, err, "get order")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// getTimeline godoc
// @Summary Get the status and workflow history of an order
// @Tags orders
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Success 200 {object} dto.TimelineResponse
// @Failure 404 {object} map[string]string "Order not found"
// @Security BearerAuth
// @Router /orders/{orderID}/timeline [get]
func (h *orderHandler) getTimeline(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	timeline, err := h.coordinator.GetTimeline(c.Request.Context(), actor, c.Param("orderID"))
	if err != nil {
		respondError(c, err, "get timeline")
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// confirmPayment godoc
// @Summary Confirm an external payment capture
// @Description Webhook: credits the buyer and moves the funds into escrow. Idempotent.
// @Tags orders
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   payment body dto.PaymentConfirmationRequest true "Capture details"
// @Success 200 {object} dto.OrderResponse
// @Failure 400 {object} map[string]string "Amount does not match"
// @Failure 409 {object} map[string]string "Order not payable"
// @Security BearerAuth
// @Router /orders/{orderID}/payment-confirmations [post]
func (h *orderHandler) confirmPayment(c *gin.Context) {
	var req dto.PaymentConfirmationRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.coordinator.ConfirmPayment(c.Request.Context(), c.Param("orderID"), req)
	if err != nil {
		respondError(c, err, "confirm payment")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// acceptOrder godoc
// @Summary Seller accepts a paid order
// @Tags orders
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Security BearerAuth
// @Router /orders/{orderID}/accept [post]
func (h *orderHandler) acceptOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	order, err := h.coordinator.AcceptOrder(c.Request.Context(), actor, c.Param("orderID"))
	if err != nil {
		respondError(c, err, "accept order")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// confirmDelivery godoc
// @Summary Buyer confirms delivery and releases escrow
// @Tags orders
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Security BearerAuth
// @Router /orders/{orderID}/confirm [post]
func (h *orderHandler) confirmDelivery(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	order, err := h.coordinator.ConfirmDelivery(c.Request.Context(), actor, c.Param("orderID"))
	if err != nil {
		respondError(c, err, "confirm delivery")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// cancelOrder godoc
// @Summary Cancel an order
// @Description Buyers and sellers cancel before the dispatch trigger; riders abandon their assignment.
// @Tags orders
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   cancel body dto.CancelOrderRequest true "Reason"
// @Success 200 {object} dto.OrderResponse
// @Failure 409 {object} map[string]string "Not cancellable"
// @Security BearerAuth
// @Router /orders/{orderID}/cancel [post]
func (h *orderHandler) cancelOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.CancelOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.coordinator.Cancel(c.Request.Context(), actor, c.Param("orderID"), req.Reason)
	if err != nil {
		respondError(c, err, "cancel order")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// pauseOrder godoc
// @Summary Pause or resume an order
// @Tags orders
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   pause body dto.PauseOrderRequest true "Pause flag"
// @Success 200 {object} dto.OrderResponse
// @Security BearerAuth
// @Router /orders/{orderID}/pause [post]
func (h *orderHandler) pauseOrder(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.PauseOrderRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.coordinator.SetAdminPause(c.Request.Context(), actor, c.Param("orderID"), req.Paused, req.Reason)
	if err != nil {
		respondError(c, err, "pause order")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}
