package handlers

import (
	"net/http"

	portssvc "github.com/SscSPs/fulfillment_coordinator/internal/core/ports/services"
	"github.com/SscSPs/fulfillment_coordinator/internal/dto"
	"github.com/gin-gonic/gin"
)

// workflowHandler handles service-order workflow and quote requests.
type workflowHandler struct {
	coordinator portssvc.CoordinatorSvc
}

func registerWorkflowRoutes(rg *gin.RouterGroup, coordinator portssvc.CoordinatorSvc) {
	h := &workflowHandler{coordinator: coordinator}

	order := rg.Group("/orders/:orderID")
	{
		order.POST("/workflow/start", h.start)
		order.POST("/workflow/advance", h.advance)
		order.GET("/workflow/next-steps", h.nextSteps)
		order.POST("/quote", h.sendQuote)
		order.POST("/quote/approve", h.approveQuote)
		order.POST("/quote/reject", h.rejectQuote)
	}
}

// start godoc
// @Summary Start the workflow of a service order
// @Tags workflow
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   eta body dto.StartWorkflowRequest false "Optional ETA"
// @Success 200 {object} dto.OrderResponse
// @Security BearerAuth
// @Router /orders/{orderID}/workflow/start [post]
func (h *workflowHandler) start(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.StartWorkflowRequest
	if c.Request.ContentLength > 0 && !bindJSON(c, &req) {
		return
	}
	order, err := h.coordinator.StartWorkflow(c.Request.Context(), actor, c.Param("orderID"), req.ETA())
	if err != nil {
		respondError(c, err, "start workflow")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// advance godoc
// @Summary Move a service order to the next workflow step
// @Tags workflow
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   step body dto.AdvanceWorkflowRequest true "Target step"
// @Success 200 {object} dto.OrderResponse
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Security BearerAuth
// @Router /orders/{orderID}/workflow/advance [post]
func (h *workflowHandler) advance(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.AdvanceWorkflowRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.coordinator.AdvanceWorkflow(c.Request.Context(), actor, c.Param("orderID"), req.ToStepKey, req.ETA())
	if err != nil {
		respondError(c, err, "advance workflow")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// nextSteps godoc
// @Summary List the steps reachable from the current one
// @Tags workflow
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Success 200 {array} dto.StepResponse
// @Security BearerAuth
// @Router /orders/{orderID}/workflow/next-steps [get]
func (h *workflowHandler) nextSteps(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	steps, err := h.coordinator.NextSteps(c.Request.Context(), actor, c.Param("orderID"))
	if err != nil {
		respondError(c, err, "list next steps")
		return
	}
	c.JSON(http.StatusOK, dto.ToStepResponses(steps))
}

// sendQuote godoc
// @Summary Send a repair quote
// @Tags quotes
// @Accept  json
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Param   quote body dto.SendQuoteRequest true "Quote"
// @Success 200 {object} dto.OrderResponse
// @Security BearerAuth
// @Router /orders/{orderID}/quote [post]
func (h *workflowHandler) sendQuote(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var req dto.SendQuoteRequest
	if !bindJSON(c, &req) {
		return
	}
	order, err := h.coordinator.SendQuote(c.Request.Context(), actor, c.Param("orderID"), req.Amount, req.Note)
	if err != nil {
		respondError(c, err, "send quote")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// approveQuote godoc
// @Summary Approve a repair quote and pay it from the wallet
// @Tags quotes
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Failure 422 {object} map[string]string "Insufficient funds"
// @Security BearerAuth
// @Router /orders/{orderID}/quote/approve [post]
func (h *workflowHandler) approveQuote(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	order, err := h.coordinator.ApproveQuote(c.Request.Context(), actor, c.Param("orderID"))
	if err != nil {
		respondError(c, err, "approve quote")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}

// rejectQuote godoc
// @Summary Reject a repair quote
// @Tags quotes
// @Produce  json
// @Param   orderID path string true "Order ID"
// @Success 200 {object} dto.OrderResponse
// @Security BearerAuth
// @Router /orders/{orderID}/quote/reject [post]
func (h *workflowHandler) rejectQuote(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	order, err := h.coordinator.RejectQuote(c.Request.Context(), actor, c.Param("orderID"))
	if err != nil {
		respondError(c, err, "reject quote")
		return
	}
	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}
