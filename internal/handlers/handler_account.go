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

// accountHandler handles HTTP requests related to balance accounts.
type accountHandler struct {
	coordinator portssvc.CoordinatorSvc
}

// registerAccountRoutes registers routes related to accounts.
func registerAccountRoutes(rg *gin.RouterGroup, coordinator portssvc.CoordinatorSvc) {
	h := &accountHandler{coordinator: coordinator}

	accounts := rg.Group("/accounts")
	{
		accounts.GET("/me", h.getMyAccount)
		accounts.GET("/me/entries", h.listMyEntries)
		accounts.POST("/:userID/topups", middleware.RequireRoles(domain.RoleAdmin, domain.RoleSystem), h.topUp)
	}
}

// getMyAccount godoc
// @Summary Get the caller's balance account
// @Tags accounts
// @Produce  json
// @Success 200 {object} dto.AccountResponse
// @Failure 404 {object} map[string]string "No ledger activity yet"
// @Security BearerAuth
// @Router /accounts/me [get]
func (h *accountHandler) getMyAccount(c *gin.Context) {
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	acc, err := h.coordinator.GetAccount(c.Request.Context(), actor.UserID)
	if err != nil {
		respondError(c, err, "get account")
		return
	}
	c.JSON(http.StatusOK, dto.ToAccountResponse(acc))
}

// listMyEntries godoc
// @Summary List the caller's ledger entries
// @Description Newest first, paginated with an opaque token.
// @Tags accounts
// @Produce  json
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Token from the previous page"
// @Success 200 {object} dto.ListEntriesResponse
// @Failure 400 {object} map[string]string "Invalid pagination token"
// @Security BearerAuth
// @Router /accounts/me/entries [get]
func (h *accountHandler) listMyEntries(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	actor, ok := mustActor(c)
	if !ok {
		return
	}
	var params dto.ListEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListEntries", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}
	res, err := h.coordinator.ListEntries(c.Request.Context(), actor.UserID, params)
	if err != nil {
		respondError(c, err, "list ledger entries")
		return
	}
	c.JSON(http.StatusOK, res)
}

// topUp godoc
// @Summary Credit an external top-up to a wallet
// @Description Webhook: idempotent per external reference.
// @Tags accounts
// @Accept  json
// @Produce  json
// @Param   userID path string true "User ID"
// @Param   topup body dto.TopUpRequest true "Top-up"
// @Success 200 {object} domain.LedgerEntry
// @Security BearerAuth
// @Router /accounts/{userID}/topups [post]
func (h *accountHandler) topUp(c *gin.Context) {
	var req dto.TopUpRequest
	if !bindJSON(c, &req) {
		return
	}
	entry, err := h.coordinator.TopUp(c.Request.Context(), c.Param("userID"), req)
	if err != nil {
		respondError(c, err, "top up account")
		return
	}
	c.JSON(http.StatusOK, entry)
}
