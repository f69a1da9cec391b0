package giftcards

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ledgerkeep/billing-console/pkg/common"
	"github.com/ledgerkeep/billing-console/pkg/middleware"
	"github.com/ledgerkeep/billing-console/pkg/pagination"
)

// Handler handles HTTP requests for gift cards
type Handler struct {
	service     *Service
	cache       *Cache
	coordinator *Coordinator
}

// NewHandler creates a new gift card handler
func NewHandler(service *Service, cache *Cache, coordinator *Coordinator) *Handler {
	return &Handler{
		service:     service,
		cache:       cache,
		coordinator: coordinator,
	}
}

// respondError writes an AppError with its own status, anything else as
// a 500 with the fallback message.
func respondError(c *gin.Context, err error, fallback string) {
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		common.AppErrorResponse(c, appErr)
		return
	}
	common.ErrorResponse(c, http.StatusInternalServerError, fallback)
}

// ========================================
// DASHBOARD ENDPOINTS
// ========================================

// ListGiftCards lists gift cards from the remote platform with dashboard stats
// GET /api/v1/gift-cards
func (h *Handler) ListGiftCards(c *gin.Context) {
	opts := ListOptions{
		Type:       c.Query("type"),
		State:      c.Query("state"),
		CustomerID: c.Query("customer_id"),
		Cursor:     c.Query("cursor"),
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}

	page, err := h.service.ListGiftCards(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err, "failed to list gift cards")
		return
	}

	common.SuccessResponse(c, gin.H{
		"cards":  page.Cards,
		"cursor": page.Cursor,
		"stats":  BuildStats(page.Cards),
		"sync": SyncHealth{
			LastReconciledAt: h.cache.LastReconciledAt(),
			Discrepancies:    h.cache.ListDiscrepancies(5),
		},
	})
}

// ListCachedGiftCards lists the locally cached gift cards
// GET /api/v1/gift-cards/cached
func (h *Handler) ListCachedGiftCards(c *gin.Context) {
	params := pagination.ParseParams(c)

	entries := h.cache.ListCards()
	total := int64(len(entries))

	start := params.Offset
	if start > len(entries) {
		start = len(entries)
	}
	end := start + params.Limit
	if end > len(entries) {
		end = len(entries)
	}

	meta := pagination.BuildMeta(params.Limit, params.Offset, total)
	common.SuccessResponseWithMeta(c, entries[start:end], meta)
}

// SearchGiftCard looks up a card by ID or account number
// GET /api/v1/gift-cards/search
func (h *Handler) SearchGiftCard(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		common.ErrorResponse(c, http.StatusBadRequest, "query parameter q is required")
		return
	}

	card, err := h.service.SearchGiftCard(c.Request.Context(), query)
	if err != nil {
		respondError(c, err, "failed to search gift cards")
		return
	}
	if card == nil {
		common.ErrorResponse(c, http.StatusNotFound, "no gift card matches the query")
		return
	}

	common.SuccessResponse(c, card)
}

// ListActivities lists gift card activities
// GET /api/v1/gift-cards/activities
func (h *Handler) ListActivities(c *gin.Context) {
	opts := ActivityListOptions{
		GiftCardID: c.Query("gift_card_id"),
		Type:       c.Query("type"),
		LocationID: c.Query("location_id"),
		BeginTime:  c.Query("begin_time"),
		EndTime:    c.Query("end_time"),
		Cursor:     c.Query("cursor"),
		SortOrder:  c.Query("sort_order"),
	}
	if raw := c.Query("limit"); raw != "" {
		if limit, err := strconv.Atoi(raw); err == nil && limit > 0 {
			opts.Limit = limit
		}
	}

	page, err := h.service.ListGiftCardActivities(c.Request.Context(), opts)
	if err != nil {
		respondError(c, err, "failed to list gift card activities")
		return
	}

	common.SuccessResponse(c, gin.H{
		"activities": page.Activities,
		"cursor":     page.Cursor,
	})
}

// SyncHealth reports reconciliation status and recent discrepancies
// GET /api/v1/gift-cards/sync-health
func (h *Handler) SyncHealth(c *gin.Context) {
	limit := 10
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	common.SuccessResponse(c, SyncHealth{
		LastReconciledAt: h.cache.LastReconciledAt(),
		Discrepancies:    h.cache.ListDiscrepancies(limit),
	})
}

// ========================================
// CARD LIFECYCLE ENDPOINTS
// ========================================

// IssueGiftCard creates and optionally activates a new gift card
// POST /api/v1/gift-cards/issue
func (h *Handler) IssueGiftCard(c *gin.Context) {
	var req IssueGiftCardRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	card, err := h.service.IssueGiftCard(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "failed to issue gift card")
		return
	}

	h.cache.UpsertCard(*card, SourceManual, "")
	common.SuccessResponseWithStatus(c, http.StatusCreated, card, "Gift card issued successfully")
}

// GetGiftCardDetail returns a card together with its recent activities
// GET /api/v1/gift-cards/:id
func (h *Handler) GetGiftCardDetail(c *gin.Context) {
	giftCardID := c.Param("id")

	card, err := h.service.RetrieveGiftCard(c.Request.Context(), giftCardID)
	if err != nil {
		respondError(c, err, "failed to load gift card detail")
		return
	}

	activities, err := h.service.ListGiftCardActivities(c.Request.Context(), ActivityListOptions{
		GiftCardID: giftCardID,
		Limit:      50,
	})
	if err != nil {
		respondError(c, err, "failed to load gift card activities")
		return
	}

	common.SuccessResponse(c, gin.H{
		"card":       card,
		"activities": activities.Activities,
		"cached":     h.cache.GetCard(giftCardID),
	})
}

// LoadGiftCard adds value to a gift card
// POST /api/v1/gift-cards/:id/load
func (h *Handler) LoadGiftCard(c *gin.Context) {
	giftCardID := c.Param("id")

	var req LoadGiftCardRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	if err := h.service.LoadGiftCardBalance(c.Request.Context(), giftCardID, &req); err != nil {
		respondError(c, err, "failed to load gift card")
		return
	}

	h.refreshCard(c, giftCardID)
	common.SuccessResponse(c, gin.H{"message": "gift card loaded"})
}

// BlockGiftCard blocks a gift card
// POST /api/v1/gift-cards/:id/block
func (h *Handler) BlockGiftCard(c *gin.Context) {
	giftCardID := c.Param("id")

	var req BlockGiftCardRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.service.BlockGiftCard(c.Request.Context(), giftCardID, req.Reason); err != nil {
		respondError(c, err, "failed to block gift card")
		return
	}

	h.refreshCard(c, giftCardID)
	common.SuccessResponse(c, gin.H{"message": "gift card blocked"})
}

// UnblockGiftCard lifts a block on a gift card
// POST /api/v1/gift-cards/:id/unblock
func (h *Handler) UnblockGiftCard(c *gin.Context) {
	giftCardID := c.Param("id")

	var req BlockGiftCardRequest
	_ = c.ShouldBindJSON(&req)

	if err := h.service.UnblockGiftCard(c.Request.Context(), giftCardID, req.Reason); err != nil {
		respondError(c, err, "failed to unblock gift card")
		return
	}

	h.refreshCard(c, giftCardID)
	common.SuccessResponse(c, gin.H{"message": "gift card unblocked"})
}

// AdjustGiftCard applies a manual balance adjustment
// POST /api/v1/gift-cards/:id/adjust
func (h *Handler) AdjustGiftCard(c *gin.Context) {
	giftCardID := c.Param("id")

	var req AdjustGiftCardRequest
	if !middleware.ValidateAndBind(c, &req) {
		return
	}

	if err := h.service.AdjustGiftCardBalance(c.Request.Context(), giftCardID, &req); err != nil {
		respondError(c, err, "failed to adjust gift card balance")
		return
	}

	h.refreshCard(c, giftCardID)
	common.SuccessResponse(c, gin.H{"message": "gift card balance adjusted"})
}

// SyncGiftCard refreshes a single card from the remote platform
// POST /api/v1/gift-cards/:id/sync
func (h *Handler) SyncGiftCard(c *gin.Context) {
	giftCardID := c.Param("id")

	card, err := h.coordinator.SyncCard(c.Request.Context(), giftCardID, SourceManual, "")
	if err != nil {
		respondError(c, err, "failed to sync gift card")
		return
	}

	common.SuccessResponse(c, card)
}

// ========================================
// ADMIN ENDPOINTS
// ========================================

// TriggerReconcile runs a full reconciliation on demand
// POST /api/v1/gift-cards/admin/reconcile
func (h *Handler) TriggerReconcile(c *gin.Context) {
	if err := h.coordinator.Reconcile(c.Request.Context()); err != nil {
		respondError(c, err, "reconciliation failed")
		return
	}

	common.SuccessResponse(c, SyncHealth{
		LastReconciledAt: h.cache.LastReconciledAt(),
		Discrepancies:    h.cache.ListDiscrepancies(10),
	})
}

// refreshCard re-syncs a card after a mutation so the cache reflects the
// new balance without waiting for the next webhook or reconciliation.
// Refresh failures are ignored; the next reconciliation converges the cache.
func (h *Handler) refreshCard(c *gin.Context, giftCardID string) {
	_, _ = h.coordinator.SyncCard(c.Request.Context(), giftCardID, SourceManual, "")
}
