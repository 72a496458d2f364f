package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/reviewmart/internal/server/http/dto"
)

// LedgerHandler manages balance and ledger endpoints.
type LedgerHandler struct {
	facade LedgerFacade
}

// NewLedgerHandler constructs LedgerHandler.
func NewLedgerHandler(facade LedgerFacade) *LedgerHandler {
	return &LedgerHandler{facade: facade}
}

// Balance handles GET /api/users/:id/balance.
func (h *LedgerHandler) Balance(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	balance, err := h.facade.Balance(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewBalanceResponse(balance))
}

// History handles GET /api/users/:id/ledger?limit=N.
func (h *LedgerHandler) History(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid limit", Field: "limit"})
			return
		}
		limit = n
	}

	entries, err := h.facade.History(c.Request.Context(), userID, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(entries) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	resp := make([]*dto.LedgerEntryResponse, 0, len(entries))
	for i := range entries {
		resp = append(resp, dto.NewLedgerEntryResponse(&entries[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Reverse handles POST /api/ledger/:id/reverse.
func (h *LedgerHandler) Reverse(c *gin.Context) {
	entryID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.ReverseRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	entry, created, err := h.facade.ReverseEntry(c.Request.Context(), entryID, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.NewLedgerEntryResponse(entry))
}
