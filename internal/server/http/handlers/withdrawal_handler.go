package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/server/http/dto"
)

// WithdrawalHandler manages withdrawal endpoints.
type WithdrawalHandler struct {
	facade WithdrawalFacade
}

// NewWithdrawalHandler constructs WithdrawalHandler.
func NewWithdrawalHandler(facade WithdrawalFacade) *WithdrawalHandler {
	return &WithdrawalHandler{facade: facade}
}

// Request handles POST /api/withdrawals.
func (h *WithdrawalHandler) Request(c *gin.Context) {
	var req dto.WithdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}
	res, err := h.facade.RequestWithdrawal(c.Request.Context(), req.UserID, req.Points, req.Destination)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusCreated, res)
}

// Get handles GET /api/withdrawals/:id.
func (h *WithdrawalHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	w, err := h.facade.Withdrawal(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewWithdrawalResponse(w))
}

// ListByUser handles GET /api/users/:id/withdrawals.
func (h *WithdrawalHandler) ListByUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	withdrawals, err := h.facade.Withdrawals(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(withdrawals) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	resp := make([]*dto.WithdrawalResponse, 0, len(withdrawals))
	for i := range withdrawals {
		resp = append(resp, dto.NewWithdrawalResponse(&withdrawals[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Approve handles POST /api/withdrawals/:id/approve.
func (h *WithdrawalHandler) Approve(c *gin.Context) {
	h.decide(c, h.facade.ApproveWithdrawal)
}

// Reject handles POST /api/withdrawals/:id/reject.
func (h *WithdrawalHandler) Reject(c *gin.Context) {
	h.decide(c, h.facade.RejectWithdrawal)
}

// Complete handles POST /api/withdrawals/:id/complete.
func (h *WithdrawalHandler) Complete(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := h.facade.CompleteWithdrawal(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

func (h *WithdrawalHandler) decide(c *gin.Context, fn func(context.Context, int64, string) (*model.Result, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	res, err := fn(c.Request.Context(), id, req.AdminNote)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}
