package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/server/http/dto"
)

// ReconciliationHandler exposes discrepancy scans and repairs.
type ReconciliationHandler struct {
	facade ReconciliationFacade
}

// NewReconciliationHandler constructs ReconciliationHandler.
func NewReconciliationHandler(facade ReconciliationFacade) *ReconciliationHandler {
	return &ReconciliationHandler{facade: facade}
}

// Discrepancies handles GET /api/reconciliation/discrepancies.
func (h *ReconciliationHandler) Discrepancies(c *gin.Context) {
	found, err := h.facade.ScanDiscrepancies(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	if len(found) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, found)
}

// Repair handles POST /api/reconciliation/repair. A discrepancy body repairs
// that one item; an empty body runs a full scan and repair pass.
func (h *ReconciliationHandler) Repair(c *gin.Context) {
	var d model.Discrepancy
	if !bindOptionalJSON(c, &d) {
		return
	}
	if d.Kind == "" {
		report, err := h.facade.Reconcile(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.NewSweepReportResponse(report))
		return
	}

	res, err := h.facade.RepairDiscrepancy(c.Request.Context(), d)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}
