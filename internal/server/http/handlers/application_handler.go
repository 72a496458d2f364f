package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/server/http/dto"
)

// ApplicationHandler manages application endpoints.
type ApplicationHandler struct {
	facade ApplicationFacade
}

// NewApplicationHandler constructs ApplicationHandler.
func NewApplicationHandler(facade ApplicationFacade) *ApplicationHandler {
	return &ApplicationHandler{facade: facade}
}

// Create handles POST /api/applications.
func (h *ApplicationHandler) Create(c *gin.Context) {
	var req dto.CreateApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}
	app, err := h.facade.CreateApplication(c.Request.Context(), req.UserID, req.CampaignID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.NewApplicationResponse(app))
}

// Get handles GET /api/applications/:id.
func (h *ApplicationHandler) Get(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	app, err := h.facade.Application(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewApplicationResponse(app))
}

// ListByUser handles GET /api/users/:id/applications.
func (h *ApplicationHandler) ListByUser(c *gin.Context) {
	userID, ok := pathID(c, "id")
	if !ok {
		return
	}
	apps, err := h.facade.Applications(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	if len(apps) == 0 {
		c.Status(http.StatusNoContent)
		return
	}
	resp := make([]*dto.ApplicationResponse, 0, len(apps))
	for i := range apps {
		resp = append(resp, dto.NewApplicationResponse(&apps[i]))
	}
	c.JSON(http.StatusOK, resp)
}

// Transition handles POST /api/applications/:id/transitions.
func (h *ApplicationHandler) Transition(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return
	}
	target, err := model.ParseApplicationStatus(req.Target)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error(), Field: "target"})
		return
	}

	tc := model.TransitionContext{
		Reason:      req.Reason,
		ContentRefs: req.ContentRefs,
		OperatorID:  CurrentOperatorID(c),
	}
	res, err := h.facade.Advance(c.Request.Context(), id, target, tc)
	if err != nil {
		writeError(c, err)
		return
	}
	writeResult(c, http.StatusOK, res)
}

// Archive handles POST /api/applications/:id/archive.
func (h *ApplicationHandler) Archive(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.facade.ArchiveApplication(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
