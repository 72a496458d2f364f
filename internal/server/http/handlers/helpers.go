package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	domainErrors "github.com/polkiloo/reviewmart/internal/domain/errors"
	"github.com/polkiloo/reviewmart/internal/domain/model"
	"github.com/polkiloo/reviewmart/internal/server/http/dto"
	"github.com/polkiloo/reviewmart/internal/server/http/middleware"
)

// CurrentOperatorID extracts authenticated operator identifier from context.
func CurrentOperatorID(c *gin.Context) int64 {
	val, ok := c.Get(middleware.OperatorIDContextKey)
	if !ok {
		return 0
	}
	id, _ := val.(int64)
	return id
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid " + name, Field: name})
		return 0, false
	}
	return id, true
}

// bindOptionalJSON accepts an empty body and leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed body"})
		return false
	}
	return true
}

func writeError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Set(middleware.OutcomeContextKey, "error")
	var validation *domainErrors.ValidationError
	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error(), Field: validation.Field})
	case errors.Is(err, domainErrors.ErrValidation):
		c.JSON(http.StatusUnprocessableEntity, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domainErrors.ErrAlreadyProcessed):
		c.Set(middleware.OutcomeContextKey, string(model.OutcomeNoop))
		c.JSON(http.StatusOK, dto.ResultResponse{Outcome: string(model.OutcomeNoop)})
	case errors.Is(err, domainErrors.ErrInvalidTransition), errors.Is(err, domainErrors.ErrAlreadyExists):
		c.JSON(http.StatusConflict, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domainErrors.ErrInsufficientBalance):
		c.JSON(http.StatusPaymentRequired, dto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, domainErrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal error"})
	}
}

// writeResult answers 202 for partial failures so the caller retries.
func writeResult(c *gin.Context, status int, res *model.Result) {
	c.Set(middleware.OutcomeContextKey, string(res.Outcome))
	if res.Retryable() {
		status = http.StatusAccepted
	} else if res.Outcome == model.OutcomeNoop {
		status = http.StatusOK
	}
	c.JSON(status, dto.NewResultResponse(res))
}
