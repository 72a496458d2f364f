package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// OutcomeContextKey holds the outcome a handler reported for the request.
const OutcomeContextKey = "outcome"

// RequestLogger writes one line per request naming the acting operator and
// the reported outcome. 5xx responses are logged at error level.
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()
		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(started)),
		}
		if operatorID := c.GetInt64(OperatorIDContextKey); operatorID > 0 {
			attrs = append(attrs, slog.Int64("operator_id", operatorID))
		}
		if outcome := c.GetString(OutcomeContextKey); outcome != "" {
			attrs = append(attrs, slog.String("outcome", outcome))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.Last().Error()))
		}

		level := slog.LevelInfo
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.Request.Context(), level, "operator request", attrs...)
	}
}
