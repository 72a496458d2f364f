package middleware

import (
	"compress/gzip"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/reviewmart/internal/server/http/dto"
)

// DecompressRequest inflates gzip request bodies, capping the inflated size
// at limit bytes. Other content codings are refused.
func DecompressRequest(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		coding := strings.ToLower(strings.TrimSpace(c.GetHeader("Content-Encoding")))
		switch coding {
		case "", "identity":
			c.Next()
			return
		case "gzip", "x-gzip":
		default:
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType,
				dto.ErrorResponse{Error: "unsupported content encoding " + coding})
			return
		}

		compressed := c.Request.Body
		defer compressed.Close()
		inflated, err := gzip.NewReader(compressed)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{Error: "malformed gzip body"})
			return
		}
		defer inflated.Close()

		c.Request.Body = http.MaxBytesReader(c.Writer, inflated, limit)
		c.Request.ContentLength = -1
		c.Request.Header.Del("Content-Encoding")
		c.Next()
	}
}
