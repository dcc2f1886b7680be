package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/storyvoice/internal/auth"
	"github.com/suPer8Hu/storyvoice/internal/common"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
	TokenHeader     = "X-User-Token"
	AdminKeyHeader  = "X-Admin-Key"
)

// Recovery turns a panic into a 500 error body and logs the stack.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(c.Request.Context(), "panic recovered",
					"err", r,
					"path", c.Request.URL.Path,
					"request_id", c.GetString(RequestIDKey),
					"stack", string(debug.Stack()),
				)
				common.Fail(c, http.StatusInternalServerError, 50000, "internal server error")
			}
		}()
		c.Next()
	}
}

// RequestID keeps an incoming request id or assigns a ULID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" || len(id) > 64 {
			id = common.MustULID()
		}
		c.Set(RequestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// BearerToken returns the caller's token from Authorization or X-User-Token.
func BearerToken(c *gin.Context) string {
	h := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return strings.TrimSpace(c.GetHeader(TokenHeader))
}

// AdminRequired checks X-Admin-Key against a bcrypt hash. An empty hash
// refuses every request.
func AdminRequired(hash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.CheckAdminKey(hash, c.GetHeader(AdminKeyHeader)) {
			common.Fail(c, http.StatusUnauthorized, 40103, "admin key required")
			return
		}
		c.Next()
	}
}
