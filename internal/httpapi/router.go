package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/storyvoice/internal/common"
	"github.com/suPer8Hu/storyvoice/internal/httpapi/handlers"
	"github.com/suPer8Hu/storyvoice/internal/httpapi/middleware"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	r.GET("/", h.Health)
	r.GET("/health", h.Health)

	// voice platform
	r.POST("/alexa", h.Alexa)

	// telemetry
	r.POST("/telemetry", h.Ingest)
	r.PUT("/sessions/:id/close", h.CloseSession)
	r.GET("/sessions/:id/summary", h.SessionSummary)

	// tokens
	r.POST("/identify", h.Identify)
	r.GET("/reminders", h.ListReminders)

	admin := r.Group("/admin")
	admin.Use(middleware.AdminRequired(h.Cfg.AdminKeyHash))
	admin.POST("/sync-chapters", h.SyncChapters)
	return r
}
