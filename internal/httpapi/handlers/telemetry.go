package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/storyvoice/internal/common"
	"github.com/suPer8Hu/storyvoice/internal/httpapi/middleware"
	"github.com/suPer8Hu/storyvoice/internal/telemetry"
)

func (h *Handler) Ingest(c *gin.Context) {
	p, err := telemetry.DecodePayload(c.Request.Body)
	if err != nil {
		writeError(c, err)
		return
	}
	res, err := h.Telemetry.Process(c.Request.Context(), p, middleware.BearerToken(c))
	if err != nil {
		writeError(c, err)
		return
	}
	slog.InfoContext(c.Request.Context(), "telemetry ingested",
		"session_id", res.SessionID,
		"decisions", res.DecisionsInserted,
		"clinical_mappings", res.ClinicalMappingsInserted,
	)
	common.OK(c, http.StatusOK, res)
}

func (h *Handler) CloseSession(c *gin.Context) {
	var req telemetry.CloseRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		common.Fail(c, http.StatusBadRequest, 40001, "invalid json")
		return
	}
	sess, err := h.Telemetry.Close(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, http.StatusOK, sess)
}

func (h *Handler) SessionSummary(c *gin.Context) {
	sum, err := h.Telemetry.Summary(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, http.StatusOK, sum)
}
