package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/storyvoice/internal/common"
	"github.com/suPer8Hu/storyvoice/internal/httpapi/middleware"
)

type identifyReq struct {
	Pseudonym string `json:"pseudonym"`
}

func (h *Handler) Identify(c *gin.Context) {
	var req identifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 40001, "invalid json")
		return
	}
	issued, err := h.Tokens.Issue(c.Request.Context(), req.Pseudonym)
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"ok": true, "token": issued.Token, "expires_at": issued.ExpiresAt})
}

// ListReminders returns the reminders recorded for the token's pseudonym.
func (h *Handler) ListReminders(c *gin.Context) {
	token := middleware.BearerToken(c)
	if token == "" {
		common.Fail(c, http.StatusUnauthorized, 40102, "token required")
		return
	}
	pseudonym, err := h.Tokens.Resolve(c.Request.Context(), token)
	if err != nil {
		writeError(c, err)
		return
	}
	rs, err := h.Reminders.ListByPseudonym(c.Request.Context(), pseudonym)
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"ok": true, "reminders": rs})
}

// SyncChapters writes the loaded content into the catalog tables.
func (h *Handler) SyncChapters(c *gin.Context) {
	st, err := h.Content.Sync(c.Request.Context(), h.Catalog)
	if err != nil {
		writeError(c, err)
		return
	}
	common.OK(c, http.StatusOK, gin.H{"ok": true, "stats": st})
}
