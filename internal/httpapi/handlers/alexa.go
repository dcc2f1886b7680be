package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/storyvoice/internal/common"
	"github.com/suPer8Hu/storyvoice/internal/dialogue"
)

// Alexa serves one voice-platform turn.
func (h *Handler) Alexa(c *gin.Context) {
	env, err := dialogue.DecodeRequest(c.Request.Body)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 40002, dialogue.ErrNotAlexaRequest.Error())
		return
	}
	resp, err := h.Dialogue.Handle(c.Request.Context(), env)
	if err != nil {
		if errors.Is(err, dialogue.ErrUnsupportedRequest) || errors.Is(err, dialogue.ErrNotAlexaRequest) {
			common.Fail(c, http.StatusBadRequest, 40003, err.Error())
			return
		}
		writeError(c, err)
		return
	}
	common.OK(c, http.StatusOK, resp)
}
