package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// createSession returns the caller's session identifier, minting one when
// the supplied value is absent or malformed. Idempotent for a valid id.
func (h *handlers) createSession(c *gin.Context) {
	var in struct {
		SessionID string `json:"sessionId"`
	}
	// An empty body is fine; it just means "mint a new id".
	_ = c.ShouldBindJSON(&in)

	id, created, err := h.deps.Sessions.GetOrCreate(in.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": id, "created": created})
}
