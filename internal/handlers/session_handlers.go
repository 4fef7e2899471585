package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"spinly/internal/types"
)

type settleRequest struct {
	Index *int `json:"index" binding:"required"`
}

// CreateSession starts a new spin session.
func (h *HTTPHandler) CreateSession(c *gin.Context) {
	id := h.spins.StartSession()
	state, err := h.spins.State(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id, "state": state})
}

// GetSession returns the session state.
func (h *HTTPHandler) GetSession(c *gin.Context) {
	state, err := h.spins.State(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Spin starts a spin. A spin requested while one is in flight is ignored and
// reported with accepted=false.
func (h *HTTPHandler) Spin(c *gin.Context) {
	state, accepted, err := h.spins.Spin(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "state": state})
}

// Settle reports that the wheel animation stopped on the given index.
func (h *HTTPHandler) Settle(c *gin.Context) {
	var req settleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, types.WrapError(types.ErrInvalidInput, "settle needs the index the wheel stopped on", err))
		return
	}
	id := c.Param("id")
	if _, err := h.spins.Settle(id, *req.Index); err != nil {
		respondError(c, err)
		return
	}
	state, err := h.spins.State(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// RevealComplete marks the reveal effect as finished.
func (h *HTTPHandler) RevealComplete(c *gin.Context) {
	state, err := h.spins.RevealComplete(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// Close dismisses the result. closed is false until the reveal has completed.
func (h *HTTPHandler) Close(c *gin.Context) {
	state, closed, err := h.spins.Close(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"closed": closed, "state": state})
}

// EndSession drops the session when the wheel page goes away.
func (h *HTTPHandler) EndSession(c *gin.Context) {
	h.spins.EndSession(c.Param("id"))
	c.Status(http.StatusNoContent)
}
