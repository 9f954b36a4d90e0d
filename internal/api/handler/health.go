package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/crafto/internal/api/middleware"
	"github.com/timmy/crafto/internal/service"
)

// SessionCounter is implemented by session stores that can count what they hold.
type SessionCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler handles health check endpoints
type HealthHandler struct {
	workspaces *service.Workspaces
	sessions   SessionCounter
}

// NewHealthHandler creates a new health handler. sessions may be nil.
func NewHealthHandler(workspaces *service.Workspaces, sessions SessionCounter) *HealthHandler {
	return &HealthHandler{workspaces: workspaces, sessions: sessions}
}

// Health reports liveness, the number of active browser workspaces and, when
// the store can count them, the stored sessions. A failing count turns the
// response into 503.
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":     "ok",
		"workspaces": h.workspaces.Len(),
	}
	if h.sessions == nil {
		c.JSON(http.StatusOK, body)
		return
	}

	n, err := h.sessions.Count(c.Request.Context())
	if err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Session count failed")
		body["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	body["sessions"] = n
	c.JSON(http.StatusOK, body)
}
