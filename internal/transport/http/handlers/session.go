package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdurant/safelease-ai/internal/infra/telemetry"
	"github.com/mdurant/safelease-ai/internal/transport/http/middleware"
	"github.com/mdurant/safelease-ai/internal/usecase"
)

// SessionHandler exposes session listing and revocation endpoints.
type SessionHandler struct {
	sessions *usecase.SessionService
	metrics  *telemetry.Metrics
}

// NewSessionHandler constructs a session handler.
func NewSessionHandler(sessions *usecase.SessionService, metrics *telemetry.Metrics) *SessionHandler {
	return &SessionHandler{sessions: sessions, metrics: metrics}
}

// RegisterRoutes binds session endpoints. The group must already require
// authentication.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.List)
	r.DELETE("/others", h.RevokeOthers)
	r.DELETE("/:session_id", h.Revoke)
}

// List returns the caller's sessions, flagging the current one.
func (h *SessionHandler) List(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	views, err := h.sessions.List(c.Request.Context(), userID, middleware.GetSessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to list sessions"))
		return
	}

	summaries := make([]SessionSummary, 0, len(views))
	for _, view := range views {
		summaries = append(summaries, newSessionSummary(view))
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: summaries})
}

// Revoke deletes one of the caller's sessions. Revoking the current session
// logs the client out once its access token expires.
func (h *SessionHandler) Revoke(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	sessionID := c.Param("session_id")
	if err := h.sessions.Revoke(c.Request.Context(), userID, sessionID); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrSessionNotFound, Status: http.StatusNotFound, Message: "session not found"},
		}, http.StatusInternalServerError, "failed to revoke session")
		return
	}

	if h.metrics != nil {
		h.metrics.ActiveSessions.Dec()
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "session revoked"})
}

// RevokeOthers deletes every session of the caller except the current one.
func (h *SessionHandler) RevokeOthers(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	count, err := h.sessions.RevokeAllExcept(c.Request.Context(), userID, middleware.GetSessionID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to revoke sessions"))
		return
	}

	if h.metrics != nil {
		h.metrics.ActiveSessions.Sub(float64(count))
	}

	c.JSON(http.StatusOK, RevokeOthersResponse{Revoked: count})
}
