package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/transport/http/middleware"
	"github.com/mdurant/safelease-ai/internal/usecase"
)

// ProfileHandler exposes profile read and update endpoints.
type ProfileHandler struct {
	profiles *usecase.ProfileService
}

// NewProfileHandler constructs a profile handler.
func NewProfileHandler(profiles *usecase.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// RegisterRoutes binds profile endpoints. The group must already require
// authentication.
func (h *ProfileHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.Get)
	r.PATCH("", h.Update)
	r.POST("/avatar", h.SetAvatar)
	r.DELETE("", h.Deactivate)
}

// Get returns the caller's account and profile.
func (h *ProfileHandler) Get(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	account, err := h.profiles.Get(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, profileErrorCases(), http.StatusInternalServerError, "failed to load profile")
		return
	}

	c.JSON(http.StatusOK, newProfileResponse(account))
}

// Update applies a partial profile update.
func (h *ProfileHandler) Update(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ProfileUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid profile payload"))
		return
	}

	profile, err := h.profiles.UpdateProfile(c.Request.Context(), userID, domain.ProfilePatch{
		DisplayName: req.DisplayName,
		Surname:     req.Surname,
		Phone:       req.Phone,
		AltPhone:    req.AltPhone,
	})
	if err != nil {
		RespondWithMappedError(c, err, profileErrorCases(), http.StatusInternalServerError, "failed to update profile")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"display_name": profile.DisplayName,
		"surname":      profile.Surname,
		"phone":        profile.Phone,
		"alt_phone":    profile.AltPhone,
		"updated_at":   profile.UpdatedAt,
	})
}

// SetAvatar records a new avatar reference for the caller.
func (h *ProfileHandler) SetAvatar(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid avatar payload"))
		return
	}

	if err := h.profiles.SetAvatar(c.Request.Context(), userID, req.AvatarRef); err != nil {
		RespondWithMappedError(c, err, profileErrorCases(), http.StatusInternalServerError, "failed to set avatar")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "avatar updated"})
}

// Deactivate soft-deletes the caller's account.
func (h *ProfileHandler) Deactivate(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.profiles.Deactivate(c.Request.Context(), userID); err != nil {
		RespondWithMappedError(c, err, profileErrorCases(), http.StatusInternalServerError, "failed to deactivate account")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account deactivated"})
}

func profileErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
	}
}
