package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdurant/safelease-ai/internal/transport/http/middleware"
	"github.com/mdurant/safelease-ai/internal/usecase"
)

// TwoFactorHandler exposes TOTP enrollment and verification endpoints.
type TwoFactorHandler struct {
	twoFactor *usecase.TwoFactorService
}

// NewTwoFactorHandler constructs a two-factor handler.
func NewTwoFactorHandler(twoFactor *usecase.TwoFactorService) *TwoFactorHandler {
	return &TwoFactorHandler{twoFactor: twoFactor}
}

// RegisterRoutes binds two-factor endpoints. The group must already require
// authentication.
func (h *TwoFactorHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/setup", h.Setup)
	r.POST("/activate", h.Activate)
	r.POST("/verify", h.Verify)
	r.POST("/deactivate", h.Deactivate)
	r.GET("/status", h.Status)
}

// Setup starts enrollment and returns the provisioning material once.
func (h *TwoFactorHandler) Setup(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	result, err := h.twoFactor.Setup(c.Request.Context(), userID)
	if err != nil {
		RespondWithMappedError(c, err, twoFactorErrorCases(), http.StatusInternalServerError, "failed to start enrollment")
		return
	}

	c.JSON(http.StatusOK, TwoFactorSetupResponse{
		Secret:          result.Secret,
		ProvisioningURI: result.ProvisioningURI,
	})
}

// Activate completes enrollment and returns the backup codes once.
func (h *TwoFactorHandler) Activate(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req TwoFactorActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid activation payload"))
		return
	}

	codes, err := h.twoFactor.Activate(c.Request.Context(), userID, req.Secret, req.Code)
	if err != nil {
		RespondWithMappedError(c, err, twoFactorErrorCases(), http.StatusInternalServerError, "failed to activate")
		return
	}

	c.JSON(http.StatusOK, TwoFactorActivateResponse{
		BackupCodes: codes,
		Message:     "store these codes safely; they are shown only once",
	})
}

// Verify checks a TOTP or backup code for the authenticated user.
func (h *TwoFactorHandler) Verify(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req TwoFactorCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid code payload"))
		return
	}

	ok, err := h.twoFactor.Verify(c.Request.Context(), userID, req.Code)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to verify"))
		return
	}
	if !ok {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid code"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "code accepted"})
}

// Deactivate tears down the second factor after a final code check.
func (h *TwoFactorHandler) Deactivate(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req TwoFactorCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid code payload"))
		return
	}

	if err := h.twoFactor.Deactivate(c.Request.Context(), userID, req.Code); err != nil {
		RespondWithMappedError(c, err, twoFactorErrorCases(), http.StatusInternalServerError, "failed to deactivate")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "two-factor authentication disabled"})
}

// Status reports whether the factor is active and how many backup codes
// remain.
func (h *TwoFactorHandler) Status(c *gin.Context) {
	userID, ok := middleware.GetAuthenticatedUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	enabled, left, err := h.twoFactor.Status(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to load status"))
		return
	}

	c.JSON(http.StatusOK, TwoFactorStatusResponse{
		Enabled:         enabled,
		BackupCodesLeft: left,
	})
}

func twoFactorErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrTwoFactorNotEnrolled, Status: http.StatusBadRequest, Message: "two-factor authentication is not set up"},
		{Err: usecase.ErrTwoFactorCodeInvalid, Status: http.StatusBadRequest, Message: "invalid code"},
		{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "account not found"},
	}
}
