package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdurant/safelease-ai/internal/usecase"
)

// RegistrationHandler exposes account creation and verification endpoints.
type RegistrationHandler struct {
	registration *usecase.RegistrationService
	auth         *usecase.AuthService
}

// NewRegistrationHandler constructs a registration handler. The auth service
// issues the first token pair once OTP confirmation succeeds.
func NewRegistrationHandler(registration *usecase.RegistrationService, auth *usecase.AuthService) *RegistrationHandler {
	return &RegistrationHandler{registration: registration, auth: auth}
}

// Register creates a new account and mails the verification link.
func (h *RegistrationHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid registration payload"))
		return
	}

	user, err := h.registration.Register(c.Request.Context(), usecase.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Surname:     req.Surname,
		Phone:       req.Phone,
	})
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrEmailTaken, Status: http.StatusConflict, Message: "email already registered"},
			{Err: usecase.ErrPasswordPolicyViolation, Status: http.StatusBadRequest, Message: "password does not meet requirements"},
		}, http.StatusInternalServerError, "failed to register")
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{
		User:    newUserSummary(user),
		Message: "verification email sent",
	})
}

// VerifyEmail redeems the mailed verification token and triggers the OTP
// confirmation step.
func (h *RegistrationHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid verification payload"))
		return
	}

	user, err := h.registration.VerifyEmail(c.Request.Context(), req.Token)
	if err != nil {
		RespondWithMappedError(c, err, artifactErrorCases(), http.StatusInternalServerError, "failed to verify email")
		return
	}

	c.JSON(http.StatusOK, RegisterResponse{
		User:    newUserSummary(user),
		Message: "confirmation code sent",
	})
}

// VerifyOTP redeems the mailed one-time code and, on success, issues the
// account's first token pair so the client lands authenticated.
func (h *RegistrationHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid code payload"))
		return
	}

	user, err := h.registration.VerifyOTP(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrOTPInvalid, Status: http.StatusBadRequest, Message: "invalid confirmation code"},
			{Err: usecase.ErrOTPExpired, Status: http.StatusBadRequest, Message: "confirmation code expired"},
		}, http.StatusInternalServerError, "failed to confirm code")
		return
	}

	result, err := h.auth.IssueTokens(c.Request.Context(), user, usecase.DeviceMeta{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to issue tokens"))
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(result.Tokens.AccessTTL.Seconds()),
		SessionID:    result.SessionID,
		User:         newUserSummary(result.User),
	})
}

func artifactErrorCases() []ErrorCase {
	return []ErrorCase{
		{Err: usecase.ErrTokenInvalid, Status: http.StatusBadRequest, Message: "invalid token"},
		{Err: usecase.ErrTokenExpired, Status: http.StatusBadRequest, Message: "token expired"},
		{Err: usecase.ErrTokenAlreadyUsed, Status: http.StatusBadRequest, Message: "token already used"},
	}
}
