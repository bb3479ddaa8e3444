package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdurant/safelease-ai/internal/core/domain"
	"github.com/mdurant/safelease-ai/internal/transport/http/middleware"
	"github.com/mdurant/safelease-ai/internal/usecase"
)

// ErrorResponse is the generic error payload with trace id for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse builds an error response carrying the request trace id.
func NewErrorResponse(c *gin.Context, message string) ErrorResponse {
	return ErrorResponse{
		Error:   message,
		TraceID: middleware.GetTraceID(c),
	}
}

// MessageResponse is a simple confirmation payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary is the minimal user view returned by the API.
type UserSummary struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Role          string `json:"role,omitempty"`
	VerifiedEmail bool   `json:"verified_email"`
	IsActive      bool   `json:"is_active"`
}

func newUserSummary(user domain.User) UserSummary {
	return UserSummary{
		ID:            user.ID,
		Email:         user.Email,
		Role:          user.RoleOrEmpty(),
		VerifiedEmail: user.VerifiedEmail,
		IsActive:      user.IsActive,
	}
}

// RegisterRequest is the account registration payload.
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"required"`
	Surname     string `json:"surname"`
	Phone       string `json:"phone"`
}

// RegisterResponse confirms the new account and the verification next step.
type RegisterResponse struct {
	User    UserSummary `json:"user"`
	Message string      `json:"message"`
}

// VerifyEmailRequest redeems a mailed verification token.
type VerifyEmailRequest struct {
	Token string `json:"token" binding:"required"`
}

// VerifyOTPRequest redeems the mailed one-time code.
type VerifyOTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

// LoginRequest is the credential payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id"`
}

// LoginResponse carries the issued token pair.
type LoginResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	SessionID    string      `json:"session_id"`
	User         UserSummary `json:"user"`
}

// RefreshRequest exchanges a refresh token for a fresh pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshResponse carries the rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// ResetRequestRequest starts the forgotten-password flow.
type ResetRequestRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetConfirmRequest redeems a reset token with the replacement password.
type ResetConfirmRequest struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePasswordRequest updates an authenticated user's password.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
}

// SessionSummary is one row of the session list.
type SessionSummary struct {
	ID           string    `json:"id"`
	DeviceID     string    `json:"device_id,omitempty"`
	IP           *string   `json:"ip,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	Current      bool      `json:"current"`
}

func newSessionSummary(view usecase.SessionView) SessionSummary {
	return SessionSummary{
		ID:           view.ID,
		DeviceID:     view.DeviceID,
		IP:           view.IP,
		UserAgent:    view.UserAgent,
		CreatedAt:    view.CreatedAt,
		LastActiveAt: view.LastActiveAt,
		Current:      view.Current,
	}
}

// SessionListResponse wraps the session list.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// RevokeOthersResponse reports how many sessions a bulk revoke removed.
type RevokeOthersResponse struct {
	Revoked int `json:"revoked"`
}

// RoleSummary is one entry of the static role reference data.
type RoleSummary struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// RoleListResponse wraps the assignable roles.
type RoleListResponse struct {
	Roles []RoleSummary `json:"roles"`
}

// TwoFactorSetupResponse returns the enrollment material, shown once.
type TwoFactorSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
}

// TwoFactorActivateRequest echoes the setup secret with a code proving the
// authenticator holds it.
type TwoFactorActivateRequest struct {
	Secret string `json:"secret" binding:"required"`
	Code   string `json:"code" binding:"required"`
}

// TwoFactorCodeRequest carries a TOTP or backup code.
type TwoFactorCodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// TwoFactorActivateResponse returns the backup codes, shown once.
type TwoFactorActivateResponse struct {
	BackupCodes []string `json:"backup_codes"`
	Message     string   `json:"message"`
}

// TwoFactorStatusResponse reports the state of the second factor.
type TwoFactorStatusResponse struct {
	Enabled         bool `json:"enabled"`
	BackupCodesLeft int  `json:"backup_codes_left"`
}

// ProfileResponse is the account plus profile view.
type ProfileResponse struct {
	User        UserSummary `json:"user"`
	DisplayName string      `json:"display_name"`
	Surname     string      `json:"surname,omitempty"`
	Phone       string      `json:"phone,omitempty"`
	AltPhone    string      `json:"alt_phone,omitempty"`
	AvatarRef   *string     `json:"avatar_ref,omitempty"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

func newProfileResponse(account usecase.Account) ProfileResponse {
	return ProfileResponse{
		User:        newUserSummary(account.User),
		DisplayName: account.Profile.DisplayName,
		Surname:     account.Profile.Surname,
		Phone:       account.Profile.Phone,
		AltPhone:    account.Profile.AltPhone,
		AvatarRef:   account.Profile.AvatarRef,
		UpdatedAt:   account.Profile.UpdatedAt,
	}
}

// ProfileUpdateRequest carries a partial profile update.
type ProfileUpdateRequest struct {
	DisplayName *string `json:"display_name"`
	Surname     *string `json:"surname"`
	Phone       *string `json:"phone"`
	AltPhone    *string `json:"alt_phone"`
}

// AvatarRequest records a new avatar reference.
type AvatarRequest struct {
	AvatarRef string `json:"avatar_ref" binding:"required"`
}
