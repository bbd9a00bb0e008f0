package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Erick-MC-Cedeno/chatty/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// RetryErrorResponse is returned when a cooldown or rate limit blocks the
// request; RetryAfter is the wait in whole seconds.
type RetryErrorResponse struct {
	Error      string `json:"error"`
	RetryAfter int    `json:"retry_after"`
	TraceID    string `json:"trace_id,omitempty"`
}

// NewRetryErrorResponse creates a retry-after error payload.
func NewRetryErrorResponse(c *gin.Context, errorMsg string, retryAfter int) RetryErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return RetryErrorResponse{
		Error:      errorMsg,
		RetryAfter: retryAfter,
		TraceID:    traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// UserSummary describes the authenticated principal returned by the API.
type UserSummary struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	RegisteredAt     time.Time `json:"registered_at"`
}

func newUserSummary(user domain.SafeUser) UserSummary {
	return UserSummary{
		ID:               user.ID,
		Email:            user.Email,
		TwoFactorEnabled: user.TwoFactorEnabled,
		RegisteredAt:     user.RegisteredAt,
	}
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// VerifyLoginRequest defines the payload for the two-factor completion endpoint.
type VerifyLoginRequest struct {
	Email string `json:"email" binding:"required"`
	Code  string `json:"code" binding:"required"`
}

// ResendCodeRequest defines the payload for the code resend endpoint.
type ResendCodeRequest struct {
	Email string `json:"email" binding:"required"`
}

// SessionSummary provides a compact view of session context in login responses.
type SessionSummary struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResponse describes the response returned for a completed login.
type LoginResponse struct {
	User    UserSummary    `json:"user"`
	Session SessionSummary `json:"session"`
}

// TwoFactorPendingResponse is returned when a login requires a verification code.
type TwoFactorPendingResponse struct {
	Message           string      `json:"message"`
	RequiresTwoFactor bool        `json:"requires_two_factor"`
	User              UserSummary `json:"user"`
}

// ForgotPasswordRequest defines the payload to request a reset token.
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

// ResetPasswordRequest defines the payload to complete a password reset.
type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required"`
	Token           string `json:"token" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// HealthResponse reports service liveness.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
