package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Erick-MC-Cedeno/chatty/internal/infra/config"
	"github.com/Erick-MC-Cedeno/chatty/internal/usecase"
)

// PasswordHandler exposes the password recovery endpoints.
type PasswordHandler struct {
	resets *usecase.PasswordResetService
	cfg    config.PasswordResetSettings
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(resets *usecase.PasswordResetService, cfg config.PasswordResetSettings) *PasswordHandler {
	return &PasswordHandler{resets: resets, cfg: cfg}
}

// RegisterRoutes binds password recovery routes, applying optional middleware ahead of handlers.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup, requestMiddlewares ...gin.HandlerFunc) {
	forgot := append(append([]gin.HandlerFunc{}, requestMiddlewares...), h.forgotPassword)

	r.POST("/forgot", forgot...)
	r.POST("/reset", h.resetPassword)
}

func (h *PasswordHandler) forgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	err := h.resets.RequestReset(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		var limited *usecase.ResetRateLimitedError
		if errors.As(err, &limited) {
			c.JSON(http.StatusTooManyRequests,
				NewRetryErrorResponse(c, "reset recently requested", limited.RemainingSeconds()))
			return
		}

		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
		}, http.StatusInternalServerError, "could not process reset request")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "reset instructions sent"})
}

func (h *PasswordHandler) resetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid request payload"))
		return
	}

	err := h.resets.ResetPassword(
		c.Request.Context(),
		strings.TrimSpace(req.Email),
		strings.TrimSpace(req.Token),
		req.NewPassword,
		req.ConfirmPassword,
	)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrUserNotFound, Status: http.StatusNotFound, Message: "user not found"},
			{Err: usecase.ErrNoValidRequest, Status: http.StatusBadRequest, Message: "no valid reset request"},
			{Err: usecase.ErrWrongPurpose, Status: http.StatusBadRequest, Message: "token not valid for this operation"},
			{Err: usecase.ErrTokenAlreadyUsed, Status: http.StatusBadRequest, Message: "reset token already used"},
			{Err: usecase.ErrInvalidToken, Status: http.StatusBadRequest, Message: "reset token invalid"},
			{Err: usecase.ErrTokenSuperseded, Status: http.StatusBadRequest, Message: "reset token no longer valid"},
			{Err: usecase.ErrTokenExpired, Status: http.StatusBadRequest, Message: "reset token expired"},
			{Err: usecase.ErrPasswordMismatch, Status: http.StatusBadRequest, Message: "passwords do not match"},
			{Err: usecase.ErrPasswordLength, Status: http.StatusBadRequest,
				Message: fmt.Sprintf("password must be between %d and %d characters", h.cfg.MinPasswordLen, h.cfg.MaxPasswordLen)},
		}, http.StatusInternalServerError, "could not reset password")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "password updated"})
}
