package usecase

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidCredentials is the only error exposed for a bad email or a
	// bad password, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound indicates no account exists for the supplied email.
	ErrUserNotFound = errors.New("user not found")
	// ErrTwoFactorNotEnabled indicates the account never opted into 2FA.
	ErrTwoFactorNotEnabled = errors.New("two-factor authentication is not enabled")
	// ErrSessionEstablishment indicates the session handshake failed after
	// all factors succeeded.
	ErrSessionEstablishment = errors.New("session establishment failed")

	// ErrCodeNotFound indicates no verification code was issued for the email.
	ErrCodeNotFound = errors.New("verification code not found")
	// ErrCodeExpired indicates the code outlived its TTL.
	ErrCodeExpired = errors.New("verification code expired")
	// ErrCodeAlreadyValidated indicates the single-use code was consumed.
	ErrCodeAlreadyValidated = errors.New("verification code already validated")
	// ErrTooManyAttempts indicates the attempt budget is exhausted.
	ErrTooManyAttempts = errors.New("too many verification attempts")
	// ErrCodeInvalid indicates the submitted code does not match.
	ErrCodeInvalid = errors.New("verification code invalid")

	// ErrNoValidRequest indicates no pending password reset exists.
	ErrNoValidRequest = errors.New("no valid password reset request")
	// ErrWrongPurpose indicates the stored token was minted for another flow.
	ErrWrongPurpose = errors.New("token not valid for this operation")
	// ErrTokenAlreadyUsed indicates the single-use reset token was consumed.
	ErrTokenAlreadyUsed = errors.New("reset token already used")
	// ErrInvalidToken indicates the submitted reset token does not match.
	ErrInvalidToken = errors.New("reset token invalid")
	// ErrTokenSuperseded indicates the password changed after the token was
	// issued, permanently invalidating it.
	ErrTokenSuperseded = errors.New("reset token superseded by a later password change")
	// ErrTokenExpired indicates the reset token outlived its TTL.
	ErrTokenExpired = errors.New("reset token expired")
	// ErrPasswordMismatch indicates the confirmation does not match.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrPasswordLength indicates the new password is outside length bounds.
	ErrPasswordLength = errors.New("password length out of bounds")
)

// CooldownActiveError reports how long the caller must wait before another
// verification code can be issued.
type CooldownActiveError struct {
	RetryAfter time.Duration
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("wait %d seconds before requesting another code", e.RemainingSeconds())
}

// RemainingSeconds rounds the wait up to whole seconds for presentation.
func (e *CooldownActiveError) RemainingSeconds() int {
	return ceilSeconds(e.RetryAfter)
}

// ResetRateLimitedError reports how long the caller must wait before another
// password reset can be requested.
type ResetRateLimitedError struct {
	RetryAfter time.Duration
}

func (e *ResetRateLimitedError) Error() string {
	return fmt.Sprintf("wait %d seconds before requesting another reset", e.RemainingSeconds())
}

// RemainingSeconds rounds the wait up to whole seconds for presentation.
func (e *ResetRateLimitedError) RemainingSeconds() int {
	return ceilSeconds(e.RetryAfter)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
