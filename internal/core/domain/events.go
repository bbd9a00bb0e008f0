package domain

import "time"

// LoginSucceededEvent is published after a session is established.
type LoginSucceededEvent struct {
	EventID    string
	UserID     string
	Email      string
	SessionID  string
	TwoFactor  bool
	LoggedInAt time.Time
	Metadata   map[string]any
}

// TwoFactorChallengedEvent is published when a verification code is issued.
type TwoFactorChallengedEvent struct {
	EventID   string
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Resend    bool
	Metadata  map[string]any
}

// PasswordResetRequestedEvent is published when a reset token is issued.
type PasswordResetRequestedEvent struct {
	EventID     string
	UserID      string
	Email       string
	RequestedAt time.Time
	ExpiresAt   time.Time
	Metadata    map[string]any
}

// PasswordChangedEvent is published after a password reset completes.
type PasswordChangedEvent struct {
	EventID   string
	UserID    string
	Email     string
	ChangedAt time.Time
	Metadata  map[string]any
}
