package domain

import "time"

// ResetPurposePassword tags reset tokens minted for password recovery.
const ResetPurposePassword = "reset_password"

// User mirrors the persisted representation in the auth.users table. The
// reset token sub-record lives on the user row so a password change and the
// token consumption commit as a single update.
type User struct {
	ID                 string
	Email              string
	PasswordHash       string
	TwoFactorEnabled   bool
	RegisteredAt       time.Time
	LastPasswordChange *time.Time
	ResetToken         *ResetToken
}

// Sanitize returns the user as a SafeUser with credential material stripped.
func (u User) Sanitize() SafeUser {
	return SafeUser{
		ID:               u.ID,
		Email:            u.Email,
		TwoFactorEnabled: u.TwoFactorEnabled,
		RegisteredAt:     u.RegisteredAt,
	}
}

// SafeUser is the authenticated principal handed to callers outside the core.
// It never carries a password hash.
type SafeUser struct {
	ID               string
	Email            string
	TwoFactorEnabled bool
	RegisteredAt     time.Time
}

// ResetToken is the single-use password reset sub-record stored on the user.
// A token issued before the user's last password change is permanently
// invalid even when otherwise unexpired.
type ResetToken struct {
	Hash      string
	Purpose   string
	Used      bool
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// VerificationToken is one issued two-factor code. Rows are append-only; the
// most recently created row per email is authoritative and older rows become
// inert. Validated flips to true exactly once, on the first successful
// verification.
type VerificationToken struct {
	ID         string
	Email      string
	TokenHash  string
	Attempts   int
	Validated  bool
	CreatedAt  time.Time
	LastSentAt time.Time
}

// Session binds a request context to an authenticated user identity. Sessions
// are opaque server-side records; the ID doubles as the cookie value.
type Session struct {
	ID        string
	UserID    string
	Email     string
	CreatedAt time.Time
	ExpiresAt time.Time
}
