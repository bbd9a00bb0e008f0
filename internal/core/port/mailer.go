package port

import "context"

// Mailer dispatches outbound authentication mail. Delivery mechanics are a
// collaborator concern; implementations hand messages to the platform
// notification service.
type Mailer interface {
	SendLoginNotification(ctx context.Context, email string) error
	SendVerificationCode(ctx context.Context, email, code string) error
	SendResetToken(ctx context.Context, email, token string) error
}
