package notify

import (
	"fmt"

	"go.uber.org/zap"
)

// ResetLinkSender hands password reset links off for delivery. The real
// mailer is an external collaborator; this implementation logs the link so
// the flow is observable without SMTP configured. Delivery failures are never
// surfaced to the request that triggered them.
type ResetLinkSender struct {
	log         *zap.Logger
	frontendURL string
}

func NewResetLinkSender(log *zap.Logger, frontendURL string) *ResetLinkSender {
	return &ResetLinkSender{log: log, frontendURL: frontendURL}
}

func (n *ResetLinkSender) SendPasswordResetLink(email, token string) {
	link := fmt.Sprintf("%s/reset-password?token=%s", n.frontendURL, token)
	n.log.Info("password reset link issued",
		zap.String("email", email),
		zap.String("link", link),
	)
}
