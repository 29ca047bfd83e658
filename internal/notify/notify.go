// Package notify defines the outbound notification port. The storefront
// tells the dispatcher what to send, never how; delivery failures are
// logged and never roll back the write that triggered them.
package notify

import (
	"context"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Notifier dispatches a message to a user.
type Notifier interface {
	Notify(ctx context.Context, userID, subject, message string)
}

// LogNotifier writes notifications to the service log. It stands in for a
// real email/push dispatcher in environments without one configured.
type LogNotifier struct{}

// Notify logs the notification at info level.
func (LogNotifier) Notify(ctx context.Context, userID, subject, message string) {
	zctx.From(ctx).Info("notification dispatched",
		zap.String("user_id", userID),
		zap.String("subject", subject),
		zap.String("message", message),
	)
}

// Nop discards all notifications. Useful in tests.
type Nop struct{}

func (Nop) Notify(context.Context, string, string, string) {}
