package onboarding

import (
	"context"

	"go.uber.org/zap"
)

// NotificationKind names the message a Notifier delivers.
type NotificationKind string

const (
	NotifyLeaderInvite     NotificationKind = "leader_invite"
	NotifyMagicLink        NotificationKind = "magic_link"
	NotifyLegacyActivation NotificationKind = "legacy_activation"
)

// Notification is a message carrying a one-time link to a user.
type Notification struct {
	Kind NotificationKind
	To   string
	Name string
	Link string
}

// Notifier delivers onboarding links. Email delivery lives outside this
// service; LogNotifier is the in-process implementation.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// LogNotifier writes notifications to the log instead of sending them.
type LogNotifier struct {
	logger *zap.Logger
	// IncludeLinks logs the link itself; only enable outside production.
	IncludeLinks bool
}

// NewLogNotifier creates a logging notifier.
func NewLogNotifier(logger *zap.Logger, includeLinks bool) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger, IncludeLinks: includeLinks}
}

// Notify implements Notifier.
func (n *LogNotifier) Notify(ctx context.Context, msg Notification) error {
	fields := []zap.Field{
		zap.String("kind", string(msg.Kind)),
		zap.String("to", msg.To),
	}
	if n.IncludeLinks {
		fields = append(fields, zap.String("link", msg.Link))
	}
	n.logger.Info("notification queued", fields...)
	return nil
}
