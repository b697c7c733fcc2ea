// Package notify escalates unrecoverable failures to an admin channel.
// Delivery is best-effort: a failed notification is logged and never fails
// the user-facing transaction.
package notify

import "context"

// Severity grades an admin notification.
type Severity string

const (
	// SeverityWarning flags degraded behaviour the bot recovered from.
	SeverityWarning Severity = "warning"
	// SeverityCritical flags failures that need manual follow-up.
	SeverityCritical Severity = "critical"
)

// Notifier delivers admin notifications. Implementations must be safe for
// concurrent use and must never block the caller on delivery.
type Notifier interface {
	NotifyAdmin(ctx context.Context, severity Severity, summary string, fields map[string]string)
}

// Nop discards all notifications. Useful when no admin chat is configured.
type Nop struct{}

// NotifyAdmin does nothing.
func (Nop) NotifyAdmin(context.Context, Severity, string, map[string]string) {}
