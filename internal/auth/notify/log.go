package notify

import (
	"context"
	"log/slog"
)

// LogNotifier writes notifications to the log instead of delivering them.
// Used when no mail provider is configured (local development, tests).
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Send(_ context.Context, to string, tpl Template, data Data) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("notification (log only)",
		slog.String("to", to),
		slog.String("template", string(tpl)),
		slog.Any("data", data),
	)
	return nil
}
