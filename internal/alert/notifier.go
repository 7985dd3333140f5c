package alert

import (
	"context"
	"log/slog"
)

// LogNotifier writes alerts to a structured logger. It is the default channel
// when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(ctx context.Context, a Alert) error {
	n.logger.WarnContext(ctx, a.Subject,
		"alert_id", a.ID,
		"priority", a.Priority,
		"bundle_ids", a.BundleIDs,
		"body", a.Body,
	)
	return nil
}
