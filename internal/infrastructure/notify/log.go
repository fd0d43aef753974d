package notify

import (
	"context"
	"log/slog"

	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
)

// Log writes each payload to the structured log instead of a channel.
// Used for dry runs and local development.
type Log struct {
	logger *slog.Logger
}

var _ ports.Notifier = (*Log)(nil)

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger}
}

func (l *Log) Publish(_ context.Context, payload domain.NotificationPayload) error {
	l.logger.Info("notification", "subject", payload.Subject, "body", payload.Body)
	return nil
}
