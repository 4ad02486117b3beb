package notify

import (
	"context"
	"log/slog"
)

// Sink delivers out-of-band messages (OTP codes, reset links) to a
// destination address. Delivery is best-effort: callers dispatch and move
// on, they never fail an operation on a sink error.
type Sink interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSink writes every message to the structured log instead of delivering
// it. Used in development and tests.
type LogSink struct{}

func NewLogSink() *LogSink { return &LogSink{} }

func (s *LogSink) Send(_ context.Context, to, subject, body string) error {
	slog.Info("notification", "to", to, "subject", subject, "body", body)
	return nil
}
