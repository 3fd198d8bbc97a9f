package notify

import (
	"context"
	"log/slog"
)

// LogSender logs deliveries instead of sending them. Development only: it
// prints the plaintext code.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, d CodeDelivery) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "code delivery (dev mode)",
		"email", d.Email,
		"purpose", d.Purpose,
		"code", d.Code,
	)
	return nil
}
