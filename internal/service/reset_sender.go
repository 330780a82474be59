package service

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// ResetCodeSender delivers a password reset code out of band.
type ResetCodeSender interface {
	SendResetCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// LogResetCodeSender records that a code was issued. The code itself is never
// written to the log.
type LogResetCodeSender struct {
	logger *slog.Logger
}

func NewLogResetCodeSender(logger *slog.Logger) *LogResetCodeSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogResetCodeSender{logger: logger}
}

func (s *LogResetCodeSender) SendResetCode(ctx context.Context, email, _ string, expiresAt time.Time) error {
	s.logger.InfoContext(ctx, "password reset code issued",
		"email", maskEmail(email),
		"expires_at", expiresAt.UTC().Format(time.RFC3339),
	)
	return nil
}

func maskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" {
		return "***"
	}
	return local[:1] + "***@" + domain
}
