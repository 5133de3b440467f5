package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Service delivers run reports to the configured recipient
type Service struct {
	emailNotifier Notifier
	recipient     string
	logger        zerolog.Logger
}

// NewService creates a notification service
func NewService(emailNotifier Notifier, recipient string) *Service {
	return &Service{
		emailNotifier: emailNotifier,
		recipient:     recipient,
		logger:        log.With().Str("component", "notify").Logger(),
	}
}

// NotifyOutcome emails the report of a finished run. Errors are logged but
// don't fail the run.
func (s *Service) NotifyOutcome(ctx context.Context, report Report) {
	if s.recipient == "" {
		s.logger.Debug().Msg("no recipient configured, skipping outcome email")
		return
	}
	if !s.IsEmailAvailable() {
		s.logger.Debug().Msg("email not configured (no API key), skipping outcome email")
		return
	}

	if err := s.emailNotifier.Send(ctx, report, s.recipient); err != nil {
		s.logger.Warn().Err(err).Str("run_id", report.RunID).Str("notifier", s.emailNotifier.Name()).Msg("outcome email failed")
	}
}

// IsEmailAvailable returns true if email notifications can be used
func (s *Service) IsEmailAvailable() bool {
	return s.emailNotifier != nil && s.emailNotifier.IsConfigured()
}
