package services

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// CronService runs the scheduled compliance review. Every morning at
// 08:30 it pulls the previous day's off-hours activity, critical
// actions and role violations, and logs a summary for the back office
// to act on.
type CronService struct {
	audit  *AuditService
	cron   *cron.Cron
	logger zerolog.Logger
}

// NewCronService creates a new cron service
func NewCronService(audit *AuditService, logger zerolog.Logger) *CronService {
	return &CronService{
		audit:  audit,
		cron:   cron.New(),
		logger: logger,
	}
}

// Start registers the daily review job and starts the scheduler
func (s *CronService) Start() {
	s.cron.AddFunc("30 8 * * *", s.runDailyReview)
	s.cron.Start()
	s.logger.Info().Msg("compliance review scheduled daily at 08:30")
}

// Stop stops the scheduler
func (s *CronService) Stop() {
	s.cron.Stop()
}

// RunDailyReview is exposed for manual triggering from the ops surface
func (s *CronService) RunDailyReview(ctx context.Context) {
	s.reviewSince(ctx, time.Now().Add(-24*time.Hour))
}

func (s *CronService) runDailyReview() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	s.reviewSince(ctx, time.Now().Add(-24*time.Hour))
}

func (s *CronService) reviewSince(ctx context.Context, since time.Time) {
	offHours, err := s.audit.GetOffHoursActivity(ctx, since)
	if err != nil {
		s.logger.Error().Err(err).Msg("off-hours review failed")
		return
	}
	critical, err := s.audit.GetCriticalActions(ctx, since)
	if err != nil {
		s.logger.Error().Err(err).Msg("critical-action review failed")
		return
	}
	violations, err := s.audit.GetRoleViolations(ctx, since)
	if err != nil {
		s.logger.Error().Err(err).Msg("role-violation review failed")
		return
	}

	event := s.logger.Info()
	if len(offHours) > 0 || len(violations) > 0 {
		event = s.logger.Warn()
	}
	event.
		Time("since", since).
		Int("off_hours_entries", len(offHours)).
		Int("critical_actions", len(critical)).
		Int("role_violations", len(violations)).
		Msg("daily compliance review")

	for _, e := range offHours {
		s.logger.Warn().
			Uint("actor_user_id", e.ActorUserID).
			Str("action", e.Action).
			Time("at", e.CreatedAt).
			Msg("off-hours activity")
	}
}
