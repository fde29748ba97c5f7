package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/futurelink/zbot/internal/biz/domain"
	"github.com/futurelink/zbot/internal/biz/repo"
	"github.com/futurelink/zbot/internal/biz/usecase"
)

// Broadcaster runs scheduled outbound campaigns. Each run resolves its
// audience from the contact registry and streams messages with a fixed
// inter-message delay so the transport never sees a burst.
type Broadcaster struct {
	registry  *usecase.RegistryUsecase
	transport repo.Transport
	delay     time.Duration
	loc       *time.Location
	cron      *cron.Cron
	now       func() time.Time
	log       zerolog.Logger
}

// NewBroadcaster creates the broadcast engine.
func NewBroadcaster(registry *usecase.RegistryUsecase, transport repo.Transport, delay time.Duration, loc *time.Location, log zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry:  registry,
		transport: transport,
		delay:     delay,
		loc:       loc,
		now:       time.Now,
		log:       log.With().Str("component", "broadcast").Logger(),
	}
}

// DefaultJobs returns the built-in campaigns: daily greetings for the
// opt-in audience and the bounded New Year campaign for specials.
func DefaultJobs() []domain.BroadcastJob {
	return []domain.BroadcastJob{
		{
			Name:     "morning-greeting",
			Schedule: "0 7 * * *",
			Audience: domain.AudienceGeneral,
			Message:  domain.StaticMessage("Good morning 🙏"),
		},
		{
			Name:     "night-greeting",
			Schedule: "0 22 * * *",
			Audience: domain.AudienceGeneral,
			Message:  domain.StaticMessage("Good night 😴"),
		},
		{
			Name:     "new-year-campaign",
			Schedule: "0 7,14,20 * * *",
			Audience: domain.AudienceSpecial,
			Message:  NewYearMessage,
		},
	}
}

// NewYearMessage is active January 1-5 only, with a greeting fragment
// picked by time of day.
func NewYearMessage(now time.Time) (string, bool) {
	if now.Month() != time.January || now.Day() > 5 {
		return "", false
	}
	greeting := "Good morning"
	switch hour := now.Hour(); {
	case hour >= 17:
		greeting = "Good evening"
	case hour >= 12:
		greeting = "Good afternoon"
	}
	return fmt.Sprintf("Happy new year 🎉 ✨️\n\n%s! Wishing you a blessed %d.", greeting, now.Year()), true
}

// Start schedules the jobs and runs the cron loop in the configured
// timezone.
func (b *Broadcaster) Start(jobs []domain.BroadcastJob) error {
	b.cron = cron.New(cron.WithLocation(b.loc))
	for _, job := range jobs {
		j := job
		if _, err := b.cron.AddFunc(j.Schedule, func() {
			if err := b.Run(context.Background(), j); err != nil {
				b.log.Error().Err(err).Str("job", j.Name).Msg("broadcast run failed")
			}
		}); err != nil {
			return fmt.Errorf("failed to schedule %s: %w", j.Name, err)
		}
	}
	b.cron.Start()
	b.log.Info().Int("jobs", len(jobs)).Msg("scheduler started")
	return nil
}

// Stop halts the cron loop, waiting for a running job to finish.
func (b *Broadcaster) Stop() {
	if b.cron != nil {
		<-b.cron.Stop().Done()
	}
}

// Run executes one campaign. Per-target failures are logged and skipped;
// the run always completes and logs its outcome.
func (b *Broadcaster) Run(ctx context.Context, job domain.BroadcastJob) error {
	now := b.now().In(b.loc)
	msg, ok := job.Message(now)
	if !ok {
		return nil
	}

	targets, err := b.registry.Audience(ctx, job.Audience)
	if err != nil {
		return fmt.Errorf("failed to resolve audience: %w", err)
	}
	if len(targets) == 0 {
		b.log.Warn().Str("job", job.Name).Msg("no targets for broadcast")
		return nil
	}

	b.log.Info().Str("job", job.Name).Int("audience", len(targets)).Msg("broadcast starting")

	sent := 0
	for _, target := range targets {
		if err := b.transport.SendText(ctx, target.JID, msg); err != nil {
			b.log.Error().Err(err).Str("jid", target.JID).Msg("broadcast send failed")
		} else {
			sent++
		}

		select {
		case <-time.After(b.delay):
		case <-ctx.Done():
			b.log.Warn().Str("job", job.Name).Msg("broadcast cancelled")
			return ctx.Err()
		}
	}

	b.log.Info().Str("job", job.Name).Int("sent", sent).Int("audience", len(targets)).Msg("broadcast completed")
	return nil
}
