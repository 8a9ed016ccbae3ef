package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/amr/nutrisync/pkg/store"
	"github.com/amr/nutrisync/pkg/usercontext"
)

// Sender delivers a reminder to a user.
type Sender interface {
	SendMessage(ctx context.Context, userID, text string) error
}

// Store is the slice of the data layer the reminder checks read.
type Store interface {
	ListUsers(ctx context.Context) ([]string, error)
	GetProfile(ctx context.Context, userID string) (store.Profile, error)
	GetDailyTotals(ctx context.Context, userID, goalDate string) (store.DailyTotals, error)
	HasSleepLog(ctx context.Context, userID, sleepDate string) (bool, error)
	GetLanguage(ctx context.Context, userID string) string
}

// Scheduler runs the reminder jobs on cron schedules in the canonical
// time zone.
type Scheduler struct {
	store  Store
	sender Sender
	logger zerolog.Logger
	cron   *cron.Cron

	morningSpec string
	eveningSpec string
}

// Config holds scheduler configuration.
type Config struct {
	Store       Store
	Sender      Sender
	Logger      zerolog.Logger
	MorningSpec string
	EveningSpec string
}

// New creates a reminder scheduler.
func New(cfg Config) (*Scheduler, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Sender == nil {
		return nil, fmt.Errorf("sender is required")
	}

	morning := cfg.MorningSpec
	if morning == "" {
		morning = "0 9 * * *"
	}
	evening := cfg.EveningSpec
	if evening == "" {
		evening = "0 21 * * *"
	}

	return &Scheduler{
		store:       cfg.Store,
		sender:      cfg.Sender,
		logger:      cfg.Logger.With().Str("component", "notify").Logger(),
		cron:        cron.New(cron.WithLocation(usercontext.Location())),
		morningSpec: morning,
		eveningSpec: evening,
	}, nil
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.morningSpec, func() { s.RunMorning(context.Background()) }); err != nil {
		return fmt.Errorf("invalid morning schedule: %w", err)
	}
	if _, err := s.cron.AddFunc(s.eveningSpec, func() { s.RunEvening(context.Background()) }); err != nil {
		return fmt.Errorf("invalid evening schedule: %w", err)
	}

	s.cron.Start()
	s.logger.Info().
		Str("morning", s.morningSpec).
		Str("evening", s.eveningSpec).
		Msg("Reminder scheduler started")
	return nil
}

// Stop halts the cron loop and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("Reminder scheduler stopped")
}

// RunMorning nudges every user who has not logged last night's sleep.
func (s *Scheduler) RunMorning(ctx context.Context) {
	s.forEachUser(ctx, "morning", func(userID string) error {
		sleepDate := usercontext.FunctionalDate(usercontext.Now())
		logged, err := s.store.HasSleepLog(ctx, userID, sleepDate)
		if err != nil {
			return err
		}
		if logged {
			return nil
		}
		return s.sender.SendMessage(ctx, userID, morningMessage(s.store.GetLanguage(ctx, userID)))
	})
}

// RunEvening nudges users who are far from their calorie target or have
// logged nothing at all.
func (s *Scheduler) RunEvening(ctx context.Context) {
	s.forEachUser(ctx, "evening", func(userID string) error {
		profile, err := s.store.GetProfile(ctx, userID)
		if err != nil {
			// Users without a profile have no target to check.
			return nil
		}
		if profile.CalorieTarget <= 0 {
			return nil
		}

		totals, err := s.store.GetDailyTotals(ctx, userID, usercontext.FunctionalDate(usercontext.Now()))
		if err != nil {
			return err
		}

		lang := s.store.GetLanguage(ctx, userID)
		if totals.Calories == 0 {
			return s.sender.SendMessage(ctx, userID, eveningNoMealsMessage(lang))
		}

		remaining := profile.CalorieTarget - totals.Calories
		if remaining > 300 {
			return s.sender.SendMessage(ctx, userID, eveningGapMessage(lang, remaining))
		}
		return nil
	})
}

// forEachUser applies check to every known user; one user's failure
// never blocks the rest.
func (s *Scheduler) forEachUser(ctx context.Context, job string, check func(userID string) error) {
	start := time.Now()

	users, err := s.store.ListUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("job", job).Msg("Failed to list users for reminders")
		return
	}

	sent := 0
	for _, userID := range users {
		if err := check(userID); err != nil {
			s.logger.Warn().Err(err).Str("job", job).Str("user_id", userID).Msg("Reminder check failed")
			continue
		}
		sent++
	}

	s.logger.Info().
		Str("job", job).
		Int("users", len(users)).
		Dur("elapsed", time.Since(start)).
		Msg("Reminder pass finished")
}
