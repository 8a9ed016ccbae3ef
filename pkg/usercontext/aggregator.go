package usercontext

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/amr/nutrisync/pkg/store"
)

// Source is the slice of the data layer the aggregator reads.
type Source interface {
	GetProfile(ctx context.Context, userID string) (store.Profile, error)
	GetDailyTotals(ctx context.Context, userID, goalDate string) (store.DailyTotals, error)
	ActiveNotes(ctx context.Context, userID string) ([]store.Note, error)
	Equipment(ctx context.Context, userID string) ([]string, error)
	StrengthRecords(ctx context.Context, userID string) ([]store.StrengthRecord, error)
	WorkoutPlan(ctx context.Context, userID string) ([]store.PlanDay, error)
}

// Aggregator fans out the per-user facet reads that precede every turn.
// A failed facet degrades to its zero value instead of failing the turn,
// so Aggregate never returns an error.
type Aggregator struct {
	src    Source
	logger zerolog.Logger
	now    func() time.Time
}

type Config struct {
	Source Source
	Logger zerolog.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func New(cfg Config) *Aggregator {
	now := cfg.Now
	if now == nil {
		now = Now
	}
	return &Aggregator{
		src:    cfg.Source,
		logger: cfg.Logger.With().Str("component", "usercontext").Logger(),
		now:    now,
	}
}

// Aggregate collects every facet for userID concurrently. All fetches
// run to completion even when some fail.
func (a *Aggregator) Aggregate(ctx context.Context, userID string) *Snapshot {
	now := a.now()
	snap := &Snapshot{
		UserID:      userID,
		CurrentTime: CurrentTimeString(now),
	}
	goalDate := FunctionalDate(now)

	var g errgroup.Group
	g.Go(func() error {
		p, err := a.src.GetProfile(ctx, userID)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				a.warn(userID, "profile", err)
			}
			return nil
		}
		snap.Profile = p
		return nil
	})
	g.Go(func() error {
		t, err := a.src.GetDailyTotals(ctx, userID, goalDate)
		if err != nil {
			a.warn(userID, "daily_totals", err)
			return nil
		}
		snap.DailyTotals = t
		return nil
	})
	g.Go(func() error {
		n, err := a.src.ActiveNotes(ctx, userID)
		if err != nil {
			a.warn(userID, "active_notes", err)
			return nil
		}
		snap.ActiveNotes = n
		return nil
	})
	g.Go(func() error {
		e, err := a.src.Equipment(ctx, userID)
		if err != nil {
			a.warn(userID, "equipment", err)
			return nil
		}
		snap.Equipment = e
		return nil
	})
	g.Go(func() error {
		r, err := a.src.StrengthRecords(ctx, userID)
		if err != nil {
			a.warn(userID, "strength_records", err)
			return nil
		}
		snap.StrengthRecords = r
		return nil
	})
	g.Go(func() error {
		p, err := a.src.WorkoutPlan(ctx, userID)
		if err != nil {
			a.warn(userID, "workout_plan", err)
			return nil
		}
		snap.WorkoutPlan = p
		return nil
	})

	_ = g.Wait()
	return snap
}

func (a *Aggregator) warn(userID, facet string, err error) {
	a.logger.Warn().Err(err).Str("user_id", userID).Str("facet", facet).Msg("facet fetch failed, using default")
}
