// Package academy applies learner actions to the progress record: answers,
// lesson and game completions, daily check-ins and settings.
package academy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-academy/internal/achievement"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
	"github.com/p-n-ai/pai-academy/internal/xp"
)

var (
	// ErrOutOfHearts is returned when a wrong answer is submitted with no hearts left.
	ErrOutOfHearts = errors.New("out of hearts")
	// ErrInvalidGoalTier is returned for an unknown daily goal tier.
	ErrInvalidGoalTier = errors.New("invalid daily goal tier")
	// ErrInvalidName is returned when a name is empty after normalisation.
	ErrInvalidName = errors.New("invalid name")
	// ErrLessonLocked is returned when a lesson is completed before it unlocks.
	ErrLessonLocked = errors.New("lesson is locked")
)

// Config holds dependencies for the service.
type Config struct {
	Store     progress.Store
	Catalog   *catalog.Catalog
	Clock     progress.Clock
	Events    EventLogger
	Publisher Publisher
	ProfileID string
}

// Service owns the loaded progress record. Every operation mutates a clone,
// saves it, and only then swaps it in, so readers never see a partial update.
type Service struct {
	store     progress.Store
	catalog   *catalog.Catalog
	clock     progress.Clock
	events    EventLogger
	publisher Publisher

	mu  sync.Mutex
	rec *progress.Record
}

// New loads the profile's record, creating it on first launch.
func New(ctx context.Context, cfg Config) (*Service, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = progress.SystemClock{}
	}
	events := cfg.Events
	if events == nil {
		events = NopEventLogger{}
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = NopPublisher{}
	}
	profileID := cfg.ProfileID
	if profileID == "" {
		profileID = progress.DefaultProfileID
	}

	rec, created, err := progress.LoadOrCreate(ctx, cfg.Store, profileID, progress.Today(clock))
	if err != nil {
		return nil, err
	}
	if created {
		rec.CreatedAt = clock.Now()
		rec.UpdatedAt = rec.CreatedAt
		slog.Info("progress record created", "profile_id", profileID)
	}
	if level := xp.LevelFor(rec.TotalXP).Number; rec.CurrentLevel != level {
		slog.Warn("stored level does not match total XP, re-deriving",
			"profile_id", profileID, "stored", rec.CurrentLevel, "level", level)
		rec.CurrentLevel = level
	}

	return &Service{
		store:     cfg.Store,
		catalog:   cfg.Catalog,
		clock:     clock,
		events:    events,
		publisher: publisher,
		rec:       rec,
	}, nil
}

// Catalog returns the content catalog the service was built with.
func (s *Service) Catalog() *catalog.Catalog {
	return s.catalog
}

// Today is the current calendar day on the service clock.
func (s *Service) Today() progress.Day {
	return progress.Today(s.clock)
}

// Snapshot returns a copy of the current record.
func (s *Service) Snapshot() *progress.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec.Clone()
}

// Outcome is what a commit did, for the UI to render.
type Outcome struct {
	XPDelta         int                      `json:"xp_delta"`
	TotalXP         int                      `json:"total_xp"`
	Level           xp.Level                 `json:"level"`
	LeveledUp       bool                     `json:"leveled_up"`
	NewAchievements []achievement.Definition `json:"new_achievements"`
	Streak          int                      `json:"streak"`
	StreakMilestone bool                     `json:"streak_milestone"`
	FreezeUsed      bool                     `json:"freeze_used"`
	FreezeEarned    bool                     `json:"freeze_earned"`
	Hearts          int                      `json:"hearts"`
	HeartsRefilled  bool                     `json:"hearts_refilled"`
	OutOfHearts     bool                     `json:"out_of_hearts"`
	DailyGoalMet    bool                     `json:"daily_goal_met"`
	Stars           int                      `json:"stars,omitempty"`
	NextLessonID    string                   `json:"next_lesson_id,omitempty"`
	HighScore       bool                     `json:"high_score,omitempty"`
	Signals         []Signal                 `json:"signals"`

	changed bool
	events  []Event
}

func (o *Outcome) signal(typ, detail string) {
	o.Signals = append(o.Signals, Signal{Type: typ, Detail: detail})
}

func (o *Outcome) event(typ string, data map[string]any) {
	o.events = append(o.events, Event{EventType: typ, Data: data})
}

// applyXP adds XP and records a level-up on the outcome.
func (o *Outcome) applyXP(rec *progress.Record, amount int, today progress.Day) {
	gain := xp.Apply(rec, amount, today)
	if gain.Amount == 0 {
		return
	}
	o.changed = true
	o.XPDelta += gain.Amount
	if gain.LeveledUp && !o.LeveledUp {
		o.LeveledUp = true
		o.signal(SoundLevelUp, "")
	}
	if gain.LeveledUp {
		o.event(EventLevelUp, map[string]any{
			"from": gain.OldLevel.Number,
			"to":   gain.NewLevel.Number,
		})
	}
}

// unlockAchievements evaluates the table and records toasts for new badges.
func (o *Outcome) unlockAchievements(rec *progress.Record, c *catalog.Catalog) {
	for _, d := range achievement.Evaluate(rec, c) {
		o.changed = true
		o.NewAchievements = append(o.NewAchievements, d)
		o.signal(ToastAchievement, d.ID)
		o.event(EventAchievementUnlocked, map[string]any{"achievement_id": d.ID})
	}
}

// awardDailyGoal pays the daily goal bonus once per day when today's XP
// reaches the goal.
func (o *Outcome) awardDailyGoal(rec *progress.Record, today progress.Day) {
	if !rec.DailyGoalMet() || rec.DailyGoalAwardedOn == today {
		return
	}
	rec.DailyGoalAwardedOn = today
	o.changed = true
	o.DailyGoalMet = true
	o.signal(ToastDailyGoal, "")
	o.event(EventDailyGoalMet, map[string]any{"goal": rec.DailyXPGoal, "today_xp": rec.TodayXP})
	o.applyXP(rec, xp.DailyGoalBonus, today)
}

type mutation func(rec *progress.Record, today progress.Day, out *Outcome) error

// commit runs fn against a clone of the record and persists it if fn
// reports a change. The live record is only replaced after a successful save.
func (s *Service) commit(ctx context.Context, fn mutation) (Outcome, error) {
	s.mu.Lock()

	next := s.rec.Clone()
	today := progress.Today(s.clock)
	var out Outcome
	fnErr := fn(next, today, &out)

	if out.changed {
		next.UpdatedAt = s.clock.Now()
		if err := s.store.Save(ctx, next); err != nil {
			s.mu.Unlock()
			return Outcome{}, fmt.Errorf("save progress: %w", err)
		}
		s.rec = next
	}

	current := s.rec
	out.TotalXP = current.TotalXP
	out.Level = xp.LevelFor(current.TotalXP)
	out.Streak = current.CurrentStreak
	out.Hearts = current.Hearts
	out.Signals = filterSignals(current.Preferences, out.Signals)
	profileID := current.ProfileID
	s.mu.Unlock()

	if len(out.Signals) > 0 {
		s.publisher.Publish(profileID, out.Signals)
	}
	s.logEvents(ctx, profileID, out.events)

	if out.Signals == nil {
		out.Signals = []Signal{}
	}
	return out, fnErr
}

func (s *Service) logEvents(ctx context.Context, profileID string, events []Event) {
	now := s.clock.Now()
	for _, e := range events {
		e.ID = uuid.NewString()
		e.ProfileID = profileID
		e.CreatedAt = now
		if err := s.events.LogEvent(ctx, e); err != nil {
			slog.Warn("failed to log event", "type", e.EventType, "error", err)
		}
	}
}
