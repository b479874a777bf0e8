package academy

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/p-n-ai/pai-academy/internal/achievement"
	"github.com/p-n-ai/pai-academy/internal/hearts"
	"github.com/p-n-ai/pai-academy/internal/progress"
	"github.com/p-n-ai/pai-academy/internal/streak"
	"github.com/p-n-ai/pai-academy/internal/unlock"
	"github.com/p-n-ai/pai-academy/internal/xp"
)

// MaxNameLength is the longest display name, in runes.
const MaxNameLength = 40

// Stars rates a finished lesson: 3 when every answer was correct, 2 when at
// most one was missed, 1 otherwise.
func Stars(correct, total int) int {
	switch {
	case total > 0 && correct >= total:
		return 3
	case correct >= total-1:
		return 2
	default:
		return 1
	}
}

// CheckIn is the foreground check: roll today's XP, refill hearts on a new
// day and advance the streak.
func (s *Service) CheckIn(ctx context.Context) (Outcome, error) {
	return s.commit(ctx, func(rec *progress.Record, today progress.Day, out *Outcome) error {
		if xp.RollDay(rec, today) {
			out.changed = true
		}
		if hearts.CheckAndRefill(rec, today) {
			out.changed = true
			out.HeartsRefilled = true
		}
		s.evaluateStreak(rec, today, out)
		out.unlockAchievements(rec, s.catalog)
		if out.changed {
			out.event(EventCheckIn, map[string]any{"day": today.String()})
		}
		return nil
	})
}

// Rollover rolls today's XP and refills hearts without counting as activity.
func (s *Service) Rollover(ctx context.Context) (Outcome, error) {
	return s.commit(ctx, func(rec *progress.Record, today progress.Day, out *Outcome) error {
		if xp.RollDay(rec, today) {
			out.changed = true
		}
		if hearts.CheckAndRefill(rec, today) {
			out.changed = true
			out.HeartsRefilled = true
		}
		return nil
	})
}

func (s *Service) evaluateStreak(rec *progress.Record, today progress.Day, out *Outcome) {
	res := streak.Evaluate(rec, today)
	if !res.Changed {
		return
	}
	out.changed = true
	out.FreezeUsed = res.FreezeUsed
	out.FreezeEarned = res.FreezeEarned
	if res.Milestone {
		out.StreakMilestone = true
		out.signal(SoundStreak, "")
		out.event(EventStreakMilestone, map[string]any{"streak": res.Streak})
	}
}

// RecordAnswer reacts to one submitted answer. A wrong answer costs a heart
// immediately; OutOfHearts is set only when that heart was the last one.
// A correct answer returns the XP it will be worth, which CompleteLesson
// commits. With no hearts left a wrong answer is refused with ErrOutOfHearts.
func (s *Service) RecordAnswer(ctx context.Context, correct bool, attempt int) (Outcome, error) {
	return s.commit(ctx, func(rec *progress.Record, today progress.Day, out *Outcome) error {
		if correct {
			out.XPDelta = xp.ForCorrectAnswer(attempt <= 1)
			out.signal(SoundCorrect, "")
			out.signal(HapticSuccess, "")
			return nil
		}

		if hearts.IsOut(rec) {
			out.OutOfHearts = true
			out.signal(HapticWarning, "")
			return ErrOutOfHearts
		}

		out.changed = true
		out.signal(SoundWrong, "")
		out.signal(HapticError, "")
		out.event(EventAnswerWrong, map[string]any{"attempt": attempt})
		if hearts.Lose(rec) {
			out.OutOfHearts = true
			out.signal(HapticWarning, "")
			out.signal(ToastOutOfHearts, "")
			out.event(EventOutOfHearts, nil)
		}
		return nil
	})
}

// LessonResult is the summary a lesson session commits.
type LessonResult struct {
	LessonID   string `json:"lesson_id"`
	CategoryID string `json:"category_id"`
	Correct    int    `json:"correct"`
	Total      int    `json:"total"`
	// FirstTry counts the correct answers given on the first attempt.
	FirstTry int `json:"first_try"`
	// Answers is the per-question outcome in order, when known.
	Answers  []bool        `json:"answers,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CompleteLesson commits a finished lesson. Unknown lessons, or a category
// that does not own the lesson, are a no-op. A lesson that has not unlocked
// yet is refused with ErrLessonLocked.
func (s *Service) CompleteLesson(ctx context.Context, res LessonResult) (Outcome, error) {
	return s.commit(ctx, func(rec *progress.Record, today progress.Day, out *Outcome) error {
		lesson, ok := s.catalog.Lesson(res.LessonID)
		if !ok {
			return nil
		}
		if res.CategoryID != "" && res.CategoryID != lesson.CategoryID {
			return nil
		}
		if !unlock.LessonUnlocked(lesson.ID, rec, s.catalog) {
			return ErrLessonLocked
		}
		categoryID := lesson.CategoryID

		total := res.Total
		if total <= 0 {
			total = len(lesson.Questions)
		}
		correct := max(0, min(res.Correct, total))
		firstTry := max(0, min(res.FirstTry, correct))
		perfect := total > 0 && correct == total
		stars := Stars(correct, total)

		out.changed = true
		xp.RollDay(rec, today)

		rec.TotalLessonsCompleted++
		rec.TotalCorrectAnswers += correct
		rec.TotalQuestionsAnswered += total
		rec.TotalTimeLearning += max(0, res.Duration)

		first := rec.MarkLessonComplete(categoryID, lesson.ID, stars, s.catalog.LessonCount(categoryID))
		out.Stars = rec.Stars(lesson.ID)

		if rec.Hearts == 1 {
			rec.RecordEvent(achievement.EventSurvivor)
		}
		if perfect {
			rec.MarkPerfect(lesson.ID)
			hearts.Earn(rec)
		}
		trackCorrectRun(rec, res.Answers, correct, total)

		amount := firstTry*xp.CorrectFirstTry + (correct-firstTry)*xp.CorrectRetry + xp.ForLessonCompletion(perfect)
		out.applyXP(rec, amount, today)
		s.evaluateStreak(rec, today, out)
		rec.MarkActive(today)
		out.awardDailyGoal(rec, today)
		out.unlockAchievements(rec, s.catalog)

		if next, ok := s.catalog.NextLesson(lesson.ID); ok {
			out.NextLessonID = next.ID
		}
		out.signal(SoundLessonComplete, "")
		out.signal(HapticSuccess, "")
		out.event(EventLessonCompleted, map[string]any{
			"lesson_id":   lesson.ID,
			"category_id": categoryID,
			"correct":     correct,
			"total":       total,
			"stars":       stars,
			"perfect":     perfect,
			"first_time":  first,
		})
		return nil
	})
}

// trackCorrectRun updates the consecutive-correct counter. Without
// per-answer detail a perfect lesson extends the run and anything else
// breaks it.
func trackCorrectRun(rec *progress.Record, answers []bool, correct, total int) {
	if len(answers) == 0 {
		if correct == total {
			rec.CorrectRun += correct
		} else {
			rec.CorrectRun = 0
		}
	}
	for _, ok := range answers {
		if ok {
			rec.CorrectRun++
			rec.BestCorrectRun = max(rec.BestCorrectRun, rec.CorrectRun)
		} else {
			rec.CorrectRun = 0
		}
	}
	rec.BestCorrectRun = max(rec.BestCorrectRun, rec.CorrectRun)
}

// CompleteGame commits a finished mini-game. Unknown game types are a no-op.
func (s *Service) CompleteGame(ctx context.Context, gameType string, score int) (Outcome, error) {
	return s.commit(ctx, func(rec *progress.Record, today progress.Day, out *Outcome) error {
		amount, ok := xp.ForGame(gameType, score)
		if !ok {
			return nil
		}
		score = max(score, 0)

		out.changed = true
		xp.RollDay(rec, today)
		out.HighScore = rec.RecordGame(gameType, score)
		out.applyXP(rec, amount, today)
		rec.MarkActive(today)
		out.awardDailyGoal(rec, today)
		out.unlockAchievements(rec, s.catalog)

		out.signal(SoundLessonComplete, "")
		out.signal(HapticSuccess, "")
		out.event(EventGameCompleted, map[string]any{
			"game_type":  gameType,
			"score":      score,
			"xp":         amount,
			"high_score": out.HighScore,
		})
		return nil
	})
}

// Reset wipes all progress. Identity, name, onboarding, goal tier and
// preferences are kept.
func (s *Service) Reset(ctx context.Context) (Outcome, error) {
	return s.commit(ctx, func(rec *progress.Record, today progress.Day, out *Outcome) error {
		*rec = *rec.Reset(today)
		out.changed = true
		out.event(EventProgressReset, nil)
		return nil
	})
}

// CompleteOnboarding marks onboarding done and applies the learner's
// choices. An empty name keeps the current one; an empty tier keeps the
// current goal.
func (s *Service) CompleteOnboarding(ctx context.Context, name string, tier progress.GoalTier) (Outcome, error) {
	var clean string
	if name != "" {
		var err error
		if clean, err = NormalizeName(name); err != nil {
			return Outcome{}, err
		}
	}
	if tier != "" && !tier.Valid() {
		return Outcome{}, ErrInvalidGoalTier
	}
	return s.commit(ctx, func(rec *progress.Record, _ progress.Day, out *Outcome) error {
		if rec.OnboardingCompleted && clean == "" && tier == "" {
			return nil
		}
		rec.OnboardingCompleted = true
		if clean != "" {
			rec.Name = clean
		}
		if tier != "" {
			rec.SetGoalTier(tier)
		}
		out.changed = true
		out.signal(SoundTap, "")
		out.event(EventSettingsChanged, map[string]any{"onboarding_completed": true})
		return nil
	})
}

// SetDailyGoal switches the daily goal tier.
func (s *Service) SetDailyGoal(ctx context.Context, tier progress.GoalTier) (Outcome, error) {
	if !tier.Valid() {
		return Outcome{}, ErrInvalidGoalTier
	}
	return s.commit(ctx, func(rec *progress.Record, _ progress.Day, out *Outcome) error {
		if rec.DailyGoalTier == tier {
			return nil
		}
		rec.SetGoalTier(tier)
		out.changed = true
		out.event(EventSettingsChanged, map[string]any{"daily_goal_tier": string(tier)})
		return nil
	})
}

// SetPreferences replaces the feedback preferences.
func (s *Service) SetPreferences(ctx context.Context, prefs progress.Preferences) (Outcome, error) {
	return s.commit(ctx, func(rec *progress.Record, _ progress.Day, out *Outcome) error {
		if rec.Preferences == prefs {
			return nil
		}
		rec.Preferences = prefs
		out.changed = true
		out.event(EventSettingsChanged, map[string]any{
			"sound_enabled":         prefs.SoundEnabled,
			"haptics_enabled":       prefs.HapticsEnabled,
			"notifications_enabled": prefs.NotificationsEnabled,
		})
		return nil
	})
}

// Rename sets the display name.
func (s *Service) Rename(ctx context.Context, name string) (Outcome, error) {
	clean, err := NormalizeName(name)
	if err != nil {
		return Outcome{}, err
	}
	return s.commit(ctx, func(rec *progress.Record, _ progress.Day, out *Outcome) error {
		if rec.Name == clean {
			return nil
		}
		rec.Name = clean
		out.changed = true
		return nil
	})
}

// NormalizeName applies NFC normalisation, trims whitespace and caps the
// length at MaxNameLength runes.
func NormalizeName(name string) (string, error) {
	clean := strings.TrimSpace(norm.NFC.String(name))
	if clean == "" || !utf8.ValidString(clean) {
		return "", ErrInvalidName
	}
	if utf8.RuneCountInString(clean) > MaxNameLength {
		clean = strings.TrimSpace(string([]rune(clean)[:MaxNameLength]))
	}
	return clean, nil
}
