// Package progress holds the learner's progress record and its persistence.
package progress

import (
	"maps"
	"slices"
	"time"
)

const (
	// MaxHearts is the number of lives a learner holds when full.
	MaxHearts = 5
	// MaxStreakFreezes caps the streak-freeze tokens held at once.
	MaxStreakFreezes = 2
	// MaxStars is the best rating a lesson can earn.
	MaxStars = 3

	DefaultProfileID = "local"
	DefaultName      = "Learner"
)

// GoalTier selects the daily XP target.
type GoalTier string

const (
	GoalCasual  GoalTier = "casual"
	GoalRegular GoalTier = "regular"
	GoalSerious GoalTier = "serious"
	GoalIntense GoalTier = "intense"
)

// GoalTiers lists the tiers from easiest to hardest.
var GoalTiers = []GoalTier{GoalCasual, GoalRegular, GoalSerious, GoalIntense}

// XPTarget returns the daily XP goal for the tier. Unknown tiers fall back to casual.
func (t GoalTier) XPTarget() int {
	switch t {
	case GoalRegular:
		return 60
	case GoalSerious:
		return 100
	case GoalIntense:
		return 150
	default:
		return 30
	}
}

// Valid reports whether t is one of the known tiers.
func (t GoalTier) Valid() bool {
	return slices.Contains(GoalTiers, t)
}

// Preferences are the learner's feedback settings.
type Preferences struct {
	SoundEnabled         bool `json:"sound_enabled"`
	HapticsEnabled       bool `json:"haptics_enabled"`
	NotificationsEnabled bool `json:"notifications_enabled"`
}

// CategoryProgress tracks one category the learner has touched.
type CategoryProgress struct {
	CategoryID         string         `json:"category_id"`
	CompletedLessonIDs []string       `json:"completed_lesson_ids"`
	LessonStars        map[string]int `json:"lesson_stars"`
	IsComplete         bool           `json:"is_complete"`
}

// Record is the single mutable progress entity for a profile.
type Record struct {
	ProfileID string `json:"profile_id"`
	Name      string `json:"name"`

	TotalXP      int `json:"total_xp"`
	CurrentLevel int `json:"current_level"`

	CurrentStreak          int `json:"current_streak"`
	LongestStreak          int `json:"longest_streak"`
	LastActiveDate         Day `json:"last_active_date,omitempty"`
	StreakFreezes          int `json:"streak_freezes"`
	StreakFreezeLastEarned Day `json:"streak_freeze_last_earned,omitempty"`

	DailyXPGoal        int            `json:"daily_xp_goal"`
	DailyGoalTier      GoalTier       `json:"daily_goal_tier"`
	DailyGoalAwardedOn Day            `json:"daily_goal_awarded_on,omitempty"`
	TodayXP            int            `json:"today_xp"`
	TodayXPDay         Day            `json:"today_xp_day,omitempty"`
	DailyXPLog         map[string]int `json:"daily_xp_log"`

	Hearts           int `json:"hearts"`
	HeartsLastRefill Day `json:"hearts_last_refill"`

	TotalLessonsCompleted  int           `json:"total_lessons_completed"`
	TotalCorrectAnswers    int           `json:"total_correct_answers"`
	TotalQuestionsAnswered int           `json:"total_questions_answered"`
	TotalTimeLearning      time.Duration `json:"total_time_learning"`
	CorrectRun             int           `json:"correct_run"`
	BestCorrectRun         int           `json:"best_correct_run"`

	OnboardingCompleted bool        `json:"onboarding_completed"`
	Preferences         Preferences `json:"preferences"`

	CompletedLessonIDs     []string           `json:"completed_lesson_ids"`
	PerfectLessonIDs       []string           `json:"perfect_lesson_ids"`
	UnlockedAchievementIDs []string           `json:"unlocked_achievement_ids"`
	RecordedEvents         []string           `json:"recorded_events"`
	CategoryProgress       []CategoryProgress `json:"category_progress"`

	GameHighScores    map[string]int `json:"game_high_scores"`
	GamesPlayed       int            `json:"games_played"`
	GamesPlayedByType []string       `json:"games_played_by_type"`

	ActiveDays []string `json:"active_days"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns a record with first-launch defaults.
func New(profileID, name string, today Day) *Record {
	if profileID == "" {
		profileID = DefaultProfileID
	}
	if name == "" {
		name = DefaultName
	}
	return &Record{
		ProfileID:        profileID,
		Name:             name,
		CurrentLevel:     1,
		DailyGoalTier:    GoalCasual,
		DailyXPGoal:      GoalCasual.XPTarget(),
		Hearts:           MaxHearts,
		HeartsLastRefill: today,
		TodayXPDay:       today,
		DailyXPLog:       map[string]int{},
		Preferences: Preferences{
			SoundEnabled:         true,
			HapticsEnabled:       true,
			NotificationsEnabled: true,
		},
		CompletedLessonIDs:     []string{},
		PerfectLessonIDs:       []string{},
		UnlockedAchievementIDs: []string{},
		RecordedEvents:         []string{},
		CategoryProgress:       []CategoryProgress{},
		GameHighScores:         map[string]int{},
		GamesPlayedByType:      []string{},
		ActiveDays:             []string{},
	}
}

// Reset returns a fresh record that keeps identity, name, onboarding state,
// goal tier and preferences. Everything else goes back to defaults.
func (r *Record) Reset(today Day) *Record {
	fresh := New(r.ProfileID, r.Name, today)
	fresh.OnboardingCompleted = r.OnboardingCompleted
	fresh.Preferences = r.Preferences
	fresh.SetGoalTier(r.DailyGoalTier)
	fresh.CreatedAt = r.CreatedAt
	return fresh
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := *r
	c.DailyXPLog = maps.Clone(r.DailyXPLog)
	c.GameHighScores = maps.Clone(r.GameHighScores)
	c.CompletedLessonIDs = slices.Clone(r.CompletedLessonIDs)
	c.PerfectLessonIDs = slices.Clone(r.PerfectLessonIDs)
	c.UnlockedAchievementIDs = slices.Clone(r.UnlockedAchievementIDs)
	c.RecordedEvents = slices.Clone(r.RecordedEvents)
	c.GamesPlayedByType = slices.Clone(r.GamesPlayedByType)
	c.ActiveDays = slices.Clone(r.ActiveDays)
	c.CategoryProgress = make([]CategoryProgress, len(r.CategoryProgress))
	for i, cp := range r.CategoryProgress {
		c.CategoryProgress[i] = CategoryProgress{
			CategoryID:         cp.CategoryID,
			CompletedLessonIDs: slices.Clone(cp.CompletedLessonIDs),
			LessonStars:        maps.Clone(cp.LessonStars),
			IsComplete:         cp.IsComplete,
		}
	}
	return &c
}

// SetGoalTier switches the tier and its XP target. Unknown tiers are ignored.
func (r *Record) SetGoalTier(t GoalTier) bool {
	if !t.Valid() {
		return false
	}
	r.DailyGoalTier = t
	r.DailyXPGoal = t.XPTarget()
	return true
}

// DailyGoalMet reports whether today's XP reached the goal.
func (r *Record) DailyGoalMet() bool {
	return r.DailyXPGoal > 0 && r.TodayXP >= r.DailyXPGoal
}

// DailyGoalProgress is today's XP as a fraction of the goal, capped at 1.
func (r *Record) DailyGoalProgress() float64 {
	if r.DailyXPGoal <= 0 {
		return 0
	}
	return min(1.0, float64(r.TodayXP)/float64(r.DailyXPGoal))
}

// Accuracy is the share of answered questions that were correct.
func (r *Record) Accuracy() float64 {
	if r.TotalQuestionsAnswered == 0 {
		return 0
	}
	return float64(r.TotalCorrectAnswers) / float64(r.TotalQuestionsAnswered)
}

// Category returns the progress entry for a category, or nil if untouched.
func (r *Record) Category(categoryID string) *CategoryProgress {
	for i := range r.CategoryProgress {
		if r.CategoryProgress[i].CategoryID == categoryID {
			return &r.CategoryProgress[i]
		}
	}
	return nil
}

// CompletedInCategory is the number of distinct lessons completed in a category.
func (r *Record) CompletedInCategory(categoryID string) int {
	if cp := r.Category(categoryID); cp != nil {
		return len(cp.CompletedLessonIDs)
	}
	return 0
}

// CategoryComplete reports the stored completion flag for a category.
func (r *Record) CategoryComplete(categoryID string) bool {
	cp := r.Category(categoryID)
	return cp != nil && cp.IsComplete
}

// HasCompletedLesson reports whether the lesson is in the completed set.
func (r *Record) HasCompletedLesson(lessonID string) bool {
	return slices.Contains(r.CompletedLessonIDs, lessonID)
}

// Stars returns the best stars earned on a lesson, 0 if never completed.
func (r *Record) Stars(lessonID string) int {
	for _, cp := range r.CategoryProgress {
		if s, ok := cp.LessonStars[lessonID]; ok {
			return s
		}
	}
	return 0
}

// MarkLessonComplete records a completion in the category's progress.
// Stars only ever go up. lessonCount is the category's total lesson count.
// Returns true the first time the lesson is completed.
func (r *Record) MarkLessonComplete(categoryID, lessonID string, stars, lessonCount int) bool {
	stars = clamp(stars, 1, MaxStars)

	cp := r.Category(categoryID)
	if cp == nil {
		r.CategoryProgress = append(r.CategoryProgress, CategoryProgress{
			CategoryID:         categoryID,
			CompletedLessonIDs: []string{},
			LessonStars:        map[string]int{},
		})
		cp = &r.CategoryProgress[len(r.CategoryProgress)-1]
	}
	if cp.LessonStars == nil {
		cp.LessonStars = map[string]int{}
	}

	var first bool
	cp.CompletedLessonIDs, first = addToSet(cp.CompletedLessonIDs, lessonID)
	cp.LessonStars[lessonID] = max(cp.LessonStars[lessonID], stars)
	cp.IsComplete = len(cp.CompletedLessonIDs) >= lessonCount

	r.CompletedLessonIDs, _ = addToSet(r.CompletedLessonIDs, lessonID)
	return first
}

// MarkPerfect adds the lesson to the perfect set.
func (r *Record) MarkPerfect(lessonID string) bool {
	var added bool
	r.PerfectLessonIDs, added = addToSet(r.PerfectLessonIDs, lessonID)
	return added
}

// HasAchievement reports whether an achievement is unlocked.
func (r *Record) HasAchievement(id string) bool {
	return slices.Contains(r.UnlockedAchievementIDs, id)
}

// UnlockAchievement appends the id once. Achievements are never removed.
func (r *Record) UnlockAchievement(id string) bool {
	var added bool
	r.UnlockedAchievementIDs, added = addToSet(r.UnlockedAchievementIDs, id)
	return added
}

// RecordEvent notes a live event that can't be reconstructed later,
// e.g. finishing a lesson on the last heart.
func (r *Record) RecordEvent(id string) bool {
	var added bool
	r.RecordedEvents, added = addToSet(r.RecordedEvents, id)
	return added
}

// HasEvent reports whether a live event was recorded.
func (r *Record) HasEvent(id string) bool {
	return slices.Contains(r.RecordedEvents, id)
}

// MarkActive adds the day to the activity calendar.
func (r *Record) MarkActive(day Day) {
	if day.IsZero() {
		return
	}
	r.ActiveDays, _ = addToSet(r.ActiveDays, day.String())
}

// IsActiveOn reports whether the learner was active on the day.
func (r *Record) IsActiveOn(day Day) bool {
	return slices.Contains(r.ActiveDays, day.String())
}

// RecordGame counts a finished game and keeps the best score.
// Returns true when the score is a new high.
func (r *Record) RecordGame(gameType string, score int) bool {
	if r.GameHighScores == nil {
		r.GameHighScores = map[string]int{}
	}
	r.GamesPlayed++
	r.GamesPlayedByType, _ = addToSet(r.GamesPlayedByType, gameType)

	best, played := r.GameHighScores[gameType]
	if !played || score > best {
		r.GameHighScores[gameType] = max(score, 0)
		return score > best
	}
	return false
}

// Normalize clamps fields back inside their invariants. A corrupted record
// is repaired rather than rejected.
func (r *Record) Normalize() {
	r.Hearts = clamp(r.Hearts, 0, MaxHearts)
	r.StreakFreezes = clamp(r.StreakFreezes, 0, MaxStreakFreezes)
	r.TotalXP = max(r.TotalXP, 0)
	r.TodayXP = max(r.TodayXP, 0)
	r.CurrentStreak = max(r.CurrentStreak, 0)
	r.LongestStreak = max(r.LongestStreak, r.CurrentStreak)
	r.BestCorrectRun = max(r.BestCorrectRun, r.CorrectRun)
	if !r.DailyGoalTier.Valid() {
		r.DailyGoalTier = GoalCasual
	}
	r.DailyXPGoal = r.DailyGoalTier.XPTarget()

	if r.DailyXPLog == nil {
		r.DailyXPLog = map[string]int{}
	}
	if r.GameHighScores == nil {
		r.GameHighScores = map[string]int{}
	}
	r.CompletedLessonIDs = dedupe(r.CompletedLessonIDs)
	r.PerfectLessonIDs = dedupe(r.PerfectLessonIDs)
	r.UnlockedAchievementIDs = dedupe(r.UnlockedAchievementIDs)
	r.RecordedEvents = dedupe(r.RecordedEvents)
	r.GamesPlayedByType = dedupe(r.GamesPlayedByType)
	r.ActiveDays = dedupe(r.ActiveDays)
	if r.CategoryProgress == nil {
		r.CategoryProgress = []CategoryProgress{}
	}
	for i := range r.CategoryProgress {
		cp := &r.CategoryProgress[i]
		cp.CompletedLessonIDs = dedupe(cp.CompletedLessonIDs)
		if cp.LessonStars == nil {
			cp.LessonStars = map[string]int{}
		}
		for id, s := range cp.LessonStars {
			cp.LessonStars[id] = clamp(s, 1, MaxStars)
		}
	}
}

func addToSet(set []string, v string) ([]string, bool) {
	if slices.Contains(set, v) {
		return set, false
	}
	return append(set, v), true
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out, _ = addToSet(out, v)
	}
	return out
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
