package achievement

import (
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

// Kind names a rule predicate.
type Kind string

const (
	LessonsCompleted      Kind = "lessons_completed"
	Streak                Kind = "streak"
	PerfectLessons        Kind = "perfect_lessons"
	CategoryComplete      Kind = "category_complete"
	CategoryMastered      Kind = "category_mastered"
	AnyCategoryMastered   Kind = "any_category_mastered"
	Level                 Kind = "level"
	GameHighScore         Kind = "game_high_score"
	GamesVariety          Kind = "games_variety"
	EveryCategoryStarted  Kind = "every_category_started"
	EveryCategoryComplete Kind = "every_category_complete"
	CorrectRun            Kind = "correct_run"
	RecordedEvent         Kind = "recorded_event"
)

// Rule is a tagged predicate over the progress record. Target holds the
// category id, game type or event id for the kinds that need one; N is the
// threshold.
type Rule struct {
	Kind   Kind   `json:"kind"`
	N      int    `json:"n,omitempty"`
	Target string `json:"target,omitempty"`
}

// Satisfied evaluates the rule. Rules that need the catalog are false
// when c is nil.
func (r Rule) Satisfied(rec *progress.Record, c *catalog.Catalog) bool {
	switch r.Kind {
	case LessonsCompleted:
		return rec.TotalLessonsCompleted >= r.N
	case Streak:
		return rec.CurrentStreak >= r.N
	case PerfectLessons:
		return len(rec.PerfectLessonIDs) >= r.N
	case Level:
		return rec.CurrentLevel >= r.N
	case GameHighScore:
		best, ok := rec.GameHighScores[r.Target]
		return ok && best >= r.N
	case GamesVariety:
		return len(rec.GamesPlayedByType) >= r.N
	case CorrectRun:
		return rec.BestCorrectRun >= r.N
	case RecordedEvent:
		return rec.HasEvent(r.Target)
	}

	if c == nil {
		return false
	}
	switch r.Kind {
	case CategoryComplete:
		return categoryComplete(r.Target, rec, c)
	case CategoryMastered:
		return categoryMastered(r.Target, rec, c)
	case AnyCategoryMastered:
		for _, cat := range c.Categories() {
			if categoryMastered(cat.ID, rec, c) {
				return true
			}
		}
		return false
	case EveryCategoryStarted:
		cats := c.Categories()
		if len(cats) == 0 {
			return false
		}
		for _, cat := range cats {
			if rec.CompletedInCategory(cat.ID) == 0 {
				return false
			}
		}
		return true
	case EveryCategoryComplete:
		cats := c.Categories()
		if len(cats) == 0 {
			return false
		}
		for _, cat := range cats {
			if !categoryComplete(cat.ID, rec, c) {
				return false
			}
		}
		return true
	}
	return false
}

func categoryComplete(categoryID string, rec *progress.Record, c *catalog.Catalog) bool {
	n := c.LessonCount(categoryID)
	return n > 0 && rec.CompletedInCategory(categoryID) >= n
}

// categoryMastered is every lesson in the category at maximum stars.
func categoryMastered(categoryID string, rec *progress.Record, c *catalog.Catalog) bool {
	lessons := c.LessonsForCategory(categoryID)
	if len(lessons) == 0 {
		return false
	}
	for _, l := range lessons {
		if rec.Stars(l.ID) < progress.MaxStars {
			return false
		}
	}
	return true
}
