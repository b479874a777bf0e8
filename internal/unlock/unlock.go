// Package unlock decides which categories and lessons a learner may enter.
package unlock

import (
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

// CategoryUnlocked reports whether the category's requirement is satisfied.
// A requirement pointing at an unknown category is never satisfied.
func CategoryUnlocked(cat catalog.Category, rec *progress.Record, c *catalog.Catalog) bool {
	req := cat.Unlock
	switch req.Kind {
	case catalog.UnlockNone, "":
		return true
	case catalog.UnlockCompleteCategory:
		lessonCount := c.LessonCount(req.CategoryID)
		if lessonCount == 0 {
			return false
		}
		return rec.CompletedInCategory(req.CategoryID) >= lessonCount
	case catalog.UnlockCategoryMinimum:
		if _, ok := c.Category(req.CategoryID); !ok {
			return false
		}
		minLessons := req.MinLessons
		if minLessons <= 0 {
			minLessons = catalog.DefaultMinLessons
		}
		return rec.CompletedInCategory(req.CategoryID) >= minLessons
	default:
		return false
	}
}

// CategoryUnlockedByID is CategoryUnlocked for an id. Unknown ids are locked.
func CategoryUnlockedByID(categoryID string, rec *progress.Record, c *catalog.Catalog) bool {
	cat, ok := c.Category(categoryID)
	if !ok {
		return false
	}
	return CategoryUnlocked(cat, rec, c)
}

// LessonUnlocked reports whether a lesson may be entered: its category is
// unlocked and the lesson before it, by order, is completed. The first lesson
// of an unlocked category is always open.
func LessonUnlocked(lessonID string, rec *progress.Record, c *catalog.Catalog) bool {
	lesson, ok := c.Lesson(lessonID)
	if !ok {
		return false
	}
	cat, ok := c.Category(lesson.CategoryID)
	if !ok || !CategoryUnlocked(cat, rec, c) {
		return false
	}
	for i, l := range cat.Lessons {
		if l.ID != lessonID {
			continue
		}
		if i == 0 {
			return true
		}
		return rec.HasCompletedLesson(cat.Lessons[i-1].ID)
	}
	return false
}

// CategoryState is a listing row for a category.
type CategoryState struct {
	ID        string                    `json:"id"`
	Name      string                    `json:"name"`
	Order     int                       `json:"order"`
	Locked    bool                      `json:"locked"`
	Completed int                       `json:"completed_lessons"`
	Total     int                       `json:"total_lessons"`
	Complete  bool                      `json:"complete"`
	Requires  catalog.UnlockRequirement `json:"requires"`
}

// LessonState is a listing row for a lesson.
type LessonState struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Order     int    `json:"order"`
	Locked    bool   `json:"locked"`
	Completed bool   `json:"completed"`
	Stars     int    `json:"stars"`
}

// CategoryStates lists every category with its lock state.
func CategoryStates(rec *progress.Record, c *catalog.Catalog) []CategoryState {
	cats := c.Categories()
	out := make([]CategoryState, 0, len(cats))
	for _, cat := range cats {
		completed := rec.CompletedInCategory(cat.ID)
		out = append(out, CategoryState{
			ID:        cat.ID,
			Name:      cat.Name,
			Order:     cat.Order,
			Locked:    !CategoryUnlocked(cat, rec, c),
			Completed: completed,
			Total:     cat.LessonCount(),
			Complete:  cat.LessonCount() > 0 && completed >= cat.LessonCount(),
			Requires:  cat.Unlock,
		})
	}
	return out
}

// LessonStates lists a category's lessons with lock state and stars.
// Unknown categories yield nil.
func LessonStates(categoryID string, rec *progress.Record, c *catalog.Catalog) []LessonState {
	cat, ok := c.Category(categoryID)
	if !ok {
		return nil
	}
	catOpen := CategoryUnlocked(cat, rec, c)

	out := make([]LessonState, 0, len(cat.Lessons))
	for i, l := range cat.Lessons {
		locked := !catOpen
		if catOpen && i > 0 {
			locked = !rec.HasCompletedLesson(cat.Lessons[i-1].ID)
		}
		out = append(out, LessonState{
			ID:        l.ID,
			Title:     l.Title,
			Order:     l.Order,
			Locked:    locked,
			Completed: rec.HasCompletedLesson(l.ID),
			Stars:     rec.Stars(l.ID),
		})
	}
	return out
}
