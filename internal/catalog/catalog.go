// Package catalog loads the read-only lesson content: categories, lessons
// and questions.
package catalog

import (
	"cmp"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/crypto/blake2b"
)

// Catalog is the immutable content catalog. Lookups of unknown ids return
// false rather than an error.
type Catalog struct {
	categories  []Category
	byID        map[string]int
	lessons     map[string]Lesson
	fingerprint string
}

// New builds a catalog from in-memory categories.
func New(categories ...Category) (*Catalog, error) {
	data, err := json.Marshal(categories)
	if err != nil {
		return nil, fmt.Errorf("encoding categories: %w", err)
	}
	sum := blake2b.Sum256(data)
	return build(categories, hex.EncodeToString(sum[:]))
}

func build(categories []Category, fingerprint string) (*Catalog, error) {
	c := &Catalog{
		categories:  make([]Category, 0, len(categories)),
		byID:        make(map[string]int, len(categories)),
		lessons:     make(map[string]Lesson),
		fingerprint: fingerprint,
	}

	for _, cat := range categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("category with empty id")
		}
		if _, dup := c.byID[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cat.ID)
		}
		if cat.Unlock.Kind == "" {
			cat.Unlock.Kind = UnlockNone
		}
		if cat.Unlock.Kind == UnlockCategoryMinimum && cat.Unlock.MinLessons <= 0 {
			cat.Unlock.MinLessons = DefaultMinLessons
		}

		cat.Lessons = slices.Clone(cat.Lessons)
		slices.SortStableFunc(cat.Lessons, func(a, b Lesson) int { return cmp.Compare(a.Order, b.Order) })
		for i := range cat.Lessons {
			l := &cat.Lessons[i]
			if l.ID == "" {
				return nil, fmt.Errorf("category %q has a lesson with empty id", cat.ID)
			}
			if _, dup := c.lessons[l.ID]; dup {
				return nil, fmt.Errorf("duplicate lesson id %q", l.ID)
			}
			l.CategoryID = cat.ID
			c.lessons[l.ID] = *l
		}

		c.byID[cat.ID] = len(c.categories)
		c.categories = append(c.categories, cat)
	}

	slices.SortStableFunc(c.categories, func(a, b Category) int { return cmp.Compare(a.Order, b.Order) })
	for i, cat := range c.categories {
		c.byID[cat.ID] = i
	}

	for _, cat := range c.categories {
		if cat.Unlock.Kind == UnlockNone {
			continue
		}
		if _, ok := c.byID[cat.Unlock.CategoryID]; !ok {
			slog.Warn("category unlock references unknown category; it will stay locked",
				"category", cat.ID, "requires", cat.Unlock.CategoryID)
		}
	}
	return c, nil
}

// Categories returns all categories ordered by their order field.
func (c *Catalog) Categories() []Category {
	return slices.Clone(c.categories)
}

// Category returns a category by id.
func (c *Catalog) Category(id string) (Category, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Category{}, false
	}
	return c.categories[i], true
}

// Lesson returns a lesson by id.
func (c *Catalog) Lesson(id string) (Lesson, bool) {
	l, ok := c.lessons[id]
	return l, ok
}

// LessonsForCategory returns the category's lessons ordered by order,
// or nil for an unknown category.
func (c *Catalog) LessonsForCategory(categoryID string) []Lesson {
	cat, ok := c.Category(categoryID)
	if !ok {
		return nil
	}
	return slices.Clone(cat.Lessons)
}

// LessonCount returns the number of lessons in a category, 0 if unknown.
func (c *Catalog) LessonCount(categoryID string) int {
	cat, ok := c.Category(categoryID)
	if !ok {
		return 0
	}
	return cat.LessonCount()
}

// NextLesson returns the lesson after lessonID in the same category.
func (c *Catalog) NextLesson(lessonID string) (Lesson, bool) {
	l, ok := c.lessons[lessonID]
	if !ok {
		return Lesson{}, false
	}
	cat, _ := c.Category(l.CategoryID)
	for i, cur := range cat.Lessons {
		if cur.ID == lessonID && i+1 < len(cat.Lessons) {
			return cat.Lessons[i+1], true
		}
	}
	return Lesson{}, false
}

// TotalLessons is the number of lessons across all categories.
func (c *Catalog) TotalLessons() int {
	return len(c.lessons)
}

// Fingerprint identifies the loaded content version.
func (c *Catalog) Fingerprint() string {
	return c.fingerprint
}
