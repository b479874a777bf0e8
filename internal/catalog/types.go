package catalog

import (
	"strings"
)

// QuestionType identifies how a question is answered.
type QuestionType string

const (
	MultipleChoice   QuestionType = "multipleChoice"
	TrueFalse        QuestionType = "trueFalse"
	MatchPairs       QuestionType = "matchPairs"
	FillInBlank      QuestionType = "fillInBlank"
	SortOrder        QuestionType = "sortOrder"
	ScenarioJudgment QuestionType = "scenarioJudgment"
)

// SortSeparator joins the items of a sortOrder answer.
const SortSeparator = "||"

// MatchedAnswer is submitted once every pair of a matchPairs question is matched.
const MatchedAnswer = "matched"

// UnlockKind selects how a category is unlocked.
type UnlockKind string

const (
	UnlockNone             UnlockKind = "none"
	UnlockCompleteCategory UnlockKind = "complete_category"
	UnlockCategoryMinimum  UnlockKind = "category_minimum"
)

// DefaultMinLessons is the lesson threshold for category_minimum when none is given.
const DefaultMinLessons = 2

// UnlockRequirement gates access to a category.
type UnlockRequirement struct {
	Kind       UnlockKind `yaml:"kind" json:"kind"`
	CategoryID string     `yaml:"category_id,omitempty" json:"category_id,omitempty"`
	MinLessons int        `yaml:"min_lessons,omitempty" json:"min_lessons,omitempty"`
}

// Category is a themed group of lessons, loaded from one YAML file.
type Category struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Icon        string            `yaml:"icon" json:"icon,omitempty"`
	Color       string            `yaml:"color" json:"color,omitempty"`
	Description string            `yaml:"description" json:"description"`
	Order       int               `yaml:"order" json:"order"`
	Unlock      UnlockRequirement `yaml:"unlock" json:"unlock"`
	Lessons     []Lesson          `yaml:"lessons" json:"lessons"`
}

// LessonCount is the number of lessons in the category.
func (c Category) LessonCount() int {
	return len(c.Lessons)
}

// QuestionCount is the number of questions across all lessons.
func (c Category) QuestionCount() int {
	n := 0
	for _, l := range c.Lessons {
		n += len(l.Questions)
	}
	return n
}

// Lesson is an ordered sequence of questions within a category.
type Lesson struct {
	ID          string     `yaml:"id" json:"id"`
	Title       string     `yaml:"title" json:"title"`
	Description string     `yaml:"description" json:"description"`
	CategoryID  string     `yaml:"-" json:"category_id"`
	Order       int        `yaml:"order" json:"order"`
	Difficulty  string     `yaml:"difficulty" json:"difficulty"`
	Questions   []Question `yaml:"questions" json:"questions"`
}

// Question is one item in a lesson.
type Question struct {
	ID             string       `yaml:"id" json:"id"`
	Type           QuestionType `yaml:"type" json:"type"`
	Text           string       `yaml:"text" json:"text"`
	Options        []string     `yaml:"options" json:"options,omitempty"`
	CorrectAnswer  string       `yaml:"correct_answer" json:"correct_answer,omitempty"`
	CorrectAnswers []string     `yaml:"correct_answers" json:"correct_answers,omitempty"`
	MatchPairs     []MatchPair  `yaml:"match_pairs" json:"match_pairs,omitempty"`
	Explanation    string       `yaml:"explanation" json:"explanation"`
}

// MatchPair is one term/definition pair of a matchPairs question.
type MatchPair struct {
	Term       string `yaml:"term" json:"term"`
	Definition string `yaml:"definition" json:"definition"`
}

// Check judges a submitted answer. sortOrder answers are the items joined
// with SortSeparator; matchPairs answers are MatchedAnswer once complete.
func (q Question) Check(answer string) bool {
	switch q.Type {
	case SortOrder:
		return len(q.CorrectAnswers) > 0 && answer == strings.Join(q.CorrectAnswers, SortSeparator)
	case MatchPairs:
		return answer == MatchedAnswer
	default:
		return q.CorrectAnswer != "" && answer == q.CorrectAnswer
	}
}
