// Package session runs one lesson or mini-game at a time and commits the
// result through the academy service exactly once.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/p-n-ai/pai-academy/internal/academy"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
)

var (
	// ErrSessionClosed is returned by any call after Finish or Abort.
	ErrSessionClosed = errors.New("session closed")
	// ErrNoQuestion is returned when the lesson has run out of questions.
	ErrNoQuestion = errors.New("no current question")
	// ErrAlreadyAnswered is returned when the current question was already answered correctly.
	ErrAlreadyAnswered = errors.New("question already answered")
	// ErrLessonIncomplete is returned by Finish before every question has been passed.
	ErrLessonIncomplete = errors.New("lesson has unanswered questions")
)

// LessonCommitter is the part of the academy service a lesson session needs.
type LessonCommitter interface {
	RecordAnswer(ctx context.Context, correct bool, attempt int) (academy.Outcome, error)
	CompleteLesson(ctx context.Context, res academy.LessonResult) (academy.Outcome, error)
}

// Feedback is the result of one submitted answer.
type Feedback struct {
	QuestionID    string          `json:"question_id"`
	Correct       bool            `json:"correct"`
	Attempt       int             `json:"attempt"`
	CorrectAnswer string          `json:"correct_answer,omitempty"`
	Explanation   string          `json:"explanation,omitempty"`
	Outcome       academy.Outcome `json:"outcome"`
}

// Lesson tracks a learner working through one catalog lesson. Wrong answers
// can be retried until Advance moves on; attempts are counted per question.
type Lesson struct {
	ID string

	lesson  catalog.Lesson
	svc     LessonCommitter
	clock   progress.Clock
	started time.Time

	mu       sync.Mutex
	index    int
	attempts []int
	solved   []bool
	firstTry int
	closed   bool
}

// NewLesson starts a session for the lesson.
func NewLesson(lesson catalog.Lesson, svc LessonCommitter, clock progress.Clock) *Lesson {
	if clock == nil {
		clock = progress.SystemClock{}
	}
	n := len(lesson.Questions)
	return &Lesson{
		ID:       uuid.NewString(),
		lesson:   lesson,
		svc:      svc,
		clock:    clock,
		started:  clock.Now(),
		attempts: make([]int, n),
		solved:   make([]bool, n),
	}
}

// LessonID is the catalog id of the lesson being played.
func (s *Lesson) LessonID() string {
	return s.lesson.ID
}

// Current returns the question being asked. ok is false once every question
// has been passed.
func (s *Lesson) Current() (q catalog.Question, index int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.index >= len(s.lesson.Questions) {
		return catalog.Question{}, s.index, false
	}
	return s.lesson.Questions[s.index], s.index, true
}

// Submit judges an answer to the current question and reports it to the
// service. A wrong answer costs a heart there; ErrOutOfHearts is passed back
// unchanged so the caller can offer to end the lesson.
func (s *Lesson) Submit(ctx context.Context, answer string) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Feedback{}, ErrSessionClosed
	}
	if s.index >= len(s.lesson.Questions) {
		return Feedback{}, ErrNoQuestion
	}
	if s.solved[s.index] {
		return Feedback{}, ErrAlreadyAnswered
	}

	q := s.lesson.Questions[s.index]
	attempt := s.attempts[s.index] + 1
	correct := q.Check(answer)

	out, err := s.svc.RecordAnswer(ctx, correct, attempt)
	fb := Feedback{QuestionID: q.ID, Correct: correct, Attempt: attempt, Outcome: out}
	if err != nil {
		return fb, err
	}

	s.attempts[s.index] = attempt
	if correct {
		s.solved[s.index] = true
		if attempt == 1 {
			s.firstTry++
		}
	} else {
		fb.CorrectAnswer = q.CorrectAnswer
		if fb.CorrectAnswer == "" && len(q.CorrectAnswers) > 0 {
			fb.CorrectAnswer = strings.Join(q.CorrectAnswers, catalog.SortSeparator)
		}
	}
	fb.Explanation = q.Explanation
	return fb, nil
}

// Advance moves to the next question. A question never answered correctly
// counts as incorrect. ok is false when the lesson has no more questions.
func (s *Lesson) Advance() (catalog.Question, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return catalog.Question{}, false, ErrSessionClosed
	}
	if s.index < len(s.lesson.Questions) {
		s.index++
	}
	if s.index >= len(s.lesson.Questions) {
		return catalog.Question{}, false, nil
	}
	return s.lesson.Questions[s.index], true, nil
}

// Result summarises the answers so far.
func (s *Lesson) Result() academy.LessonResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result()
}

// result marks an answer true only when it was right on the first attempt,
// so a retry breaks the correct run.
func (s *Lesson) result() academy.LessonResult {
	var correct int
	firstTry := make([]bool, len(s.solved))
	for i, ok := range s.solved {
		if ok {
			correct++
		}
		firstTry[i] = ok && s.attempts[i] == 1
	}
	return academy.LessonResult{
		LessonID:   s.lesson.ID,
		CategoryID: s.lesson.CategoryID,
		Correct:    correct,
		Total:      len(s.lesson.Questions),
		FirstTry:   s.firstTry,
		Answers:    firstTry,
		Duration:   s.clock.Now().Sub(s.started),
	}
}

// Finish commits the lesson and closes the session. It is refused with
// ErrLessonIncomplete until Advance has moved past the last question. A
// failed commit leaves the session open so it can be retried.
func (s *Lesson) Finish(ctx context.Context) (academy.Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return academy.Outcome{}, ErrSessionClosed
	}
	if s.index < len(s.lesson.Questions) {
		return academy.Outcome{}, ErrLessonIncomplete
	}
	out, err := s.svc.CompleteLesson(ctx, s.result())
	if err != nil {
		return out, err
	}
	s.closed = true
	return out, nil
}

// Abort discards the session without committing. Hearts already lost stay lost.
func (s *Lesson) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true
	return nil
}

// Closed reports whether the session has been finished or aborted.
func (s *Lesson) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
