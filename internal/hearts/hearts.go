// Package hearts manages the learner's lives.
package hearts

import (
	"github.com/p-n-ai/pai-academy/internal/progress"
)

// Max is the number of hearts when full.
const Max = progress.MaxHearts

// Lose removes one heart, never going below zero. It reports true only on
// the transition from one heart to none.
func Lose(rec *progress.Record) bool {
	if rec.Hearts <= 0 {
		rec.Hearts = 0
		return false
	}
	rec.Hearts--
	return rec.Hearts == 0
}

// Earn adds one heart, never going above Max. Reports whether one was added.
func Earn(rec *progress.Record) bool {
	if rec.Hearts >= Max {
		rec.Hearts = Max
		return false
	}
	rec.Hearts++
	return true
}

// CheckAndRefill restores all hearts once per calendar day.
func CheckAndRefill(rec *progress.Record, today progress.Day) bool {
	if !rec.HeartsLastRefill.IsZero() && !rec.HeartsLastRefill.Before(today) {
		return false
	}
	rec.Hearts = Max
	rec.HeartsLastRefill = today
	return true
}

// IsOut reports whether the learner has no hearts left.
func IsOut(rec *progress.Record) bool {
	return rec.Hearts <= 0
}
