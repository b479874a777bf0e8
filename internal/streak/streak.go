// Package streak evaluates the daily streak and streak-freeze tokens.
package streak

import (
	"slices"

	"github.com/p-n-ai/pai-academy/internal/progress"
)

// FreezeEvery is the streak length at whose multiples a freeze is earned.
const FreezeEvery = 7

// Milestones are streak lengths worth celebrating.
var Milestones = []int{3, 7, 14, 30, 60, 100, 365}

// IsMilestone reports whether n is a milestone streak length.
func IsMilestone(n int) bool {
	return slices.Contains(Milestones, n)
}

// Result describes what one Evaluate call did.
type Result struct {
	Changed      bool `json:"changed"`
	Started      bool `json:"started"`
	Incremented  bool `json:"incremented"`
	FreezeUsed   bool `json:"freeze_used"`
	FreezeEarned bool `json:"freeze_earned"`
	Reset        bool `json:"reset"`
	Streak       int  `json:"streak"`
	Milestone    bool `json:"milestone"`
}

// Evaluate advances the streak for activity on today. It is idempotent per
// calendar day. A today earlier than the last active date is ignored.
func Evaluate(rec *progress.Record, today progress.Day) Result {
	last := rec.LastActiveDate

	if last.IsZero() {
		rec.CurrentStreak = 1
		rec.LongestStreak = max(rec.LongestStreak, 1)
		rec.LastActiveDate = today
		return Result{Changed: true, Started: true, Streak: 1}
	}

	gap := last.DaysUntil(today)
	res := Result{Streak: rec.CurrentStreak}

	switch {
	case gap <= 0:
		return res

	case gap == 1:
		increment(rec)
		res.Incremented = true
		res.FreezeEarned = maybeEarnFreeze(rec, today)

	case gap == 2 && rec.StreakFreezes > 0:
		rec.StreakFreezes--
		increment(rec)
		res.Incremented = true
		res.FreezeUsed = true

	default:
		rec.CurrentStreak = 1
		res.Reset = true
	}

	rec.LastActiveDate = today
	res.Changed = true
	res.Streak = rec.CurrentStreak
	res.Milestone = res.Incremented && IsMilestone(rec.CurrentStreak)
	return res
}

func increment(rec *progress.Record) {
	rec.CurrentStreak++
	rec.LongestStreak = max(rec.LongestStreak, rec.CurrentStreak)
}

func maybeEarnFreeze(rec *progress.Record, today progress.Day) bool {
	if rec.CurrentStreak <= 0 || rec.CurrentStreak%FreezeEvery != 0 {
		return false
	}
	if rec.StreakFreezes >= progress.MaxStreakFreezes {
		return false
	}
	if rec.StreakFreezeLastEarned == today {
		return false
	}
	rec.StreakFreezes = min(progress.MaxStreakFreezes, rec.StreakFreezes+1)
	rec.StreakFreezeLastEarned = today
	return true
}
