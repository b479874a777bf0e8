// Package xp implements XP rewards and the level table.
package xp

import (
	"github.com/p-n-ai/pai-academy/internal/progress"
)

// Reward constants.
const (
	CorrectFirstTry = 15
	CorrectRetry    = 5
	LessonComplete  = 25
	PerfectBonus    = 50
	DailyGoalBonus  = 30
)

// Level is one row of the level table.
type Level struct {
	Number    int    `json:"level"`
	Title     string `json:"title"`
	Threshold int    `json:"xp_threshold"`
}

// Levels is strictly increasing in both number and threshold.
var Levels = []Level{
	{1, "AI Curious", 0},
	{2, "Data Explorer", 100},
	{3, "Algorithm Apprentice", 300},
	{4, "Neural Networker", 600},
	{5, "Model Builder", 1000},
	{6, "Prompt Whisperer", 1500},
	{7, "AI Strategist", 2200},
	{8, "Ethics Guardian", 3000},
	{9, "Machine Master", 4000},
	{10, "AI Visionary", 5500},
	{11, "Digital Sage", 7500},
	{12, "Singularity Scholar", 10000},
}

// MaxLevel is the last level in the table.
func MaxLevel() Level {
	return Levels[len(Levels)-1]
}

// ForCorrectAnswer returns the XP for a correct answer.
func ForCorrectAnswer(firstTry bool) int {
	if firstTry {
		return CorrectFirstTry
	}
	return CorrectRetry
}

// ForLessonCompletion returns the completion bonus, plus the perfect bonus
// when every question was answered correctly.
func ForLessonCompletion(perfect bool) int {
	if perfect {
		return LessonComplete + PerfectBonus
	}
	return LessonComplete
}

// LevelFor returns the highest level whose threshold is <= xp.
func LevelFor(xp int) Level {
	current := Levels[0]
	for _, l := range Levels {
		if xp >= l.Threshold {
			current = l
		}
	}
	return current
}

// NextThreshold returns the XP needed for the next level. ok is false at max level.
func NextThreshold(xp int) (int, bool) {
	current := LevelFor(xp)
	if current.Number >= MaxLevel().Number {
		return MaxLevel().Threshold, false
	}
	return Levels[current.Number].Threshold, true
}

// ProgressToNextLevel interpolates linearly between the current and next
// thresholds. Returns 1 at max level.
func ProgressToNextLevel(xp int) float64 {
	next, ok := NextThreshold(xp)
	if !ok {
		return 1
	}
	current := LevelFor(xp).Threshold
	span := next - current
	if span <= 0 {
		return 1
	}
	p := float64(xp-current) / float64(span)
	return max(0, min(1, p))
}

// DidLevelUp reports whether moving from oldXP to newXP crosses into a
// strictly higher level, and returns that level.
func DidLevelUp(oldXP, newXP int) (Level, bool) {
	next := LevelFor(newXP)
	return next, next.Number > LevelFor(oldXP).Number
}

// Gain describes the effect of one Apply call.
type Gain struct {
	Amount    int   `json:"amount"`
	OldLevel  Level `json:"old_level"`
	NewLevel  Level `json:"new_level"`
	LeveledUp bool  `json:"leveled_up"`
}

// RollDay zeroes TodayXP when the record's XP day is not today.
func RollDay(rec *progress.Record, today progress.Day) bool {
	if rec.TodayXPDay == today {
		return false
	}
	rec.TodayXP = 0
	rec.TodayXPDay = today
	return true
}

// Apply adds amount to the record exactly once: total XP, level, today's XP
// and the daily log. Non-positive amounts change nothing.
func Apply(rec *progress.Record, amount int, today progress.Day) Gain {
	old := LevelFor(rec.TotalXP)
	if amount <= 0 {
		return Gain{OldLevel: old, NewLevel: old}
	}

	RollDay(rec, today)
	oldXP := rec.TotalXP
	rec.TotalXP += amount
	rec.TodayXP += amount
	if rec.DailyXPLog == nil {
		rec.DailyXPLog = map[string]int{}
	}
	rec.DailyXPLog[today.String()] += amount

	level, up := DidLevelUp(oldXP, rec.TotalXP)
	rec.CurrentLevel = level.Number
	return Gain{Amount: amount, OldLevel: old, NewLevel: level, LeveledUp: up}
}
