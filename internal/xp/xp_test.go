package xp_test

import (
	"testing"

	"github.com/p-n-ai/pai-academy/internal/progress"
	"github.com/p-n-ai/pai-academy/internal/xp"
)

const day1 = progress.Day("2026-03-10")

func TestRewards(t *testing.T) {
	if got := xp.ForCorrectAnswer(true); got != 15 {
		t.Errorf("ForCorrectAnswer(true) = %d, want 15", got)
	}
	if got := xp.ForCorrectAnswer(false); got != 5 {
		t.Errorf("ForCorrectAnswer(false) = %d, want 5", got)
	}
	if got := xp.ForLessonCompletion(false); got != 25 {
		t.Errorf("ForLessonCompletion(false) = %d, want 25", got)
	}
	if got := xp.ForLessonCompletion(true); got != 75 {
		t.Errorf("ForLessonCompletion(true) = %d, want 75", got)
	}
}

func TestLevelFor_Boundaries(t *testing.T) {
	if got := xp.LevelFor(0).Number; got != 1 {
		t.Errorf("LevelFor(0) = %d, want 1", got)
	}
	if got := xp.LevelFor(-50).Number; got != 1 {
		t.Errorf("LevelFor(-50) = %d, want 1", got)
	}
	for _, l := range xp.Levels {
		if got := xp.LevelFor(l.Threshold); got.Number != l.Number {
			t.Errorf("LevelFor(%d) = %d, want %d", l.Threshold, got.Number, l.Number)
		}
		if l.Threshold > 0 {
			if got := xp.LevelFor(l.Threshold - 1); got.Number != l.Number-1 {
				t.Errorf("LevelFor(%d) = %d, want %d", l.Threshold-1, got.Number, l.Number-1)
			}
		}
		if xp.LevelFor(l.Threshold) != xp.LevelFor(l.Threshold) {
			t.Error("LevelFor() should be idempotent")
		}
	}
	if got := xp.LevelFor(1_000_000).Number; got != 12 {
		t.Errorf("LevelFor(1e6) = %d, want 12", got)
	}
}

func TestLevels_StrictlyIncreasing(t *testing.T) {
	for i := 1; i < len(xp.Levels); i++ {
		prev, cur := xp.Levels[i-1], xp.Levels[i]
		if cur.Number != prev.Number+1 || cur.Threshold <= prev.Threshold {
			t.Errorf("level table not increasing at %d: %+v after %+v", i, cur, prev)
		}
	}
}

func TestNextThresholdAndProgress(t *testing.T) {
	tests := []struct {
		name     string
		xp       int
		wantNext int
		wantOK   bool
		wantProg float64
	}{
		{"start", 0, 100, true, 0},
		{"half", 50, 100, true, 0.5},
		{"level2", 100, 300, true, 0},
		{"mid-level2", 200, 300, true, 0.5},
		{"max", 10000, 10000, false, 1},
		{"beyond-max", 20000, 10000, false, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, ok := xp.NextThreshold(tt.xp)
			if next != tt.wantNext || ok != tt.wantOK {
				t.Errorf("NextThreshold(%d) = %d,%v want %d,%v", tt.xp, next, ok, tt.wantNext, tt.wantOK)
			}
			if got := xp.ProgressToNextLevel(tt.xp); got != tt.wantProg {
				t.Errorf("ProgressToNextLevel(%d) = %v, want %v", tt.xp, got, tt.wantProg)
			}
		})
	}
}

func TestApply_AccumulatesWithinLevel(t *testing.T) {
	rec := progress.New("p", "", day1)
	xp.Apply(rec, 15, day1)
	g := xp.Apply(rec, 10, day1)

	if rec.TotalXP != 25 {
		t.Errorf("TotalXP = %d, want 25", rec.TotalXP)
	}
	if rec.CurrentLevel != 1 || g.LeveledUp {
		t.Errorf("level = %d leveledUp = %v, want 1 false", rec.CurrentLevel, g.LeveledUp)
	}
	if rec.TodayXP != 25 || rec.DailyXPLog[day1.String()] != 25 {
		t.Errorf("today = %d log = %d, want 25", rec.TodayXP, rec.DailyXPLog[day1.String()])
	}
}

func TestApply_CrossingThresholdLevelsUp(t *testing.T) {
	rec := progress.New("p", "", day1)
	rec.TotalXP = 95

	g := xp.Apply(rec, 5, day1)

	if rec.TotalXP != 100 {
		t.Errorf("TotalXP = %d, want 100", rec.TotalXP)
	}
	if !g.LeveledUp || g.OldLevel.Number != 1 || g.NewLevel.Number != 2 {
		t.Errorf("gain = %+v, want 1 -> 2 level up", g)
	}
	if rec.CurrentLevel != 2 {
		t.Errorf("CurrentLevel = %d, want 2", rec.CurrentLevel)
	}
}

func TestApply_IgnoresNonPositive(t *testing.T) {
	rec := progress.New("p", "", day1)
	rec.TotalXP = 40
	xp.Apply(rec, -10, day1)
	xp.Apply(rec, 0, day1)
	if rec.TotalXP != 40 {
		t.Errorf("TotalXP = %d, want 40", rec.TotalXP)
	}
}

func TestApply_RollsTodayXP(t *testing.T) {
	rec := progress.New("p", "", day1)
	xp.Apply(rec, 20, day1)

	day2 := day1.AddDays(1)
	xp.Apply(rec, 15, day2)

	if rec.TodayXP != 15 {
		t.Errorf("TodayXP = %d, want 15 after rollover", rec.TodayXP)
	}
	if rec.TodayXPDay != day2 {
		t.Errorf("TodayXPDay = %s, want %s", rec.TodayXPDay, day2)
	}
	if rec.DailyXPLog[day1.String()] != 20 || rec.DailyXPLog[day2.String()] != 15 {
		t.Errorf("DailyXPLog = %v", rec.DailyXPLog)
	}
}

func TestDidLevelUp_MultipleLevels(t *testing.T) {
	level, up := xp.DidLevelUp(90, 650)
	if !up || level.Number != 4 {
		t.Errorf("DidLevelUp(90, 650) = %d,%v want 4,true", level.Number, up)
	}
	if _, up := xp.DidLevelUp(650, 650); up {
		t.Error("no change should not level up")
	}
}

func TestForGame(t *testing.T) {
	tests := []struct {
		game   string
		score  int
		want   int
		wantOK bool
	}{
		{xp.GameSpeedRound, 10, 50, true},
		{xp.GameAIOrNot, 3, 24, true},
		{xp.GameBuzzwordBuster, 2, 16, true},
		{xp.GameEthicsCourt, 4, 40, true},
		{xp.GamePromptCraft, 1, 10, true},
		{xp.GameSpeedRound, -3, 0, true},
		{"chess", 10, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.game, func(t *testing.T) {
			got, ok := xp.ForGame(tt.game, tt.score)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ForGame(%s, %d) = %d,%v want %d,%v", tt.game, tt.score, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}
