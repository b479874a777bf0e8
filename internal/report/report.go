// Package report exports the progress dashboard as a spreadsheet.
package report

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/p-n-ai/pai-academy/internal/achievement"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
	"github.com/p-n-ai/pai-academy/internal/unlock"
	"github.com/p-n-ai/pai-academy/internal/xp"
)

// Sheet names, in workbook order.
const (
	SheetSummary      = "Summary"
	SheetCategories   = "Categories"
	SheetAchievements = "Achievements"
	SheetDailyXP      = "Daily XP"
	SheetGames        = "Games"
)

// ContentType is the MIME type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Build renders the record into a workbook. Numbers in text cells are
// formatted for lang. The caller must Close the file.
func Build(rec *progress.Record, c *catalog.Catalog, lang language.Tag) (*excelize.File, error) {
	f := excelize.NewFile()
	p := message.NewPrinter(lang)

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0E7FF"}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		f.Close()
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetCategories, SheetAchievements, SheetDailyXP, SheetGames} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
	}

	w := &writer{f: f, header: header}
	w.summary(rec, c, p)
	w.categories(rec, c)
	w.achievements(rec)
	w.dailyXP(rec)
	w.games(rec)
	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// Write builds the workbook and streams it to out.
func Write(out io.Writer, rec *progress.Record, c *catalog.Catalog, lang language.Tag) error {
	f, err := Build(rec, c, lang)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.Write(out); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// writer keeps the first error so the sheet builders stay linear.
type writer struct {
	f      *excelize.File
	header int
	err    error
}

func (w *writer) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("%s row %d: %w", sheet, n, err)
	}
}

func (w *writer) headerRow(sheet string, titles ...any) {
	w.row(sheet, 1, titles...)
	if w.err != nil {
		return
	}
	last, err := excelize.CoordinatesToCellName(len(titles), 1)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = err
		return
	}
	lastCol, _, _ := excelize.SplitCellName(last)
	if err := w.f.SetColWidth(sheet, "A", lastCol, 22); err != nil {
		w.err = err
	}
}

func (w *writer) summary(rec *progress.Record, c *catalog.Catalog, p *message.Printer) {
	level := xp.LevelFor(rec.TotalXP)
	next := "max level"
	if threshold, ok := xp.NextThreshold(rec.TotalXP); ok {
		next = p.Sprintf("%d XP", threshold)
	}
	unlocked := len(rec.UnlockedAchievementIDs)

	rows := [][]any{
		{"Name", rec.Name},
		{"Level", p.Sprintf("%d · %s", level.Number, level.Title)},
		{"Total XP", rec.TotalXP},
		{"Next level at", next},
		{"Level progress", p.Sprintf("%.0f%%", xp.ProgressToNextLevel(rec.TotalXP)*100)},
		{"Current streak", rec.CurrentStreak},
		{"Longest streak", rec.LongestStreak},
		{"Streak freezes", rec.StreakFreezes},
		{"Hearts", p.Sprintf("%d / %d", rec.Hearts, progress.MaxHearts)},
		{"Daily goal", p.Sprintf("%d / %d XP (%s)", rec.TodayXP, rec.DailyXPGoal, rec.DailyGoalTier)},
		{"Lessons completed", rec.TotalLessonsCompleted},
		{"Distinct lessons", p.Sprintf("%d / %d", len(rec.CompletedLessonIDs), c.TotalLessons())},
		{"Perfect lessons", len(rec.PerfectLessonIDs)},
		{"Accuracy", p.Sprintf("%.1f%%", rec.Accuracy()*100)},
		{"Best correct run", rec.BestCorrectRun},
		{"Time learning", rec.TotalTimeLearning.Round(time.Second).String()},
		{"Games played", rec.GamesPlayed},
		{"Achievements", p.Sprintf("%d / %d", unlocked, len(achievement.Definitions))},
		{"Active days", len(rec.ActiveDays)},
	}
	w.headerRow(SheetSummary, "Metric", "Value")
	for i, r := range rows {
		w.row(SheetSummary, i+2, r...)
	}
}

func (w *writer) categories(rec *progress.Record, c *catalog.Catalog) {
	w.headerRow(SheetCategories, "Category", "Completed", "Lessons", "Stars", "Complete", "Locked")
	for i, st := range unlock.CategoryStates(rec, c) {
		var stars int
		for _, l := range c.LessonsForCategory(st.ID) {
			stars += rec.Stars(l.ID)
		}
		w.row(SheetCategories, i+2, st.Name, st.Completed, st.Total, stars, yesNo(st.Complete), yesNo(st.Locked))
	}
}

func (w *writer) achievements(rec *progress.Record) {
	w.headerRow(SheetAchievements, "Badge", "Name", "Description", "Unlocked")
	for i, st := range achievement.Statuses(rec) {
		w.row(SheetAchievements, i+2, st.Icon, st.Name, st.Description, yesNo(st.Unlocked))
	}
}

func (w *writer) dailyXP(rec *progress.Record) {
	w.headerRow(SheetDailyXP, "Date", "XP")
	days := make([]string, 0, len(rec.DailyXPLog))
	for day := range rec.DailyXPLog {
		days = append(days, day)
	}
	slices.Sort(days)
	for i, day := range days {
		w.row(SheetDailyXP, i+2, day, rec.DailyXPLog[day])
	}
}

func (w *writer) games(rec *progress.Record) {
	w.headerRow(SheetGames, "Game", "High score", "Played")
	for i, g := range xp.GameTypes {
		score, played := rec.GameHighScores[g]
		w.row(SheetGames, i+2, g, score, yesNo(played))
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
