package api

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-academy/internal/academy"
	"github.com/p-n-ai/pai-academy/internal/achievement"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
	"github.com/p-n-ai/pai-academy/internal/report"
	"github.com/p-n-ai/pai-academy/internal/unlock"
	"github.com/p-n-ai/pai-academy/internal/xp"
)

// ProgressView is the record plus the values derived from it.
type ProgressView struct {
	*progress.Record
	Level             xp.Level `json:"level"`
	NextLevelXP       int      `json:"next_level_xp,omitempty"`
	LevelProgress     float64  `json:"level_progress"`
	DailyGoalProgress float64  `json:"daily_goal_progress"`
	DailyGoalMet      bool     `json:"daily_goal_met"`
	Accuracy          float64  `json:"accuracy"`
	AchievementCount  int      `json:"achievement_count"`
}

func newProgressView(rec *progress.Record) ProgressView {
	v := ProgressView{
		Record:            rec,
		Level:             xp.LevelFor(rec.TotalXP),
		LevelProgress:     xp.ProgressToNextLevel(rec.TotalXP),
		DailyGoalProgress: rec.DailyGoalProgress(),
		DailyGoalMet:      rec.DailyGoalMet(),
		Accuracy:          rec.Accuracy(),
		AchievementCount:  len(rec.UnlockedAchievementIDs),
	}
	if next, ok := xp.NextThreshold(rec.TotalXP); ok {
		v.NextLevelXP = next
	}
	return v
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, newProgressView(s.svc.Snapshot()))
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.CheckIn(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type answerRequest struct {
	Correct bool `json:"correct"`
	Attempt int  `json:"attempt"`
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.svc.RecordAnswer(r.Context(), req.Correct, max(req.Attempt, 1))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type completeLessonRequest struct {
	LessonID        string `json:"lesson_id"`
	CategoryID      string `json:"category_id"`
	Correct         int    `json:"correct"`
	Total           int    `json:"total"`
	FirstTry        int    `json:"first_try"`
	Answers         []bool `json:"answers"`
	DurationSeconds int    `json:"duration_seconds"`
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	var req completeLessonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.LessonID == "" {
		writeError(w, http.StatusBadRequest, "lesson_id is required")
		return
	}
	out, err := s.svc.CompleteLesson(r.Context(), academy.LessonResult{
		LessonID:   req.LessonID,
		CategoryID: req.CategoryID,
		Correct:    req.Correct,
		Total:      req.Total,
		FirstTry:   req.FirstTry,
		Answers:    req.Answers,
		Duration:   time.Duration(max(req.DurationSeconds, 0)) * time.Second,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type completeGameRequest struct {
	GameType string `json:"game_type"`
	Score    int    `json:"score"`
}

func (s *Server) handleCompleteGame(w http.ResponseWriter, r *http.Request) {
	var req completeGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.svc.CompleteGame(r.Context(), req.GameType, req.Score)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.Reset(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type onboardingRequest struct {
	Name          string            `json:"name"`
	DailyGoalTier progress.GoalTier `json:"daily_goal_tier"`
}

func (s *Server) handleOnboarding(w http.ResponseWriter, r *http.Request) {
	var req onboardingRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	out, err := s.svc.CompleteOnboarding(r.Context(), req.Name, req.DailyGoalTier)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type settingsRequest struct {
	Name          *string               `json:"name"`
	DailyGoalTier *progress.GoalTier    `json:"daily_goal_tier"`
	Preferences   *progress.Preferences `json:"preferences"`
}

// handleSettings applies each field that is present. Invalid values are
// rejected before anything is changed.
func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.DailyGoalTier != nil && !req.DailyGoalTier.Valid() {
		writeServiceError(w, academy.ErrInvalidGoalTier)
		return
	}
	if req.Name != nil {
		if _, err := academy.NormalizeName(*req.Name); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	ctx := r.Context()
	if req.Name != nil {
		if _, err := s.svc.Rename(ctx, *req.Name); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.DailyGoalTier != nil {
		if _, err := s.svc.SetDailyGoal(ctx, *req.DailyGoalTier); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	if req.Preferences != nil {
		if _, err := s.svc.SetPreferences(ctx, *req.Preferences); err != nil {
			writeServiceError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, newProgressView(s.svc.Snapshot()))
}

type catalogResponse struct {
	Fingerprint  string             `json:"fingerprint"`
	TotalLessons int                `json:"total_lessons"`
	Categories   []catalog.Category `json:"categories"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	c := s.svc.Catalog()
	etag := fmt.Sprintf("%q", c.Fingerprint())
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Fingerprint:  c.Fingerprint(),
		TotalLessons: c.TotalLessons(),
		Categories:   c.Categories(),
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, unlock.CategoryStates(s.svc.Snapshot(), s.svc.Catalog()))
}

func (s *Server) handleLessons(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	states := unlock.LessonStates(id, s.svc.Snapshot(), s.svc.Catalog())
	if states == nil {
		writeError(w, http.StatusNotFound, "unknown category")
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleAchievements(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, achievement.Statuses(s.svc.Snapshot()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	lang := s.exportLanguage(r)

	var buf bytes.Buffer
	if err := report.Write(&buf, s.svc.Snapshot(), s.svc.Catalog(), lang); err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="academy-progress.xlsx"`)
	w.Header().Set("Content-Language", lang.String())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// exportLanguage picks a locale from ?lang= or Accept-Language.
func (s *Server) exportLanguage(r *http.Request) language.Tag {
	var tags []language.Tag
	if q := r.URL.Query().Get("lang"); q != "" {
		if t, err := language.Parse(q); err == nil {
			tags = append(tags, t)
		}
	}
	if h := r.Header.Get("Accept-Language"); h != "" {
		if parsed, _, err := language.ParseAcceptLanguage(h); err == nil {
			tags = append(tags, parsed...)
		}
	}
	if len(tags) == 0 {
		return s.defaultLang
	}
	_, index, conf := s.languages.Match(tags...)
	if conf == language.No {
		return s.defaultLang
	}
	return s.supported[index]
}
