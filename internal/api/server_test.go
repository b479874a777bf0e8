package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/language"

	"github.com/p-n-ai/pai-academy/internal/academy"
	"github.com/p-n-ai/pai-academy/internal/api"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/progress"
	"github.com/p-n-ai/pai-academy/internal/report"
)

type healthFunc func(context.Context) error

func (f healthFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	q := func(id, answer string) catalog.Question {
		return catalog.Question{ID: id, Type: catalog.MultipleChoice, Text: id, Options: []string{"A", "B"}, CorrectAnswer: answer}
	}
	c, err := catalog.New(
		catalog.Category{ID: "ai_basics", Name: "AI Basics", Lessons: []catalog.Lesson{
			{ID: "ab_l1", Title: "One", Questions: []catalog.Question{q("q1", "A"), q("q2", "B")}},
			{ID: "ab_l2", Title: "Two", Order: 1, Questions: []catalog.Question{q("q3", "A")}},
		}},
		catalog.Category{ID: "ai_ethics", Name: "AI Ethics", Order: 1,
			Unlock:  catalog.UnlockRequirement{Kind: catalog.UnlockCompleteCategory, CategoryID: "ai_basics"},
			Lessons: []catalog.Lesson{{ID: "eth_l1", Title: "Bias", Questions: []catalog.Question{q("q4", "A")}}}},
	)
	if err != nil {
		t.Fatalf("catalog.New() error = %v", err)
	}
	return c
}

type testEnv struct {
	handler http.Handler
	server  *api.Server
	svc     *academy.Service
	hub     *api.Hub
	health  error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{hub: api.NewHub()}
	svc, err := academy.New(t.Context(), academy.Config{
		Store:     progress.NewMemoryStore(),
		Catalog:   testCatalog(t),
		Clock:     &progress.FixedClock{T: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)},
		Publisher: env.hub,
	})
	if err != nil {
		t.Fatalf("academy.New() error = %v", err)
	}
	env.svc = svc
	env.server = api.NewServer(api.Config{
		Service:   svc,
		Health:    healthFunc(func(context.Context) error { return env.health }),
		Hub:       env.hub,
		Languages: []language.Tag{language.English, language.German},
	})
	t.Cleanup(env.server.Close)
	env.handler = env.server.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestReadyz(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	env.health = errors.New("connection refused")
	if rec := env.do(t, http.MethodGet, "/readyz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestProgress(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/progress", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := decode[map[string]any](t, rec)
	if body["hearts"] != float64(progress.MaxHearts) {
		t.Errorf("hearts = %v", body["hearts"])
	}
	if body["next_level_xp"] != float64(100) {
		t.Errorf("next_level_xp = %v, want 100", body["next_level_xp"])
	}
}

func TestCompleteLesson(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/lessons/complete",
		`{"lesson_id":"ab_l1","correct":2,"total":2,"first_try":2,"duration_seconds":30}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	out := decode[academy.Outcome](t, rec)
	// 2 x 15 + 25 + 50, then the daily goal bonus.
	if out.XPDelta != 135 || out.Stars != 3 {
		t.Errorf("XPDelta = %d Stars = %d, want 135/3", out.XPDelta, out.Stars)
	}
	if env.svc.Snapshot().TotalTimeLearning != 30*time.Second {
		t.Errorf("TotalTimeLearning = %v", env.svc.Snapshot().TotalTimeLearning)
	}
}

func TestCompleteLesson_Locked(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"locked category", `{"lesson_id":"eth_l1","correct":1,"total":1,"first_try":1}`},
		{"previous lesson not done", `{"lesson_id":"ab_l2","correct":1,"total":1,"first_try":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			rec := env.do(t, http.MethodPost, "/v1/lessons/complete", tt.body)
			if rec.Code != http.StatusForbidden {
				t.Fatalf("status = %d body = %s, want 403", rec.Code, rec.Body.String())
			}
			snap := env.svc.Snapshot()
			if len(snap.CompletedLessonIDs) != 0 || snap.TotalXP != 0 {
				t.Errorf("completed = %v TotalXP = %d, want nothing recorded", snap.CompletedLessonIDs, snap.TotalXP)
			}
		})
	}
}

func TestLessonSession_FinishEarly(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/v1/sessions/lessons", `{"lesson_id":"ab_l1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	base := "/v1/sessions/lessons/" + decode[map[string]any](t, rec)["session_id"].(string)

	env.do(t, http.MethodPost, base+"/answer", `{"answer":"A"}`)
	if rec := env.do(t, http.MethodPost, base+"/finish", ""); rec.Code != http.StatusConflict {
		t.Fatalf("early finish status = %d, want 409", rec.Code)
	}
	if snap := env.svc.Snapshot(); snap.HasCompletedLesson("ab_l1") || snap.TotalXP != 0 {
		t.Errorf("completed = %v TotalXP = %d, want nothing recorded", snap.CompletedLessonIDs, snap.TotalXP)
	}
	// The session stays open so the learner can carry on.
	if rec := env.do(t, http.MethodPost, base+"/advance", ""); rec.Code != http.StatusOK {
		t.Errorf("advance after early finish status = %d, want 200", rec.Code)
	}
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"malformed json", http.MethodPost, "/v1/answers", `{"correct":`, http.StatusBadRequest},
		{"unknown field", http.MethodPost, "/v1/games/complete", `{"game":"x"}`, http.StatusBadRequest},
		{"missing lesson id", http.MethodPost, "/v1/lessons/complete", `{}`, http.StatusBadRequest},
		{"invalid tier", http.MethodPut, "/v1/settings", `{"daily_goal_tier":"extreme"}`, http.StatusBadRequest},
		{"blank name", http.MethodPut, "/v1/settings", `{"name":"  "}`, http.StatusBadRequest},
		{"unknown category", http.MethodGet, "/v1/categories/nope/lessons", "", http.StatusNotFound},
		{"wrong method", http.MethodGet, "/v1/reset", "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if rec := env.do(t, tt.method, tt.path, tt.body); rec.Code != tt.want {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestAnswers_OutOfHearts(t *testing.T) {
	env := newTestEnv(t)
	for range progress.MaxHearts {
		if rec := env.do(t, http.MethodPost, "/v1/answers", `{"correct":false,"attempt":1}`); rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/v1/answers", `{"correct":false,"attempt":1}`)
	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPut, "/v1/settings",
		`{"name":" Grace ","daily_goal_tier":"serious","preferences":{"sound_enabled":false,"haptics_enabled":true,"notifications_enabled":false}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	snap := env.svc.Snapshot()
	if snap.Name != "Grace" || snap.DailyXPGoal != 100 || snap.Preferences.SoundEnabled {
		t.Errorf("settings not applied: name=%q goal=%d prefs=%+v", snap.Name, snap.DailyXPGoal, snap.Preferences)
	}
}

func TestOnboardingAndReset(t *testing.T) {
	env := newTestEnv(t)
	if rec := env.do(t, http.MethodPost, "/v1/onboarding/complete", `{"name":"Ada","daily_goal_tier":"regular"}`); rec.Code != http.StatusOK {
		t.Fatalf("onboarding status = %d", rec.Code)
	}
	env.do(t, http.MethodPost, "/v1/games/complete", `{"game_type":"speedRound","score":4}`)
	if rec := env.do(t, http.MethodPost, "/v1/reset", ""); rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	snap := env.svc.Snapshot()
	if snap.TotalXP != 0 || !snap.OnboardingCompleted || snap.Name != "Ada" {
		t.Errorf("after reset xp=%d onboarding=%v name=%q", snap.TotalXP, snap.OnboardingCompleted, snap.Name)
	}
}

func TestCatalog_ETag(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/v1/catalog", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	etag := rec.Header().Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}

	req := httptest.NewRequest(http.MethodGet, "/v1/catalog", nil)
	req.Header.Set("If-None-Match", etag)
	cached := httptest.NewRecorder()
	env.handler.ServeHTTP(cached, req)
	if cached.Code != http.StatusNotModified {
		t.Errorf("status = %d, want 304", cached.Code)
	}
}

func TestCategoriesAndLessons(t *testing.T) {
	env := newTestEnv(t)

	cats := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/v1/categories", ""))
	if len(cats) != 2 || cats[0]["locked"] != false || cats[1]["locked"] != true {
		t.Errorf("categories = %v", cats)
	}
	lessons := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/v1/categories/ai_basics/lessons", ""))
	if len(lessons) != 2 || lessons[0]["locked"] != false || lessons[1]["locked"] != true {
		t.Errorf("lessons = %v", lessons)
	}
	achievements := decode[[]map[string]any](t, env.do(t, http.MethodGet, "/v1/achievements", ""))
	if len(achievements) != 20 {
		t.Errorf("achievements = %d, want 20", len(achievements))
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/export.xlsx", nil)
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != report.ContentType {
		t.Errorf("Content-Type = %q", got)
	}
	if got := rec.Header().Get("Content-Language"); got != "de" {
		t.Errorf("Content-Language = %q, want de", got)
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()
	if name, _ := f.GetCellValue(report.SheetSummary, "B2"); name != progress.DefaultName {
		t.Errorf("Summary!B2 = %q", name)
	}
}

func TestLessonSession(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/v1/sessions/lessons", `{"lesson_id":"eth_l1"}`); rec.Code != http.StatusForbidden {
		t.Errorf("locked lesson status = %d, want 403", rec.Code)
	}
	if rec := env.do(t, http.MethodPost, "/v1/sessions/lessons", `{"lesson_id":"nope"}`); rec.Code != http.StatusNotFound {
		t.Errorf("unknown lesson status = %d, want 404", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/v1/sessions/lessons", `{"lesson_id":"ab_l1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	started := decode[map[string]any](t, rec)
	id := started["session_id"].(string)
	question := started["question"].(map[string]any)
	if _, leaked := question["correct_answer"]; leaked {
		t.Error("question view leaks the answer")
	}
	base := "/v1/sessions/lessons/" + id

	fb := decode[map[string]any](t, env.do(t, http.MethodPost, base+"/answer", `{"answer":"A"}`))
	if fb["correct"] != true {
		t.Errorf("feedback = %v", fb)
	}
	env.do(t, http.MethodPost, base+"/advance", "")
	fb = decode[map[string]any](t, env.do(t, http.MethodPost, base+"/answer", `{"answer":"A"}`))
	if fb["correct"] != false || fb["correct_answer"] != "B" {
		t.Errorf("feedback = %v", fb)
	}
	env.do(t, http.MethodPost, base+"/answer", `{"answer":"B"}`)
	state := decode[map[string]any](t, env.do(t, http.MethodPost, base+"/advance", ""))
	if state["done"] != true {
		t.Errorf("state after last advance = %v", state)
	}

	rec = env.do(t, http.MethodPost, base+"/finish", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("finish status = %d body = %s", rec.Code, rec.Body.String())
	}
	// A question answered correctly on retry still counts as correct.
	out := decode[academy.Outcome](t, rec)
	if out.Stars != 3 {
		t.Errorf("Stars = %d, want 3", out.Stars)
	}
	if rec := env.do(t, http.MethodPost, base+"/finish", ""); rec.Code != http.StatusNotFound {
		t.Errorf("finished session status = %d, want 404", rec.Code)
	}
	// The wrong answer cost a heart; the perfect finish earned it back.
	if snap := env.svc.Snapshot(); snap.Hearts != progress.MaxHearts || !snap.HasCompletedLesson("ab_l1") {
		t.Errorf("hearts = %d completed = %v", snap.Hearts, snap.CompletedLessonIDs)
	}
}

func TestGameSession(t *testing.T) {
	env := newTestEnv(t)

	if rec := env.do(t, http.MethodPost, "/v1/sessions/games", `{"game_type":"chess"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown game status = %d, want 400", rec.Code)
	}

	rec := env.do(t, http.MethodPost, "/v1/sessions/games", `{"game_type":"aiOrNot","seconds":0}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	id := decode[map[string]any](t, rec)["session_id"].(string)
	base := "/v1/sessions/games/" + id

	env.do(t, http.MethodPost, base+"/points", `{"points":3}`)
	state := decode[map[string]any](t, env.do(t, http.MethodGet, base, ""))
	if state["score"] != float64(3) {
		t.Errorf("score = %v, want 3", state["score"])
	}

	out := decode[academy.Outcome](t, env.do(t, http.MethodPost, base+"/finish", ""))
	// 3 x 8 XP is below the casual goal.
	if out.XPDelta != 24 {
		t.Errorf("XPDelta = %d, want 24", out.XPDelta)
	}
	if snap := env.svc.Snapshot(); snap.GameHighScores["aiOrNot"] != 3 {
		t.Errorf("high score = %d", snap.GameHighScores["aiOrNot"])
	}
}

func TestGameSession_Abort(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/v1/sessions/games", `{"game_type":"speedRound","seconds":60}`)
	id := decode[map[string]any](t, rec)["session_id"].(string)

	if rec := env.do(t, http.MethodDelete, "/v1/sessions/games/"+id, ""); rec.Code != http.StatusNoContent {
		t.Errorf("abort status = %d, want 204", rec.Code)
	}
	if env.svc.Snapshot().GamesPlayed != 0 {
		t.Error("aborted game was committed")
	}
}

func TestSignalStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.handler)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()
	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+"/v1/signals", nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.CloseNow()

	for env.hub.Subscribers() == 0 {
		select {
		case <-ctx.Done():
			t.Fatal("subscriber never registered")
		case <-time.After(10 * time.Millisecond):
		}
	}

	resp, err := http.Post(srv.URL+"/v1/answers", "application/json", strings.NewReader(`{"correct":true,"attempt":1}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	var msg api.SignalMessage
	if err := wsjson.Read(ctx, conn, &msg); err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if msg.ProfileID != progress.DefaultProfileID || len(msg.Signals) != 2 || msg.Signals[0].Type != academy.SoundCorrect {
		t.Errorf("message = %+v", msg)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
