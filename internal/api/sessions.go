package api

import (
	"net/http"

	"github.com/p-n-ai/pai-academy/internal/academy"
	"github.com/p-n-ai/pai-academy/internal/catalog"
	"github.com/p-n-ai/pai-academy/internal/hearts"
	"github.com/p-n-ai/pai-academy/internal/session"
	"github.com/p-n-ai/pai-academy/internal/unlock"
)

// QuestionView is a question without its answer key.
type QuestionView struct {
	ID         string               `json:"id"`
	Type       catalog.QuestionType `json:"type"`
	Text       string               `json:"text"`
	Options    []string             `json:"options,omitempty"`
	MatchPairs []catalog.MatchPair  `json:"match_pairs,omitempty"`
}

func newQuestionView(q catalog.Question) QuestionView {
	return QuestionView{ID: q.ID, Type: q.Type, Text: q.Text, Options: q.Options, MatchPairs: q.MatchPairs}
}

type lessonSessionView struct {
	SessionID string        `json:"session_id"`
	LessonID  string        `json:"lesson_id"`
	Index     int           `json:"index"`
	Total     int           `json:"total"`
	Question  *QuestionView `json:"question,omitempty"`
	Done      bool          `json:"done"`
}

func newLessonSessionView(ls *session.Lesson) lessonSessionView {
	q, index, ok := ls.Current()
	v := lessonSessionView{
		SessionID: ls.ID,
		LessonID:  ls.LessonID(),
		Index:     index,
		Total:     ls.Result().Total,
		Done:      !ok,
	}
	if ok {
		qv := newQuestionView(q)
		v.Question = &qv
	}
	return v
}

type startLessonRequest struct {
	LessonID string `json:"lesson_id"`
}

func (s *Server) handleStartLesson(w http.ResponseWriter, r *http.Request) {
	var req startLessonRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lesson, ok := s.svc.Catalog().Lesson(req.LessonID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown lesson")
		return
	}
	rec := s.svc.Snapshot()
	if !unlock.LessonUnlocked(lesson.ID, rec, s.svc.Catalog()) {
		writeServiceError(w, academy.ErrLessonLocked)
		return
	}
	if hearts.IsOut(rec) {
		writeServiceError(w, academy.ErrOutOfHearts)
		return
	}

	ls := session.NewLesson(lesson, s.svc, nil)
	s.sessions.AddLesson(ls)
	writeJSON(w, http.StatusCreated, newLessonSessionView(ls))
}

func (s *Server) lessonSession(w http.ResponseWriter, r *http.Request) (*session.Lesson, bool) {
	ls, ok := s.sessions.Lesson(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
	}
	return ls, ok
}

func (s *Server) handleLessonState(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lessonSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newLessonSessionView(ls))
}

type lessonAnswerRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleLessonAnswer(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lessonSession(w, r)
	if !ok {
		return
	}
	var req lessonAnswerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	fb, err := ls.Submit(r.Context(), req.Answer)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (s *Server) handleLessonAdvance(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lessonSession(w, r)
	if !ok {
		return
	}
	if _, _, err := ls.Advance(); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newLessonSessionView(ls))
}

func (s *Server) handleLessonFinish(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lessonSession(w, r)
	if !ok {
		return
	}
	out, err := ls.Finish(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.sessions.Remove(ls.ID)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLessonAbort(w http.ResponseWriter, r *http.Request) {
	ls, ok := s.lessonSession(w, r)
	if !ok {
		return
	}
	if err := ls.Abort(); err != nil {
		writeServiceError(w, err)
		return
	}
	s.sessions.Remove(ls.ID)
	w.WriteHeader(http.StatusNoContent)
}

type gameSessionView struct {
	SessionID string `json:"session_id"`
	GameType  string `json:"game_type"`
	Score     int    `json:"score"`
	Remaining int    `json:"remaining_seconds"`
	Closed    bool   `json:"closed"`
}

func newGameSessionView(g *session.Game) gameSessionView {
	return gameSessionView{
		SessionID: g.ID,
		GameType:  g.Type,
		Score:     g.Score(),
		Remaining: g.Remaining(),
		Closed:    g.Closed(),
	}
}

type startGameRequest struct {
	GameType string `json:"game_type"`
	Seconds  *int   `json:"seconds"`
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req startGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g := session.NewGame(req.GameType, s.svc)
	if !g.Known() {
		writeError(w, http.StatusBadRequest, "unknown game type")
		return
	}
	seconds := s.gameSeconds
	if req.Seconds != nil {
		seconds = *req.Seconds
	}
	if seconds > 0 {
		g.StartCountdown(s.ctx, seconds, nil)
	}
	s.sessions.AddGame(g)
	writeJSON(w, http.StatusCreated, newGameSessionView(g))
}

func (s *Server) gameSession(w http.ResponseWriter, r *http.Request) (*session.Game, bool) {
	g, ok := s.sessions.Game(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown session")
	}
	return g, ok
}

func (s *Server) handleGameState(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newGameSessionView(g))
}

type gamePointsRequest struct {
	Points int `json:"points"`
}

func (s *Server) handleGamePoints(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameSession(w, r)
	if !ok {
		return
	}
	var req gamePointsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if _, err := g.AddPoints(req.Points); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newGameSessionView(g))
}

func (s *Server) handleGameFinish(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameSession(w, r)
	if !ok {
		return
	}
	out, err := g.Finish(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	s.sessions.Remove(g.ID)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGameAbort(w http.ResponseWriter, r *http.Request) {
	g, ok := s.gameSession(w, r)
	if !ok {
		return
	}
	if err := g.Abort(); err != nil {
		writeServiceError(w, err)
		return
	}
	s.sessions.Remove(g.ID)
	w.WriteHeader(http.StatusNoContent)
}
