package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-progress/internal/auth/middleware"
	"github.com/mind-engage/mindengage-progress/internal/lessonapi"
	"github.com/mind-engage/mindengage-progress/internal/progress"
	"github.com/mind-engage/mindengage-progress/internal/rbac"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

// ProgressAPI serves the lesson tracker of the authenticated learner.
type ProgressAPI struct {
	Sessions *progress.Registry
	// Storage returns the backing store for a request.
	Storage func(ctx context.Context) progress.Storage
	Events  *syncx.EventRepo  // optional
	Lessons *lessonapi.Client // optional
}

// MountProgress mounts the tracker routes under /{lessonID}.
func MountProgress(r chi.Router, api *ProgressAPI) {
	r.Route("/{lessonID}", func(lr chi.Router) {
		view := lr.With(rbac.RequireAny("progress:view-own", "progress:view-all"))
		view.Get("/progress", api.getProgress)
		view.Get("/quiz", api.getQuiz)
		lr.With(rbac.RequireAny("events:view-own", "events:view-all")).
			Get("/events", api.listEvents)

		update := lr.With(rbac.Require("progress:update-own"))
		update.Post("/open", api.open)
		update.Put("/stages/{stage}", api.setStage)
		update.Post("/xp", api.awardXp)
		update.Delete("/quiz", api.resetQuiz)
		update.Post("/quiz/outcome", api.quizOutcome)
		update.Post("/completion/toggle", api.toggleCompletion)
		lr.With(rbac.Require("quiz:submit")).
			Post("/quiz/submit", api.submitQuiz)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func lessonParam(r *http.Request) (string, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "lessonID"))
	return id, id != ""
}

// learnerFor resolves whose state a request reads: the caller, or another
// learner when ?learner= is given and the role holds otherPerm.
func learnerFor(r *http.Request, otherPerm string) (string, bool) {
	sub := authmw.SubjectFromContext(r.Context())
	if sub == "" {
		return "", false
	}
	if other := r.URL.Query().Get("learner"); other != "" && other != sub {
		return other, otherPerm != "" && rbac.Allowed(r, otherPerm)
	}
	return sub, true
}

// withSession runs fn on the learner's lesson session and flushes its events.
func (api *ProgressAPI) withSession(r *http.Request, learner, lesson string, fn func(*progress.Session)) {
	ctx := r.Context()
	rec := syncx.NewRecorder(learner, lesson)
	st := progress.WithPrefix(api.Storage(ctx), learner+"/")
	api.Sessions.With(learner, lesson, st, fn, progress.WithListener(rec))

	if api.Events == nil || len(rec.Events()) == 0 {
		return
	}
	if err := rec.Flush(ctx, api.Events); err != nil {
		log.Printf("warn: event log %s/%s: %v", learner, lesson, err)
	}
}

func (api *ProgressAPI) resolve(w http.ResponseWriter, r *http.Request, otherPerm string) (learner, lesson string, ok bool) {
	lesson, ok = lessonParam(r)
	if !ok {
		http.Error(w, "lesson id required", http.StatusBadRequest)
		return "", "", false
	}
	learner, ok = learnerFor(r, otherPerm)
	if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return "", "", false
	}
	return learner, lesson, true
}

// GET /{lessonID}/progress[?learner=]
func (api *ProgressAPI) getProgress(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "progress:view-all")
	if !ok {
		return
	}
	var snap progress.Snapshot
	api.withSession(r, learner, lesson, func(s *progress.Session) { snap = s.Snapshot() })
	writeJSON(w, http.StatusOK, snap)
}

// POST /{lessonID}/open restores the test stage from the stored quiz answer.
func (api *ProgressAPI) open(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "")
	if !ok {
		return
	}
	var out struct {
		Progress progress.Snapshot    `json:"progress"`
		Quiz     *progress.QuizRecord `json:"quiz,omitempty"`
	}
	api.withSession(r, learner, lesson, func(s *progress.Session) {
		if rec, ok := s.ReconcileQuiz(); ok {
			out.Quiz = &rec
		}
		out.Progress = s.Snapshot()
	})
	writeJSON(w, http.StatusOK, out)
}

// PUT /{lessonID}/stages/{stage}  { "completed": true, "skip_auto": false }
func (api *ProgressAPI) setStage(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "")
	if !ok {
		return
	}
	stage, ok := progress.ParseStage(chi.URLParam(r, "stage"))
	if !ok {
		http.Error(w, "unknown stage", http.StatusBadRequest)
		return
	}
	var req struct {
		Completed *bool `json:"completed"`
		SkipAuto  bool  `json:"skip_auto"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Completed == nil {
		http.Error(w, "completed required", http.StatusBadRequest)
		return
	}
	var opts []progress.StageOption
	if req.SkipAuto {
		opts = append(opts, progress.SkipAuto())
	}
	var out struct {
		Changed  bool              `json:"changed"`
		Progress progress.Snapshot `json:"progress"`
	}
	api.withSession(r, learner, lesson, func(s *progress.Session) {
		out.Changed = s.SetStage(stage, *req.Completed, opts...)
		out.Progress = s.Snapshot()
	})
	writeJSON(w, http.StatusOK, out)
}

// POST /{lessonID}/xp  { "amount": 5, "reason": "code-lab" }
func (api *ProgressAPI) awardXp(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "")
	if !ok {
		return
	}
	var req struct {
		Amount float64 `json:"amount"`
		Reason string  `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if req.Amount > progress.MaxXpTotal || req.Amount < -progress.MaxXpTotal {
		http.Error(w, "amount out of range", http.StatusBadRequest)
		return
	}
	var snap progress.Snapshot
	api.withSession(r, learner, lesson, func(s *progress.Session) {
		s.AwardXp(req.Amount, req.Reason)
		snap = s.Snapshot()
	})
	writeJSON(w, http.StatusOK, snap)
}

func (api *ProgressAPI) getQuiz(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "progress:view-all")
	if !ok {
		return
	}
	var (
		rec   progress.QuizRecord
		found bool
	)
	api.withSession(r, learner, lesson, func(s *progress.Session) { rec, found = s.Quiz() })
	if !found {
		http.Error(w, "no quiz answer", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (api *ProgressAPI) resetQuiz(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "")
	if !ok {
		return
	}
	var snap progress.Snapshot
	api.withSession(r, learner, lesson, func(s *progress.Session) {
		s.ResetQuiz()
		snap = s.Snapshot()
	})
	writeJSON(w, http.StatusOK, snap)
}

type quizResponse struct {
	Quiz     progress.QuizRecord  `json:"quiz"`
	Outcome  progress.QuizOutcome `json:"outcome"`
	Progress progress.Snapshot    `json:"progress"`
}

func (api *ProgressAPI) applyOutcome(r *http.Request, learner, lesson, answer string, out progress.QuizOutcome) quizResponse {
	resp := quizResponse{Outcome: out}
	api.withSession(r, learner, lesson, func(s *progress.Session) {
		resp.Quiz = s.ApplyQuizOutcome(answer, out)
		resp.Progress = s.Snapshot()
	})
	return resp
}

// POST /{lessonID}/quiz/outcome  { "answer": "b", "is_correct": true, ... }
// Used when the browser already called the quiz endpoint itself.
func (api *ProgressAPI) quizOutcome(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "")
	if !ok {
		return
	}
	var req struct {
		Answer string `json:"answer"`
		progress.QuizOutcome
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		http.Error(w, "answer required", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, api.applyOutcome(r, learner, lesson, req.Answer, req.QuizOutcome))
}

// POST /{lessonID}/quiz/submit  { "test_id": "12", "answer": "b", "time_taken_ms": 5300 }
func (api *ProgressAPI) submitQuiz(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "")
	if !ok {
		return
	}
	var req struct {
		TestID      json.Number `json:"test_id"`
		Answer      string      `json:"answer"`
		TimeTakenMs int         `json:"time_taken_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	answer := strings.TrimSpace(req.Answer)
	if answer == "" || req.TestID == "" {
		http.Error(w, "test_id and answer required", http.StatusBadRequest)
		return
	}
	if api.Lessons == nil {
		http.Error(w, "lesson api unavailable", http.StatusServiceUnavailable)
		return
	}
	out, err := api.Lessons.SubmitQuiz(r.Context(), req.TestID.String(), answer, req.TimeTakenMs)
	if err != nil {
		upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.applyOutcome(r, learner, lesson, answer, out))
}

// POST /{lessonID}/completion/toggle  { "seconds": 300 }
// The answer only feeds course counters; the lesson tracker is left alone.
func (api *ProgressAPI) toggleCompletion(w http.ResponseWriter, r *http.Request) {
	_, lesson, ok := api.resolve(w, r, "")
	if !ok {
		return
	}
	if api.Lessons == nil {
		http.Error(w, "lesson api unavailable", http.StatusServiceUnavailable)
		return
	}
	var req struct {
		Seconds int `json:"seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	res, err := api.Lessons.ToggleCompletion(r.Context(), lesson, req.Seconds)
	if err != nil {
		upstreamError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GET /{lessonID}/events[?learner=&limit=]
func (api *ProgressAPI) listEvents(w http.ResponseWriter, r *http.Request) {
	learner, lesson, ok := api.resolve(w, r, "events:view-all")
	if !ok {
		return
	}
	if api.Events == nil {
		writeJSON(w, http.StatusOK, []syncx.Event{})
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	evs, err := api.Events.List(r.Context(), syncx.EventKey(learner, lesson), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if evs == nil {
		evs = []syncx.Event{}
	}
	writeJSON(w, http.StatusOK, evs)
}

func upstreamError(w http.ResponseWriter, err error) {
	var se *lessonapi.StatusError
	switch {
	case errors.Is(err, lessonapi.ErrNotConfigured):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.As(err, &se) && se.Status/100 == 4:
		http.Error(w, se.Error(), se.Status)
	default:
		log.Printf("warn: lesson api: %v", err)
		http.Error(w, "lesson api error", http.StatusBadGateway)
	}
}
