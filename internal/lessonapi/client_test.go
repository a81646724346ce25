package lessonapi_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mind-engage/mindengage-progress/internal/lessonapi"
)

func TestSubmitQuiz(t *testing.T) {
	var gotAnswer, gotPath, gotXRW string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotPath = r.URL.Path
		gotAnswer = r.PostForm.Get("answer")
		gotXRW = r.Header.Get("X-Requested-With")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"is_correct":true,"correct_answer":"b","explanation":"why","lesson_completed":true,"progress_percent":50,"completed_count":2,"total_lessons":4}`))
	}))
	defer srv.Close()

	c := lessonapi.NewWithHTTPClient(srv.URL+"/", srv.Client())
	out, err := c.SubmitQuiz(context.Background(), "42", "b", 1500)
	if err != nil {
		t.Fatalf("SubmitQuiz: %v", err)
	}
	if gotPath != "/tests/42/submit/" || gotAnswer != "b" || gotXRW != "XMLHttpRequest" {
		t.Fatalf("request path=%q answer=%q xrw=%q", gotPath, gotAnswer, gotXRW)
	}
	if !out.IsCorrect || !out.LessonCompleted || out.CorrectAnswer != "b" {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if out.TotalLessons == nil || *out.TotalLessons != 4 || out.ProgressPercent == nil || *out.ProgressPercent != 50 {
		t.Fatalf("totals not decoded: %+v", out.LessonTotals)
	}
}

func TestSubmitQuizStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"pick an answer"}`))
	}))
	defer srv.Close()

	c := lessonapi.NewWithHTTPClient(srv.URL, srv.Client())
	_, err := c.SubmitQuiz(context.Background(), "1", "", 0)
	var se *lessonapi.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("want StatusError, got %v", err)
	}
	if se.Status != http.StatusBadRequest || se.Message != "pick an answer" {
		t.Fatalf("unexpected status error: %+v", se)
	}
}

func TestToggleCompletion(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/lessons/intro-go/toggle-completion/" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"completed":false,"progress_percent":25.5,"completed_count":1,"total_lessons":4}`))
	}))
	defer srv.Close()

	c := lessonapi.NewWithHTTPClient(srv.URL, srv.Client())
	res, err := c.ToggleCompletion(context.Background(), "intro-go", 0)
	if err != nil {
		t.Fatalf("ToggleCompletion: %v", err)
	}
	if res.Completed || res.CompletedCount == nil || *res.CompletedCount != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestNotConfigured(t *testing.T) {
	c := lessonapi.New(lessonapi.Config{})
	if _, err := c.ToggleCompletion(context.Background(), "x", 0); !errors.Is(err, lessonapi.ErrNotConfigured) {
		t.Fatalf("want ErrNotConfigured, got %v", err)
	}
}
