// Package lessonapi talks to the existing lesson site endpoints: quiz submission
// and lesson completion toggle. Both answer JSON.
package lessonapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/mind-engage/mindengage-progress/internal/progress"
)

var ErrNotConfigured = errors.New("lesson api base url not configured")

type Config struct {
	BaseURL string
	// Client credentials are optional; without TokenURL requests go out unauthenticated.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type Client struct {
	http *http.Client
	base string
}

func New(cfg Config) *Client {
	var h *http.Client
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
		}
		h = cc.Client(context.Background())
	} else {
		h = &http.Client{}
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	return &Client{http: h, base: strings.TrimSuffix(cfg.BaseURL, "/")}
}

// NewWithHTTPClient is used by tests to point the client at an httptest server.
func NewWithHTTPClient(baseURL string, h *http.Client) *Client {
	return &Client{http: h, base: strings.TrimSuffix(baseURL, "/")}
}

// CompletionResult is the toggle endpoint answer.
type CompletionResult struct {
	Completed bool `json:"completed"`
	progress.LessonTotals
}

// StatusError is a non-2xx answer from the lesson site.
type StatusError struct {
	Op      string
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %d", e.Op, e.Status)
}

// SubmitQuiz posts answer for the lesson test testID.
func (c *Client) SubmitQuiz(ctx context.Context, testID, answer string, timeTakenMs int) (progress.QuizOutcome, error) {
	form := url.Values{"answer": {answer}}
	if timeTakenMs > 0 {
		form.Set("time_taken_ms", strconv.Itoa(timeTakenMs))
	}
	var out progress.QuizOutcome
	err := c.postForm(ctx, "submit quiz", "/tests/"+url.PathEscape(testID)+"/submit/", form, &out)
	return out, err
}

// ToggleCompletion flips the completed flag of lesson on the lesson site.
func (c *Client) ToggleCompletion(ctx context.Context, lesson string, secondsSpent int) (CompletionResult, error) {
	form := url.Values{}
	if secondsSpent > 0 {
		form.Set("seconds", strconv.Itoa(secondsSpent))
	}
	var out CompletionResult
	err := c.postForm(ctx, "toggle completion", "/lessons/"+url.PathEscape(lesson)+"/toggle-completion/", form, &out)
	return out, err
}

func (c *Client) postForm(ctx context.Context, op, path string, form url.Values, v any) error {
	if c.base == "" {
		return ErrNotConfigured
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer res.Body.Close()
	if res.StatusCode/100 != 2 {
		var body struct {
			Error string `json:"error"`
		}
		raw, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		_ = json.Unmarshal(raw, &body)
		return &StatusError{Op: op, Status: res.StatusCode, Message: body.Error}
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("%s: decode: %w", op, err)
	}
	return nil
}
