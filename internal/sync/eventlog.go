package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mind-engage/mindengage-progress/internal/progress"
)

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

// EventKey is the event_log key of a learner's lesson.
func EventKey(learner, lesson string) string { return learner + "/" + lesson }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.siteID
	}
	if e.CreatedAt == 0 {
		e.CreatedAt = time.Now().Unix()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, string(e.Data), e.CreatedAt)
	return err
}

// List returns the events stored under key, oldest first. limit <= 0 means 100.
func (r *EventRepo) List(ctx context.Context, key string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE key=$1 ORDER BY seq ASC LIMIT $2`, key, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Recorder collects session events during a request so they can be written
// once the session work is done.
type Recorder struct {
	key    string
	events []progress.Event
}

func NewRecorder(learner, lesson string) *Recorder {
	return &Recorder{key: EventKey(learner, lesson)}
}

func (r *Recorder) OnEvent(e progress.Event) { r.events = append(r.events, e) }

func (r *Recorder) Events() []progress.Event { return r.events }

// Flush appends the collected events to repo and clears the buffer.
func (r *Recorder) Flush(ctx context.Context, repo *EventRepo) error {
	for i, e := range r.events {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := repo.Append(ctx, Event{Type: string(e.Type), Key: r.key, Data: data, CreatedAt: e.At.Unix()}); err != nil {
			r.events = r.events[i:]
			return fmt.Errorf("append %s: %w", e.Type, err)
		}
	}
	r.events = nil
	return nil
}
