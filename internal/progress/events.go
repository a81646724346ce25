package progress

import "time"

type EventType string

const (
	EventStageChanged    EventType = "stage_changed"
	EventXpAwarded       EventType = "xp_awarded"
	EventSummaryUnlocked EventType = "summary_unlocked"
)

// Event is emitted after the state it describes has been persisted.
type Event struct {
	Type      EventType `json:"type"`
	Lesson    string    `json:"lesson"`
	Stage     Stage     `json:"stage,omitempty"`
	Completed bool      `json:"completed"`
	Amount    int       `json:"amount,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Total     int       `json:"total"`
	Level     int       `json:"level"`
	Badge     Badge     `json:"badge"`
	Streak    int       `json:"streak"`
	At        time.Time `json:"at"`
}

type Listener interface {
	OnEvent(Event)
}

type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }
