package progress

import "time"

type Stage string

const (
	StageConcept  Stage = "concept"
	StageExample  Stage = "example"
	StagePractice Stage = "practice"
	StageTest     Stage = "test"
	StageSummary  Stage = "summary"
)

// Stages lists the lesson sections in page order.
var Stages = []Stage{StageConcept, StageExample, StagePractice, StageTest, StageSummary}

func ParseStage(s string) (Stage, bool) {
	st := Stage(s)
	return st, st.Valid()
}

func (s Stage) Valid() bool {
	switch s {
	case StageConcept, StageExample, StagePractice, StageTest, StageSummary:
		return true
	}
	return false
}

// ProgressState is the persisted per-lesson stage record.
type ProgressState struct {
	Concept         bool `json:"concept"`
	Example         bool `json:"example"`
	Practice        bool `json:"practice"`
	Test            bool `json:"test"`
	Summary         bool `json:"summary"`
	SummaryRewarded bool `json:"summaryRewarded"`
}

func (p *ProgressState) flag(s Stage) *bool {
	switch s {
	case StageConcept:
		return &p.Concept
	case StageExample:
		return &p.Example
	case StagePractice:
		return &p.Practice
	case StageTest:
		return &p.Test
	case StageSummary:
		return &p.Summary
	}
	return nil
}

// Done reports the completion flag of s; unknown stages are never done.
func (p ProgressState) Done(s Stage) bool {
	if f := p.flag(s); f != nil {
		return *f
	}
	return false
}

func (p ProgressState) prerequisitesDone() bool {
	return p.Concept && p.Example && p.Practice && p.Test
}

func (p ProgressState) CompletedCount() int {
	n := 0
	for _, s := range Stages {
		if p.Done(s) {
			n++
		}
	}
	return n
}

// Percent is round(100 * completed / 5).
func (p ProgressState) Percent() int {
	total := len(Stages)
	return (p.CompletedCount()*200 + total) / (2 * total)
}

func (p ProgressState) StageMap() map[Stage]bool {
	out := make(map[Stage]bool, len(Stages))
	for _, s := range Stages {
		out[s] = p.Done(s)
	}
	return out
}

type Badge string

const (
	BadgeBeginner Badge = "Beginner"
	BadgeExplorer Badge = "Explorer"
	BadgeLegend   Badge = "Legend"
)

const xpPerLevel = 120

// MaxXpTotal caps the XP total so it always fits a 32-bit int.
const MaxXpTotal = 1<<31 - 1

func LevelFor(total int) int {
	if total < 0 {
		total = 0
	}
	return total/xpPerLevel + 1
}

func BadgeFor(level int) Badge {
	switch {
	case level >= 5:
		return BadgeLegend
	case level >= 3:
		return BadgeExplorer
	default:
		return BadgeBeginner
	}
}

// XpState is the persisted per-lesson experience ledger.
type XpState struct {
	Total        int        `json:"total"`
	Level        int        `json:"level"`
	Badge        Badge      `json:"badge"`
	Streak       int        `json:"streak"`
	LastPlayedAt *time.Time `json:"lastPlayedAt"`
	LastReason   string     `json:"lastReason"`
}

func defaultXpState() XpState {
	return XpState{Level: 1, Badge: BadgeBeginner}
}

// normalize restores the derived fields after a load; stored level and badge are not trusted.
func (x *XpState) normalize() {
	if x.Total < 0 {
		x.Total = 0
	}
	if x.Total > MaxXpTotal {
		x.Total = MaxXpTotal
	}
	if x.Streak < 0 {
		x.Streak = 0
	}
	x.Level = LevelFor(x.Total)
	x.Badge = BadgeFor(x.Level)
}

func (x XpState) clone() XpState {
	if x.LastPlayedAt != nil {
		t := *x.LastPlayedAt
		x.LastPlayedAt = &t
	}
	return x
}

// Snapshot is the read view handed to callers.
type Snapshot struct {
	Lesson          string         `json:"lesson"`
	Stages          map[Stage]bool `json:"stages"`
	SummaryRewarded bool           `json:"summaryRewarded"`
	Percent         int            `json:"percent"`
	XP              XpState        `json:"xp"`
}
