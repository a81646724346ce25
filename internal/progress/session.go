package progress

import (
	"math"
	"time"
)

const (
	DefaultSummaryReward = 40
	msPerDay             = int64(24 * time.Hour / time.Millisecond)
)

// StageRewards is paid the first time a stage transitions to completed. Concept pays nothing.
var StageRewards = map[Stage]int{
	StageExample:  10,
	StagePractice: 5,
	StageTest:     7,
}

type Option func(*Session)

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithSummaryReward sets the one-time reward paid when summary unlocks.
func WithSummaryReward(xp int) Option {
	return func(s *Session) { s.summaryReward = xp }
}

func WithListener(l Listener) Option {
	return func(s *Session) {
		if l != nil {
			s.listeners = append(s.listeners, l)
		}
	}
}

type StageOption func(*stageOptions)

type stageOptions struct{ skipAuto bool }

// SkipAuto suppresses the stage reward and the summary cascade for one SetStage call.
func SkipAuto() StageOption {
	return func(o *stageOptions) { o.skipAuto = true }
}

// Session owns the progress and XP state of one lesson. It is not safe for
// concurrent use; see Registry.
type Session struct {
	lesson        string
	st            Storage
	now           func() time.Time
	summaryReward int
	listeners     []Listener

	progress ProgressState
	xp       XpState
}

// Open loads the lesson state from st, falling back to defaults when it is
// missing or unreadable. A nil st keeps the state in memory only.
func Open(lesson string, st Storage, opts ...Option) *Session {
	if st == nil {
		st = NewMemoryStorage()
	}
	s := &Session{
		lesson:        lesson,
		st:            st,
		now:           time.Now,
		summaryReward: DefaultSummaryReward,
	}
	for _, o := range opts {
		o(s)
	}
	s.load()
	return s
}

func (s *Session) load() {
	var p ProgressState
	if loadJSON(s.st, ProgressKey(s.lesson), &p) {
		s.progress = p
	}
	x := defaultXpState()
	if loadJSON(s.st, XpKey(s.lesson), &x) {
		s.xp = x
	} else {
		s.xp = defaultXpState()
	}
	s.xp.normalize()
}

func (s *Session) Lesson() string          { return s.lesson }
func (s *Session) Progress() ProgressState { return s.progress }
func (s *Session) XP() XpState             { return s.xp.clone() }
func (s *Session) Percent() int            { return s.progress.Percent() }

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		Lesson:          s.lesson,
		Stages:          s.progress.StageMap(),
		SummaryRewarded: s.progress.SummaryRewarded,
		Percent:         s.progress.Percent(),
		XP:              s.xp.clone(),
	}
}

// SetStage records a stage transition and reports whether anything changed.
// Unknown stages and unchanged values are no-ops.
func (s *Session) SetStage(stage Stage, completed bool, opts ...StageOption) bool {
	var o stageOptions
	for _, fn := range opts {
		fn(&o)
	}
	f := s.progress.flag(stage)
	if f == nil || *f == completed {
		return false
	}
	*f = completed
	summaryDropped := false
	if !completed && stage != StageSummary && s.progress.Summary {
		s.progress.Summary = false
		summaryDropped = true
	}
	s.saveProgress()
	s.emitStage(stage, completed)
	if summaryDropped {
		s.emitStage(StageSummary, false)
	}

	if stage == StageSummary {
		if completed {
			s.unlockSummary()
		}
		return true
	}
	if o.skipAuto {
		return true
	}
	if completed {
		if xp := StageRewards[stage]; xp != 0 {
			s.AwardXp(float64(xp), string(stage))
		}
	}
	if !s.progress.Summary && s.progress.prerequisitesDone() {
		s.progress.Summary = true
		s.saveProgress()
		s.emitStage(StageSummary, true)
		s.unlockSummary()
	}
	return true
}

func (s *Session) unlockSummary() {
	s.emit(Event{Type: EventSummaryUnlocked, Stage: StageSummary})
	if s.progress.SummaryRewarded {
		return
	}
	s.AwardXp(float64(s.summaryReward), string(StageSummary))
	s.progress.SummaryRewarded = true
	s.saveProgress()
}

// AwardXp adds amount to the ledger, advances the daily streak and persists.
// A zero amount is ignored.
func (s *Session) AwardXp(amount float64, reason string) {
	if amount == 0 || math.IsNaN(amount) {
		return
	}
	now := s.now().UTC().Truncate(time.Millisecond)
	total := math.Floor(float64(s.xp.Total) + amount + 0.5)
	if total < 0 {
		total = 0
	}
	if total > MaxXpTotal {
		total = MaxXpTotal
	}
	before := s.xp.Total
	s.xp.Total = int(total)

	if s.xp.LastPlayedAt == nil {
		s.xp.Streak = 1
	} else {
		switch d := daysSince(*s.xp.LastPlayedAt, now); {
		case d == 1:
			s.xp.Streak++
		case d > 1:
			s.xp.Streak = 1
		}
	}
	s.xp.LastPlayedAt = &now
	s.xp.LastReason = reason
	s.xp.Level = LevelFor(s.xp.Total)
	s.xp.Badge = BadgeFor(s.xp.Level)
	s.saveXp()
	s.emit(Event{Type: EventXpAwarded, Amount: s.xp.Total - before, Reason: reason})
}

// daysSince is floor(elapsed ms / 86400000); it counts elapsed 24h periods, not
// calendar midnights.
func daysSince(last, now time.Time) int64 {
	ms := now.Sub(last).Milliseconds()
	d := ms / msPerDay
	if ms%msPerDay != 0 && ms < 0 {
		d--
	}
	return d
}

func (s *Session) saveProgress() { saveJSON(s.st, ProgressKey(s.lesson), s.progress) }
func (s *Session) saveXp()       { saveJSON(s.st, XpKey(s.lesson), s.xp) }

func (s *Session) emitStage(stage Stage, completed bool) {
	s.emit(Event{Type: EventStageChanged, Stage: stage, Completed: completed})
}

func (s *Session) emit(e Event) {
	if len(s.listeners) == 0 {
		return
	}
	e.Lesson = s.lesson
	e.Total, e.Level, e.Badge, e.Streak = s.xp.Total, s.xp.Level, s.xp.Badge, s.xp.Streak
	if e.At.IsZero() {
		e.At = s.now().UTC()
	}
	for _, l := range s.listeners {
		l.OnEvent(e)
	}
}
