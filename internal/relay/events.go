package relay

import (
	"sync"
	"time"
)

// Event outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeAuthFailed    = "auth_failed"
	OutcomeParseError    = "parse_error"
	OutcomeFormatError   = "format_error"
	OutcomePublishFailed = "publish_failed"
	OutcomeTimeout       = "timeout"
	OutcomeInternalError = "internal_error"
)

// Event actions that are not request kinds.
const (
	ActionRejected = "rejected" // request failed parsing or validation
	ActionRequest  = "request"  // publish to a reply topic, whatever the outcome
	ActionLogin    = "login"    // successful credential check
)

// Event describes one handled request.
type Event struct {
	Action   string
	User     string
	Topic    string
	Outcome  string
	Duration time.Duration
	At       time.Time
}

// EventSink receives an Event for every handled request.
// Record must not block the caller.
type EventSink interface {
	Record(ev Event)
}

// MultiSink fans an event out to several sinks. Nil entries are skipped.
type MultiSink []EventSink

// Record implements EventSink.
func (m MultiSink) Record(ev Event) {
	for _, s := range m {
		if s != nil {
			s.Record(ev)
		}
	}
}

// Counters tallies events in memory for the status API.
//
// Thread Safety:
//   - Record and Snapshot are safe for concurrent use.
type Counters struct {
	mu        sync.Mutex
	started   time.Time
	total     uint64
	byAction  map[string]uint64
	byOutcome map[string]uint64
	last      time.Time
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	Total       uint64            `json:"total"`
	ByAction    map[string]uint64 `json:"by_action"`
	ByOutcome   map[string]uint64 `json:"by_outcome"`
	LastRequest *time.Time        `json:"last_request,omitempty"`
	Since       time.Time         `json:"since"`
}

// NewCounters creates an empty Counters.
func NewCounters() *Counters {
	return &Counters{
		started:   time.Now().UTC(),
		byAction:  make(map[string]uint64),
		byOutcome: make(map[string]uint64),
	}
}

// Record implements EventSink.
func (c *Counters) Record(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.total++
	c.byAction[ev.Action]++
	c.byOutcome[ev.Outcome]++
	if ev.At.After(c.last) {
		c.last = ev.At
	}
}

// Snapshot returns a copy of the current counts.
func (c *Counters) Snapshot() CounterSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := CounterSnapshot{
		Total:     c.total,
		ByAction:  make(map[string]uint64, len(c.byAction)),
		ByOutcome: make(map[string]uint64, len(c.byOutcome)),
		Since:     c.started,
	}
	for k, v := range c.byAction {
		snap.ByAction[k] = v
	}
	for k, v := range c.byOutcome {
		snap.ByOutcome[k] = v
	}
	if !c.last.IsZero() {
		last := c.last
		snap.LastRequest = &last
	}
	return snap
}
