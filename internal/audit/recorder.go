package audit

import (
	"context"

	"github.com/nerrad567/gray-logic-relay/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-relay/internal/relay"
)

// recorderChanSize is the buffer for pending entries.
// Entries beyond this are dropped rather than delaying a client response.
const recorderChanSize = 256

// Recorder writes relay events to a Repository in the background.
// It implements relay.EventSink.
type Recorder struct {
	repo   Repository
	ch     chan *Entry
	done   chan struct{}
	logger *logging.Logger
}

// NewRecorder creates a Recorder. Call Start before recording.
func NewRecorder(repo Repository, logger *logging.Logger) *Recorder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Recorder{
		repo:   repo,
		ch:     make(chan *Entry, recorderChanSize),
		done:   make(chan struct{}),
		logger: logger.With("component", "audit"),
	}
}

// Record enqueues an event for writing (best-effort, never blocks).
func (r *Recorder) Record(ev relay.Event) {
	entry := &Entry{
		Action:     ev.Action,
		User:       ev.User,
		Topic:      ev.Topic,
		Outcome:    ev.Outcome,
		DurationMS: ev.Duration.Milliseconds(),
		CreatedAt:  ev.At,
	}

	select {
	case r.ch <- entry:
	default:
		r.logger.Warn("audit channel full, dropping entry",
			"action", ev.Action,
			"outcome", ev.Outcome,
		)
	}
}

// Start runs the writer until ctx is cancelled, then drains what is queued.
// Done is closed once the writer has exited.
func (r *Recorder) Start(ctx context.Context) {
	go r.drain(ctx)
}

// Done is closed when the writer started by Start has finished draining.
func (r *Recorder) Done() <-chan struct{} {
	return r.done
}

// drain writes entries serially, which suits SQLite's single writer.
func (r *Recorder) drain(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case entry := <-r.ch:
			r.write(entry)
		case <-ctx.Done():
			for {
				select {
				case entry := <-r.ch:
					r.write(entry)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(entry *Entry) {
	// Detached from the run context so shutdown still flushes the queue.
	if err := r.repo.Create(context.Background(), entry); err != nil {
		r.logger.Error("audit write failed",
			"action", entry.Action,
			"error", err,
		)
	}
}
