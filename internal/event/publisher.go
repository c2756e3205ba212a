package event

import (
	"log/slog"
	"sync"
)

// Publisher accepts events fire-and-forget. Delivery guarantees belong to
// the implementation.
type Publisher interface {
	Publish(ev *Event)
}

// PublisherFunc adapts a plain function to Publisher.
type PublisherFunc func(ev *Event)

func (f PublisherFunc) Publish(ev *Event) { f(ev) }

// LogSink writes every event to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ev *Event) {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("event published",
		"event_id", ev.ID,
		"type", ev.Type,
		"source", ev.Source,
		"execution_id", ev.ExecutionID,
		"payload", ev.Payload,
	)
}

// Fanout delivers each event to every subscribed publisher in order.
type Fanout struct {
	mu   sync.RWMutex
	subs []Publisher
}

// Subscribe adds p to the fan-out list.
func (f *Fanout) Subscribe(p Publisher) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, p)
}

func (f *Fanout) Publish(ev *Event) {
	f.mu.RLock()
	subs := make([]Publisher, len(f.subs))
	copy(subs, f.subs)
	f.mu.RUnlock()
	for _, p := range subs {
		p.Publish(ev)
	}
}

// Recorder keeps every published event in memory. treectl run prints what it
// collected; tests assert on it.
type Recorder struct {
	mu     sync.Mutex
	limit  int
	events []*Event
}

// NewRecorder keeps at most limit events (0 = unbounded).
func NewRecorder(limit int) *Recorder {
	return &Recorder{limit: limit}
}

func (r *Recorder) Publish(ev *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	if r.limit > 0 && len(r.events) > r.limit {
		r.events = r.events[len(r.events)-r.limit:]
	}
}

// Events returns a copy of the recorded events, oldest first.
func (r *Recorder) Events() []*Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Event, len(r.events))
	copy(out, r.events)
	return out
}
