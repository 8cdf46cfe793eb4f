// Package feed carries notifications about fabricated records to live
// observers (websocket clients, Kafka topics).
package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event types.
const (
	RecordCreated = "record_created"
	OrderFailed   = "order_failed"
)

type Event struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	ID         string          `json:"id,omitempty"`
	Data       json.RawMessage `json:"data,omitempty"`
	Error      string          `json:"error,omitempty"`
	Time       time.Time       `json:"time"`
}

// NewEvent builds an event stamped with the current time. A payload that
// cannot be marshaled is dropped from the event.
func NewEvent(eventType, collection, id string, payload any) Event {
	e := Event{
		Type:       eventType,
		Collection: collection,
		ID:         id,
		Time:       time.Now().UTC(),
	}
	if payload != nil {
		if data, err := json.Marshal(payload); err == nil {
			e.Data = data
		}
	}
	return e
}

// Sink receives events. Publish must not block for long; sinks that talk to
// slow peers buffer or drop.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

type discard struct{}

func (discard) Publish(context.Context, Event) error { return nil }

// Discard drops every event.
var Discard Sink = discard{}

// Fanout publishes to every registered sink. A failing sink is logged and
// does not stop delivery to the others.
type Fanout struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *logrus.Logger
}

func NewFanout(logger *logrus.Logger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, logger: logger}
}

func (f *Fanout) Add(s Sink) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sinks = append(f.sinks, s)
}

func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.sinks)
}

func (f *Fanout) Publish(ctx context.Context, e Event) error {
	f.mu.RLock()
	sinks := append([]Sink(nil), f.sinks...)
	f.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Publish(ctx, e); err != nil {
			f.logger.WithFields(logrus.Fields{
				"type":       e.Type,
				"collection": e.Collection,
				"error":      err,
			}).Warn("Failed to publish feed event")
		}
	}
	return nil
}

// Recorder keeps every published event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many recorded events match eventType and collection; an
// empty collection matches all.
func (r *Recorder) Count(eventType, collection string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType && (collection == "" || e.Collection == collection) {
			n++
		}
	}
	return n
}
