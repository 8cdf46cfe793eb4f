// Package seeding keeps the backend stocked with a minimum number of records
// per collection and assembles the prepared DataCollection that order
// synthesis draws from.
package seeding

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jogardn/flashfood-datagen/internal/feed"
)

const (
	DefaultFloor = 10
	DefaultDelay = 100 * time.Millisecond
)

// Backend is the subset of the backend client the ensurer needs.
type Backend interface {
	List(ctx context.Context, collection string, out interface{}) error
	Create(ctx context.Context, collection string, payload interface{}, out interface{}) error
}

// Plan describes how to top up one collection.
type Plan struct {
	Collection string
	// Floor overrides the ensurer's default minimum when positive.
	Floor int
	// Delay overrides the pause between creations when positive.
	Delay time.Duration
	// Ready reports a missing prerequisite. It is consulted only when a
	// deficit exists; a non-nil error skips generation.
	Ready func() error
	// Build produces the payload for one record. It may create prerequisite
	// records of its own; an error counts as a failed attempt.
	Build func(ctx context.Context) (interface{}, error)
}

type Ensurer struct {
	backend Backend
	sink    feed.Sink
	logger  *logrus.Logger
	floor   int
	delay   time.Duration
}

type EnsurerOption func(*Ensurer)

func WithFloor(n int) EnsurerOption {
	return func(e *Ensurer) {
		if n > 0 {
			e.floor = n
		}
	}
}

// WithDelay sets the default pause between creations. Zero disables it.
func WithDelay(d time.Duration) EnsurerOption {
	return func(e *Ensurer) {
		if d >= 0 {
			e.delay = d
		}
	}
}

func WithSink(s feed.Sink) EnsurerOption {
	return func(e *Ensurer) {
		if s != nil {
			e.sink = s
		}
	}
}

func NewEnsurer(backend Backend, logger *logrus.Logger, opts ...EnsurerOption) *Ensurer {
	e := &Ensurer{
		backend: backend,
		sink:    feed.Discard,
		logger:  logger,
		floor:   DefaultFloor,
		delay:   DefaultDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Ensurer) Floor() int {
	return e.floor
}

func (e *Ensurer) Backend() Backend {
	return e.backend
}

// Sink returns the feed that created records are announced on.
func (e *Ensurer) Sink() feed.Sink {
	return e.sink
}

// Ensure guarantees at least the plan's floor of records in the plan's
// collection and returns the best list available. It never fails: a listing
// error yields an empty list, a failed record is logged and skipped, and a
// failed refresh returns the list fetched before creation.
func Ensure[T any](ctx context.Context, e *Ensurer, p Plan) []T {
	log := e.logger.WithField("collection", p.Collection)

	var existing []T
	if err := e.backend.List(ctx, p.Collection, &existing); err != nil {
		log.WithError(err).Error("Failed to fetch existing records")
		return []T{}
	}
	if existing == nil {
		existing = []T{}
	}

	floor := e.floor
	if p.Floor > 0 {
		floor = p.Floor
	}
	deficit := floor - len(existing)
	if deficit <= 0 {
		log.WithField("count", len(existing)).Debug("Collection already at minimum")
		return existing
	}

	if p.Ready != nil {
		if err := p.Ready(); err != nil {
			log.WithError(err).Warn("Skipping generation, prerequisites missing")
			return existing
		}
	}

	delay := e.delay
	if p.Delay > 0 {
		delay = p.Delay
	}

	log.WithFields(logrus.Fields{
		"existing": len(existing),
		"needed":   deficit,
	}).Info("Creating missing records")

	created := 0
	for attempt := 1; attempt <= deficit; attempt++ {
		if ctx.Err() != nil {
			log.WithField("attempt", attempt).Warn("Creation interrupted")
			break
		}
		if e.createOne(ctx, log.WithField("attempt", attempt), p) {
			created++
		}
		if attempt < deficit && !sleep(ctx, delay) {
			break
		}
	}

	log.WithFields(logrus.Fields{
		"created": created,
		"failed":  deficit - created,
	}).Info("Finished creating records")

	var refreshed []T
	if err := e.backend.List(ctx, p.Collection, &refreshed); err != nil {
		log.WithError(err).Error("Failed to refresh records, returning previous list")
		return existing
	}
	if refreshed == nil {
		refreshed = []T{}
	}
	return refreshed
}

func (e *Ensurer) createOne(ctx context.Context, log *logrus.Entry, p Plan) bool {
	payload, err := p.Build(ctx)
	if err != nil {
		log.WithError(err).Warn("Failed to build record")
		return false
	}

	var raw json.RawMessage
	if err := e.Create(ctx, p.Collection, payload, &raw); err != nil {
		log.WithError(err).Warn("Failed to create record")
		return false
	}
	log.WithField("id", recordID(raw)).Debug("Created record")
	return true
}

// Create posts one record, decodes the stored version into out when out is
// non-nil, and announces it on the feed.
func (e *Ensurer) Create(ctx context.Context, collection string, payload interface{}, out interface{}) error {
	var raw json.RawMessage
	if err := e.backend.Create(ctx, collection, payload, &raw); err != nil {
		return err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode created %s: %w", collection, err)
		}
	}

	_ = e.sink.Publish(ctx, feed.Event{
		Type:       feed.RecordCreated,
		Collection: collection,
		ID:         recordID(raw),
		Data:       raw,
		Time:       time.Now().UTC(),
	})
	return nil
}

func recordID(raw json.RawMessage) string {
	var rec struct {
		ID string `json:"id"`
	}
	if len(raw) == 0 || json.Unmarshal(raw, &rec) != nil {
		return ""
	}
	return rec.ID
}

// sleep pauses for d and reports false if ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
