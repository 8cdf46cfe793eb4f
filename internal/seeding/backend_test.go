package seeding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

var errBackendDown = errors.New("backend down")

// memBackend is an in-memory Backend that counts calls per collection.
type memBackend struct {
	mu         sync.Mutex
	records    map[string][]map[string]interface{}
	lists      map[string]int
	creates    map[string]int
	failCreate map[string]bool
	failList   map[string]bool
	// failListAfter makes List fail once a collection has been listed this
	// many times.
	failListAfter map[string]int
	nextID        int
}

func newMemBackend() *memBackend {
	return &memBackend{
		records:       map[string][]map[string]interface{}{},
		lists:         map[string]int{},
		creates:       map[string]int{},
		failCreate:    map[string]bool{},
		failList:      map[string]bool{},
		failListAfter: map[string]int{},
	}
}

func (m *memBackend) seed(collection string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		m.nextID++
		m.records[collection] = append(m.records[collection], map[string]interface{}{
			"id": fmt.Sprintf("%s-%d", collection, m.nextID),
		})
	}
}

func (m *memBackend) List(_ context.Context, collection string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[collection]++
	if m.failList[collection] {
		return errBackendDown
	}
	if after, ok := m.failListAfter[collection]; ok && m.lists[collection] > after {
		return errBackendDown
	}
	raw, err := json.Marshal(m.records[collection])
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (m *memBackend) Create(_ context.Context, collection string, payload interface{}, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates[collection]++
	if m.failCreate[collection] {
		return errBackendDown
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	rec := map[string]interface{}{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return err
	}
	m.nextID++
	rec["id"] = fmt.Sprintf("%s-%d", collection, m.nextID)
	m.records[collection] = append(m.records[collection], rec)

	if out == nil {
		return nil
	}
	stored, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return json.Unmarshal(stored, out)
}

func (m *memBackend) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.lists {
		n += c
	}
	for _, c := range m.creates {
		n += c
	}
	return n
}

func (m *memBackend) createCount(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates[collection]
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
