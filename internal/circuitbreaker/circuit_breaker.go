package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open")
)

const (
	defaultMaxFailures = 5
	defaultTimeout     = 30 * time.Second
	defaultMaxRequests = 1

	maxAllowedFailures = 1000
	maxAllowedTimeout  = 10 * time.Minute
	maxAllowedRequests = 100

	callbackTimeout = 5 * time.Second
)

type Config struct {
	Name          string
	MaxFailures   int
	Timeout       time.Duration
	MaxRequests   int
	OnStateChange func(name string, from State, to State)
	// IsFailure decides whether an error returned by the guarded call counts
	// toward opening the breaker. Nil counts every non-nil error.
	IsFailure func(err error) bool
}

type CircuitBreaker struct {
	name          string
	maxFailures   int
	timeout       time.Duration
	maxRequests   int
	onStateChange func(name string, from State, to State)
	isFailure     func(err error) bool

	mutex        sync.RWMutex
	state        State
	failures     int
	requests     int
	lastFailTime time.Time

	totalRequests   int64
	totalFailures   int64
	totalSuccesses  int64
	totalRejected   int64
	stateChanges    int64
	lastStateChange time.Time

	logger *logrus.Logger
}

// Metrics is a point-in-time snapshot of a breaker, shaped for the status
// endpoint.
type Metrics struct {
	Name            string  `json:"name"`
	State           string  `json:"state"`
	Failures        int     `json:"failures"`
	Requests        int     `json:"requests"`
	TotalRequests   int64   `json:"total_requests"`
	TotalFailures   int64   `json:"total_failures"`
	TotalSuccesses  int64   `json:"total_successes"`
	TotalRejected   int64   `json:"total_rejected"`
	StateChanges    int64   `json:"state_changes"`
	MaxFailures     int     `json:"max_failures"`
	TimeoutSeconds  float64 `json:"timeout_seconds"`
	MaxRequests     int     `json:"max_requests"`
	LastFailure     string  `json:"last_failure,omitempty"`
	LastStateChange string  `json:"last_state_change,omitempty"`
}

func New(config Config, logger *logrus.Logger) *CircuitBreaker {
	config = sanitize(config, logger)

	isFailure := config.IsFailure
	if isFailure == nil {
		isFailure = func(err error) bool { return err != nil }
	}

	return &CircuitBreaker{
		name:          config.Name,
		maxFailures:   config.MaxFailures,
		timeout:       config.Timeout,
		maxRequests:   config.MaxRequests,
		onStateChange: config.OnStateChange,
		isFailure:     isFailure,
		state:         StateClosed,
		logger:        logger,
	}
}

func sanitize(config Config, logger *logrus.Logger) Config {
	if config.Name == "" {
		config.Name = "unnamed"
		logger.Warn("Circuit breaker created without name, using 'unnamed'")
	}

	warn := func(field string, value, fallback interface{}, msg string) {
		logger.WithFields(logrus.Fields{
			"circuit_breaker": config.Name,
			"field":           field,
			"invalid_value":   value,
			"applied_value":   fallback,
		}).Warn(msg)
	}

	switch {
	case config.MaxFailures <= 0:
		warn("max_failures", config.MaxFailures, defaultMaxFailures, "Invalid MaxFailures value, using default")
		config.MaxFailures = defaultMaxFailures
	case config.MaxFailures > maxAllowedFailures:
		warn("max_failures", config.MaxFailures, maxAllowedFailures, "MaxFailures too high, capping at maximum")
		config.MaxFailures = maxAllowedFailures
	}

	switch {
	case config.Timeout <= 0:
		warn("timeout", config.Timeout.String(), defaultTimeout.String(), "Invalid Timeout value, using default")
		config.Timeout = defaultTimeout
	case config.Timeout > maxAllowedTimeout:
		warn("timeout", config.Timeout.String(), maxAllowedTimeout.String(), "Timeout too high, capping at maximum")
		config.Timeout = maxAllowedTimeout
	}

	switch {
	case config.MaxRequests <= 0:
		warn("max_requests", config.MaxRequests, defaultMaxRequests, "Invalid MaxRequests value, using default")
		config.MaxRequests = defaultMaxRequests
	case config.MaxRequests > maxAllowedRequests:
		warn("max_requests", config.MaxRequests, maxAllowedRequests, "MaxRequests too high, capping at maximum")
		config.MaxRequests = maxAllowedRequests
	}

	return config
}

// Execute runs fn unless the breaker is open. Errors that the configured
// classifier does not treat as failures are returned unchanged and count as
// successes for state purposes; context cancellation is never a failure.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}

	err := fn(ctx)

	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if err != nil && cb.isFailure(err) && !errors.Is(err, context.Canceled) {
		cb.onFailure()
		cb.totalFailures++
		return err
	}

	cb.onSuccess()
	cb.totalSuccesses++
	return err
}

func (cb *CircuitBreaker) admit() error {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.lastFailTime) <= cb.timeout {
			cb.totalRejected++
			cb.logger.WithFields(logrus.Fields{
				"circuit_breaker": cb.name,
				"state":           cb.state.String(),
			}).Debug("Circuit breaker is open, rejecting request")
			return ErrCircuitBreakerOpen
		}
		cb.setState(StateHalfOpen)
		cb.requests = 0
	}

	if cb.state == StateHalfOpen && cb.requests >= cb.maxRequests {
		cb.totalRejected++
		cb.logger.WithFields(logrus.Fields{
			"circuit_breaker": cb.name,
			"requests":        cb.requests,
			"max_requests":    cb.maxRequests,
		}).Debug("Circuit breaker half-open max requests reached")
		return ErrCircuitBreakerOpen
	}

	cb.totalRequests++
	if cb.state == StateHalfOpen {
		cb.requests++
	}
	return nil
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failures = 0

	if cb.state == StateHalfOpen {
		cb.setState(StateClosed)
		cb.requests = 0
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	cb.lastFailTime = time.Now()

	if cb.state == StateClosed && cb.failures >= cb.maxFailures {
		cb.setState(StateOpen)
		cb.requests = 0
	} else if cb.state == StateHalfOpen {
		cb.setState(StateOpen)
		cb.requests = 0
	}
}

// setState must be called with the mutex held.
func (cb *CircuitBreaker) setState(newState State) {
	if cb.state == newState {
		return
	}

	oldState := cb.state
	cb.state = newState
	cb.stateChanges++
	cb.lastStateChange = time.Now()

	cb.logger.WithFields(logrus.Fields{
		"circuit_breaker": cb.name,
		"from_state":      oldState.String(),
		"to_state":        newState.String(),
	}).Info("Circuit breaker state changed")

	if cb.onStateChange != nil {
		go cb.executeStateChangeCallback(cb.name, oldState, newState)
	}
}

func (cb *CircuitBreaker) executeStateChangeCallback(name string, from State, to State) {
	ctx, cancel := context.WithTimeout(context.Background(), callbackTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		defer func() {
			if r := recover(); r != nil {
				cb.logger.WithFields(logrus.Fields{
					"circuit_breaker": name,
					"from_state":      from.String(),
					"to_state":        to.String(),
					"panic":           r,
				}).Error("Circuit breaker state change callback panicked")
			}
			close(done)
		}()

		cb.onStateChange(name, from, to)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		cb.logger.WithFields(logrus.Fields{
			"circuit_breaker": name,
			"from_state":      from.String(),
			"to_state":        to.String(),
			"timeout":         callbackTimeout.String(),
		}).Warn("Circuit breaker state change callback timed out")
	}
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) State() State {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()
	return cb.state
}

func (cb *CircuitBreaker) Metrics() Metrics {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	m := Metrics{
		Name:           cb.name,
		State:          cb.state.String(),
		Failures:       cb.failures,
		Requests:       cb.requests,
		TotalRequests:  cb.totalRequests,
		TotalFailures:  cb.totalFailures,
		TotalSuccesses: cb.totalSuccesses,
		TotalRejected:  cb.totalRejected,
		StateChanges:   cb.stateChanges,
		MaxFailures:    cb.maxFailures,
		TimeoutSeconds: cb.timeout.Seconds(),
		MaxRequests:    cb.maxRequests,
	}
	if !cb.lastFailTime.IsZero() {
		m.LastFailure = cb.lastFailTime.Format(time.RFC3339)
	}
	if !cb.lastStateChange.IsZero() {
		m.LastStateChange = cb.lastStateChange.Format(time.RFC3339)
	}
	return m
}

func (cb *CircuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()

	cb.setState(StateClosed)
	cb.failures = 0
	cb.requests = 0
	cb.lastFailTime = time.Time{}
}

func (cb *CircuitBreaker) String() string {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()
	return fmt.Sprintf("CircuitBreaker(name=%s, state=%s, failures=%d/%d)",
		cb.name, cb.state.String(), cb.failures, cb.maxFailures)
}
