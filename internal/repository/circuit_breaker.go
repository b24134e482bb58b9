package repository

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// CircuitState represents the state of the circuit breaker
type CircuitState int

const (
	// CircuitClosed lets requests through
	CircuitClosed CircuitState = iota
	// CircuitHalfOpen lets a trial request through after the cooldown
	CircuitHalfOpen
	// CircuitOpen rejects requests
	CircuitOpen
)

// String returns string representation of circuit state
func (s CircuitState) String() string {
	switch s {
	case CircuitClosed:
		return "CLOSED"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	case CircuitOpen:
		return "OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreakerConfig defines circuit breaker thresholds
type CircuitBreakerConfig struct {
	MaxFailures    int
	CooldownPeriod time.Duration
}

// CircuitBreaker stops calls to a failing remote after MaxFailures consecutive
// failures and retries one call once CooldownPeriod has passed.
type CircuitBreaker struct {
	config   CircuitBreakerConfig
	state    CircuitState
	failures int
	openedAt time.Time
	lastErr  error
	mu       sync.Mutex
	logger   *logrus.Entry
	now      func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker
func NewCircuitBreaker(config CircuitBreakerConfig, logger *logrus.Entry) *CircuitBreaker {
	if config.MaxFailures <= 0 {
		config.MaxFailures = 5
	}
	return &CircuitBreaker{
		config: config,
		state:  CircuitClosed,
		logger: logger,
		now:    time.Now,
	}
}

// Allow reports whether a call may proceed. An open breaker moves to half-open
// once the cooldown has passed.
func (cb *CircuitBreaker) Allow() (bool, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen && cb.now().Sub(cb.openedAt) >= cb.config.CooldownPeriod {
		cb.state = CircuitHalfOpen
		cb.logger.Info("Circuit breaker entering half-open state after cooldown")
	}
	if cb.state == CircuitOpen {
		return false, cb.lastErr
	}
	return true, nil
}

// RecordFailure counts a failed call and opens the circuit at the threshold
func (cb *CircuitBreaker) RecordFailure(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastErr = err

	if cb.state == CircuitHalfOpen || cb.failures >= cb.config.MaxFailures {
		if cb.state != CircuitOpen {
			cb.logger.WithFields(logrus.Fields{
				"failures": cb.failures,
				"error":    err.Error(),
			}).Warn("Circuit breaker opened")
		}
		cb.state = CircuitOpen
		cb.openedAt = cb.now()
	}
}

// RecordSuccess closes the circuit and resets the failure count
func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state != CircuitClosed {
		cb.logger.Info("Circuit breaker closed")
	}
	cb.state = CircuitClosed
	cb.failures = 0
	cb.lastErr = nil
}

// GetState returns current circuit state
func (cb *CircuitBreaker) GetState() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return cb.state
}
