package identity

import (
	"context"
	"sync"
	"time"
)

const (
	maxFailedAttempts = 5
	failureWindow     = 15 * time.Minute
)

// Attempts records failed password attempts per email. An Accounts store
// that also implements Attempts keeps the count across processes, so the
// limit holds for separate CLI runs as well as for the HTTP server.
type Attempts interface {
	// FailedAttempts counts the failures for email after since.
	FailedAttempts(ctx context.Context, email string, since time.Time) (int, error)
	RecordFailure(ctx context.Context, email string, at time.Time) error
	ClearFailures(ctx context.Context, email string) error
}

// MemoryAttempts keeps failed attempts in memory. Failures older than the
// limiter window are pruned, and emails without recent failures are
// forgotten.
type MemoryAttempts struct {
	mu       sync.Mutex
	failures map[string][]time.Time
}

// FailedAttempts implements Attempts.
func (m *MemoryAttempts) FailedAttempts(ctx context.Context, email string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pruneLocked(email, since)), nil
}

// RecordFailure implements Attempts.
func (m *MemoryAttempts) RecordFailure(ctx context.Context, email string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures == nil {
		m.failures = make(map[string][]time.Time)
	}
	m.failures[email] = append(m.pruneLocked(email, at.Add(-failureWindow)), at)
	return nil
}

// ClearFailures implements Attempts.
func (m *MemoryAttempts) ClearFailures(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.failures, email)
	return nil
}

// Len returns the number of emails with recorded failures.
func (m *MemoryAttempts) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.failures)
}

func (m *MemoryAttempts) pruneLocked(email string, since time.Time) []time.Time {
	var kept []time.Time
	for _, t := range m.failures[email] {
		if t.After(since) {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(m.failures, email)
		return nil
	}
	m.failures[email] = kept
	return kept
}

// attemptLimiter applies the failure limit over an Attempts store.
type attemptLimiter struct {
	attempts Attempts
	now      func() time.Time
}

func (l *attemptLimiter) blocked(ctx context.Context, email string) (bool, error) {
	n, err := l.attempts.FailedAttempts(ctx, email, l.now().Add(-failureWindow))
	if err != nil {
		return false, err
	}
	return n >= maxFailedAttempts, nil
}

func (l *attemptLimiter) fail(ctx context.Context, email string) error {
	return l.attempts.RecordFailure(ctx, email, l.now())
}

func (l *attemptLimiter) reset(ctx context.Context, email string) error {
	return l.attempts.ClearFailures(ctx, email)
}
