package core

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTooManyImports is returned when all import slots are occupied and the
// wait timeout expires. Clients should retry after a short delay.
var ErrTooManyImports = errors.New("too many concurrent imports, please try again later")

// DefaultMaxConcurrent is the default slot count.
const DefaultMaxConcurrent = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// Limiter bounds how many imports or batch jobs run at once. When every slot
// is held, Acquire waits up to maxWait and then fails with the limiter's busy
// error (ErrTooManyImports or ErrTooManyJobs).
type Limiter struct {
	slots   chan struct{}
	maxWait time.Duration
	busy    error

	mu   sync.Mutex
	held int
	idle chan struct{} // closed while held == 0
}

// NewLimiter creates a limiter that allows at most maxConcurrent holders.
// A nil busy defaults to ErrTooManyImports.
func NewLimiter(maxConcurrent int, maxWait time.Duration, busy error) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	if busy == nil {
		busy = ErrTooManyImports
	}

	idle := make(chan struct{})
	close(idle)
	return &Limiter{
		slots:   make(chan struct{}, maxConcurrent),
		maxWait: maxWait,
		busy:    busy,
		idle:    idle,
	}
}

// Acquire takes a slot, waiting at most maxWait for one to free up.
// A cancelled ctx returns ctx.Err() rather than the busy error.
// Every successful Acquire must be paired with Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if l.TryAcquire() {
		return nil
	}

	timer := time.NewTimer(l.maxWait)
	defer timer.Stop()

	select {
	case l.slots <- struct{}{}:
		l.take()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return l.busy
	}
}

// TryAcquire takes a slot if one is free.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.slots <- struct{}{}:
		l.take()
		return true
	default:
		return false
	}
}

func (l *Limiter) take() {
	l.mu.Lock()
	if l.held == 0 {
		l.idle = make(chan struct{})
	}
	l.held++
	l.mu.Unlock()
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.mu.Lock()
	if l.held == 0 {
		l.mu.Unlock()
		panic("core: Limiter.Release without Acquire")
	}
	l.held--
	if l.held == 0 {
		close(l.idle)
	}
	l.mu.Unlock()

	<-l.slots
}

// ActiveCount returns the number of held slots.
func (l *Limiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held
}

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int {
	return cap(l.slots)
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return cap(l.slots) - l.ActiveCount()
}

// WaitForDrain blocks until no slot is held or ctx is done.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	l.mu.Lock()
	idle := l.idle
	l.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LimiterStatus is a snapshot of a limiter's state.
type LimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for the health endpoint.
func (l *Limiter) Status() LimiterStatus {
	active := l.ActiveCount()
	return LimiterStatus{
		Active:        active,
		Available:     cap(l.slots) - active,
		MaxConcurrent: cap(l.slots),
	}
}
