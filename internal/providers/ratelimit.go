package providers

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultWindow is the sliding-window duration for admission control.
	DefaultWindow = 60 * time.Second

	// DefaultCapacity is the maximum requests admitted per window.
	DefaultCapacity = 4000

	// DefaultPollInterval is how often a blocked caller rechecks the window.
	DefaultPollInterval = time.Second
)

// RateLimiter implements sliding-window request admission control.
// It records the timestamp of each admitted request; a caller is admitted
// when fewer than capacity requests fall inside the trailing window.
// Blocked callers poll at a fixed interval. There is no fairness guarantee
// beyond first-come retry order; starvation under sustained overload is
// accepted behavior.
type RateLimiter struct {
	mu sync.Mutex

	window   time.Duration
	capacity int
	poll     time.Duration

	timestamps []time.Time

	// Statistics
	totalAdmitted int64
	totalWaited   time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	InWindow      int           `json:"in_window"`
	Capacity      int           `json:"capacity"`
	Utilization   float64       `json:"utilization"`
	TotalAdmitted int64         `json:"total_admitted"`
	TotalWaited   time.Duration `json:"total_waited"`
}

// NewRateLimiter creates a rate limiter with the given window and capacity.
// Non-positive arguments fall back to the defaults.
func NewRateLimiter(window time.Duration, capacity int) *RateLimiter {
	if window <= 0 {
		window = DefaultWindow
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &RateLimiter{
		window:   window,
		capacity: capacity,
		poll:     DefaultPollInterval,
		now:      time.Now,
	}
}

// Wait blocks until the caller is admitted or the context is cancelled.
// On admission the current timestamp is recorded.
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		r.evict()
		if len(r.timestamps) < r.capacity {
			r.timestamps = append(r.timestamps, r.now())
			r.totalAdmitted++
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.poll):
			r.mu.Lock()
			r.totalWaited += r.poll
			r.mu.Unlock()
		}
	}
}

// TryAdmit attempts admission without blocking.
func (r *RateLimiter) TryAdmit() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict()
	if len(r.timestamps) < r.capacity {
		r.timestamps = append(r.timestamps, r.now())
		r.totalAdmitted++
		return true
	}
	return false
}

// Status returns current limiter status.
func (r *RateLimiter) Status() RateLimiterStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.evict()
	return RateLimiterStatus{
		InWindow:      len(r.timestamps),
		Capacity:      r.capacity,
		Utilization:   float64(len(r.timestamps)) / float64(r.capacity),
		TotalAdmitted: r.totalAdmitted,
		TotalWaited:   r.totalWaited,
	}
}

// evict discards timestamps older than the window. Must be called with lock held.
func (r *RateLimiter) evict() {
	cutoff := r.now().Add(-r.window)
	i := 0
	for i < len(r.timestamps) && !r.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[i:]...)
	}
}
