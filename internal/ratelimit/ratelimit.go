// Package ratelimit implements fixed-window request throttling keyed by
// (limiter class, client key). Buckets are process-local and intentionally
// not durable across restarts.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

type Class string

const (
	ClassGeneral      Class = "general"
	ClassSensitive    Class = "sensitive"
	ClassRoomCreation Class = "room_creation"
	ClassMagicLink    Class = "magic_link"
)

// Policy is the window and ceiling for one limiter class.
type Policy struct {
	Window time.Duration
	Max    int
}

// DefaultPolicies returns the standing tiers. Classes are independent:
// exhausting one bucket never affects another.
func DefaultPolicies() map[Class]Policy {
	return map[Class]Policy{
		ClassGeneral:      {Window: 15 * time.Minute, Max: 100},
		ClassSensitive:    {Window: 15 * time.Minute, Max: 10},
		ClassRoomCreation: {Window: 60 * time.Minute, Max: 5},
		ClassMagicLink:    {Window: 60 * time.Minute, Max: 3},
	}
}

// RateLimitedError carries the retry-after hint derived from the window
// reset time.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// IsRateLimited reports whether err is a rate-limit rejection and returns
// its retry-after hint.
func IsRateLimited(err error) (time.Duration, bool) {
	var rle *RateLimitedError
	if errors.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

// Store counts requests per bucket. Implementations must reset the count
// when the bucket's window has elapsed.
type Store interface {
	// Incr adds one request to the bucket and returns the running count
	// within the current window plus the instant the window resets.
	Incr(class Class, key string, window time.Duration, now time.Time) (count int, resetAt time.Time)
}

// Limiter applies a policy table on top of a Store. The clock is injectable
// so tests drive time explicitly instead of sleeping.
type Limiter struct {
	store    Store
	policies map[Class]Policy
	now      func() time.Time
}

func NewLimiter(store Store, policies map[Class]Policy, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{store: store, policies: policies, now: now}
}

// Allow records one request for the client key under the given class and
// returns a RateLimitedError once the class ceiling is exceeded.
func (l *Limiter) Allow(class Class, key string) error {
	policy, ok := l.policies[class]
	if !ok {
		// Unknown class counts as general traffic rather than failing open.
		policy = l.policies[ClassGeneral]
	}

	now := l.now()
	count, resetAt := l.store.Incr(class, key, policy.Window, now)
	if count > policy.Max {
		return &RateLimitedError{RetryAfter: resetAt.Sub(now)}
	}
	return nil
}

type bucket struct {
	count    int
	windowAt time.Time
}

// MemoryStore is the in-process Store used in the base deployment. Counting
// is exact per process; across replicas it degrades to approximate, which is
// acceptable for an abuse deterrent.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]*bucket)}
}

func (s *MemoryStore) Incr(class Class, key string, window time.Duration, now time.Time) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bk := string(class) + ":" + key
	b, ok := s.buckets[bk]
	if !ok || !now.Before(b.windowAt.Add(window)) {
		b = &bucket{windowAt: now}
		s.buckets[bk] = b
	}
	b.count++
	return b.count, b.windowAt.Add(window)
}
