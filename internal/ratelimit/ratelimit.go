// Package ratelimit bounds how often a client may call the analysis service
// within a sliding time window.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int       `json:"remaining"`
	ResetAt   time.Time `json:"reset_at"`
}

// Store keeps the accepted request times per client.
type Store interface {
	Load(ctx context.Context, clientID string) ([]time.Time, error)
	Save(ctx context.Context, clientID string, stamps []time.Time) error
}

// Limiter admits at most Limit requests per client in any Window.
type Limiter struct {
	Store  Store
	Limit  int
	Window time.Duration
	// Now defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

// New returns a limiter over store with the given per-window budget.
func New(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{Store: store, Limit: limit, Window: window}
}

// PerMinute is New with a one minute window.
func PerMinute(store Store, limit int) *Limiter {
	return New(store, limit, time.Minute)
}

// Allow records a request for clientID if the window has room. A Limit <= 0
// disables limiting.
func (l *Limiter) Allow(ctx context.Context, clientID string) (Decision, error) {
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	if l.Limit <= 0 {
		return Decision{Allowed: true, Remaining: -1, ResetAt: now}, nil
	}
	window := l.Window
	if window <= 0 {
		window = time.Minute
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	stamps, err := l.Store.Load(ctx, clientID)
	if err != nil {
		return Decision{}, fmt.Errorf("load rate window: %w", err)
	}
	cutoff := now.Add(-window)
	kept := stamps[:0]
	for _, ts := range stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	allowed := len(kept) < l.Limit
	if allowed {
		kept = append(kept, now)
	}
	if err := l.Store.Save(ctx, clientID, kept); err != nil {
		return Decision{}, fmt.Errorf("save rate window: %w", err)
	}

	d := Decision{Allowed: allowed, Remaining: l.Limit - len(kept), ResetAt: now.Add(window)}
	if d.Remaining < 0 {
		d.Remaining = 0
	}
	if len(kept) > 0 {
		d.ResetAt = kept[0].Add(window)
	}
	return d, nil
}

// ExceededError is returned by Check when the window is full.
type ExceededError struct {
	ClientID string
	ResetAt  time.Time
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: try again after %s", e.ClientID, e.ResetAt.Format(time.Kitchen))
}

// Check is Allow folded into an error: nil when admitted, *ExceededError
// when the window is full.
func (l *Limiter) Check(ctx context.Context, clientID string) error {
	d, err := l.Allow(ctx, clientID)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return &ExceededError{ClientID: clientID, ResetAt: d.ResetAt}
	}
	return nil
}
