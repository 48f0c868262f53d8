package middleware

import (
	"sync"
	"time"

	"github.com/aula-ai-tutor-go/internal/config"
	"github.com/sirupsen/logrus"
)

// RateLimiter decides whether a request is admitted. When a credential
// is supplied, both the per-user window and the per-credential window
// must pass.
type RateLimiter interface {
	Allow(userID int64, credential string) bool
	AllowCredential(credential string) bool
	WaitTime(userID int64) time.Duration
}

// credWindow is a fixed-reset counter for one provider credential.
type credWindow struct {
	count   int
	resetAt time.Time
}

// WindowLimiter admits per-user requests against a trailing fixed
// interval of recorded timestamps, and per-credential requests against
// an independent fixed-reset counter.
type WindowLimiter struct {
	enabled   bool
	limit     int
	interval  time.Duration
	credLimit int

	mu    sync.Mutex
	users map[int64][]time.Time
	creds map[string]*credWindow

	logger *logrus.Logger
	now    func() time.Time
}

// NewRateLimiter creates the admission controller.
func NewRateLimiter(cfg *config.RateLimitConfig, logger *logrus.Logger) *WindowLimiter {
	rl := &WindowLimiter{
		enabled:   cfg.Enabled,
		limit:     cfg.UserLimit,
		interval:  cfg.Interval,
		credLimit: cfg.CredentialLimit,
		users:     make(map[int64][]time.Time),
		creds:     make(map[string]*credWindow),
		logger:    logger,
		now:       time.Now,
	}

	if rl.enabled {
		go rl.cleanup()
	}

	return rl
}

// Allow reports whether the request is admitted and, if so, records it.
func (r *WindowLimiter) Allow(userID int64, credential string) bool {
	if !r.enabled {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	recent := pruneWindow(r.users[userID], now.Add(-r.interval))

	if len(recent) >= r.limit {
		r.users[userID] = recent
		r.logger.WithField("user_id", userID).Warn("Rate limit exceeded")
		return false
	}

	if credential != "" && !r.allowCredential(credential, now) {
		r.users[userID] = recent
		r.logger.Warn("Credential rate limit exceeded")
		return false
	}

	r.users[userID] = append(recent, now)
	return true
}

// AllowCredential checks only the per-credential window, for callers
// that already passed user admission and have picked a credential.
func (r *WindowLimiter) AllowCredential(credential string) bool {
	if !r.enabled || credential == "" {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.allowCredential(credential, r.now()) {
		r.logger.Warn("Credential rate limit exceeded")
		return false
	}
	return true
}

// allowCredential must be called with the lock held. It counts this
// request against the credential window when admitted.
func (r *WindowLimiter) allowCredential(credential string, now time.Time) bool {
	cw, ok := r.creds[credential]
	if !ok || now.After(cw.resetAt) {
		r.creds[credential] = &credWindow{count: 1, resetAt: now.Add(r.interval)}
		return true
	}
	if cw.count >= r.credLimit {
		return false
	}
	cw.count++
	return true
}

// WaitTime returns how long until the oldest recorded request leaves
// the window, or zero when nothing is recorded.
func (r *WindowLimiter) WaitTime(userID int64) time.Duration {
	if !r.enabled {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	requests := r.users[userID]
	if len(requests) == 0 {
		return 0
	}

	wait := r.interval - r.now().Sub(requests[0])
	if wait < 0 {
		return 0
	}
	return wait
}

// cleanup drops user windows with no recent activity and expired
// credential counters.
func (r *WindowLimiter) cleanup() {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for range ticker.C {
		r.mu.Lock()
		cutoff := r.now().Add(-r.interval)
		for userID, requests := range r.users {
			if recent := pruneWindow(requests, cutoff); len(recent) == 0 {
				delete(r.users, userID)
			} else {
				r.users[userID] = recent
			}
		}
		for credential, cw := range r.creds {
			if r.now().After(cw.resetAt) {
				delete(r.creds, credential)
			}
		}
		r.mu.Unlock()
	}
}

// pruneWindow drops timestamps at or before the cutoff, preserving order.
func pruneWindow(requests []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(requests) && !requests[i].After(cutoff) {
		i++
	}
	return requests[i:]
}
