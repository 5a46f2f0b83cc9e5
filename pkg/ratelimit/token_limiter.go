package ratelimit

import (
	"context"
	"sync"
	"time"
)

// TokenLimiter enforces a token-per-minute budget across callers. It refills
// the full budget once per minute rather than continuously, matching how
// model providers account usage windows.
type TokenLimiter struct {
	mu        sync.Mutex
	maxTokens int
	remaining int
	resetAt   time.Time
}

// NewTokenLimiter creates a TokenLimiter with the given per-minute budget.
func NewTokenLimiter(maxTokensPerMinute int) *TokenLimiter {
	return &TokenLimiter{
		maxTokens: maxTokensPerMinute,
		remaining: maxTokensPerMinute,
		resetAt:   time.Now().Add(time.Minute),
	}
}

// Wait blocks until the given number of tokens can be consumed or the
// context is done. Requests larger than the whole budget are allowed to
// proceed once a full window is available.
func (l *TokenLimiter) Wait(ctx context.Context, tokens int) error {
	for {
		l.mu.Lock()
		now := time.Now()
		if !now.Before(l.resetAt) {
			l.remaining = l.maxTokens
			l.resetAt = now.Add(time.Minute)
		}
		if tokens >= l.maxTokens {
			tokens = l.maxTokens
		}
		if tokens <= l.remaining {
			l.remaining -= tokens
			l.mu.Unlock()
			return nil
		}
		wait := time.Until(l.resetAt)
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// GetRemaining returns the number of tokens left in the current window.
func (l *TokenLimiter) GetRemaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !time.Now().Before(l.resetAt) {
		return l.maxTokens
	}
	return l.remaining
}
