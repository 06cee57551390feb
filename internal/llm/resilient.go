package llm

import (
	"context"
	"fmt"
)

// ResilientProvider wraps a Provider with rate limiting and circuit
// breaking, so every call site gets the same protection without repeating
// the check/record boilerplate.
type ResilientProvider struct {
	inner   Provider
	limiter *RateLimiter
	breaker *CircuitBreaker
}

// NewResilientProvider composes inner with the given limiter and breaker.
func NewResilientProvider(inner Provider, limiter *RateLimiter, breaker *CircuitBreaker) *ResilientProvider {
	return &ResilientProvider{inner: inner, limiter: limiter, breaker: breaker}
}

func (r *ResilientProvider) Model() string { return r.inner.Model() }

// Call enforces the rate limit and circuit breaker around the inner
// provider's call, recording success/failure on the breaker.
func (r *ResilientProvider) Call(ctx context.Context, messages []Message) (Response, error) {
	if err := r.breaker.Check(); err != nil {
		return Response{}, err
	}
	if err := r.limiter.Allow(); err != nil {
		return Response{}, err
	}
	resp, err := r.inner.Call(ctx, messages)
	if err != nil {
		r.breaker.RecordFailure()
		return Response{}, fmt.Errorf("llm: provider call: %w", err)
	}
	r.breaker.RecordSuccess()
	return resp, nil
}
