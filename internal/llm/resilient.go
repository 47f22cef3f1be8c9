package llm

import (
	"context"
	"time"

	"github.com/felixgeelhaar/fortify/bulkhead"
	"github.com/felixgeelhaar/fortify/circuitbreaker"

	"github.com/abhisek/quizcraft/internal/logger"
)

// ResilientProvider guards a provider with a circuit breaker and a bulkhead.
// Rejections from either surface as ErrProviderUnavailable so callers see
// one recoverable error kind.
type ResilientProvider struct {
	inner    Provider
	breaker  circuitbreaker.CircuitBreaker[*Response]
	bulkhead bulkhead.Bulkhead[*Response]
}

// WithResilience wraps p according to cfg. A disabled config returns p.
func WithResilience(p Provider, cfg ResilienceConfig, log *logger.Logger) Provider {
	if !cfg.Enabled {
		return p
	}
	if log == nil {
		log = logger.Nop()
	}

	tripAfter := int(cfg.TripAfter)
	if tripAfter <= 0 {
		tripAfter = 5
	}
	openFor := cfg.OpenFor
	if openFor <= 0 {
		openFor = 30 * time.Second
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	maxQueue := cfg.MaxQueue
	if maxQueue < 0 {
		maxQueue = 0
	}
	queueTimeout := cfg.QueueTimeout
	if queueTimeout <= 0 {
		queueTimeout = 30 * time.Second
	}

	rp := &ResilientProvider{inner: p}
	rp.breaker = circuitbreaker.New[*Response](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     openFor,
		// Content, request and context errors say nothing about the
		// provider's health.
		IsSuccessful: func(err error) bool {
			return err == nil || !isServiceFault(err)
		},
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= tripAfter
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			log.Warn("circuit breaker state change",
				"model", p.ModelID(),
				"from", from.String(),
				"to", to.String())
		},
	})
	rp.bulkhead = bulkhead.New[*Response](bulkhead.Config{
		MaxConcurrent: maxConcurrent,
		MaxQueue:      maxQueue,
		QueueTimeout:  queueTimeout,
	})
	return rp
}

func (r *ResilientProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	resp, err := r.breaker.Execute(ctx, func(ctx context.Context) (*Response, error) {
		return r.bulkhead.Execute(ctx, func(ctx context.Context) (*Response, error) {
			return r.inner.Generate(ctx, req)
		})
	})
	if err != nil {
		if IsContextError(err) || isClassified(err) {
			return nil, err
		}
		return nil, &ErrProviderUnavailable{Err: err}
	}
	return resp, nil
}

func (r *ResilientProvider) ModelID() string {
	return r.inner.ModelID()
}
