package llm

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// BuildFunc constructs a fresh provider client.
type BuildFunc func(ctx context.Context) (Completer, error)

// ClientFactory owns a provider client with an expiry. Callers obtain the
// current client through Get; concurrent refreshes collapse into one build.
type ClientFactory struct {
	build  BuildFunc
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger

	group     singleflight.Group
	mu        sync.RWMutex
	client    Completer
	expiresAt time.Time
}

// FactoryOption customises a ClientFactory.
type FactoryOption func(*ClientFactory)

// WithClock overrides the time source.
func WithClock(now func() time.Time) FactoryOption {
	return func(f *ClientFactory) {
		if now != nil {
			f.now = now
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) FactoryOption {
	return func(f *ClientFactory) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewClientFactory returns a factory that rebuilds its client every ttl.
func NewClientFactory(build BuildFunc, ttl time.Duration, opts ...FactoryOption) *ClientFactory {
	if ttl <= 0 {
		ttl = time.Hour
	}
	f := &ClientFactory{build: build, ttl: ttl, now: time.Now, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Get returns the cached client, refreshing it when missing or expired.
func (f *ClientFactory) Get(ctx context.Context) (Completer, error) {
	if f == nil || f.build == nil {
		return nil, ErrNotConfigured
	}
	f.mu.RLock()
	client, expiresAt := f.client, f.expiresAt
	f.mu.RUnlock()
	if client != nil && f.now().Before(expiresAt) {
		return client, nil
	}
	return f.Refresh(ctx)
}

// Refresh builds a new client unconditionally and replaces the cached one.
func (f *ClientFactory) Refresh(ctx context.Context) (Completer, error) {
	if f == nil || f.build == nil {
		return nil, ErrNotConfigured
	}
	v, err, shared := f.group.Do("refresh", func() (interface{}, error) {
		client, err := f.build(ctx)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.client = client
		f.expiresAt = f.now().Add(f.ttl)
		f.mu.Unlock()
		return client, nil
	})
	if err != nil {
		f.logger.Warn("llm client refresh failed", zap.Error(err))
		return nil, err
	}
	if !shared {
		f.logger.Debug("llm client refreshed", zap.Duration("ttl", f.ttl))
	}
	return v.(Completer), nil
}

// Invalidate drops the cached client so the next Get rebuilds it.
func (f *ClientFactory) Invalidate() {
	if f == nil {
		return
	}
	f.mu.Lock()
	f.client = nil
	f.expiresAt = time.Time{}
	f.mu.Unlock()
}

// ExpiresAt reports when the cached client goes stale; zero when none is cached.
func (f *ClientFactory) ExpiresAt() time.Time {
	if f == nil {
		return time.Time{}
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.expiresAt
}

// Complete makes the factory itself a Completer: it fetches the current client
// and drops it when the provider rejects the credentials.
func (f *ClientFactory) Complete(ctx context.Context, prompt string) (string, error) {
	client, err := f.Get(ctx)
	if err != nil {
		return "", err
	}
	text, err := client.Complete(ctx, prompt)
	if err != nil && IsAuthError(err) {
		f.Invalidate()
	}
	return text, err
}
