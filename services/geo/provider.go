package geo

import (
	"context"
	"errors"
	"sync"
	"time"

	"doemais/models"

	"go.uber.org/zap"
)

// ErrorCode classifies why a position could not be obtained.
type ErrorCode int

const (
	CodeUnknown             ErrorCode = 0
	CodePermissionDenied    ErrorCode = 1
	CodePositionUnavailable ErrorCode = 2
	CodeTimeout             ErrorCode = 3
)

const (
	MsgPermissionDenied    = "Location access denied by user."
	MsgPositionUnavailable = "Location information is unavailable."
	MsgTimeout             = "Location request timed out."
	MsgUnknown             = "Unknown location error"
	MsgUnsupported         = "Geolocation is not supported by this client."
)

// PositionError is returned by a Locator that could not produce a position.
type PositionError struct {
	Code ErrorCode
}

func (e *PositionError) Error() string {
	switch e.Code {
	case CodePermissionDenied:
		return MsgPermissionDenied
	case CodePositionUnavailable:
		return MsgPositionUnavailable
	case CodeTimeout:
		return MsgTimeout
	}
	return MsgUnknown
}

// Locator produces a position for a key, e.g. a client IP.
type Locator interface {
	Locate(ctx context.Context, key string) (models.Coordinate, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context, key string) (models.Coordinate, error)

func (f LocatorFunc) Locate(ctx context.Context, key string) (models.Coordinate, error) {
	return f(ctx, key)
}

// errorMessage maps any lookup failure onto one of the fixed messages.
func errorMessage(err error) string {
	var pe *PositionError
	switch {
	case errors.As(err, &pe):
		return pe.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return MsgTimeout
	}
	return MsgUnknown
}

type fix struct {
	coord models.Coordinate
	at    time.Time
}

// Provider resolves positions one request at a time and caches them per key.
type Provider struct {
	locator Locator
	timeout time.Duration
	maxAge  time.Duration
	logger  *zap.Logger
	now     func() time.Time

	maxEntries int
	mu         sync.Mutex
	cache      map[string]fix
}

// DefaultCacheEntries bounds the number of cached positions.
const DefaultCacheEntries = 4096

type Option func(*Provider)

func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func WithMaxAge(d time.Duration) Option {
	return func(p *Provider) {
		if d >= 0 {
			p.maxAge = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithCacheEntries(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.maxEntries = n
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// NewProvider builds a provider. A nil locator yields requests that fail
// with MsgUnsupported.
func NewProvider(locator Locator, opts ...Option) *Provider {
	p := &Provider{
		locator: locator,
		timeout: 15 * time.Second,
		maxAge:  5 * time.Minute,
		logger:  zap.NewNop(),
		now:        time.Now,
		maxEntries: DefaultCacheEntries,
		cache:      make(map[string]fix),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Request is a single position lookup. It settles exactly once.
type Request struct {
	mu    sync.RWMutex
	state models.LocationState
	done  chan struct{}
}

func newRequest() *Request {
	return &Request{state: models.LocationState{Loading: true}, done: make(chan struct{})}
}

func (r *Request) settle(state models.LocationState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Loading {
		return
	}
	state.Loading = false
	r.state = state
	close(r.done)
}

// State returns the current state of the request.
func (r *Request) State() models.LocationState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Done is closed once the request has settled.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request settles or ctx ends, then returns the state
// at that moment. The lookup itself is not cancelled by ctx.
func (r *Request) Wait(ctx context.Context) models.LocationState {
	select {
	case <-r.done:
	case <-ctx.Done():
	}
	return r.State()
}

// Activate starts a lookup for key. A cached position younger than the max
// age settles the request immediately.
func (p *Provider) Activate(key string) *Request {
	req := newRequest()
	now := p.now()

	if p.locator == nil {
		req.settle(models.LocationState{Error: MsgUnsupported, ResolvedAt: &now})
		return req
	}

	p.mu.Lock()
	cached, ok := p.cache[key]
	p.mu.Unlock()
	if ok && now.Sub(cached.at) <= p.maxAge {
		c := cached.coord
		req.settle(models.LocationState{Coordinates: &c, ResolvedAt: &now})
		return req
	}

	go p.resolve(key, req)
	return req
}

type located struct {
	coord models.Coordinate
	err   error
}

func (p *Provider) resolve(key string, req *Request) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	// The deadline holds even for a locator that ignores ctx.
	out := make(chan located, 1)
	go func() {
		coord, err := p.locator.Locate(ctx, key)
		out <- located{coord, err}
	}()

	var coord models.Coordinate
	var err error
	select {
	case res := <-out:
		coord, err = res.coord, res.err
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil && !coord.Valid() {
		err = &PositionError{Code: CodePositionUnavailable}
	}

	resolvedAt := p.now()
	if err != nil {
		msg := errorMessage(err)
		p.logger.Info("Location lookup failed", zap.String("key", key), zap.String("reason", msg), zap.Error(err))
		req.settle(models.LocationState{Error: msg, ResolvedAt: &resolvedAt})
		return
	}

	p.remember(key, fix{coord: coord, at: resolvedAt})
	req.settle(models.LocationState{Coordinates: &coord, ResolvedAt: &resolvedAt})
}

// remember caches f under key. Stale entries are pruned first, then the
// oldest one while the cache is full.
func (p *Provider) remember(key string, f fix) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.cache[key]; !ok && len(p.cache) >= p.maxEntries {
		oldestKey, oldest := "", f.at
		for k, cached := range p.cache {
			if f.at.Sub(cached.at) > p.maxAge {
				delete(p.cache, k)
				continue
			}
			if !cached.at.After(oldest) {
				oldestKey, oldest = k, cached.at
			}
		}
		if len(p.cache) >= p.maxEntries {
			delete(p.cache, oldestKey)
		}
	}
	p.cache[key] = f
}

// Forget drops the cached position of key.
func (p *Provider) Forget(key string) {
	p.mu.Lock()
	delete(p.cache, key)
	p.mu.Unlock()
}
