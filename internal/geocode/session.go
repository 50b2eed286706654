// Package geocode resolves postal addresses to coordinates through a stateful
// web geocoding session. The upstream service requires a cookie-consent step
// before the first lookup and tolerates one request at a time, so every
// lookup goes through a Session that serializes calls, performs consent once,
// bounds each call with a timeout and caches answers.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"itvetl/internal/logger"
	"itvetl/internal/metrics"
	"itvetl/internal/normalize"
)

// DefaultTimeout bounds one consent or lookup call.
const DefaultTimeout = 10 * time.Second

// ErrConsent is returned by backends when the consent step fails.
var ErrConsent = errors.New("geocode: consent not accepted")

// Query is the address to resolve.
type Query struct {
	Address    string
	PostalCode string
	Locality   string
	Province   string
}

// String renders the free-text form sent to the backend:
// "Calle Mayor, 10, 46001 Valencia, Valencia, España".
func (q Query) String() string {
	parts := make([]string, 0, 4)
	if a := strings.TrimSpace(q.Address); a != "" {
		parts = append(parts, a)
	}
	if pl := strings.TrimSpace(strings.TrimSpace(q.PostalCode) + " " + strings.TrimSpace(q.Locality)); pl != "" {
		parts = append(parts, pl)
	}
	if p := strings.TrimSpace(q.Province); p != "" {
		parts = append(parts, p)
	}
	parts = append(parts, "España")
	return strings.Join(parts, ", ")
}

func (q Query) key() string { return normalize.Fold(q.String()) }

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Resolver is what the mappers depend on. A false second result means "not
// found", which covers backend failures and timeouts as well.
type Resolver interface {
	Resolve(ctx context.Context, q Query) (Coordinates, bool)
}

// Backend drives the remote service. Implementations need not be safe for
// concurrent use; Session serializes access.
type Backend interface {
	AcceptConsent(ctx context.Context) error
	Lookup(ctx context.Context, q Query) (Coordinates, bool, error)
}

// Session is the single entry point to a Backend.
type Session struct {
	backend Backend
	cache   Cache
	limiter *rate.Limiter
	timeout time.Duration
	log     logger.Logger

	mu        sync.Mutex
	consented bool
	// busy holds one token while a backend call runs, including calls
	// abandoned after their deadline.
	busy chan struct{}
}

// Option customizes a Session.
type Option func(*Session)

// WithCache replaces the default in-memory cache.
func WithCache(c Cache) Option { return func(s *Session) { s.cache = c } }

// WithTimeout sets the per-call bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRate spaces backend calls to at most perSecond per second. A
// non-positive value disables pacing.
func WithRate(perSecond float64) Option {
	return func(s *Session) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(l logger.Logger) Option { return func(s *Session) { s.log = l } }

// NewSession wraps b.
func NewSession(b Backend, opts ...Option) *Session {
	s := &Session{
		backend: b,
		cache:   NewMemoryCache(),
		limiter: rate.NewLimiter(rate.Inf, 1),
		timeout: DefaultTimeout,
		log:     logger.NewNop(),
		busy:    make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With(logger.Component("geocode"))
	return s
}

// Resolve returns the coordinates of q. Identical queries are answered from
// the cache. Consent runs before the first lookup; if it fails the lookup
// reports not found and consent is attempted again on the next call.
func (s *Session) Resolve(ctx context.Context, q Query) (Coordinates, bool) {
	key := q.key()

	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.cache.Get(ctx, key); ok {
		metrics.RecordGeocode("cached")
		return c, true
	}

	if !s.consented {
		if err := s.call(ctx, func(cctx context.Context) error { return s.backend.AcceptConsent(cctx) }); err != nil {
			s.log.Warn("consent failed", logger.Error(err))
			return Coordinates{}, false
		}
		s.consented = true
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return Coordinates{}, false
	}

	var (
		c     Coordinates
		found bool
	)
	err := s.call(ctx, func(cctx context.Context) error {
		var err error
		c, found, err = s.backend.Lookup(cctx, q)
		return err
	})
	if err != nil {
		s.log.Warn("lookup failed", logger.String("query", q.String()), logger.Error(err))
		metrics.RecordGeocode("error")
		return Coordinates{}, false
	}
	if !found {
		metrics.RecordGeocode("miss")
		return Coordinates{}, false
	}
	metrics.RecordGeocode("hit")
	s.cache.Set(ctx, key, c)
	return c, true
}

// call runs fn under the per-call timeout. A backend that ignores its
// context is abandoned when the deadline passes, but no other call reaches
// the backend until it returns.
func (s *Session) call(ctx context.Context, fn func(context.Context) error) error {
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case s.busy <- struct{}{}:
	case <-cctx.Done():
		return fmt.Errorf("geocode: backend busy: %w", cctx.Err())
	}

	done := make(chan error, 1)
	go func() {
		defer func() { <-s.busy }()
		done <- fn(cctx)
	}()

	select {
	case err := <-done:
		return err
	case <-cctx.Done():
		return fmt.Errorf("geocode: %w", cctx.Err())
	}
}
