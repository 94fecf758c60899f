package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/singleflight"

	"github.com/i474232898/weather-normalizer/internal/store"
)

var (
	// ErrTransport marks network, status and circuit-breaker failures.
	ErrTransport = errors.New("transport error")
	// ErrParse marks upstream payloads that could not be decoded.
	ErrParse = errors.New("parse error")
	// ErrNoResults is returned when a lookup succeeded but matched nothing.
	ErrNoResults = errors.New("no results")

	errNetwork     = errors.New("network failure")
	errRateLimited = errors.New("rate limited")
	errServerError = errors.New("server error")
	errUnexpected  = errors.New("unexpected status code")
	errCircuitOpen = errors.New("circuit breaker open")
)

// ClientConfig bundles transport and cache settings for one upstream family.
type ClientConfig struct {
	Name string

	// Relay is prepended to every upstream URL. A prefix ending in "=" gets
	// the target URL query-escaped; anything else is a plain concatenation.
	Relay string

	Timeout time.Duration
	TTL     time.Duration

	// DedupeInflight collapses concurrent misses for the same key into one request.
	DedupeInflight bool

	Logger *slog.Logger
	Clock  func() time.Time
}

// Client performs cache-checked upstream fetches. It exclusively owns its cache.
type Client struct {
	name   string
	relay  string
	http   *resty.Client
	cache  *store.Cache[any]
	flight *singleflight.Group
	logger *slog.Logger

	// One breaker per cache key, so a failing location never blocks another.
	mu       sync.Mutex
	breaker  gobreaker.Settings
	circuits map[string]*gobreaker.CircuitBreaker
}

// Fetched is a decoded value together with its cache provenance.
type Fetched[T any] struct {
	Value     T
	Stale     bool
	FetchedAt time.Time
}

// NewClient creates a Client from cfg.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	var cacheOpts []store.Option
	if cfg.Clock != nil {
		cacheOpts = append(cacheOpts, store.WithClock(cfg.Clock))
	}

	c := &Client{
		name:  cfg.Name,
		relay: cfg.Relay,
		http: resty.New().
			SetTimeout(cfg.Timeout).
			SetHeader("Accept", "application/json"),
		cache:  store.NewCache[any](cfg.TTL, cacheOpts...),
		logger: cfg.Logger.With("component", "provider-client", "provider", cfg.Name),
		breaker: gobreaker.Settings{
			MaxRequests:  5,
			Interval:     1 * time.Minute,
			Timeout:      2 * time.Minute,
			IsSuccessful: countsAsSuccess,
		},
		circuits: make(map[string]*gobreaker.CircuitBreaker),
	}
	if cfg.DedupeInflight {
		c.flight = &singleflight.Group{}
	}
	return c
}

// Name returns the upstream family this client talks to.
func (c *Client) Name() string {
	return c.name
}

// SetTTL changes the freshness window of the client's cache.
func (c *Client) SetTTL(ttl time.Duration) {
	c.cache.SetTTL(ttl)
}

// ClearCache drops every cached entry and resets the circuit breakers.
func (c *Client) ClearCache() {
	c.cache.Clear()

	c.mu.Lock()
	c.circuits = make(map[string]*gobreaker.CircuitBreaker)
	c.mu.Unlock()
}

func (c *Client) circuit(key string) *gobreaker.CircuitBreaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	cb, ok := c.circuits[key]
	if !ok {
		settings := c.breaker
		settings.Name = c.name + ":" + key
		cb = gobreaker.NewCircuitBreaker(settings)
		c.circuits[key] = cb
	}
	return cb
}

// countsAsSuccess keeps client-side rejections such as 4xx from tripping
// a breaker; only network failures and 5xx responses count.
func countsAsSuccess(err error) bool {
	return err == nil || !(errors.Is(err, errNetwork) || errors.Is(err, errServerError))
}

// fetchWithCache returns the cached value for key while it is fresh. Otherwise
// it requests target, decodes the body and caches the result. When the
// refresh fails and any older entry exists, that entry is served with Stale set.
func fetchWithCache[T any](
	ctx context.Context,
	c *Client,
	target string,
	key string,
	decode func([]byte) (T, error),
) (Fetched[T], error) {
	if c.cache.IsFresh(key) {
		if f, ok := cached[T](c, key); ok {
			return f, nil
		}
	}

	var (
		res any
		err error
	)
	if c.flight != nil {
		// The shared load outlives any single waiter; the resty timeout bounds it.
		shared := context.WithoutCancel(ctx)
		res, err, _ = c.flight.Do(key, func() (any, error) {
			return refresh(shared, c, target, key, decode)
		})
	} else {
		res, err = refresh(ctx, c, target, key, decode)
	}
	if err != nil {
		return Fetched[T]{}, err
	}
	f, ok := res.(Fetched[T])
	if !ok {
		return Fetched[T]{}, fmt.Errorf("unexpected cached type %T for key %s", res, key)
	}
	return f, nil
}

func refresh[T any](
	ctx context.Context,
	c *Client,
	target string,
	key string,
	decode func([]byte) (T, error),
) (Fetched[T], error) {
	body, err := c.do(ctx, key, target)
	if err == nil {
		var v T
		v, err = decode(body)
		if err == nil {
			c.cache.Put(key, v)
			if f, ok := cached[T](c, key); ok {
				return f, nil
			}
			return Fetched[T]{Value: v, FetchedAt: time.Now()}, nil
		}
		err = fmt.Errorf("%w: %s: %v", ErrParse, key, err)
	}

	if f, ok := cached[T](c, key); ok {
		f.Stale = true
		c.logger.Warn("serving stale cache entry",
			"key", key,
			"age", time.Since(f.FetchedAt).Round(time.Second),
			"error", err,
		)
		return f, nil
	}
	return Fetched[T]{}, err
}

func cached[T any](c *Client, key string) (Fetched[T], bool) {
	e, err := c.cache.Entry(key)
	if err != nil {
		return Fetched[T]{}, false
	}
	v, ok := e.Value.(T)
	if !ok {
		return Fetched[T]{}, false
	}
	return Fetched[T]{Value: v, FetchedAt: e.FetchedAt}, true
}

// do executes one GET through the relay and the circuit breaker for key.
// There are no retries; callers rely on the stale cache instead.
func (c *Client) do(ctx context.Context, key, target string) ([]byte, error) {
	result, err := c.circuit(key).Execute(func() (interface{}, error) {
		resp, execErr := c.http.R().
			SetContext(ctx).
			SetHeader("X-Request-ID", uuid.NewString()).
			Get(c.relayURL(target))
		if execErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("%w: %w", ErrTransport, ctxErr)
			}
			return nil, fmt.Errorf("%w: %w: %v", ErrTransport, errNetwork, execErr)
		}

		// Handle rate limiting and server errors explicitly.
		switch code := resp.StatusCode(); {
		case code == http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: %w", ErrTransport, errRateLimited)
		case code >= 500:
			return nil, fmt.Errorf("%w: %w: %d", ErrTransport, errServerError, code)
		case code < 200 || code >= 300:
			return nil, fmt.Errorf("%w: %w: %d", ErrTransport, errUnexpected, code)
		}

		return resp.Body(), nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %w: %v", ErrTransport, errCircuitOpen, err)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}
	return body, nil
}

func (c *Client) relayURL(target string) string {
	switch {
	case c.relay == "":
		return target
	case strings.HasSuffix(c.relay, "="):
		return c.relay + url.QueryEscape(target)
	default:
		return c.relay + target
	}
}

// decodeJSON is the default decoder for upstream payloads.
func decodeJSON[T any](body []byte) (T, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return v, err
	}
	return v, nil
}
