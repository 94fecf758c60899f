package providers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(clock *fakeClock, relay string, dedupe bool) *Client {
	return NewClient(ClientConfig{
		Name:           "test",
		Relay:          relay,
		Timeout:        2 * time.Second,
		TTL:            10 * time.Minute,
		DedupeInflight: dedupe,
		Logger:         discardLogger(),
		Clock:          clock.Now,
	})
}

type payload struct {
	Value int `json:"value"`
}

// upstream is a counting fake whose response can be switched between calls.
type upstream struct {
	hits   atomic.Int32
	status atomic.Int32
	body   atomic.Value
	delay  time.Duration
}

func newUpstream(t *testing.T, body string) (*upstream, *httptest.Server) {
	t.Helper()
	u := &upstream{}
	u.status.Store(http.StatusOK)
	u.body.Store(body)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		if u.delay > 0 {
			time.Sleep(u.delay)
		}
		w.WriteHeader(int(u.status.Load()))
		_, _ = w.Write([]byte(u.body.Load().(string)))
	}))
	t.Cleanup(srv.Close)
	return u, srv
}

func fetchPayload(c *Client, target string) (Fetched[payload], error) {
	return fetchWithCache(context.Background(), c, target, "k", decodeJSON[payload])
}

func TestFetchWithCache_FreshEntrySkipsNetwork(t *testing.T) {
	clock := newFakeClock()
	up, srv := newUpstream(t, `{"value": 1}`)
	c := newTestClient(clock, "", true)

	first, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Value.Value)
	assert.False(t, first.Stale)

	clock.Advance(9 * time.Minute)
	up.body.Store(`{"value": 2}`)

	second, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, second.Value.Value)
	assert.EqualValues(t, 1, up.hits.Load())

	clock.Advance(1 * time.Minute)

	third, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 2, third.Value.Value)
	assert.EqualValues(t, 2, up.hits.Load())
}

func TestFetchWithCache_StaleFallback(t *testing.T) {
	clock := newFakeClock()
	up, srv := newUpstream(t, `{"value": 7}`)
	c := newTestClient(clock, "", true)

	_, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)
	cachedAt := clock.Now()

	clock.Advance(3 * time.Hour)
	up.status.Store(http.StatusBadGateway)

	got, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.True(t, got.Stale)
	assert.Equal(t, 7, got.Value.Value)
	assert.Equal(t, cachedAt, got.FetchedAt)
	assert.EqualValues(t, 2, up.hits.Load())
}

func TestFetchWithCache_TransportErrorWithoutCache(t *testing.T) {
	tests := map[string]int{
		"server error": http.StatusInternalServerError,
		"rate limited": http.StatusTooManyRequests,
		"unauthorized": http.StatusUnauthorized,
		"not found":    http.StatusNotFound,
		"bad gateway":  http.StatusBadGateway,
	}

	for name, status := range tests {
		t.Run(name, func(t *testing.T) {
			up, srv := newUpstream(t, `{"value": 1}`)
			up.status.Store(int32(status))
			c := newTestClient(newFakeClock(), "", true)

			_, err := fetchPayload(c, srv.URL)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrTransport)
		})
	}
}

func TestFetchWithCache_UnreachableHost(t *testing.T) {
	_, srv := newUpstream(t, `{}`)
	target := srv.URL
	srv.Close()

	c := newTestClient(newFakeClock(), "", true)
	_, err := fetchPayload(c, target)
	assert.ErrorIs(t, err, ErrTransport)
}

func TestFetchWithCache_ParseError(t *testing.T) {
	clock := newFakeClock()
	up, srv := newUpstream(t, `not json`)
	c := newTestClient(clock, "", true)

	_, err := fetchPayload(c, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
	assert.NotErrorIs(t, err, ErrTransport)

	up.body.Store(`{"value": 3}`)
	_, err = fetchPayload(c, srv.URL)
	require.NoError(t, err)

	// A malformed refresh never replaces a good entry.
	clock.Advance(time.Hour)
	up.body.Store(`{"value": `)

	got, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.True(t, got.Stale)
	assert.Equal(t, 3, got.Value.Value)
}

func TestFetchWithCache_DedupesConcurrentMisses(t *testing.T) {
	up, srv := newUpstream(t, `{"value": 5}`)
	up.delay = 200 * time.Millisecond
	c := newTestClient(newFakeClock(), "", true)

	var wg sync.WaitGroup
	results := make([]int, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			f, err := fetchPayload(c, srv.URL)
			if err == nil {
				results[i] = f.Value.Value
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, up.hits.Load())
	for _, v := range results {
		assert.Equal(t, 5, v)
	}
}

func TestFetchWithCache_CanceledWaiterDoesNotFailOthers(t *testing.T) {
	up, srv := newUpstream(t, `{"value": 5}`)
	up.delay = 200 * time.Millisecond
	c := newTestClient(newFakeClock(), "", true)

	first, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = fetchWithCache(first, c, srv.URL, "k", decodeJSON[payload])
	}()

	time.Sleep(10 * time.Millisecond)
	got, err := fetchPayload(c, srv.URL)
	wg.Wait()

	require.NoError(t, err)
	assert.Equal(t, 5, got.Value.Value)
	assert.EqualValues(t, 1, up.hits.Load())
}

func TestFetchWithCache_WithoutDedupe(t *testing.T) {
	up, srv := newUpstream(t, `{"value": 5}`)
	c := newTestClient(newFakeClock(), "", false)

	_, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)
	_, err = fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 1, up.hits.Load())
}

func TestClient_ClearCacheAndSetTTL(t *testing.T) {
	clock := newFakeClock()
	up, srv := newUpstream(t, `{"value": 1}`)
	c := newTestClient(clock, "", true)

	_, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)

	c.ClearCache()
	_, err = fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 2, up.hits.Load())

	c.SetTTL(time.Minute)
	clock.Advance(2 * time.Minute)
	_, err = fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.EqualValues(t, 3, up.hits.Load())
}

func TestClient_RelayURL(t *testing.T) {
	target := "https://api.example.com/data?lat=1&lon=2"

	tests := map[string]struct {
		relay string
		want  string
	}{
		"direct":      {relay: "", want: target},
		"query relay": {relay: "https://relay.example.com/?url=", want: "https://relay.example.com/?url=https%3A%2F%2Fapi.example.com%2Fdata%3Flat%3D1%26lon%3D2"},
		"path relay":  {relay: "https://relay.example.com/", want: "https://relay.example.com/https://api.example.com/data?lat=1&lon=2"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(newFakeClock(), tc.relay, true)
			assert.Equal(t, tc.want, c.relayURL(target))
		})
	}
}

func TestFetchWithCache_ThroughQueryRelay(t *testing.T) {
	target := "https://api.example.com/data?lat=1&lon=2"

	var gotTarget, gotRequestID string
	relay := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTarget = r.URL.Query().Get("url")
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"value": 9}`))
	}))
	defer relay.Close()

	c := newTestClient(newFakeClock(), relay.URL+"/?url=", true)
	got, err := fetchPayload(c, target)
	require.NoError(t, err)

	assert.Equal(t, 9, got.Value.Value)
	assert.Equal(t, target, gotTarget)
	assert.NotEmpty(t, gotRequestID)
}

func TestFetchWithCache_BreakerIsPerKey(t *testing.T) {
	up, srv := newUpstream(t, `{"value": 1}`)
	up.status.Store(http.StatusInternalServerError)
	c := newTestClient(newFakeClock(), "", true)

	for i := 0; i < 6; i++ {
		_, err := fetchWithCache(context.Background(), c, srv.URL, "bad", decodeJSON[payload])
		require.ErrorIs(t, err, ErrTransport)
	}
	require.EqualValues(t, 6, up.hits.Load())

	up.status.Store(http.StatusOK)

	got, err := fetchWithCache(context.Background(), c, srv.URL, "good", decodeJSON[payload])
	require.NoError(t, err)
	assert.Equal(t, 1, got.Value.Value)
	assert.EqualValues(t, 7, up.hits.Load())

	// The failing key is short-circuited without touching upstream.
	_, err = fetchWithCache(context.Background(), c, srv.URL, "bad", decodeJSON[payload])
	assert.ErrorIs(t, err, ErrTransport)
	assert.ErrorIs(t, err, errCircuitOpen)
	assert.EqualValues(t, 7, up.hits.Load())
}

func TestFetchWithCache_ClientErrorsDoNotTripBreaker(t *testing.T) {
	up, srv := newUpstream(t, `{"value": 1}`)
	up.status.Store(http.StatusNotFound)
	c := newTestClient(newFakeClock(), "", true)

	for i := 0; i < 10; i++ {
		_, err := fetchPayload(c, srv.URL)
		require.ErrorIs(t, err, ErrTransport)
	}

	up.status.Store(http.StatusOK)
	got, err := fetchPayload(c, srv.URL)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Value.Value)
	assert.EqualValues(t, 11, up.hits.Load())
}
