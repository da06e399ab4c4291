package intra

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreboard/internal/metrics"
	"scoreboard/internal/ratelimit"
)

type fakeTokens struct {
	mu        sync.Mutex
	token     string
	refreshed int
	refresh   func(old string) (string, error)
	err       error
}

func (f *fakeTokens) AccessToken(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	return f.token, nil
}

func (f *fakeTokens) RefreshRejected(_ context.Context, old string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshed++
	if f.refresh == nil {
		return "", errors.New("refresh unsupported")
	}
	tok, err := f.refresh(old)
	if err == nil {
		f.token = tok
	}
	return tok, err
}

type countingLimiter struct {
	acquired atomic.Int32
}

func (l *countingLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.acquired.Add(1)
	return nil
}

type recordingSleeper struct {
	mu     sync.Mutex
	sleeps []time.Duration
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.sleeps = append(s.sleeps, d)
	s.mu.Unlock()
	return ctx.Err()
}

type clientHarness struct {
	client  *Client
	tokens  *fakeTokens
	limiter *countingLimiter
	sleeper *recordingSleeper
	metrics *metrics.Metrics
}

func newHarness(t *testing.T, handler http.HandlerFunc) *clientHarness {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	h := &clientHarness{
		tokens:  &fakeTokens{token: "T1"},
		limiter: &countingLimiter{},
		sleeper: &recordingSleeper{},
		metrics: metrics.New(),
	}
	c, err := NewClient(server.URL, h.tokens,
		WithLimiter(h.limiter),
		WithSleeper(h.sleeper.Sleep),
		WithObserver(h.metrics),
	)
	require.NoError(t, err)
	h.client = c
	return h
}

func TestClient_GetSendsBearerWithoutCookies(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer T1", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Empty(t, r.Header.Get("Cookie"))
		assert.Equal(t, "/v2/me", r.URL.Path)
		_, _ = w.Write([]byte(`{"id": 42, "login": "norminet"}`))
	})

	me, err := h.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, me.ID)
	assert.Equal(t, "norminet", me.Login)
	assert.Equal(t, int32(1), h.limiter.acquired.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.APIRequests.WithLabelValues("GET", "200")))
}

func TestClient_PostEncodesBody(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	})

	err := h.client.Post(context.Background(), "/v2/things", map[string]string{"a": "b"}, nil)
	assert.NoError(t, err)
}

func TestClient_RateLimitedHonoursRetryAfter(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "2")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"slow down"}`))
	})

	err := h.client.Get(context.Background(), "/v2/me", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRateLimited)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 2*time.Second, apiErr.RetryAfter)
	assert.Equal(t, "slow down", apiErr.Message)

	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, h.sleeper.sleeps)
	assert.Equal(t, int32(3), h.limiter.acquired.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(h.metrics.APIRetries.WithLabelValues("rate_limited")))
}

func TestClient_RateLimitedDefaultsToOneSecond(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})

	require.NoError(t, h.client.Get(context.Background(), "/v2/me", nil))
	assert.Equal(t, []time.Duration{time.Second}, h.sleeper.sleeps)
}

func TestClient_ServerErrorBacksOffExponentially(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	err := h.client.Get(context.Background(), "/v2/me", nil)
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, h.sleeper.sleeps)
}

func TestClient_ServerErrorRecovers(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"login":"ok"}`))
	})

	me, err := h.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", me.Login)
}

func TestClient_ProviderCodeDoesNotReplaceCode(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"code": "UNAUTHORIZED", "message": "Insufficient scope"}`))
	})

	err := h.client.Get(context.Background(), "/v2/users/1/locations", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusForbidden, apiErr.Status)
	assert.Equal(t, CodeHTTPError, apiErr.Code)
	assert.Equal(t, "UNAUTHORIZED", apiErr.ProviderCode)
	assert.Equal(t, "Insufficient scope", apiErr.Message)
	assert.NotErrorIs(t, err, ErrAuthExpired)
}

func TestClient_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Not found"}`))
	})

	_, err := h.client.User(context.Background(), "nobody")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "Not found", apiErr.Message)
	assert.Equal(t, CodeHTTPError, apiErr.Code)
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, h.sleeper.sleeps)
	assert.False(t, IsRetryable(err))
}

func TestClient_UnauthorizedRefreshesOnce(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer T2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"login":"fresh"}`))
	})
	h.tokens.refresh = func(old string) (string, error) {
		assert.Equal(t, "T1", old)
		return "T2", nil
	}

	me, err := h.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", me.Login)
	assert.Equal(t, 1, h.tokens.refreshed)
	assert.Equal(t, int32(2), h.limiter.acquired.Load())
}

func TestClient_UnauthorizedAfterRefreshIsTerminal(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})
	h.tokens.refresh = func(string) (string, error) { return "T2", nil }

	err := h.client.Get(context.Background(), "/v2/me", nil)
	assert.ErrorIs(t, err, ErrAuthExpired)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeAuthExpired, apiErr.Code)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, 1, h.tokens.refreshed)
}

func TestClient_UnauthorizedRefreshFails(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	err := h.client.Get(context.Background(), "/v2/me", nil)
	assert.ErrorIs(t, err, ErrAuthExpired)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeAuthExpired, apiErr.Code)
}

func TestClient_NoTokenFailsWithoutSending(t *testing.T) {
	var calls atomic.Int32
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	h.tokens.err = errors.New("not authenticated")

	err := h.client.Get(context.Background(), "/v2/me", nil)
	assert.ErrorIs(t, err, ErrAuthExpired)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeUnauthorized, apiErr.Code)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, int32(0), h.limiter.acquired.Load(), "no slot is taken without a token")
}

func TestClient_NetworkErrorIsRetried(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := server.URL
	server.Close()

	sleeper := &recordingSleeper{}
	limiter := &countingLimiter{}
	c, err := NewClient(addr, &fakeTokens{token: "T"}, WithLimiter(limiter), WithSleeper(sleeper.Sleep))
	require.NoError(t, err)

	err = c.Get(context.Background(), "/v2/me", nil)
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.True(t, IsRetryable(err))
	assert.Len(t, sleeper.sleeps, MaxRetries)
	assert.Equal(t, int32(MaxRetries+1), limiter.acquired.Load())
}

func TestClient_ConcurrentCallsShareQuota(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id": 1}`))
	}))
	t.Cleanup(server.Close)

	limiter := ratelimit.New(ratelimit.Config{RequestsPerSecond: 50, RequestsPerHour: 2})
	c, err := NewClient(server.URL, &fakeTokens{token: "T"}, WithLimiter(limiter))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		timedOut int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Get(ctx, "/v2/me", nil); errors.Is(err, context.DeadlineExceeded) {
				mu.Lock()
				timedOut++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), hits.Load(), "hourly cap of 2 must hold across goroutines")
	assert.Equal(t, 3, timedOut)
}

func TestClient_RequestDeadline(t *testing.T) {
	block := make(chan struct{})
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	})
	defer close(block)

	h.client.timeout = 50 * time.Millisecond
	err := h.client.Get(context.Background(), "/v2/me", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_RejectsForeignAbsoluteURL(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	err := h.client.Get(context.Background(), "https://evil.example.com/steal", nil)
	assert.Error(t, err)
	assert.Equal(t, int32(0), h.limiter.acquired.Load())
}

func TestGetJSON(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"id":1},{"id":2}]`))
	})

	got, err := GetJSON[[]Campus](context.Background(), h.client, "/v2/campus")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"2", 2 * time.Second},
		{"-1", 0},
		{"soon", 0},
		{now.Add(5 * time.Second).Format(http.TimeFormat), 5 * time.Second},
		{now.Add(-5 * time.Second).Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		t.Run(strconv.Quote(tt.in), func(t *testing.T) {
			assert.Equal(t, tt.want, parseRetryAfter(tt.in, now))
		})
	}
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("not a url", &fakeTokens{})
	assert.Error(t, err)

	_, err = NewClient("https://api.intra.42.fr", nil)
	assert.Error(t, err)

	c, err := NewClient("", &fakeTokens{})
	require.NoError(t, err)
	assert.Equal(t, "api.intra.42.fr", c.baseURL.Host)
}
