package intra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scoreboard/internal/ratelimit"
	"scoreboard/pkg/logging"
	pkgoauth "scoreboard/pkg/oauth"
)

const (
	// DefaultRequestTimeout bounds one logical call, retries and limiter
	// waits included.
	DefaultRequestTimeout = 2 * time.Minute

	// MaxRetries is the number of extra attempts for 429, 5xx and network
	// failures.
	MaxRetries = 2

	defaultRetryAfter = time.Second
	maxResponseBytes  = 10 << 20
)

// TokenSource supplies bearer tokens. *oauth.TokenStore implements it.
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
	// RefreshRejected replaces a token the API answered 401 to. Concurrent
	// callers share one refresh.
	RefreshRejected(ctx context.Context, token string) (string, error)
}

// StaticToken is a TokenSource for a token obtained elsewhere, such as a
// freshly exchanged code. It cannot be refreshed.
type StaticToken string

func (t StaticToken) AccessToken(context.Context) (string, error) {
	if t == "" {
		return "", errors.New("no access token")
	}
	return string(t), nil
}

func (t StaticToken) RefreshRejected(context.Context, string) (string, error) {
	return "", errors.New("static token cannot be refreshed")
}

// Limiter gates outbound requests. Acquire must reserve the slot it grants
// so concurrent callers are counted before they send. *ratelimit.Limiter
// implements it.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Observer receives per-request metrics.
type Observer interface {
	ObserveAPIRequest(method string, status int)
	IncrementRetries(reason string)
}

// Client calls the 42 intranet API on behalf of the signed-in user.
// Cookies are never sent; the bearer token is the only credential.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	tokens     TokenSource
	limiter    Limiter
	observer   Observer
	timeout    time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the transport. Any cookie jar on it is dropped.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		copied := *hc
		copied.Jar = nil
		c.httpClient = &copied
	}
}

// WithLimiter replaces the default limiter.
func WithLimiter(l Limiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithObserver reports requests and retries.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// WithRequestTimeout overrides DefaultRequestTimeout. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithSleeper replaces the backoff timer.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = sleep }
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient creates a client for baseURL (empty for the public API).
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = pkgoauth.DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}
	if tokens == nil {
		return nil, fmt.Errorf("token source is required")
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{},
		tokens:     tokens,
		timeout:    DefaultRequestTimeout,
		sleep:      ratelimit.Sleep,
		userAgent:  "scoreboard",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(ratelimit.DefaultConfig())
	}
	return c, nil
}

// Get fetches endpoint and decodes the JSON body into out.
func (c *Client) Get(ctx context.Context, endpoint string, out any) error {
	return c.Do(ctx, http.MethodGet, endpoint, nil, out)
}

// Post sends body as JSON.
func (c *Client) Post(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPost, endpoint, body, out)
}

// Put sends body as JSON.
func (c *Client) Put(ctx context.Context, endpoint string, body, out any) error {
	return c.Do(ctx, http.MethodPut, endpoint, body, out)
}

// Delete removes the resource at endpoint.
func (c *Client) Delete(ctx context.Context, endpoint string, out any) error {
	return c.Do(ctx, http.MethodDelete, endpoint, nil, out)
}

// GetJSON fetches endpoint into a new T.
func GetJSON[T any](ctx context.Context, c *Client, endpoint string) (T, error) {
	var out T
	err := c.Get(ctx, endpoint, &out)
	return out, err
}

// Do performs one logical API call with rate limiting and the retry policy:
//   - 401: one refresh of the rejected token, then one more attempt
//   - 429: wait Retry-After (default 1s), at most MaxRetries times
//   - 5xx and network errors: wait 2^n seconds, at most MaxRetries times
//   - other 4xx: returned immediately
func (c *Client) Do(ctx context.Context, method, endpoint string, body, out any) error {
	target, err := c.resolve(endpoint)
	if err != nil {
		return err
	}

	var payload []byte
	if body != nil {
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	refreshed := false
	retries := 0
	for {
		token, err := c.tokens.AccessToken(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &APIError{Status: http.StatusUnauthorized, Code: CodeUnauthorized, Message: "no valid access token", Err: err}
		}

		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		resp, err := c.send(ctx, method, target, payload, token)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			netErr := &NetworkError{Method: method, URL: target.Path, Err: err}
			if retries >= MaxRetries {
				return netErr
			}
			if err := c.backoff(ctx, "network", serverBackoff(retries)); err != nil {
				return err
			}
			retries++
			continue
		}

		apiErr := c.readResponse(resp, out)
		if apiErr == nil {
			return nil
		}

		switch {
		case apiErr.Status == http.StatusUnauthorized:
			if refreshed {
				return &APIError{Status: http.StatusUnauthorized, Code: CodeAuthExpired, Message: "authentication failed, please log in again", Err: apiErr}
			}
			refreshed = true
			logging.Info("IntraAPI", "Token rejected on %s %s, refreshing", method, target.Path)
			if _, err := c.tokens.RefreshRejected(ctx, token); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return &APIError{Status: http.StatusUnauthorized, Code: CodeAuthExpired, Message: "authentication failed, please log in again", Err: err}
			}
			c.retried("unauthorized")

		case apiErr.Status == http.StatusTooManyRequests:
			if retries >= MaxRetries {
				return apiErr
			}
			wait := apiErr.RetryAfter
			if wait <= 0 {
				wait = defaultRetryAfter
			}
			logging.Warn("IntraAPI", "Rate limited by server, waiting %s", wait)
			if err := c.backoff(ctx, "rate_limited", wait); err != nil {
				return err
			}
			retries++

		case apiErr.Status >= 500:
			if retries >= MaxRetries {
				return apiErr
			}
			wait := serverBackoff(retries)
			logging.Warn("IntraAPI", "Server error %d, retrying in %s", apiErr.Status, wait)
			if err := c.backoff(ctx, "server_error", wait); err != nil {
				return err
			}
			retries++

		default:
			return apiErr
		}
	}
}

func serverBackoff(retries int) time.Duration {
	return time.Duration(1<<retries) * time.Second
}

func (c *Client) backoff(ctx context.Context, reason string, d time.Duration) error {
	c.retried(reason)
	return c.sleep(ctx, d)
}

func (c *Client) retried(reason string) {
	if c.observer != nil {
		c.observer.IncrementRetries(reason)
	}
}

// resolve joins endpoint to the base URL. Absolute URLs are accepted only
// for the API host so the token is never sent elsewhere.
func (c *Client) resolve(endpoint string) (*url.URL, error) {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		u, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
		}
		if u.Host != c.baseURL.Host {
			return nil, fmt.Errorf("endpoint host %q does not match API host %q", u.Host, c.baseURL.Host)
		}
		return u, nil
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	u, err := url.Parse(c.baseURL.String() + endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return u, nil
}

// send issues one request. The caller has already acquired a limiter slot.
func (c *Client) send(ctx context.Context, method string, target *url.URL, payload []byte, token string) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, 0)
		return nil, err
	}
	c.observe(method, resp.StatusCode)
	logging.Debug("IntraAPI", "%s %s -> %d (%s)", method, target.Path, resp.StatusCode, time.Since(start).Round(time.Millisecond))
	return resp, nil
}

func (c *Client) observe(method string, status int) {
	if c.observer != nil {
		c.observer.ObserveAPIRequest(method, status)
	}
}

type errorPayload struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// readResponse decodes a 2xx body into out, or returns the response as an
// *APIError.
func (c *Client) readResponse(resp *http.Response, out any) *APIError {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if err != nil {
			return &APIError{Status: resp.StatusCode, Code: CodeHTTPError, Message: "failed to read response", Err: err}
		}
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return &APIError{Status: resp.StatusCode, Code: CodeHTTPError, Message: "invalid JSON response", Err: err}
		}
		return nil
	}

	apiErr := &APIError{
		Status:  resp.StatusCode,
		Code:    CodeHTTPError,
		Message: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
	var ep errorPayload
	if json.Unmarshal(data, &ep) == nil {
		switch {
		case ep.Message != "":
			apiErr.Message = ep.Message
		case ep.Error != "":
			apiErr.Message = ep.Error
		}
		apiErr.ProviderCode = ep.Code
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
	}
	return apiErr
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

// IsRetryable reports whether err belongs to a transient class.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrServer) || errors.As(err, &netErr)
}
