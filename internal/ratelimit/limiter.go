package ratelimit

import (
	"context"
	"sync"
	"time"

	"scoreboard/pkg/logging"
)

// Reason names the rule that denied a request.
type Reason string

const (
	ReasonPerSecond   Reason = "per_second"
	ReasonHourly      Reason = "hourly"
	ReasonMinInterval Reason = "min_interval"
	ReasonBurst       Reason = "burst"
)

func (r Reason) String() string {
	switch r {
	case ReasonPerSecond:
		return "per-second rate limit exceeded"
	case ReasonHourly:
		return "hourly rate limit exceeded"
	case ReasonMinInterval:
		return "minimum interval not met"
	case ReasonBurst:
		return "burst limit exceeded"
	default:
		return string(r)
	}
}

const (
	secondWindow = time.Second
	hourWindow   = time.Hour
)

// Config holds the provider quotas.
type Config struct {
	// RequestsPerSecond caps requests in any 1s window and sets the minimum
	// interval between requests to 1s/RequestsPerSecond.
	// Default: 2
	RequestsPerSecond int

	// RequestsPerHour caps requests in any 1h window.
	// Default: 1200
	RequestsPerHour int

	// BurstLimit caps requests inside BurstWindow.
	// Default: 10
	BurstLimit int

	// BurstWindow is both the burst lookback and the wait applied when the
	// burst limit binds.
	// Default: 500ms
	BurstWindow time.Duration
}

// DefaultConfig returns the 42 intranet quotas.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 2,
		RequestsPerHour:   1200,
		BurstLimit:        10,
		BurstWindow:       500 * time.Millisecond,
	}
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed bool
	Wait    time.Duration
	Reason  Reason
}

// Status is a snapshot of the limiter's windows.
type Status struct {
	RequestsLastSecond int       `json:"requestsInLastSecond"`
	RequestsLastHour   int       `json:"requestsInLastHour"`
	Allowed            bool      `json:"canMakeRequest"`
	NextAvailable      time.Time `json:"nextAvailableTime"`
}

// Observer receives the waits the limiter imposes.
type Observer interface {
	ObserveRateLimitWait(reason string, wait time.Duration)
}

// Limiter is a process-wide sliding-window limiter for outbound API calls.
// Acquire checks and records atomically; Check and Record remain for callers
// that own a single request at a time.
type Limiter struct {
	mu sync.Mutex

	cfg         Config
	minInterval time.Duration

	second      []time.Time
	hour        []time.Time
	lastRequest time.Time

	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	observer Observer
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// WithSleeper replaces the context-aware timer used by Wait.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(l *Limiter) { l.sleep = sleep }
}

// WithObserver reports every wait to o.
func WithObserver(o Observer) Option {
	return func(l *Limiter) { l.observer = o }
}

// New creates a limiter. Non-positive config values fall back to defaults.
func New(cfg Config, opts ...Option) *Limiter {
	def := DefaultConfig()
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = def.RequestsPerSecond
	}
	if cfg.RequestsPerHour <= 0 {
		cfg.RequestsPerHour = def.RequestsPerHour
	}
	if cfg.BurstLimit <= 0 {
		cfg.BurstLimit = def.BurstLimit
	}
	if cfg.BurstWindow <= 0 {
		cfg.BurstWindow = def.BurstWindow
	}

	l := &Limiter{
		cfg:         cfg,
		minInterval: time.Second / time.Duration(cfg.RequestsPerSecond),
		now:         time.Now,
		sleep:       Sleep,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check reports whether a request may be sent now. Rules are evaluated in
// order and the first violated one determines the wait.
func (l *Limiter) Check() Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.checkLocked(l.now())
}

func (l *Limiter) checkLocked(now time.Time) Decision {
	l.prune(now)

	if len(l.second) >= l.cfg.RequestsPerSecond {
		wait := secondWindow - now.Sub(l.second[0])
		return Decision{Wait: max(0, wait), Reason: ReasonPerSecond}
	}

	if len(l.hour) >= l.cfg.RequestsPerHour {
		wait := hourWindow - now.Sub(l.hour[0])
		return Decision{Wait: max(0, wait), Reason: ReasonHourly}
	}

	if !l.lastRequest.IsZero() {
		if since := now.Sub(l.lastRequest); since < l.minInterval {
			return Decision{Wait: l.minInterval - since, Reason: ReasonMinInterval}
		}
	}

	burst := 0
	for _, t := range l.second {
		if now.Sub(t) < l.cfg.BurstWindow {
			burst++
		}
	}
	if burst >= l.cfg.BurstLimit {
		return Decision{Wait: l.cfg.BurstWindow, Reason: ReasonBurst}
	}

	return Decision{Allowed: true}
}

// prune drops timestamps that have left their windows. Entries are kept in
// Record order, which is wall-clock order.
func (l *Limiter) prune(now time.Time) {
	l.second = dropOlder(l.second, now, secondWindow)
	l.hour = dropOlder(l.hour, now, hourWindow)
}

func dropOlder(ts []time.Time, now time.Time, window time.Duration) []time.Time {
	i := 0
	for i < len(ts) && now.Sub(ts[i]) >= window {
		i++
	}
	if i == 0 {
		return ts
	}
	return append(ts[:0], ts[i:]...)
}

// Record counts one sent request against every window.
func (l *Limiter) Record() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordLocked(l.now())
}

func (l *Limiter) recordLocked(now time.Time) {
	l.second = append(l.second, now)
	l.hour = append(l.hour, now)
	l.lastRequest = now
}

// Wait blocks until Check allows a request, re-checking after every sleep
// since more than one rule may bind. It returns ctx.Err() if the context is
// cancelled first.
//
// Wait does not reserve the slot it found; concurrent callers must use
// Acquire.
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		d := l.Check()
		if d.Allowed || d.Wait <= 0 {
			return nil
		}
		if err := l.pause(ctx, d); err != nil {
			return err
		}
	}
}

// Acquire blocks like Wait and records the request in the same critical
// section that allowed it, so concurrent callers can never exceed a cap
// between the check and the record.
func (l *Limiter) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		l.mu.Lock()
		now := l.now()
		d := l.checkLocked(now)
		if d.Allowed {
			l.recordLocked(now)
			l.mu.Unlock()
			return nil
		}
		l.mu.Unlock()

		if d.Wait <= 0 {
			d.Wait = time.Millisecond
		}
		if err := l.pause(ctx, d); err != nil {
			return err
		}
	}
}

func (l *Limiter) pause(ctx context.Context, d Decision) error {
	if d.Wait > time.Second {
		logging.Warn("RateLimit", "Waiting %s (%s)", d.Wait, d.Reason)
	} else {
		logging.Debug("RateLimit", "Waiting %s (%s)", d.Wait, d.Reason)
	}
	if l.observer != nil {
		l.observer.ObserveRateLimitWait(string(d.Reason), d.Wait)
	}
	return l.sleep(ctx, d.Wait)
}

// Status returns counts for both windows and when the next request may go out.
func (l *Limiter) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	d := l.checkLocked(now)

	next := now
	if !d.Allowed {
		next = now.Add(d.Wait)
	}
	return Status{
		RequestsLastSecond: len(l.second),
		RequestsLastHour:   len(l.hour),
		Allowed:            d.Allowed,
		NextAvailable:      next,
	}
}

// Reset clears all windows.
func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.second = nil
	l.hour = nil
	l.lastRequest = time.Time{}
	logging.Debug("RateLimit", "Rate limiter reset")
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
