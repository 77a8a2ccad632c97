package throttle

import (
	"fmt"
	"sync"
	"time"
)

// Config is the bucket shape shared by every client key.
type Config struct {
	Burst    int           `env:"THROTTLE_BURST" envDefault:"20"`
	Refill   int           `env:"THROTTLE_REFILL" envDefault:"5"`
	Interval time.Duration `env:"THROTTLE_INTERVAL" envDefault:"1m"`
}

func (c Config) validate() error {
	switch {
	case c.Burst <= 0:
		return fmt.Errorf("%w: burst must be positive, got %d", ErrInvalidConfig, c.Burst)
	case c.Refill <= 0:
		return fmt.Errorf("%w: refill must be positive, got %d", ErrInvalidConfig, c.Refill)
	case c.Interval <= 0:
		return fmt.Errorf("%w: interval must be positive, got %v", ErrInvalidConfig, c.Interval)
	}
	return nil
}

// Decision is the outcome of one attempt.
type Decision struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// Allowed reports whether the attempt may proceed.
func (d Decision) Allowed() bool {
	return d.Remaining >= 0
}

type bucket struct {
	tokens     int
	refilledAt time.Time
	seenAt     time.Time
}

// Limiter tracks one bucket per client key.
type Limiter struct {
	cfg  Config
	now  func() time.Time
	idle time.Duration

	mu      sync.Mutex
	buckets map[string]*bucket

	stop     chan struct{}
	stopOnce sync.Once
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// WithIdleTimeout sets how long an untouched bucket is kept. Zero disables the sweeper.
func WithIdleTimeout(d time.Duration) Option {
	return func(l *Limiter) {
		l.idle = d
	}
}

// New creates a Limiter. Close stops its background sweeper.
func New(cfg Config, opts ...Option) (*Limiter, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	l := &Limiter{
		cfg:     cfg,
		now:     time.Now,
		idle:    time.Hour,
		buckets: make(map[string]*bucket),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.idle > 0 {
		go l.sweep()
	}
	return l, nil
}

// Allow consumes one token from key's bucket.
func (l *Limiter) Allow(key string) (Decision, error) {
	if key == "" {
		return Decision{}, ErrEmptyKey
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: l.cfg.Burst, refilledAt: now}
		l.buckets[key] = b
	}

	// Whole intervals only; capping avoids overflow after long idle periods.
	maxIntervals := int64(l.cfg.Burst/l.cfg.Refill + 1)
	if n := min(int64(now.Sub(b.refilledAt)/l.cfg.Interval), maxIntervals); n > 0 {
		b.tokens = min(b.tokens+int(n)*l.cfg.Refill, l.cfg.Burst)
		if b.tokens == l.cfg.Burst {
			b.refilledAt = now
		} else {
			// Keep partial-interval progress toward the next refill.
			b.refilledAt = b.refilledAt.Add(time.Duration(n) * l.cfg.Interval)
		}
	}

	// A denied attempt does not drain the bucket below zero.
	remaining := -1
	if b.tokens > 0 {
		b.tokens--
		remaining = b.tokens
	}
	b.seenAt = now

	return Decision{
		Limit:     l.cfg.Burst,
		Remaining: remaining,
		ResetAt:   b.refilledAt.Add(l.cfg.Interval),
	}, nil
}

// Reset forgets key's bucket.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// Close stops the sweeper. It is safe to call more than once.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) sweep() {
	ticker := time.NewTicker(l.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.removeIdle()
		case <-l.stop:
			return
		}
	}
}

func (l *Limiter) removeIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for key, b := range l.buckets {
		if now.Sub(b.seenAt) > l.idle {
			delete(l.buckets, key)
		}
	}
}
