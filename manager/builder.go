package manager

import (
	"time"

	"github.com/dhanhq/marketfeed/internal/logger"
	"github.com/dhanhq/marketfeed/internal/metrics"
	"github.com/dhanhq/marketfeed/internal/ratelimit"
)

type config struct {
	clientID                    string
	accessToken                 string
	maxConnections              int
	maxInstrumentsPerConnection int
	enableRawFrames             bool
	reconnectDelay              time.Duration
	parsedChannelCapacity       int
	rawChannelCapacity          int
	autoReconnect               bool
	subscribeRatePerMinute      int
}

func defaultConfig() config {
	return config{
		maxConnections:              5,
		maxInstrumentsPerConnection: 5000,
		enableRawFrames:             false,
		reconnectDelay:              2 * time.Second,
		parsedChannelCapacity:       4096,
		rawChannelCapacity:          4096,
		autoReconnect:               true,
		subscribeRatePerMinute:      600,
	}
}

// Option configures a Manager under construction. Build applies options in
// the order they were passed to Builder.With, each clamped to its
// documented range independently of the others.
type Option func(*config)

// WithMaxConnections clamps n to 1..=5.
func WithMaxConnections(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		if n > 5 {
			n = 5
		}
		c.maxConnections = n
	}
}

// WithMaxInstrumentsPerConnection clamps n to ..=5000.
func WithMaxInstrumentsPerConnection(n int) Option {
	return func(c *config) {
		if n > 5000 {
			n = 5000
		}
		if n < 1 {
			n = 1
		}
		c.maxInstrumentsPerConnection = n
	}
}

// WithRawFrames enables a second, raw-bytes fan-out per slot.
func WithRawFrames(enabled bool) Option {
	return func(c *config) { c.enableRawFrames = enabled }
}

// WithReconnectDelay sets the delay before each reconnect attempt.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *config) {
		if d < 0 {
			d = 0
		}
		c.reconnectDelay = d
	}
}

// WithParsedChannelCapacity sets the bounded size of each slot's parsed
// fan-out.
func WithParsedChannelCapacity(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.parsedChannelCapacity = n
	}
}

// WithRawChannelCapacity sets the bounded size of each slot's raw
// fan-out.
func WithRawChannelCapacity(n int) Option {
	return func(c *config) {
		if n < 1 {
			n = 1
		}
		c.rawChannelCapacity = n
	}
}

// WithAutoReconnect controls whether a slot exits or reconnects on
// disconnect.
func WithAutoReconnect(enabled bool) Option {
	return func(c *config) { c.autoReconnect = enabled }
}

// WithSubscribeRateLimit caps how many 100-instrument subscribe/unsubscribe
// chunks the manager writes per minute across the whole pool, smoothing
// bursts of control-frame traffic from a single large Subscribe call.
func WithSubscribeRateLimit(chunksPerMinute int) Option {
	return func(c *config) {
		if chunksPerMinute < 1 {
			chunksPerMinute = 1
		}
		c.subscribeRatePerMinute = chunksPerMinute
	}
}

// Builder constructs a Manager from a feed host and credentials plus a
// set of clamped Options, per the declarative-construction contract:
// this module never reads files or environment variables itself.
type Builder struct {
	host        string
	clientID    string
	accessToken string
	log         logger.LoggerInterface
	opts        []Option
}

// NewBuilder starts a Builder for the given feed host (no scheme) and
// credentials.
func NewBuilder(host, clientID, accessToken string) *Builder {
	return &Builder{host: host, clientID: clientID, accessToken: accessToken}
}

// WithLogger attaches a logger; defaults to a no-op logger if unset.
func (b *Builder) WithLogger(log logger.LoggerInterface) *Builder {
	b.log = log
	return b
}

// With appends one or more Options, applied in Build in the order given
// across all With calls.
func (b *Builder) With(opts ...Option) *Builder {
	b.opts = append(b.opts, opts...)
	return b
}

// Build applies every accumulated Option over the documented defaults
// and returns an unstarted Manager.
func (b *Builder) Build() *Manager {
	cfg := defaultConfig()
	cfg.clientID = b.clientID
	cfg.accessToken = b.accessToken
	for _, opt := range b.opts {
		opt(&cfg)
	}

	log := b.log
	if log == nil {
		log = logger.NewNop()
	}

	return &Manager{
		cfg:     cfg,
		log:     log,
		host:    b.host,
		limiter: ratelimit.NewForSubscriptionChunks(cfg.subscribeRatePerMinute),
		metrics: metrics.NewFeedMetrics("marketfeed.manager"),
	}
}
