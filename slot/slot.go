// Package slot implements one Connection Slot: a single feed WebSocket
// owned by a background task that reconnects on failure, replays its
// subscription table on every reconnect, and fans out both raw and
// decoded events to attached receivers.
package slot

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dhanhq/marketfeed/broadcast"
	"github.com/dhanhq/marketfeed/codec"
	"github.com/dhanhq/marketfeed/feed"
	"github.com/dhanhq/marketfeed/internal/apm"
	"github.com/dhanhq/marketfeed/internal/circuitbreaker"
	"github.com/dhanhq/marketfeed/internal/logger"
	"github.com/dhanhq/marketfeed/internal/metrics"
	"github.com/dhanhq/marketfeed/wire"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel/attribute"
)

// State is one point in the slot's connection lifecycle. An explicit
// state machine replaces a recursive reconnect loop so the lifecycle is
// bounded and independently testable.
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config configures one slot's dial target and policy.
type Config struct {
	Host            string
	ClientID        string
	AccessToken     string
	MaxInstruments  int
	ReconnectDelay  time.Duration
	AutoReconnect   bool
	EnableRawFrames bool
	ParsedCapacity  int
	RawCapacity     int
	Log             logger.LoggerInterface
	Metrics         *metrics.FeedMetrics
}

// Health is a point-in-time snapshot of one slot.
type Health struct {
	ID              int
	Alive           bool
	State           State
	InstrumentCount int
	ReconnectCount  uint64
}

// Slot owns one market-feed connection: the background reconnect loop,
// the mutex-guarded writer handle, the subscription table, and the
// parsed/raw fan-out channels.
type Slot struct {
	id  int
	cfg Config
	log logger.LoggerInterface

	state atomic.Int32

	writerMu sync.Mutex
	session  *feed.Session

	subsMu sync.RWMutex
	subs   map[wire.InstrumentKey]wire.Mode

	parsed *broadcast.Broadcaster[*codec.FeedEvent]
	raw    *broadcast.Broadcaster[[]byte]

	reconnects atomic.Uint64
	breaker    *circuitbreaker.CircuitBreaker[*feed.Session]
	metrics    *metrics.FeedMetrics
	tracer     apm.Tracer

	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once
}

// New constructs a slot. Call Start to begin its background task.
func New(id int, cfg Config) *Slot {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}

	s := &Slot{
		id:      id,
		cfg:     cfg,
		log:     log,
		subs:    make(map[wire.InstrumentKey]wire.Mode),
		parsed:  broadcast.New[*codec.FeedEvent](cfg.ParsedCapacity),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		metrics: cfg.Metrics,
		tracer:  apm.NewTracer("marketfeed.slot"),
	}
	if cfg.EnableRawFrames {
		s.raw = broadcast.New[[]byte](cfg.RawCapacity)
	}

	bcfg := circuitbreaker.DefaultConfig("slot-dial")
	s.breaker = circuitbreaker.New[*feed.Session](bcfg)

	s.state.Store(int32(StateConnecting))
	return s
}

// ID returns the slot's identifier within its manager.
func (s *Slot) ID() int { return s.id }

// State returns the slot's current lifecycle state.
func (s *Slot) State() State { return State(s.state.Load()) }

func (s *Slot) setState(st State) { s.state.Store(int32(st)) }

// Start launches the slot's background connect/read/reconnect loop.
func (s *Slot) Start(ctx context.Context) {
	go s.run(ctx)
}

func (s *Slot) run(ctx context.Context) {
	defer close(s.doneCh)

	firstOpen := true
	for {
		select {
		case <-s.stopCh:
			s.setState(StateStopped)
			return
		default:
		}

		s.setState(StateConnecting)
		sess, err := s.dial(ctx)
		if err != nil {
			s.log.Warn(ctx, "slot: dial failed", "slot", s.id, "error", err)
			if !s.cfg.AutoReconnect {
				s.setState(StateStopped)
				return
			}
			s.setState(StateBackoff)
			if !s.sleepBackoff() {
				return
			}
			continue
		}

		// The table is replayed on every open, the first included, so
		// instruments added while no session was live are sent too.
		s.writerMu.Lock()
		s.session = sess
		if !firstOpen {
			s.reconnects.Add(1)
			s.metrics.RecordReconnect(ctx, s.id)
		}
		s.replaySubscriptions(ctx, sess)
		s.writerMu.Unlock()
		firstOpen = false

		s.setState(StateStreaming)
		s.readLoop(ctx, sess)

		s.writerMu.Lock()
		s.session = nil
		s.writerMu.Unlock()

		select {
		case <-s.stopCh:
			s.setState(StateStopped)
			return
		default:
		}

		if !s.cfg.AutoReconnect {
			s.setState(StateStopped)
			return
		}
		s.setState(StateBackoff)
		if !s.sleepBackoff() {
			return
		}
	}
}

func (s *Slot) dial(ctx context.Context) (*feed.Session, error) {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "slot.dial")
	defer span.End()

	sess, err := s.breaker.Execute(func() (*feed.Session, error) {
		return feed.Connect(ctx, feed.Config{
			Host:        s.cfg.Host,
			ClientID:    s.cfg.ClientID,
			AccessToken: s.cfg.AccessToken,
			Log:         s.log,
		})
	})
	if err != nil {
		span.RecordError(err)
	}
	return sess, err
}

// sleepBackoff waits before the next dial attempt. While the breaker is
// open it waits the breaker's own cooldown instead of ReconnectDelay, so
// the slot doesn't spin Execute calls that the breaker would just
// short-circuit anyway.
func (s *Slot) sleepBackoff() bool {
	delay := s.cfg.ReconnectDelay
	if s.breaker.State() == gobreaker.StateOpen {
		delay = s.breaker.Timeout()
	}

	select {
	case <-s.stopCh:
		s.setState(StateStopped)
		return false
	case <-time.After(delay):
		return true
	}
}

// replaySubscriptions takes a fresh snapshot of the subscription table
// and re-sends it grouped by mode, chunked to the wire limit. Unlike a
// snapshot captured once at slot start, this is taken anew on every
// reconnect so instruments added after the last reconnect are included.
func (s *Slot) replaySubscriptions(ctx context.Context, sess *feed.Session) {
	byMode := s.snapshotByMode()
	for mode, instruments := range byMode {
		if err := sess.Subscribe(ctx, mode, instruments); err != nil {
			s.log.Error(ctx, "slot: resubscribe failed", "slot", s.id, "mode", mode.String(), "error", err)
		}
	}
}

func (s *Slot) snapshotByMode() map[wire.Mode][]wire.Instrument {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()

	byMode := make(map[wire.Mode][]wire.Instrument)
	for key, mode := range s.subs {
		ins := wire.Instrument{ExchangeSegment: key.ExchangeSegment, SecurityID: key.SecurityID}
		byMode[mode] = append(byMode[mode], ins)
	}
	return byMode
}

func (s *Slot) readLoop(ctx context.Context, sess *feed.Session) {
	for {
		select {
		case <-s.stopCh:
			return
		default:
		}

		raw, ev, err := sess.NextFrame(ctx)
		if err != nil {
			return
		}

		if s.raw != nil {
			s.raw.Publish(raw)
		}
		s.parsed.Publish(ev)
	}
}

// Subscribe adds instruments to the subscription table and, if the slot
// currently has a live writer, sends the subscribe frames immediately.
func (s *Slot) Subscribe(ctx context.Context, mode wire.Mode, instruments []wire.Instrument) error {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "slot.subscribe")
	defer span.End()
	span.SetAttributes(attribute.String("mode", mode.String()), attribute.Int("count", len(instruments)))

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if s.session != nil {
		if err := s.session.Subscribe(ctx, mode, instruments); err != nil {
			span.RecordError(err)
			return err
		}
	}

	s.subsMu.Lock()
	for _, ins := range instruments {
		s.subs[ins.Key()] = mode
	}
	s.subsMu.Unlock()
	return nil
}

// Unsubscribe removes instruments from the subscription table and, if
// the slot currently has a live writer, sends the unsubscribe frames.
func (s *Slot) Unsubscribe(ctx context.Context, mode wire.Mode, instruments []wire.Instrument) error {
	ctx, span := s.tracer.StartSpanFromContext(ctx, "slot.unsubscribe")
	defer span.End()
	span.SetAttributes(attribute.String("mode", mode.String()), attribute.Int("count", len(instruments)))

	s.writerMu.Lock()
	defer s.writerMu.Unlock()

	if s.session != nil {
		if err := s.session.Unsubscribe(ctx, mode, instruments); err != nil {
			span.RecordError(err)
			return err
		}
	}

	s.subsMu.Lock()
	for _, ins := range instruments {
		delete(s.subs, ins.Key())
	}
	s.subsMu.Unlock()
	return nil
}

// InstrumentCount reports the number of instruments in the subscription
// table.
func (s *Slot) InstrumentCount() int {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	return len(s.subs)
}

// HasInstrument reports whether key is already subscribed on this slot.
func (s *Slot) HasInstrument(key wire.InstrumentKey) bool {
	s.subsMu.RLock()
	defer s.subsMu.RUnlock()
	_, ok := s.subs[key]
	return ok
}

// ReconnectCount returns the number of successful re-opens since start.
func (s *Slot) ReconnectCount() uint64 { return s.reconnects.Load() }

// ParsedReceiver attaches a new receiver to the decoded-event fan-out.
func (s *Slot) ParsedReceiver() *broadcast.Receiver[*codec.FeedEvent] {
	return s.parsed.Subscribe()
}

// RawReceiver attaches a new receiver to the raw-frame fan-out. The
// second return value is false if raw frames are disabled for this slot.
func (s *Slot) RawReceiver() (*broadcast.Receiver[[]byte], bool) {
	if s.raw == nil {
		return nil, false
	}
	return s.raw.Subscribe(), true
}

// Health returns a snapshot of this slot's state.
func (s *Slot) Health() Health {
	st := s.State()
	return Health{
		ID:              s.id,
		Alive:           st != StateStopped,
		State:           st,
		InstrumentCount: s.InstrumentCount(),
		ReconnectCount:  s.ReconnectCount(),
	}
}

// Shutdown stops the background task, best-effort closes the current
// session, and clears the subscription table.
func (s *Slot) Shutdown(ctx context.Context) {
	s.once.Do(func() { close(s.stopCh) })

	s.writerMu.Lock()
	sess := s.session
	s.session = nil
	s.writerMu.Unlock()
	if sess != nil {
		if err := sess.Disconnect(ctx); err != nil {
			s.log.Warn(ctx, "slot: close on shutdown failed", "slot", s.id, "error", err)
		}
	}
	<-s.doneCh

	s.subsMu.Lock()
	s.subs = make(map[wire.InstrumentKey]wire.Mode)
	s.subsMu.Unlock()

	if s.raw != nil {
		s.raw.Close()
	}
	s.parsed.Close()

	s.setState(StateStopped)
}
