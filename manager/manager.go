// Package manager implements the Feed Manager: a pool of Connection
// Slots, load-balanced subscription routing across them, and aggregate
// health and shutdown for the pool as a whole.
package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/dhanhq/marketfeed/broadcast"
	"github.com/dhanhq/marketfeed/codec"
	"github.com/dhanhq/marketfeed/internal/apperror"
	"github.com/dhanhq/marketfeed/internal/health"
	"github.com/dhanhq/marketfeed/internal/logger"
	"github.com/dhanhq/marketfeed/internal/metrics"
	"github.com/dhanhq/marketfeed/internal/ratelimit"
	"github.com/dhanhq/marketfeed/slot"
	"github.com/dhanhq/marketfeed/wire"
)

// SlotHealth is one slot's entry in a Health snapshot.
type SlotHealth = slot.Health

// Health is an aggregate snapshot of every slot in the pool.
type Health struct {
	Slots           []SlotHealth
	TotalSlots      int
	AliveSlots      int
	TotalInstrument int
}

// Manager owns a pool of Connection Slots and routes subscribe requests
// across them by load. The zero value is not usable; construct with
// Builder.
type Manager struct {
	cfg     config
	log     logger.LoggerInterface
	host    string
	limiter *ratelimit.Limiter
	metrics *metrics.FeedMetrics

	mu      sync.Mutex
	started bool
	slots   []*slot.Slot
	index   map[wire.InstrumentKey]int
}

// Start spawns every slot's background task. Calling Start twice without
// an intervening Shutdown returns an error.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return apperror.InvalidArgument("manager already started")
	}

	m.slots = make([]*slot.Slot, m.cfg.maxConnections)
	m.index = make(map[wire.InstrumentKey]int)
	for i := range m.slots {
		s := slot.New(i, slot.Config{
			Host:            m.host,
			ClientID:        m.cfg.clientID,
			AccessToken:     m.cfg.accessToken,
			ReconnectDelay:  m.cfg.reconnectDelay,
			AutoReconnect:   m.cfg.autoReconnect,
			EnableRawFrames: m.cfg.enableRawFrames,
			ParsedCapacity:  m.cfg.parsedChannelCapacity,
			RawCapacity:     m.cfg.rawChannelCapacity,
			Log:             m.log,
			Metrics:         m.metrics,
		})
		s.Start(ctx)
		m.slots[i] = s
	}
	m.started = true
	return nil
}

// Subscribe routes instruments across the pool by minimum current load,
// skipping any instrument already assigned to a slot. Fails the whole
// call, with no partial assignment of the remaining instruments, if the
// least-loaded slot for a new instrument is already at capacity.
func (m *Manager) Subscribe(ctx context.Context, mode wire.Mode, instruments []wire.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return apperror.InvalidArgument("manager not started")
	}

	batches := make(map[int][]wire.Instrument)
	projected := make([]int, len(m.slots))
	for i, s := range m.slots {
		projected[i] = s.InstrumentCount()
	}

	pending := make(map[wire.InstrumentKey]int)
	for _, ins := range instruments {
		key := ins.Key()
		if _, ok := m.index[key]; ok {
			continue
		}
		if _, ok := pending[key]; ok {
			continue
		}

		target := -1
		for i := range m.slots {
			if target == -1 || projected[i] < projected[target] {
				target = i
			}
		}
		if projected[target] >= m.cfg.maxInstrumentsPerConnection {
			return apperror.InvalidArgument("all connections at capacity")
		}

		batches[target] = append(batches[target], ins)
		projected[target]++
		pending[key] = target
	}
	for key, target := range pending {
		m.index[key] = target
	}

	routed := 0
	for slotID, batch := range batches {
		if err := m.waitForChunks(ctx, batch); err != nil {
			return fmt.Errorf("manager: rate limit wait: %w", err)
		}
		if err := m.slots[slotID].Subscribe(ctx, mode, batch); err != nil {
			return fmt.Errorf("manager: subscribe on slot %d: %w", slotID, err)
		}
		routed += len(batch)
	}
	m.metrics.RecordSubscribe(ctx, mode.String(), routed)
	return nil
}

// waitForChunks acquires one rate-limiter token per 100-instrument chunk
// batch will be split into on the wire, so outbound control-frame volume
// stays bounded regardless of how many instruments one call routes.
func (m *Manager) waitForChunks(ctx context.Context, batch []wire.Instrument) error {
	chunks := (len(batch) + wire.MaxInstrumentsPerMessage - 1) / wire.MaxInstrumentsPerMessage
	for i := 0; i < chunks; i++ {
		if err := m.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Unsubscribe looks up each instrument's slot and writes the unsubscribe
// batch there, removing it from the cross-slot index.
func (m *Manager) Unsubscribe(ctx context.Context, mode wire.Mode, instruments []wire.Instrument) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started {
		return apperror.InvalidArgument("manager not started")
	}

	batches := make(map[int][]wire.Instrument)
	for _, ins := range instruments {
		key := ins.Key()
		slotID, ok := m.index[key]
		if !ok {
			continue
		}
		batches[slotID] = append(batches[slotID], ins)
		delete(m.index, key)
	}

	removed := 0
	for slotID, batch := range batches {
		if err := m.waitForChunks(ctx, batch); err != nil {
			return fmt.Errorf("manager: rate limit wait: %w", err)
		}
		if err := m.slots[slotID].Unsubscribe(ctx, mode, batch); err != nil {
			return fmt.Errorf("manager: unsubscribe on slot %d: %w", slotID, err)
		}
		removed += len(batch)
	}
	m.metrics.RecordSubscribe(ctx, mode.String(), -removed)
	return nil
}

// SubscribeParsed hands out a decoded-event fan-out receiver for one
// slot.
func (m *Manager) SubscribeParsed(slotID int) (*broadcast.Receiver[*codec.FeedEvent], error) {
	s, err := m.slotByID(slotID)
	if err != nil {
		return nil, err
	}
	return s.ParsedReceiver(), nil
}

// SubscribeRaw hands out a raw-frame fan-out receiver for one slot. ok is
// false if raw frames are disabled for the pool.
func (m *Manager) SubscribeRaw(slotID int) (recv *broadcast.Receiver[[]byte], ok bool, err error) {
	s, err := m.slotByID(slotID)
	if err != nil {
		return nil, false, err
	}
	recv, ok = s.RawReceiver()
	return recv, ok, nil
}

// SubscribeAllParsed attaches a receiver to every slot's decoded-event
// fan-out.
func (m *Manager) SubscribeAllParsed() []*broadcast.Receiver[*codec.FeedEvent] {
	m.mu.Lock()
	defer m.mu.Unlock()

	recvs := make([]*broadcast.Receiver[*codec.FeedEvent], len(m.slots))
	for i, s := range m.slots {
		recvs[i] = s.ParsedReceiver()
	}
	return recvs
}

// SubscribeAllRaw attaches a receiver to every slot's raw-frame fan-out
// that has one enabled.
func (m *Manager) SubscribeAllRaw() []*broadcast.Receiver[[]byte] {
	m.mu.Lock()
	defer m.mu.Unlock()

	var recvs []*broadcast.Receiver[[]byte]
	for _, s := range m.slots {
		if r, ok := s.RawReceiver(); ok {
			recvs = append(recvs, r)
		}
	}
	return recvs
}

func (m *Manager) slotByID(slotID int) (*slot.Slot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if slotID < 0 || slotID >= len(m.slots) {
		return nil, apperror.InvalidArgument(fmt.Sprintf("slot %d out of range", slotID))
	}
	return m.slots[slotID], nil
}

// Health returns a snapshot of every slot plus pool-wide aggregates.
func (m *Manager) Health() Health {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := Health{TotalSlots: len(m.slots)}
	for _, s := range m.slots {
		sh := s.Health()
		h.Slots = append(h.Slots, sh)
		h.TotalInstrument += sh.InstrumentCount
		if sh.Alive {
			h.AliveSlots++
		}
	}
	return h
}

// CheckFunc adapts Health into an internal/health.CheckFunc: unhealthy
// once any slot has gone dark.
func (m *Manager) CheckFunc() health.CheckFunc {
	return func(ctx context.Context) (bool, string) {
		h := m.Health()
		if h.AliveSlots < h.TotalSlots {
			return false, fmt.Sprintf("%d/%d slots alive", h.AliveSlots, h.TotalSlots)
		}
		return true, fmt.Sprintf("%d/%d slots alive, %d instruments", h.AliveSlots, h.TotalSlots, h.TotalInstrument)
	}
}

// DetailedCheckFunc is CheckFunc plus the full per-slot Health snapshot
// as structured detail, so a /health response shows each slot's state
// and instrument count rather than just the pool-wide aggregate.
func (m *Manager) DetailedCheckFunc() health.DetailFunc {
	return func(ctx context.Context) (bool, string, any) {
		h := m.Health()
		ok := h.AliveSlots >= h.TotalSlots
		msg := fmt.Sprintf("%d/%d slots alive, %d instruments", h.AliveSlots, h.TotalSlots, h.TotalInstrument)
		return ok, msg, h
	}
}

// Shutdown stops every slot's background task, best-effort closes each
// connection, clears every subscription table, and returns the manager
// to the pre-start state so Start can be called again.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, s := range m.slots {
		s.Shutdown(ctx)
	}
	m.slots = nil
	m.index = nil
	m.started = false
}
