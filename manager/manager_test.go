package manager

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/dhanhq/marketfeed/wire"
)

func echoSubscribeServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := context.Background()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}))
}

func testManager(t *testing.T, opts ...Option) (*Manager, func()) {
	t.Helper()
	server := echoSubscribeServer(t)
	host := strings.TrimPrefix(server.URL, "http://")
	m := NewBuilder(host, "C", "T").With(opts...).Build()
	return m, server.Close
}

func TestManager_StartTwiceFails(t *testing.T) {
	m, cleanup := testManager(t, WithMaxConnections(1))
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	defer m.Shutdown(context.Background())

	if err := m.Start(ctx); err == nil {
		t.Error("expected second Start to fail")
	}
}

func TestManager_SubscribeRoutesByMinLoadAndIsIdempotent(t *testing.T) {
	m, cleanup := testManager(t, WithMaxConnections(2), WithMaxInstrumentsPerConnection(2))
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Shutdown(context.Background())

	ins := []wire.Instrument{
		{ExchangeSegment: "NSE_EQ", SecurityID: "1"},
		{ExchangeSegment: "NSE_EQ", SecurityID: "2"},
	}
	if err := m.Subscribe(ctx, wire.ModeTicker, ins); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	h := m.Health()
	if h.TotalInstrument != 2 {
		t.Errorf("TotalInstrument = %d, want 2", h.TotalInstrument)
	}
	for _, sh := range h.Slots {
		if sh.InstrumentCount != 1 {
			t.Errorf("slot %d InstrumentCount = %d, want 1 (min-load routing)", sh.ID, sh.InstrumentCount)
		}
	}

	// Re-subscribing the same instruments is a silent no-op; total stays 2.
	if err := m.Subscribe(ctx, wire.ModeTicker, ins); err != nil {
		t.Fatalf("Subscribe (repeat) failed: %v", err)
	}
	h = m.Health()
	if h.TotalInstrument != 2 {
		t.Errorf("TotalInstrument after duplicate subscribe = %d, want 2 (idempotent)", h.TotalInstrument)
	}
}

func TestManager_SubscribeFailsWhenAllSlotsAtCapacity(t *testing.T) {
	m, cleanup := testManager(t, WithMaxConnections(1), WithMaxInstrumentsPerConnection(1))
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Shutdown(context.Background())

	first := []wire.Instrument{{ExchangeSegment: "NSE_EQ", SecurityID: "1"}}
	if err := m.Subscribe(ctx, wire.ModeTicker, first); err != nil {
		t.Fatalf("first Subscribe failed: %v", err)
	}

	second := []wire.Instrument{{ExchangeSegment: "NSE_EQ", SecurityID: "2"}}
	err := m.Subscribe(ctx, wire.ModeTicker, second)
	if err == nil {
		t.Fatal("expected Subscribe to fail: all connections at capacity")
	}
}

func TestManager_UnsubscribeRemovesFromIndex(t *testing.T) {
	m, cleanup := testManager(t, WithMaxConnections(1))
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Shutdown(context.Background())

	ins := []wire.Instrument{{ExchangeSegment: "NSE_EQ", SecurityID: "1"}}
	if err := m.Subscribe(ctx, wire.ModeTicker, ins); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if err := m.Unsubscribe(ctx, wire.ModeTicker, ins); err != nil {
		t.Fatalf("Unsubscribe failed: %v", err)
	}

	if h := m.Health(); h.TotalInstrument != 0 {
		t.Errorf("TotalInstrument after unsubscribe = %d, want 0", h.TotalInstrument)
	}
}

func TestManager_ShutdownReturnsToPreStartState(t *testing.T) {
	m, cleanup := testManager(t, WithMaxConnections(1))
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	m.Shutdown(context.Background())

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start after Shutdown failed: %v", err)
	}
	m.Shutdown(context.Background())
}

func TestManager_CheckFuncAliveCountsReconnectingSlots(t *testing.T) {
	// A server that rejects every WebSocket upgrade keeps the slot
	// cycling between Connecting and Backoff, never Streaming — it must
	// still count as alive since its background task is still running.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	m := NewBuilder(strings.TrimPrefix(server.URL, "http://"), "C", "T").With(
		WithMaxConnections(1),
		WithReconnectDelay(20*time.Millisecond),
	).Build()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Shutdown(context.Background())

	time.Sleep(100 * time.Millisecond)

	ok, msg, detail := m.DetailedCheckFunc()(ctx)
	if !ok {
		t.Errorf("DetailedCheckFunc healthy = false (%s), want true: a reconnecting slot is still alive", msg)
	}
	h, ok := detail.(Health)
	if !ok {
		t.Fatalf("detail = %T, want Health", detail)
	}
	if h.AliveSlots != h.TotalSlots {
		t.Errorf("AliveSlots = %d, want %d (all slots alive during reconnect)", h.AliveSlots, h.TotalSlots)
	}
}

func TestBuilder_ClampsOutOfRangeOptions(t *testing.T) {
	b := NewBuilder("example.com", "C", "T").With(
		WithMaxConnections(99),
		WithMaxInstrumentsPerConnection(999999),
	)
	m := b.Build()
	if m.cfg.maxConnections != 5 {
		t.Errorf("maxConnections = %d, want clamped to 5", m.cfg.maxConnections)
	}
	if m.cfg.maxInstrumentsPerConnection != 5000 {
		t.Errorf("maxInstrumentsPerConnection = %d, want clamped to 5000", m.cfg.maxInstrumentsPerConnection)
	}
}

func TestBuilder_Defaults(t *testing.T) {
	m := NewBuilder("example.com", "C", "T").Build()
	if m.cfg.maxConnections != 5 || m.cfg.maxInstrumentsPerConnection != 5000 {
		t.Errorf("unexpected defaults: %+v", m.cfg)
	}
	if !m.cfg.autoReconnect {
		t.Error("autoReconnect default should be true")
	}
	if m.cfg.parsedChannelCapacity != 4096 || m.cfg.rawChannelCapacity != 4096 {
		t.Errorf("unexpected channel capacity defaults: %+v", m.cfg)
	}
}
