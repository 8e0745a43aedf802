package slot

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/dhanhq/marketfeed/wire"
)

func tickerFrame(securityID uint32) []byte {
	buf := make([]byte, 16)
	buf[0] = byte(wire.ResponseTicker)
	binary.LittleEndian.PutUint16(buf[1:3], 16)
	buf[3] = byte(wire.SegmentNSEEQ)
	binary.LittleEndian.PutUint32(buf[4:8], securityID)
	return buf
}

func TestSlot_ReconnectReplaysSubscriptions(t *testing.T) {
	var attempt atomic.Int32
	firstSubscribe := make(chan wire.SubscriptionMessage, 1)
	secondSubscribe := make(chan wire.SubscriptionMessage, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := context.Background()

		n := attempt.Add(1)
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		var msg wire.SubscriptionMessage
		if jsonErr := json.Unmarshal(data, &msg); jsonErr != nil {
			t.Errorf("attempt %d: invalid subscribe JSON: %v", n, jsonErr)
			return
		}

		if n == 1 {
			firstSubscribe <- msg
			// Abnormal close to force the slot's reconnect loop.
			conn.Close(websocket.StatusInternalError, "forced disconnect")
			return
		}
		secondSubscribe <- msg
		time.Sleep(100 * time.Millisecond)
	}))
	defer server.Close()

	s := New(0, Config{
		Host:            strings.TrimPrefix(server.URL, "http://"),
		ClientID:        "C",
		AccessToken:     "T",
		AutoReconnect:   true,
		ReconnectDelay:  20 * time.Millisecond,
		ParsedCapacity:  16,
		EnableRawFrames: false,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.Start(ctx)
	defer s.Shutdown(context.Background())

	if err := s.Subscribe(ctx, wire.ModeTicker, []wire.Instrument{{ExchangeSegment: "NSE_EQ", SecurityID: "11536"}}); err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case <-firstSubscribe:
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for first subscribe")
	}

	select {
	case msg := <-secondSubscribe:
		if msg.InstrumentCount != 1 {
			t.Errorf("replay InstrumentCount = %d, want 1", msg.InstrumentCount)
		}
		if msg.InstrumentList[0].SecurityID != "11536" {
			t.Errorf("replay SecurityID = %q, want 11536", msg.InstrumentList[0].SecurityID)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for resubscribe after reconnect")
	}

	if s.ReconnectCount() == 0 {
		t.Error("expected ReconnectCount() > 0 after forced disconnect")
	}
}

func TestSlot_RawBeforeParsedOrdering(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		ctx := context.Background()
		conn.Write(ctx, websocket.MessageBinary, tickerFrame(1))
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	s := New(0, Config{
		Host:            strings.TrimPrefix(server.URL, "http://"),
		ClientID:        "C",
		AccessToken:     "T",
		AutoReconnect:   false,
		ReconnectDelay:  20 * time.Millisecond,
		ParsedCapacity:  16,
		RawCapacity:     16,
		EnableRawFrames: true,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rawRecv, ok := s.RawReceiver()
	if !ok {
		t.Fatal("expected raw receiver to be available")
	}
	parsedRecv := s.ParsedReceiver()

	s.Start(ctx)
	defer s.Shutdown(context.Background())

	var mu sync.Mutex
	var order []string
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		select {
		case <-rawRecv.Recv():
			mu.Lock()
			order = append(order, "raw")
			mu.Unlock()
		case <-time.After(2 * time.Second):
		}
	}()
	go func() {
		defer wg.Done()
		select {
		case <-parsedRecv.Recv():
			mu.Lock()
			order = append(order, "parsed")
			mu.Unlock()
		case <-time.After(2 * time.Second):
		}
	}()

	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 2 {
		t.Fatalf("expected both receivers to observe the frame, got %v", order)
	}
	if order[0] != "raw" || order[1] != "parsed" {
		t.Errorf("observed order = %v, want [raw parsed]", order)
	}
}

func TestSlot_HealthReflectsState(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	s := New(3, Config{
		Host:           strings.TrimPrefix(server.URL, "http://"),
		ClientID:       "C",
		AccessToken:    "T",
		AutoReconnect:  false,
		ReconnectDelay: 20 * time.Millisecond,
		ParsedCapacity: 16,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Start(ctx)
	defer s.Shutdown(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.State() == StateStreaming {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	h := s.Health()
	if h.ID != 3 {
		t.Errorf("Health.ID = %d, want 3", h.ID)
	}
	if !h.Alive {
		t.Errorf("Health.Alive = false, want true once streaming")
	}
}

func TestSlot_HealthAliveDuringBackoffNotOnlyStreaming(t *testing.T) {
	// Dial target refuses every connection, so the slot spends its whole
	// life cycling between Connecting and Backoff without ever reaching
	// Streaming. A slot in that state still has its background task
	// running and must report Alive.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s := New(1, Config{
		Host:           strings.TrimPrefix(server.URL, "http://"),
		ClientID:       "C",
		AccessToken:    "T",
		AutoReconnect:  true,
		ReconnectDelay: 20 * time.Millisecond,
		ParsedCapacity: 16,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Start(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		st := s.State()
		if st == StateConnecting || st == StateBackoff {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	h := s.Health()
	if h.State != StateConnecting && h.State != StateBackoff {
		t.Fatalf("State() = %v, want Connecting or Backoff", h.State)
	}
	if !h.Alive {
		t.Errorf("Health.Alive = false while %v, want true: background task is still running", h.State)
	}

	s.Shutdown(context.Background())
	if s.Health().Alive {
		t.Error("Health.Alive = true after Shutdown, want false")
	}
}
