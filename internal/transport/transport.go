// Package transport wraps a single WebSocket duplex connection: dial,
// framed read, mutex-guarded write, ping, close. It does not reconnect —
// callers that need a reconnect policy (see the slot package) dial a new
// Conn themselves when one fails.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "github.com/dhanhq/marketfeed/internal/transport"
	meterName  = "github.com/dhanhq/marketfeed/internal/transport"
)

// Config holds per-connection dial and timeout settings.
type Config struct {
	URL            string
	Name           string // identifier for metrics/tracing
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxMessageSize int64 // 0 = keep coder/websocket's default read limit
}

// MessageType mirrors websocket.MessageType so callers never import
// coder/websocket directly.
type MessageType = websocket.MessageType

const (
	MessageText   = websocket.MessageText
	MessageBinary = websocket.MessageBinary
)

// StatusCode mirrors websocket.StatusCode for callers that need to pass a
// close code without importing coder/websocket directly.
type StatusCode = websocket.StatusCode

const (
	StatusNormalClosure = websocket.StatusNormalClosure
	StatusGoingAway     = websocket.StatusGoingAway
	StatusInternalError = websocket.StatusInternalError
)

type instruments struct {
	messagesReceived metric.Int64Counter
	messagesSent     metric.Int64Counter
	bytesReceived    metric.Int64Counter
	bytesSent        metric.Int64Counter
	messageLatency   metric.Float64Histogram
}

// Conn is one dialed WebSocket connection. Reads may only be called from
// a single goroutine; writes are safe for concurrent use.
type Conn struct {
	cfg    Config
	conn   *websocket.Conn
	writeMu sync.Mutex

	tracer trace.Tracer
	inst   *instruments
}

// Dial opens a WebSocket connection to cfg.URL and returns a ready Conn.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "transport.dial",
		trace.WithAttributes(
			attribute.String("ws.name", cfg.Name),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	wsConn, _, err := websocket.Dial(ctx, cfg.URL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionContextTakeover,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "dial failed")
		return nil, fmt.Errorf("transport: dial %s: %w", cfg.Name, err)
	}
	if cfg.MaxMessageSize > 0 {
		wsConn.SetReadLimit(cfg.MaxMessageSize)
	}

	inst, err := newInstruments()
	if err != nil {
		wsConn.Close(websocket.StatusInternalError, "metrics init failed")
		return nil, fmt.Errorf("transport: init metrics: %w", err)
	}

	span.SetStatus(codes.Ok, "connected")
	return &Conn{cfg: cfg, conn: wsConn, tracer: tracer, inst: inst}, nil
}

func newInstruments() (*instruments, error) {
	meter := otel.Meter(meterName)
	var err error
	inst := &instruments{}

	inst.messagesReceived, err = meter.Int64Counter("transport_messages_received_total",
		metric.WithDescription("Total WebSocket frames received"), metric.WithUnit("{message}"))
	if err != nil {
		return nil, err
	}
	inst.messagesSent, err = meter.Int64Counter("transport_messages_sent_total",
		metric.WithDescription("Total WebSocket frames sent"), metric.WithUnit("{message}"))
	if err != nil {
		return nil, err
	}
	inst.bytesReceived, err = meter.Int64Counter("transport_bytes_received_total",
		metric.WithDescription("Total bytes received"), metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	inst.bytesSent, err = meter.Int64Counter("transport_bytes_sent_total",
		metric.WithDescription("Total bytes sent"), metric.WithUnit("By"))
	if err != nil {
		return nil, err
	}
	inst.messageLatency, err = meter.Float64Histogram("transport_message_latency_ms",
		metric.WithDescription("Frame read/write latency"), metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return inst, nil
}

// Read blocks for the next frame. It returns the raw payload and its
// frame type; ping/pong/close handling is done by coder/websocket itself
// below this call.
func (c *Conn) Read(ctx context.Context) (MessageType, []byte, error) {
	readCtx := ctx
	var cancel context.CancelFunc
	if c.cfg.ReadTimeout > 0 {
		readCtx, cancel = context.WithTimeout(ctx, c.cfg.ReadTimeout)
		defer cancel()
	}

	start := time.Now()
	msgType, data, err := c.conn.Read(readCtx)
	latency := float64(time.Since(start).Milliseconds())

	attrs := metric.WithAttributes(attribute.String("ws.name", c.cfg.Name))
	if err != nil {
		return 0, nil, err
	}

	c.inst.messagesReceived.Add(ctx, 1, attrs)
	c.inst.bytesReceived.Add(ctx, int64(len(data)), attrs)
	c.inst.messageLatency.Record(ctx, latency, attrs)
	return msgType, data, nil
}

// Write sends one frame. Safe for concurrent callers.
func (c *Conn) Write(ctx context.Context, msgType MessageType, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	writeCtx := ctx
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		writeCtx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.conn.Write(writeCtx, msgType, data)
	latency := float64(time.Since(start).Milliseconds())
	if err != nil {
		return fmt.Errorf("transport: write %s: %w", c.cfg.Name, err)
	}

	attrs := metric.WithAttributes(attribute.String("ws.name", c.cfg.Name))
	c.inst.messagesSent.Add(ctx, 1, attrs)
	c.inst.bytesSent.Add(ctx, int64(len(data)), attrs)
	c.inst.messageLatency.Record(ctx, latency, attrs)
	return nil
}

// WriteJSON marshals v and writes it as a text frame.
func (c *Conn) WriteJSON(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("transport: marshal: %w", err)
	}
	return c.Write(ctx, MessageText, data)
}

// Ping round-trips a control frame to detect a half-open connection.
func (c *Conn) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the connection with the given status and reason.
func (c *Conn) Close(code websocket.StatusCode, reason string) error {
	return c.conn.Close(code, reason)
}

// CloseStatus extracts the WebSocket close status from an error returned
// by Read, or -1 if err did not carry one.
func CloseStatus(err error) websocket.StatusCode {
	return websocket.CloseStatus(err)
}
