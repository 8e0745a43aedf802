// Package feed implements the market-feed WebSocket session: connect,
// subscribe/unsubscribe, and the pull-style decoded event sequence.
package feed

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/dhanhq/marketfeed/codec"
	"github.com/dhanhq/marketfeed/internal/apperror"
	"github.com/dhanhq/marketfeed/internal/logger"
	"github.com/dhanhq/marketfeed/internal/transport"
	"github.com/dhanhq/marketfeed/wire"
)

// ErrClosed is returned by Next once the server has closed the
// connection normally (a WebSocket close frame, not a transport error).
var ErrClosed = errors.New("feed: session closed")

// Config describes how to dial one feed Session.
type Config struct {
	Host        string // e.g. "api-feed.dhan.co", no scheme
	ClientID    string
	AccessToken string
	Log         logger.LoggerInterface
}

// Session is one connected market-feed WebSocket. Not safe for
// concurrent Subscribe/Unsubscribe/Disconnect calls from multiple
// goroutines against the same Session; Next must be called from a single
// reader goroutine. The slot package serializes writes through its
// writer mutex.
type Session struct {
	conn *transport.Conn
	log  logger.LoggerInterface
}

// Connect opens the feed WebSocket with credentials in the URL query
// string, per the external-interface contract.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}

	u := url.URL{Scheme: "wss", Host: cfg.Host, Path: "/"}
	q := u.Query()
	q.Set("version", "2")
	q.Set("token", cfg.AccessToken)
	q.Set("clientId", cfg.ClientID)
	q.Set("authType", "2")
	u.RawQuery = q.Encode()

	conn, err := transport.Dial(ctx, transport.Config{
		URL:  u.String(),
		Name: "feed:" + cfg.ClientID,
	})
	if err != nil {
		return nil, apperror.Transport("feed session connect", err)
	}
	return &Session{conn: conn, log: log}, nil
}

// Subscribe chunks instruments to the wire limit and writes one
// subscription message per chunk.
func (s *Session) Subscribe(ctx context.Context, mode wire.Mode, instruments []wire.Instrument) error {
	return s.writeBatches(ctx, mode, instruments)
}

// Unsubscribe is symmetric to Subscribe, using mode's unsubscribe code.
func (s *Session) Unsubscribe(ctx context.Context, mode wire.Mode, instruments []wire.Instrument) error {
	return s.writeBatches(ctx, mode.Unsubscribe(), instruments)
}

func (s *Session) writeBatches(ctx context.Context, mode wire.Mode, instruments []wire.Instrument) error {
	for _, batch := range wire.Chunk(instruments, wire.MaxInstrumentsPerMessage) {
		msg := wire.NewSubscriptionMessage(mode, batch)
		if err := s.conn.WriteJSON(ctx, msg); err != nil {
			return apperror.Serialization("feed subscription message", err)
		}
	}
	return nil
}

// Next blocks for the next decoded event. A frame that fails to decode is
// logged and skipped internally; Next keeps reading until a frame decodes.
// A transport failure or server close terminates the sequence: ErrClosed
// for a normal close, otherwise a wrapped Transport error.
func (s *Session) Next(ctx context.Context) (*codec.FeedEvent, error) {
	_, ev, err := s.NextFrame(ctx)
	return ev, err
}

// NextFrame is like Next but also returns the raw bytes of the binary
// frame the event was decoded from, so a caller that wants exact wire
// bytes can correlate them with the decoded event (see the slot
// package's raw-before-parsed fan-out ordering).
func (s *Session) NextFrame(ctx context.Context) ([]byte, *codec.FeedEvent, error) {
	for {
		msgType, data, err := s.conn.Read(ctx)
		if err != nil {
			if transport.CloseStatus(err) != -1 {
				return nil, nil, ErrClosed
			}
			return nil, nil, apperror.Transport("feed session read", err)
		}

		switch msgType {
		case transport.MessageBinary:
			ev, decErr := codec.Decode(data)
			if decErr != nil {
				s.log.Warn(ctx, "feed: dropping undecodable frame", "error", decErr)
				continue
			}
			return data, ev, nil
		case transport.MessageText:
			s.log.Info(ctx, "feed: text frame received", "bytes", len(data))
			continue
		default:
			continue
		}
	}
}

// Disconnect sends the disconnect control message followed by a
// WebSocket close frame.
func (s *Session) Disconnect(ctx context.Context) error {
	msg := wire.SubscriptionMessage{RequestCode: wire.RequestDisconnect}
	if err := s.conn.WriteJSON(ctx, msg); err != nil {
		s.log.Warn(ctx, "feed: disconnect message failed", "error", err)
	}
	if err := s.conn.Close(transport.StatusNormalClosure, "client disconnect"); err != nil {
		return fmt.Errorf("feed: close: %w", err)
	}
	return nil
}
