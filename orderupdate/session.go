// Package orderupdate implements the order-update WebSocket session: a
// text/JSON protocol with the same connect/read/close shape as the
// market-feed Session, but its own auth handshake and event schema.
package orderupdate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dhanhq/marketfeed/internal/apperror"
	"github.com/dhanhq/marketfeed/internal/logger"
	"github.com/dhanhq/marketfeed/internal/transport"
)

// ErrClosed is returned by Next once the server has closed the
// connection normally.
var ErrClosed = errors.New("orderupdate: session closed")

// Config describes how to dial and authenticate one order-update Session.
type Config struct {
	Host string // e.g. "api-order-update.dhan.co", no scheme

	// Individual-user credentials. Used unless Partner is true.
	ClientID    string
	AccessToken string

	// Partner-platform credentials, used when Partner is true.
	Partner       bool
	PartnerID     string
	PartnerSecret string

	Log logger.LoggerInterface
}

// Session is one connected, authenticated order-update WebSocket.
type Session struct {
	conn *transport.Conn
	log  logger.LoggerInterface
}

// Connect dials the order-update WebSocket and sends the auth handshake
// as the first text frame.
func Connect(ctx context.Context, cfg Config) (*Session, error) {
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}

	conn, err := transport.Dial(ctx, transport.Config{
		URL:  "wss://" + cfg.Host + "/",
		Name: "orderupdate:" + cfg.ClientID,
	})
	if err != nil {
		return nil, apperror.Transport("orderupdate session connect", err)
	}

	var authErr error
	if cfg.Partner {
		authErr = conn.WriteJSON(ctx, newPartnerAuth(cfg.PartnerID, cfg.PartnerSecret))
	} else {
		authErr = conn.WriteJSON(ctx, newIndividualAuth(cfg.ClientID, cfg.AccessToken))
	}
	if authErr != nil {
		conn.Close(transport.StatusInternalError, "auth failed")
		return nil, apperror.Serialization("orderupdate auth handshake", authErr)
	}

	return &Session{conn: conn, log: log}, nil
}

// Next blocks for the next order-update event. Mirrors feed.Session.Next:
// malformed frames are logged and skipped, transport failure or server
// close terminates the sequence.
func (s *Session) Next(ctx context.Context) (*Message, error) {
	for {
		msgType, data, err := s.conn.Read(ctx)
		if err != nil {
			if transport.CloseStatus(err) != -1 {
				return nil, ErrClosed
			}
			return nil, apperror.Transport("orderupdate session read", err)
		}

		if msgType != transport.MessageText {
			continue
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Warn(ctx, "orderupdate: dropping unparseable message", "error", err)
			continue
		}
		return &msg, nil
	}
}

// Close sends a WebSocket close frame.
func (s *Session) Close() error {
	if err := s.conn.Close(transport.StatusNormalClosure, "client close"); err != nil {
		return fmt.Errorf("orderupdate: close: %w", err)
	}
	return nil
}
