package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Errors
var (
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Message wraps raw stream bytes with the local receive timestamp.
type Message struct {
	Data       []byte
	ReceivedAt time.Time
}

// StreamConfig configures a websocket stream connection.
type StreamConfig struct {
	URL              string        // Base ws URL (e.g. wss://stream.binance.us:9443/ws)
	HandshakeTimeout time.Duration // Dial handshake deadline
	PingTimeout      time.Duration // Max time without a server ping before the connection is stale
	WriteTimeout     time.Duration // Write deadline for control frames
	BufferSize       int           // Message channel buffer size
}

// DefaultStreamConfig returns sensible defaults. Binance pings roughly every
// three minutes, so staleness is judged on a longer window.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		HandshakeTimeout: 10 * time.Second,
		PingTimeout:      10 * time.Minute,
		WriteTimeout:     5 * time.Second,
		BufferSize:       4096,
	}
}

// Stream is one open websocket subscription. It stays open for the life of
// the consumer; the connection is closed only by Close or a transport
// failure, never per message.
type Stream struct {
	cfg    StreamConfig
	name   string
	logger *slog.Logger

	conn *websocket.Conn

	messages chan Message
	errors   chan error
	done     chan struct{}

	mu         sync.Mutex
	lastPingAt time.Time
	closed     bool
}

// KlineStreamName returns the stream path for a symbol+interval kline feed.
func KlineStreamName(symbol, interval string) string {
	return fmt.Sprintf("%s@kline_%s", strings.ToLower(symbol), interval)
}

// TradeStreamName returns the stream path for a symbol trade feed.
func TradeStreamName(symbol string) string {
	return fmt.Sprintf("%s@trade", strings.ToLower(symbol))
}

// DialStream opens the named stream and starts receiving.
func DialStream(ctx context.Context, cfg StreamConfig, name string, logger *slog.Logger) (*Stream, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
	}

	url := strings.TrimSuffix(cfg.URL, "/") + "/" + name
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial stream %s: %w", name, err)
	}

	s := &Stream{
		cfg:        cfg,
		name:       name,
		logger:     logger,
		conn:       conn,
		messages:   make(chan Message, cfg.BufferSize),
		errors:     make(chan error, 1),
		done:       make(chan struct{}),
		lastPingAt: time.Now(),
	}

	// The server pings; we pong and track liveness.
	conn.SetPingHandler(func(data string) error {
		s.mu.Lock()
		s.lastPingAt = time.Now()
		s.mu.Unlock()

		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(s.cfg.WriteTimeout),
		)
	})

	go s.readLoop()
	go s.heartbeatLoop()

	logger.Debug("stream connected", "stream", name, "url", url)
	return s, nil
}

// Messages returns the channel of received raw events.
func (s *Stream) Messages() <-chan Message {
	return s.messages
}

// Errors returns the channel of transport failures.
func (s *Stream) Errors() <-chan error {
	return s.errors
}

// Close shuts the stream down. Safe to call more than once.
func (s *Stream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.done)

	s.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(s.cfg.WriteTimeout),
	)
	return s.conn.Close()
}

// readLoop reads frames until cancellation or transport failure.
func (s *Stream) readLoop() {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		_, data, err := s.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors caused by Close itself.
			select {
			case <-s.done:
				return
			default:
				select {
				case s.errors <- err:
				default:
				}
				return
			}
		}

		msg := Message{Data: data, ReceivedAt: receivedAt}

		select {
		case s.messages <- msg:
		case <-s.done:
			return
		default:
			s.logger.Warn("message buffer full, dropping event", "stream", s.name)
		}
	}
}

// heartbeatLoop surfaces stale connections that stopped pinging.
func (s *Stream) heartbeatLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			lastPing := s.lastPingAt
			s.mu.Unlock()

			if time.Since(lastPing) > s.cfg.PingTimeout {
				s.logger.Warn("no ping received, connection stale",
					"stream", s.name,
					"last_ping", lastPing,
				)
				select {
				case s.errors <- ErrStaleConnection:
				default:
				}
				return
			}
		}
	}
}
