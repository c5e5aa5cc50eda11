package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/marketmood/marketmood/internal/metrics"
)

// Wire event names shared with the backend.
const (
	EventJoinAsset   = "join_asset"
	EventLeaveAsset  = "leave_asset"
	EventAssetUpdate = "asset_update"
)

// Notification is the server push payload for an asset update. Asset is the
// only field the client relies on; everything else rides along in Raw.
type Notification struct {
	Asset string          `json:"asset"`
	Raw   json.RawMessage `json:"-"`
}

// Listener receives decoded asset update notifications.
type Listener func(Notification)

// Transport is the shared realtime channel. One instance exists per process;
// every asset view multiplexes its room membership over it. Emit failures
// degrade liveness only — consumers keep their polling backstop.
type Transport interface {
	Emit(ctx context.Context, event, payload string) error
	AddListener(id string, fn Listener)
	RemoveListener(id string)
}

// message is the framing for both directions: client emits carry a string
// payload, server pushes carry a JSON object.
type message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// WSConfig configures the websocket transport.
type WSConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	WriteTimeout     time.Duration
}

// DefaultWSConfig returns transport defaults against the given URL.
func DefaultWSConfig(wsURL string) WSConfig {
	return WSConfig{
		URL:              wsURL,
		HandshakeTimeout: 30 * time.Second,
		PingInterval:     30 * time.Second,
		WriteTimeout:     5 * time.Second,
	}
}

// WSTransport is the gorilla/websocket implementation of Transport. It is
// constructed once at application start and injected into consumers.
type WSTransport struct {
	config  WSConfig
	metrics *metrics.Registry

	mu          sync.RWMutex
	conn        *websocket.Conn
	listeners   map[string]Listener
	isConnected bool

	reconnectCh chan struct{}
	closeCh     chan struct{}
}

// NewWSTransport creates a disconnected transport. reg may be nil.
func NewWSTransport(config WSConfig, reg *metrics.Registry) *WSTransport {
	return &WSTransport{
		config:      config,
		metrics:     reg,
		listeners:   make(map[string]Listener),
		reconnectCh: make(chan struct{}, 1),
		closeCh:     make(chan struct{}),
	}
}

// Connect establishes the websocket connection and starts the read and ping
// loops. Calling Connect on a connected transport is an error.
func (t *WSTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.isConnected {
		return fmt.Errorf("already connected")
	}

	u, err := url.Parse(t.config.URL)
	if err != nil {
		return fmt.Errorf("invalid realtime URL: %w", err)
	}

	log.Info().Str("url", t.config.URL).Msg("connecting to realtime server")

	dialer := websocket.Dialer{HandshakeTimeout: t.config.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("realtime connection failed: %w", err)
	}

	t.conn = conn
	t.isConnected = true

	go t.readLoop(ctx)
	go t.pingLoop(ctx)

	log.Info().Msg("realtime transport connected")
	return nil
}

// Emit sends a client event with a string payload (the asset symbol for
// join/leave). Fire-and-forget: no acknowledgement is awaited.
func (t *WSTransport) Emit(ctx context.Context, event, payload string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isConnected {
		return fmt.Errorf("not connected")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", event, err)
	}
	frame, err := json.Marshal(message{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("marshal %s frame: %w", event, err)
	}

	t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		if t.metrics != nil {
			t.metrics.WSSendErrors.Inc()
		}
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

// AddListener registers a notification listener under id, replacing any
// previous listener with the same id.
func (t *WSTransport) AddListener(id string, fn Listener) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listeners[id] = fn
}

// RemoveListener detaches the listener registered under id. No-op when the
// id is unknown.
func (t *WSTransport) RemoveListener(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.listeners, id)
}

// IsConnected reports whether the transport currently holds a live
// connection.
func (t *WSTransport) IsConnected() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.isConnected
}

// ReconnectSignal returns a channel that fires when the connection drops.
// Reconnection policy belongs to the caller.
func (t *WSTransport) ReconnectSignal() <-chan struct{} {
	return t.reconnectCh
}

// Close shuts the connection and stops the loops.
func (t *WSTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isConnected {
		return nil
	}

	close(t.closeCh)
	err := t.conn.Close()
	t.conn = nil
	t.isConnected = false

	log.Info().Msg("realtime transport closed")
	return err
}

func (t *WSTransport) readLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("realtime read loop panic")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closeCh:
			return
		default:
			conn := t.currentConn()
			if conn == nil {
				return
			}
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) ||
					websocket.IsUnexpectedCloseError(err) {
					log.Warn().Err(err).Msg("realtime connection closed unexpectedly")
					t.markDisconnected()
					t.triggerReconnect()
					return
				}
				log.Error().Err(err).Msg("realtime read error")
				continue
			}
			if messageType != websocket.TextMessage {
				continue
			}
			if err := t.processMessage(data); err != nil {
				log.Error().Err(err).Msg("failed to process realtime message")
			}
		}
	}
}

func (t *WSTransport) processMessage(data []byte) error {
	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("parse realtime message: %w", err)
	}

	if t.metrics != nil {
		t.metrics.WSEvents.WithLabelValues(msg.Event).Inc()
	}

	if msg.Event != EventAssetUpdate {
		log.Debug().Str("event", msg.Event).Msg("ignoring realtime event")
		return nil
	}

	var note Notification
	if err := json.Unmarshal(msg.Data, &note); err != nil {
		return fmt.Errorf("parse asset update: %w", err)
	}
	note.Raw = msg.Data

	t.mu.RLock()
	listeners := make([]Listener, 0, len(t.listeners))
	for _, fn := range t.listeners {
		listeners = append(listeners, fn)
	}
	t.mu.RUnlock()

	for _, fn := range listeners {
		fn(note)
	}
	return nil
}

func (t *WSTransport) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(t.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closeCh:
			return
		case <-ticker.C:
			if err := t.ping(); err != nil {
				log.Error().Err(err).Msg("realtime ping failed")
				t.markDisconnected()
				t.triggerReconnect()
				return
			}
		}
	}
}

func (t *WSTransport) ping() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.isConnected {
		return fmt.Errorf("not connected")
	}

	t.conn.SetWriteDeadline(time.Now().Add(t.config.WriteTimeout))
	return t.conn.WriteMessage(websocket.PingMessage, nil)
}

func (t *WSTransport) currentConn() *websocket.Conn {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.conn
}

func (t *WSTransport) markDisconnected() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.isConnected = false
}

func (t *WSTransport) triggerReconnect() {
	select {
	case t.reconnectCh <- struct{}{}:
	default:
		// reconnect already signalled
	}
}
