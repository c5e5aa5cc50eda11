package realtime

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/marketmood/marketmood/internal/metrics"
)

// AssetSync owns one asset view's room membership on the shared transport and
// fans incoming update notifications out to the view's registered refresh
// callbacks. It lives for the lifetime of the view: created on mount, closed
// on unmount.
//
// Notifications are filtered strictly by symbol equality. That filter is the
// sole correctness mechanism against cross-talk between concurrently mounted
// views and against stale messages arriving after a symbol change.
type AssetSync struct {
	transport Transport
	metrics   *metrics.Registry
	id        string

	mu        sync.Mutex
	symbol    string
	names     []string
	callbacks map[string]registration
	closed    bool
	nextToken uint64
}

type registration struct {
	fn    func()
	token uint64
}

// NewAssetSync creates an unjoined sync instance bound to the shared
// transport. reg may be nil.
func NewAssetSync(transport Transport, reg *metrics.Registry) *AssetSync {
	return &AssetSync{
		transport: transport,
		metrics:   reg,
		id:        uuid.NewString(),
		callbacks: make(map[string]registration),
	}
}

// NormalizeSymbol uppercases and trims an asset symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Join enters the room for symbol. Idempotent when already joined to the same
// symbol; a different symbol leaves the previous room first. The join emit is
// fire-and-forget: transport failures cost liveness, not correctness, so they
// are logged and absorbed.
func (s *AssetSync) Join(ctx context.Context, symbol string) error {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return fmt.Errorf("empty asset symbol")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("asset sync closed")
	}
	if s.symbol == symbol {
		s.mu.Unlock()
		return nil
	}
	previous := s.symbol
	s.symbol = symbol
	s.mu.Unlock()

	if previous != "" {
		if err := s.transport.Emit(ctx, EventLeaveAsset, previous); err != nil {
			log.Debug().Err(err).Str("symbol", previous).Msg("leave emit failed")
		}
	} else {
		s.transport.AddListener(s.id, s.handleNotification)
		if s.metrics != nil {
			s.metrics.ActiveRooms.Inc()
		}
	}

	if err := s.transport.Emit(ctx, EventJoinAsset, symbol); err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("join emit failed, polling backstop remains")
	}
	log.Debug().Str("symbol", symbol).Msg("joined asset room")
	return nil
}

// Leave exits the room for symbol. No-op when not joined to that symbol. The
// notification listener is detached before the leave emit, so a late message
// for the superseded symbol can never fire callbacks.
func (s *AssetSync) Leave(ctx context.Context, symbol string) error {
	symbol = NormalizeSymbol(symbol)

	s.mu.Lock()
	if s.symbol != symbol || symbol == "" {
		s.mu.Unlock()
		return nil
	}
	s.symbol = ""
	s.mu.Unlock()

	s.transport.RemoveListener(s.id)
	if s.metrics != nil {
		s.metrics.ActiveRooms.Dec()
	}

	if err := s.transport.Emit(ctx, EventLeaveAsset, symbol); err != nil {
		log.Debug().Err(err).Str("symbol", symbol).Msg("leave emit failed")
	}
	log.Debug().Str("symbol", symbol).Msg("left asset room")
	return nil
}

// Subscribe registers a refresh callback under a logical widget name
// ("sentiment", "intent", "comments", ...). Re-subscribing under the same
// name overwrites the previous callback rather than accumulating. The
// returned disposer removes the registration; it is idempotent and safe to
// call after a newer callback took over the name.
func (s *AssetSync) Subscribe(name string, fn func()) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextToken++
	token := s.nextToken

	if _, exists := s.callbacks[name]; !exists {
		s.names = append(s.names, name)
	}
	s.callbacks[name] = registration{fn: fn, token: token}

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		current, ok := s.callbacks[name]
		if !ok || current.token != token {
			return
		}
		delete(s.callbacks, name)
		for i, n := range s.names {
			if n == name {
				s.names = append(s.names[:i], s.names[i+1:]...)
				break
			}
		}
	}
}

// Close leaves the current room (if any) and detaches from the transport.
// The instance is terminal afterwards.
func (s *AssetSync) Close(ctx context.Context) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	symbol := s.symbol
	s.symbol = ""
	s.mu.Unlock()

	if symbol != "" {
		s.transport.RemoveListener(s.id)
		if s.metrics != nil {
			s.metrics.ActiveRooms.Dec()
		}
		if err := s.transport.Emit(ctx, EventLeaveAsset, symbol); err != nil {
			log.Debug().Err(err).Str("symbol", symbol).Msg("leave emit failed on close")
		}
	}
}

// handleNotification is the transport listener: it filters by the joined
// symbol and fans out to every registered callback in registration order.
// Order carries no meaning but stays deterministic for testability.
func (s *AssetSync) handleNotification(note Notification) {
	s.mu.Lock()
	if s.closed || s.symbol == "" || note.Asset != s.symbol {
		s.mu.Unlock()
		return
	}
	fns := make([]func(), 0, len(s.names))
	for _, name := range s.names {
		fns = append(fns, s.callbacks[name].fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		if s.metrics != nil {
			s.metrics.FanoutCalls.Inc()
		}
		fn()
	}
}
