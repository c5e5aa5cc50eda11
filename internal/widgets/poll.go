// Package widgets holds the independent refresh consumers of an asset view:
// the sentiment poll, the intent poll, and the comment thread. Each widget
// refreshes on realtime fan-out signals and on its own polling ticker; the
// ticker is the correctness backstop, realtime push only makes it faster.
package widgets

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketmood/marketmood/internal/api"
	"github.com/marketmood/marketmood/internal/realtime"
)

// DefaultPollInterval matches the dashboard widgets' refresh cadence.
const DefaultPollInterval = 15 * time.Second

// PollWidget tracks one community poll for one asset.
type PollWidget struct {
	client   *api.Client
	symbol   string
	kind     api.PollKind
	interval time.Duration

	mu       sync.RWMutex
	snapshot *api.Poll
	myVote   string

	refreshCh   chan struct{}
	unsubscribe func()
}

// NewPollWidget creates a widget for the given asset poll.
func NewPollWidget(client *api.Client, symbol string, kind api.PollKind) *PollWidget {
	return &PollWidget{
		client:    client,
		symbol:    realtime.NormalizeSymbol(symbol),
		kind:      kind,
		interval:  DefaultPollInterval,
		refreshCh: make(chan struct{}, 1),
	}
}

// SetInterval overrides the polling backstop interval. Must be called before
// Run.
func (w *PollWidget) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// Bind registers this widget's refresh trigger with the view's asset sync
// under its poll kind. The fan-out callback only signals the run loop, so
// notification dispatch never blocks on network calls.
func (w *PollWidget) Bind(view *realtime.AssetSync) {
	w.unsubscribe = view.Subscribe(string(w.kind), w.trigger)
}

// Unbind removes the fan-out registration.
func (w *PollWidget) Unbind() {
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
}

func (w *PollWidget) trigger() {
	select {
	case w.refreshCh <- struct{}{}:
	default:
		// refresh already pending
	}
}

// Run drives the widget until ctx is cancelled: an immediate refresh, then
// refreshes on fan-out signals and on the backstop ticker.
func (w *PollWidget) Run(ctx context.Context) {
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.refreshCh:
			w.refresh(ctx)
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

// refresh replaces the snapshot wholesale; on error the previous snapshot
// stays untouched.
func (w *PollWidget) refresh(ctx context.Context) {
	poll, err := w.client.GetPoll(ctx, w.symbol, w.kind)
	if err != nil {
		log.Debug().Err(err).Str("symbol", w.symbol).Str("kind", string(w.kind)).Msg("poll refresh failed")
		return
	}
	vote, err := w.client.MyVote(ctx, w.symbol, w.kind)
	if err != nil {
		vote = ""
	}

	w.mu.Lock()
	w.snapshot = poll
	w.myVote = vote
	w.mu.Unlock()
}

// Snapshot returns the last successfully fetched poll state, or nil before
// the first refresh completes.
func (w *PollWidget) Snapshot() (*api.Poll, string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot, w.myVote
}

// Vote casts a vote and refreshes on success. Errors propagate to the caller:
// api.ErrUnauthorized means prompt for login and abandon, anything else is
// surfaced inline. Prior widget state is left unchanged on failure.
func (w *PollWidget) Vote(ctx context.Context, option string) error {
	if err := w.client.Vote(ctx, w.symbol, w.kind, option); err != nil {
		return err
	}
	w.refresh(ctx)
	return nil
}
