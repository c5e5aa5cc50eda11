package widgets

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/marketmood/marketmood/internal/api"
	"github.com/marketmood/marketmood/internal/realtime"
)

// CommentsWidget tracks the threaded discussion for one asset.
type CommentsWidget struct {
	client   *api.Client
	symbol   string
	interval time.Duration

	mu       sync.RWMutex
	snapshot []api.Comment

	refreshCh   chan struct{}
	unsubscribe func()
}

// NewCommentsWidget creates a widget for the given asset's comment thread.
func NewCommentsWidget(client *api.Client, symbol string) *CommentsWidget {
	return &CommentsWidget{
		client:    client,
		symbol:    realtime.NormalizeSymbol(symbol),
		interval:  DefaultPollInterval,
		refreshCh: make(chan struct{}, 1),
	}
}

// SetInterval overrides the polling backstop interval. Must be called before
// Run.
func (w *CommentsWidget) SetInterval(d time.Duration) {
	if d > 0 {
		w.interval = d
	}
}

// Bind registers the refresh trigger with the view's asset sync.
func (w *CommentsWidget) Bind(view *realtime.AssetSync) {
	w.unsubscribe = view.Subscribe("comments", w.trigger)
}

// Unbind removes the fan-out registration.
func (w *CommentsWidget) Unbind() {
	if w.unsubscribe != nil {
		w.unsubscribe()
		w.unsubscribe = nil
	}
}

func (w *CommentsWidget) trigger() {
	select {
	case w.refreshCh <- struct{}{}:
	default:
	}
}

// Run drives the widget until ctx is cancelled.
func (w *CommentsWidget) Run(ctx context.Context) {
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

func (w *CommentsWidget) refresh(ctx context.Context) {
	comments, err := w.client.ListComments(ctx, w.symbol)
	if err != nil {
		log.Debug().Err(err).Str("symbol", w.symbol).Msg("comments refresh failed")
		return
	}

	w.mu.Lock()
	w.snapshot = comments
	w.mu.Unlock()
}

// Snapshot returns the last successfully fetched thread.
func (w *CommentsWidget) Snapshot() []api.Comment {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshot
}

// Post adds a comment or reply and refreshes on success. Errors propagate;
// prior thread state is left unchanged on failure.
func (w *CommentsWidget) Post(ctx context.Context, body, parentID string) (*api.Comment, error) {
	comment, err := w.client.PostComment(ctx, w.symbol, body, parentID)
	if err != nil {
		return nil, err
	}
	w.refresh(ctx)
	return comment, nil
}

// Edit replaces a comment body and refreshes on success.
func (w *CommentsWidget) Edit(ctx context.Context, commentID, body string) error {
	if err := w.client.EditComment(ctx, w.symbol, commentID, body); err != nil {
		return err
	}
	w.refresh(ctx)
	return nil
}

// Delete removes a comment and refreshes on success.
func (w *CommentsWidget) Delete(ctx context.Context, commentID string) error {
	if err := w.client.DeleteComment(ctx, w.symbol, commentID); err != nil {
		return err
	}
	w.refresh(ctx)
	return nil
}
