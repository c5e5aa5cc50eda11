package realtime

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTransport records emits and lets tests push notifications directly.
type fakeTransport struct {
	mu        sync.Mutex
	emits     []emitRecord
	listeners map[string]Listener
}

type emitRecord struct {
	event   string
	payload string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{listeners: make(map[string]Listener)}
}

func (f *fakeTransport) Emit(ctx context.Context, event, payload string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits = append(f.emits, emitRecord{event: event, payload: payload})
	return nil
}

func (f *fakeTransport) AddListener(id string, fn Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners[id] = fn
}

func (f *fakeTransport) RemoveListener(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners, id)
}

// push delivers a notification to every attached listener, the way the
// websocket read loop would.
func (f *fakeTransport) push(asset string) {
	f.mu.Lock()
	fns := make([]Listener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn(Notification{Asset: asset})
	}
}

func (f *fakeTransport) emitted() []emitRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]emitRecord, len(f.emits))
	copy(out, f.emits)
	return out
}

func TestAssetSync_JoinEmitsNormalizedSymbol(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)

	require.NoError(t, view.Join(context.Background(), " btc "))

	emits := transport.emitted()
	require.Len(t, emits, 1)
	assert.Equal(t, EventJoinAsset, emits[0].event)
	assert.Equal(t, "BTC", emits[0].payload)
}

func TestAssetSync_JoinRejectsEmptySymbol(t *testing.T) {
	view := NewAssetSync(newFakeTransport(), nil)
	assert.Error(t, view.Join(context.Background(), "  "))
}

func TestAssetSync_JoinIsIdempotent(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	ctx := context.Background()

	require.NoError(t, view.Join(ctx, "BTC"))
	require.NoError(t, view.Join(ctx, "BTC"))

	assert.Len(t, transport.emitted(), 1)
}

func TestAssetSync_MatchingNotificationInvokesEveryCallbackOnce(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	require.NoError(t, view.Join(context.Background(), "BTC"))

	counts := map[string]int{}
	view.Subscribe("sentiment", func() { counts["sentiment"]++ })
	view.Subscribe("intent", func() { counts["intent"]++ })
	view.Subscribe("comments", func() { counts["comments"]++ })

	transport.push("BTC")

	assert.Equal(t, map[string]int{"sentiment": 1, "intent": 1, "comments": 1}, counts)
}

func TestAssetSync_FanOutFollowsRegistrationOrder(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	require.NoError(t, view.Join(context.Background(), "BTC"))

	var order []string
	view.Subscribe("comments", func() { order = append(order, "comments") })
	view.Subscribe("sentiment", func() { order = append(order, "sentiment") })
	view.Subscribe("intent", func() { order = append(order, "intent") })

	transport.push("BTC")
	transport.push("BTC")

	assert.Equal(t, []string{
		"comments", "sentiment", "intent",
		"comments", "sentiment", "intent",
	}, order)
}

func TestAssetSync_MismatchedSymbolIsIgnored(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	require.NoError(t, view.Join(context.Background(), "BTC"))

	calls := 0
	view.Subscribe("comments", func() { calls++ })

	transport.push("ETH")
	assert.Equal(t, 0, calls)

	transport.push("BTC")
	assert.Equal(t, 1, calls)
}

func TestAssetSync_NotificationAfterLeaveIsIgnored(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	ctx := context.Background()

	calls := 0
	view.Subscribe("sentiment", func() { calls++ })

	require.NoError(t, view.Join(ctx, "BTC"))
	require.NoError(t, view.Leave(ctx, "BTC"))
	require.NoError(t, view.Join(ctx, "ETH"))

	// A stale message for the superseded symbol arrives late.
	transport.push("BTC")
	assert.Equal(t, 0, calls)

	transport.push("ETH")
	assert.Equal(t, 1, calls)
}

func TestAssetSync_LeaveIsIdempotent(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	ctx := context.Background()

	require.NoError(t, view.Leave(ctx, "BTC"))
	assert.Empty(t, transport.emitted())

	require.NoError(t, view.Join(ctx, "BTC"))
	require.NoError(t, view.Leave(ctx, "BTC"))
	require.NoError(t, view.Leave(ctx, "BTC"))

	emits := transport.emitted()
	require.Len(t, emits, 2)
	assert.Equal(t, EventLeaveAsset, emits[1].event)
}

func TestAssetSync_SymbolChangeLeavesPreviousRoom(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	ctx := context.Background()

	require.NoError(t, view.Join(ctx, "BTC"))
	require.NoError(t, view.Join(ctx, "ETH"))

	emits := transport.emitted()
	require.Len(t, emits, 3)
	assert.Equal(t, emitRecord{EventJoinAsset, "BTC"}, emits[0])
	assert.Equal(t, emitRecord{EventLeaveAsset, "BTC"}, emits[1])
	assert.Equal(t, emitRecord{EventJoinAsset, "ETH"}, emits[2])
}

func TestAssetSync_ResubscribeOverwrites(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	require.NoError(t, view.Join(context.Background(), "BTC"))

	firstCalls, secondCalls := 0, 0
	view.Subscribe("sentiment", func() { firstCalls++ })
	view.Subscribe("sentiment", func() { secondCalls++ })

	transport.push("BTC")

	assert.Equal(t, 0, firstCalls)
	assert.Equal(t, 1, secondCalls)
}

func TestAssetSync_UnsubscribeDetaches(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	require.NoError(t, view.Join(context.Background(), "BTC"))

	calls := 0
	unsubscribe := view.Subscribe("comments", func() { calls++ })

	transport.push("BTC")
	require.Equal(t, 1, calls)

	unsubscribe()
	unsubscribe() // idempotent

	transport.push("BTC")
	assert.Equal(t, 1, calls)
}

func TestAssetSync_StaleDisposerDoesNotRemoveNewerCallback(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	require.NoError(t, view.Join(context.Background(), "BTC"))

	oldUnsubscribe := view.Subscribe("sentiment", func() {})

	calls := 0
	view.Subscribe("sentiment", func() { calls++ })

	// The disposer from the superseded registration must not tear down the
	// replacement.
	oldUnsubscribe()

	transport.push("BTC")
	assert.Equal(t, 1, calls)
}

func TestAssetSync_CloseDetachesAndLeaves(t *testing.T) {
	transport := newFakeTransport()
	view := NewAssetSync(transport, nil)
	ctx := context.Background()

	calls := 0
	view.Subscribe("comments", func() { calls++ })
	require.NoError(t, view.Join(ctx, "BTC"))

	view.Close(ctx)

	transport.push("BTC")
	assert.Equal(t, 0, calls)

	emits := transport.emitted()
	require.Len(t, emits, 2)
	assert.Equal(t, EventLeaveAsset, emits[1].event)

	assert.Error(t, view.Join(ctx, "ETH"))
}
