package events_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timada-org/todoboard/internal/events"
	"github.com/timada-org/todoboard/pkg/topic"
)

func listFilter(t *testing.T, listID string) *topic.Filter {
	t.Helper()
	f, err := topic.ListFilter(listID)
	require.NoError(t, err)
	return f
}

func newEvent(t *testing.T, listID, itemID string) *events.Event {
	t.Helper()
	e, err := events.NewItemEvent(listID, "Created", itemID)
	require.NoError(t, err)
	return e
}

func receive(t *testing.T, sub *events.Subscription) *events.Event {
	t.Helper()
	select {
	case e := <-sub.Events():
		return e
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestBus_DispatchesToMatchingSubscriptions(t *testing.T) {
	bus := events.NewBus(events.BusOptions{Logger: zerolog.Nop()})

	a, err := bus.Subscribe(listFilter(t, "a"))
	require.NoError(t, err)
	defer a.Close()

	b, err := bus.Subscribe(listFilter(t, "b"))
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, bus.Publish(context.Background(), newEvent(t, "a", "1")))

	got := receive(t, a)
	assert.Equal(t, "lists/a/items/1", got.Topic.Value)
	assert.Equal(t, "a", got.ListID)

	select {
	case e := <-b.Events():
		t.Fatalf("unexpected event %v", e)
	default:
	}
}

func TestBus_OneDeliveryPerEvent(t *testing.T) {
	bus := events.NewBus(events.BusOptions{Logger: zerolog.Nop()})

	all, err := topic.NewFilter("#")
	require.NoError(t, err)

	sub, err := bus.Subscribe(all, listFilter(t, "a"))
	require.NoError(t, err)
	defer sub.Close()

	bus.Dispatch(newEvent(t, "a", "1"))

	receive(t, sub)
	assert.Len(t, sub.Events(), 0)
}

func TestBus_CloseUnsubscribes(t *testing.T) {
	bus := events.NewBus(events.BusOptions{Logger: zerolog.Nop()})

	sub, err := bus.Subscribe(listFilter(t, "a"))
	require.NoError(t, err)
	assert.Equal(t, 1, bus.Len())

	sub.Close()
	sub.Close()
	assert.Equal(t, 0, bus.Len())

	_, ok := <-sub.Events()
	assert.False(t, ok)

	bus.Dispatch(newEvent(t, "a", "1"))
}

func TestBus_SlowSubscriberDoesNotBlock(t *testing.T) {
	bus := events.NewBus(events.BusOptions{Logger: zerolog.Nop()})

	sub, err := bus.Subscribe(listFilter(t, "a"))
	require.NoError(t, err)
	defer sub.Close()

	e := newEvent(t, "a", "1")
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			bus.Dispatch(e)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatch blocked on a full subscriber")
	}
}

func TestSubscription_WithoutFilterReceivesNothing(t *testing.T) {
	bus := events.NewBus(events.BusOptions{Logger: zerolog.Nop()})

	sub, err := bus.Subscribe()
	require.NoError(t, err)
	defer sub.Close()

	bus.Dispatch(newEvent(t, "a", "1"))
	assert.Len(t, sub.Events(), 0)
}

// loopback is a Broker that hands every sent event back to the consumer,
// the way a real broker topic would.
type loopback struct {
	mu     sync.Mutex
	sent   [][]byte
	queue  chan []byte
	closed bool
}

func (l *loopback) Send(_ context.Context, event *events.Event) error {
	b, err := json.Marshal(event)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.sent = append(l.sent, b)
	l.mu.Unlock()
	l.queue <- b
	return nil
}

func (l *loopback) Start(ctx context.Context, handle func(*events.Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-l.queue:
			var e events.Event
			if err := json.Unmarshal(b, &e); err == nil {
				handle(&e)
			}
		}
	}
}

func (l *loopback) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
}

func TestBus_PublishesThroughBroker(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker := &loopback{queue: make(chan []byte, 4)}
	bus := events.NewBus(events.BusOptions{Broker: broker, Logger: zerolog.Nop()})
	bus.Start(ctx)

	sub, err := bus.Subscribe(listFilter(t, "a"))
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, bus.Publish(ctx, newEvent(t, "a", "42")))

	got := receive(t, sub)
	assert.Equal(t, "lists/a/items/42", got.Topic.Value)
	assert.Equal(t, "Created", got.Name)
	assert.Equal(t, map[string]any{"id": "42"}, got.Data)

	broker.mu.Lock()
	assert.Len(t, broker.sent, 1)
	broker.mu.Unlock()

	bus.Close()
	assert.True(t, broker.closed)
}
