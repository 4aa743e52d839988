package events

import (
	"context"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/timada-org/todoboard/pkg/topic"
)

const subscriptionBuffer = 16

// Broker relays published events between nodes.
type Broker interface {
	Send(ctx context.Context, event *Event) error
	// Start delivers every received event to handle until ctx is done.
	Start(ctx context.Context, handle func(*Event))
	Close()
}

type BusOptions struct {
	// Broker is optional; without one events are dispatched locally.
	Broker Broker
	Logger zerolog.Logger
}

// Bus dispatches events to the local subscriptions whose filter matches.
type Bus struct {
	mux           sync.RWMutex
	subscriptions map[string]*Subscription
	broker        Broker
	logger        zerolog.Logger
}

func NewBus(options BusOptions) *Bus {
	return &Bus{
		subscriptions: make(map[string]*Subscription),
		broker:        options.Broker,
		logger:        options.Logger,
	}
}

// Start begins consuming the broker, if any.
func (bus *Bus) Start(ctx context.Context) {
	if bus.broker == nil {
		return
	}

	go bus.broker.Start(ctx, bus.Dispatch)
}

// Publish sends the event through the broker when configured, or straight to
// the local subscriptions otherwise.
func (bus *Bus) Publish(ctx context.Context, event *Event) error {
	if bus.broker == nil {
		bus.Dispatch(event)
		return nil
	}

	return bus.broker.Send(ctx, event)
}

// Dispatch delivers the event to every matching local subscription.
func (bus *Bus) Dispatch(event *Event) {
	if event == nil || event.Topic == nil {
		return
	}

	bus.mux.RLock()
	defer bus.mux.RUnlock()

	for _, sub := range bus.subscriptions {
		sub.send(event, bus.logger)
	}
}

// Subscribe registers a subscription for the given filters. The caller must
// Close it once done.
func (bus *Bus) Subscribe(filters ...*topic.Filter) (*Subscription, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		ID:      id,
		bus:     bus,
		filters: make(map[string]*topic.Filter),
		events:  make(chan *Event, subscriptionBuffer),
	}

	for _, f := range filters {
		sub.filters[f.Value] = f
	}

	bus.mux.Lock()
	bus.subscriptions[id] = sub
	bus.mux.Unlock()

	return sub, nil
}

func (bus *Bus) unsubscribe(id string) {
	bus.mux.Lock()
	defer bus.mux.Unlock()
	delete(bus.subscriptions, id)
}

// Len returns the number of open subscriptions.
func (bus *Bus) Len() int {
	bus.mux.RLock()
	defer bus.mux.RUnlock()
	return len(bus.subscriptions)
}

func (bus *Bus) Close() {
	if bus.broker != nil {
		bus.broker.Close()
	}
}

type Subscription struct {
	ID string

	mux     sync.RWMutex
	bus     *Bus
	filters map[string]*topic.Filter
	events  chan *Event
	closed  bool
}

// Events is closed when the subscription is closed.
func (s *Subscription) Events() <-chan *Event {
	return s.events
}

func (s *Subscription) Close() {
	s.bus.unsubscribe(s.ID)

	s.mux.Lock()
	defer s.mux.Unlock()

	if !s.closed {
		s.closed = true
		close(s.events)
	}
}

// send never blocks; a full buffer drops the event.
func (s *Subscription) send(event *Event, logger zerolog.Logger) {
	s.mux.RLock()
	defer s.mux.RUnlock()

	if s.closed {
		return
	}

	for _, filter := range s.filters {
		if !filter.Match(event.Topic) {
			continue
		}

		select {
		case s.events <- event:
		default:
			logger.Warn().
				Str("subscription", s.ID).
				Str("topic", event.Topic.Value).
				Msg("subscriber too slow, event dropped")
		}

		return
	}
}
