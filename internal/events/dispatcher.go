package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrListenerPanic wraps a panic raised by a listener.
var ErrListenerPanic = errors.New("event listener panicked")

// Listener reacts to a published event.
type Listener func(context.Context, Event) error

// Dispatcher fans identity and content events out to listeners.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, listener Listener)
	// SubscribeAll registers a listener for every event type.
	SubscribeAll(listener Listener)
}

type syncDispatcher struct {
	mu     sync.RWMutex
	byType map[EventType][]Listener
	all    []Listener
}

// NewDispatcher returns a dispatcher that runs listeners on the publishing
// goroutine, typed listeners first.
func NewDispatcher() Dispatcher {
	return &syncDispatcher{byType: make(map[EventType][]Listener)}
}

// Publish runs every matching listener even if an earlier one fails or
// panics. Their errors are joined.
func (d *syncDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	listeners := make([]Listener, 0, len(d.byType[event.Type])+len(d.all))
	listeners = append(listeners, d.byType[event.Type]...)
	listeners = append(listeners, d.all...)
	d.mu.RUnlock()

	var errs []error
	for _, l := range listeners {
		if err := invoke(ctx, l, event); err != nil {
			errs = append(errs, fmt.Errorf("%s listener: %w", event.Type, err))
		}
	}
	return errors.Join(errs...)
}

func invoke(ctx context.Context, l Listener, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrListenerPanic, r)
		}
	}()
	return l(ctx, event)
}

func (d *syncDispatcher) Subscribe(eventType EventType, listener Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.byType[eventType] = append(d.byType[eventType], listener)
}

func (d *syncDispatcher) SubscribeAll(listener Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.all = append(d.all, listener)
}
