// internal/events/handler.go
package events

import (
	"context"
	"fmt"
	"sync"
)

// Handler reacts to a published event. Registration events are delivered with
// PublishSync, so a handler runs inside the registration that raised it.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// On wraps fn as a Handler for one concrete event struct. An event of another
// type is reported as an error.
func On[T Event](fn func(ctx context.Context, event T) error) Handler {
	return HandlerFunc(func(ctx context.Context, event Event) error {
		typed, ok := event.(T)
		if !ok {
			var want T
			return fmt.Errorf("%s handler expects %T, got %T", event.Type(), want, event)
		}
		return fn(ctx, typed)
	})
}

// Subscription detaches one handler. Unsubscribe may be called repeatedly.
type Subscription struct {
	bus  *Bus
	id   string
	typ  EventType
	once sync.Once
}

func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.bus.unsubscribe(s.id, s.typ)
	})
}

// Subscriptions are the handlers one consumer registered.
type Subscriptions []*Subscription

func (ss Subscriptions) Unsubscribe() {
	for _, s := range ss {
		s.Unsubscribe()
	}
}
