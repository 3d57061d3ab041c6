// Package event is a synchronous in-process event dispatcher.
//
//	d := event.NewDispatcher()
//	d.Listen("order.placed", func(ctx context.Context, payload any) error {
//	    order := payload.(models.Order)
//	    ...
//	})
//	err := d.Fire(ctx, "order.placed", order)
package event

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Handler receives an event payload.
type Handler func(ctx context.Context, payload any) error

// Dispatcher routes named events to their listeners.
type Dispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[string][]Handler)}
}

// Listen registers h for name.
func (d *Dispatcher) Listen(name string, h Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[name] = append(d.handlers[name], h)
}

// Fire calls every listener for name in registration order and waits for
// all of them. A failing listener does not stop the rest; their errors are
// joined.
func (d *Dispatcher) Fire(ctx context.Context, name string, payload any) error {
	d.mu.RLock()
	hs := append([]Handler(nil), d.handlers[name]...)
	d.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		if err := h(ctx, payload); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Has reports whether name has listeners.
func (d *Dispatcher) Has(name string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[name]) > 0
}
