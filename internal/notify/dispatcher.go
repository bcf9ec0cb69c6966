package notify

import (
	"context"

	"go.uber.org/zap"
)

// Dispatcher decouples event delivery from the request path. Dispatch
// enqueues without blocking; a background Run loop performs the actual sends
// so a slow or failing webhook can never delay an intake response.
type Dispatcher struct {
	notifier Notifier
	events   chan Event
}

// NewDispatcher creates a Dispatcher with the given queue depth.
func NewDispatcher(n Notifier, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	return &Dispatcher{
		notifier: n,
		events:   make(chan Event, buffer),
	}
}

// Dispatch enqueues an event for background delivery. When the queue is full
// the event is dropped; intake must keep responding even if the webhook is
// down for an extended stretch.
func (d *Dispatcher) Dispatch(ev Event) {
	select {
	case d.events <- ev:
	default:
		zap.L().Warn("notify: queue full, dropping event",
			zap.String("type", string(ev.Type)),
		)
	}
}

// Run consumes the queue until ctx is cancelled. It always returns nil so it
// can sit in an errgroup without taking the server down over webhook trouble.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-d.events:
			if err := d.notifier.Notify(ctx, ev); err != nil {
				zap.L().Error("notify: delivery failed",
					zap.String("type", string(ev.Type)),
					zap.Error(err),
				)
				continue
			}
			zap.L().Debug("notify: event delivered",
				zap.String("type", string(ev.Type)),
			)
		}
	}
}
