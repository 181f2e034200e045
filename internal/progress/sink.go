package progress

import "context"

// Sink consumes batches of progress events. Implementations must honor ctx
// deadlines and may be invoked concurrently.
type Sink interface {
	Consume(ctx context.Context, batch []Event) error
	Close(ctx context.Context) error
}

// Emitter publishes individual events. Hub satisfies it, so workers stay
// agnostic about buffering.
type Emitter interface {
	Emit(evt Event)
}

// Discard is an Emitter that drops everything.
var Discard Emitter = discard{}

type discard struct{}

func (discard) Emit(Event) {}
