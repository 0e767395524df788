package observers

import (
	"context"

	"github.com/jan-sahayak/server/internal/agent/model"
)

type sinkKey struct{}

// WithSink attaches the caller's event stream to ctx.
func WithSink(ctx context.Context, threadID string, sink model.EventSink) context.Context {
	if sink == nil {
		return ctx
	}
	return context.WithValue(ctx, sinkKey{}, boundSink{threadID: threadID, sink: sink})
}

type boundSink struct {
	threadID string
	sink     model.EventSink
}

// Emit sends a log event to the turn's stream, if any.
func Emit(ctx context.Context, message string) {
	EmitEvent(ctx, model.Event{Type: model.EventLog, Message: message})
}

// EmitEvent sends ev with the turn's thread id filled in.
func EmitEvent(ctx context.Context, ev model.Event) {
	b, ok := ctx.Value(sinkKey{}).(boundSink)
	if !ok {
		return
	}
	if ev.ThreadID == "" {
		ev.ThreadID = b.threadID
	}
	b.sink(ev)
}
