package observers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jan-sahayak/server/internal/agent/model"
)

func TestEmitWithoutSinkIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Emit(context.Background(), "hello") })
	assert.NotNil(t, NewAllCallbacks())
}

func TestEmitFillsThreadID(t *testing.T) {
	var got []model.Event
	ctx := WithSink(context.Background(), "t-9", func(ev model.Event) { got = append(got, ev) })

	Emit(ctx, "Orchestrator: analyzing intent")
	EmitEvent(ctx, model.Event{Type: model.EventMeta, ThreadID: "other"})

	assert.Equal(t, []model.Event{
		{Type: model.EventLog, ThreadID: "t-9", Message: "Orchestrator: analyzing intent"},
		{Type: model.EventMeta, ThreadID: "other"},
	}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}
