package model

// AppState stores per-invocation state for the orchestrator graph.
// It is registered as graph local state via compose.WithGenLocalState and is
// only read or written inside state handlers or compose.ProcessState.
type AppState struct {
	ThreadID string
	Request  Request
	Session  *Session
	Decision RouteDecision
}

// TurnInput is the orchestrator graph input.
type TurnInput struct {
	Request Request
	// Session already includes the current user message.
	Session *Session
}

// TurnOutput is what any terminal node of the orchestrator graph produces.
type TurnOutput struct {
	Decision     RouteDecision
	Text         string
	Structured   map[string]any
	Conversation *ConversationState
}
