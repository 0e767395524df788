package model

import (
	"strings"
	"unicode/utf8"

	errx "github.com/jan-sahayak/server/internal/core/error"
)

const (
	MaxInputRunes    = 10000
	MaxThreadIDRunes = 128
)

// Request is what a front end submits for one turn.
type Request struct {
	InputText   string       `json:"input_text"`
	Route       Route        `json:"route,omitempty"`
	UserProfile *UserProfile `json:"user_profile,omitempty"`
	ThreadID    string       `json:"thread_id,omitempty"`
	Language    string       `json:"language,omitempty"`
}

// Normalize trims and validates the request in place. A blank thread id is
// left blank for the runner to assign.
func (r *Request) Normalize() error {
	r.InputText = strings.TrimSpace(r.InputText)
	if r.InputText == "" {
		return errx.Invalid("input_text is required")
	}
	if utf8.RuneCountInString(r.InputText) > MaxInputRunes {
		return errx.Invalid("input_text is too long")
	}
	r.ThreadID = strings.TrimSpace(r.ThreadID)
	if utf8.RuneCountInString(r.ThreadID) > MaxThreadIDRunes {
		return errx.Invalid("thread_id is too long")
	}
	if r.Route != "" {
		route, err := ParseRoute(string(r.Route))
		if err != nil {
			return errx.Invalid(err.Error())
		}
		r.Route = route
	}
	r.Language = NormalizeLanguage(r.Language)
	return nil
}

// Response is the final result of one turn.
type Response struct {
	ThreadID        string         `json:"thread_id"`
	Route           Route          `json:"route"`
	Reason          string         `json:"reason,omitempty"`
	FinalText       string         `json:"final_text"`
	FinalStructured map[string]any `json:"final_structured,omitempty"`
	ReferenceID     string         `json:"reference_id"`
	CostUSD         float64        `json:"cost_usd"`
}

type EventType string

const (
	EventMeta   EventType = "meta"
	EventLog    EventType = "log"
	EventResult EventType = "result"
	EventError  EventType = "error"
)

// Event is one item of the caller-facing stream.
type Event struct {
	Type     EventType `json:"type"`
	ThreadID string    `json:"thread_id,omitempty"`
	Message  string    `json:"message,omitempty"`
	Result   *Response `json:"result,omitempty"`
}

// EventSink receives events synchronously, in order.
type EventSink func(Event)
