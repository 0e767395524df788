package model

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// SessionRepository persists Session state per thread.
type SessionRepository interface {
	// Load returns the saved session, or an error matching errx.ErrSessionNotFound.
	Load(ctx context.Context, threadID string) (*Session, error)

	// Save replaces the stored session for s.ThreadID.
	Save(ctx context.Context, s *Session) error

	// Clear removes all stored state for the thread.
	Clear(ctx context.Context, threadID string) error
}

// Session is the orchestration state carried across turns of one thread.
type Session struct {
	ThreadID      string             `json:"thread_id"`
	Messages      []*schema.Message  `json:"messages"`
	CurrentIntent Route              `json:"current_intent,omitempty"`
	Language      string             `json:"language"`
	UserProfile   *UserProfile       `json:"user_profile,omitempty"`
	Conversation  *ConversationState `json:"conversation_state,omitempty"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

func NewSession(threadID, language string) *Session {
	now := time.Now().UTC()
	return &Session{
		ThreadID:  threadID,
		Messages:  []*schema.Message{},
		Language:  NormalizeLanguage(language),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Clone copies s so graph nodes can read it while the runner mutates the original.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Messages = append([]*schema.Message(nil), s.Messages...)
	if s.UserProfile != nil {
		out.UserProfile = s.UserProfile.Merge(nil)
	}
	out.Conversation = s.Conversation.Clone()
	return &out
}

// LastUserText returns the content of the most recent user message.
func (s *Session) LastUserText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if m := s.Messages[i]; m != nil && m.Role == schema.User {
			return m.Content
		}
	}
	return ""
}
