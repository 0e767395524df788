package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/schema"

	"github.com/jan-sahayak/server/internal/agent/model"
	errx "github.com/jan-sahayak/server/internal/core/error"
)

// MemorySessionRepository keeps sessions in process memory. Sessions are
// stored encoded so callers never share slices with the store.
type MemorySessionRepository struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{sessions: make(map[string][]byte)}
}

func (r *MemorySessionRepository) Load(_ context.Context, threadID string) (*model.Session, error) {
	r.mu.RLock()
	b, ok := r.sessions[threadID]
	r.mu.RUnlock()
	if !ok {
		return nil, errx.ErrSessionNotFound
	}
	return decodeSession(b)
}

func (r *MemorySessionRepository) Save(_ context.Context, s *model.Session) error {
	b, err := encodeSession(s)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.sessions[s.ThreadID] = b
	r.mu.Unlock()
	return nil
}

func (r *MemorySessionRepository) Clear(_ context.Context, threadID string) error {
	r.mu.Lock()
	delete(r.sessions, threadID)
	r.mu.Unlock()
	return nil
}

func encodeSession(s *model.Session) ([]byte, error) {
	if s == nil || s.ThreadID == "" {
		return nil, fmt.Errorf("session without thread id")
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return b, nil
}

func decodeSession(b []byte) (*model.Session, error) {
	var s model.Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if s.Messages == nil {
		s.Messages = []*schema.Message{}
	}
	return &s, nil
}

var _ model.SessionRepository = (*MemorySessionRepository)(nil)
