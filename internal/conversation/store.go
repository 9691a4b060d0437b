package conversation

import (
	"context"
	"sync"

	"github.com/virtualsteve-star/stinger-sub001/internal/types"
)

// Store durably holds conversations keyed by session id.
//
// The core only needs Get/Put semantics; durable backends are provided by
// front ends. MemoryStore is the bundled in-process implementation.
type Store interface {
	// Get returns the conversation for the given session id.
	// Returns a SESSION_NOT_FOUND error if no conversation exists.
	Get(ctx context.Context, sessionID types.ID) (*Conversation, error)

	// Put associates a conversation with a session id, replacing any existing one.
	Put(ctx context.Context, sessionID types.ID, conv *Conversation) error

	// Delete removes the conversation for a session id. Deleting an unknown
	// session id is not an error.
	Delete(ctx context.Context, sessionID types.ID) error
}

// MemoryStore is an in-memory Store safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	convs map[types.ID]*Conversation
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		convs: make(map[types.ID]*Conversation),
	}
}

// Get returns the conversation for the given session id.
func (s *MemoryStore) Get(ctx context.Context, sessionID types.ID) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.convs[sessionID]
	if !ok {
		return nil, types.NewError(types.SESSION_NOT_FOUND, "no conversation for session "+sessionID.String())
	}
	return conv, nil
}

// Put associates a conversation with a session id.
func (s *MemoryStore) Put(ctx context.Context, sessionID types.ID, conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[sessionID] = conv
	return nil
}

// Delete removes the conversation for a session id.
func (s *MemoryStore) Delete(ctx context.Context, sessionID types.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, sessionID)
	return nil
}
