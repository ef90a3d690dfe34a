// Package flash keeps one-shot messages in the session between a redirect and the next page.
package flash

import (
	"context"

	"authgate/internal/usecase"

	"github.com/alexedwards/scs/v2"
)

const (
	keyError = "flash.error"
	keyInfo  = "flash.info"
)

// Messages are the flashes popped for one page view.
type Messages struct {
	Errors []string `json:"errors"`
	Info   []string `json:"info"`
}

// Store reads and writes flashes in the request's session.
type Store struct {
	sessions *scs.SessionManager
}

// NewStore is the constructor for Store.
func NewStore(sessions *scs.SessionManager) *Store {
	return &Store{sessions: sessions}
}

// Add queues a flash for the next page view. Empty messages are ignored.
func (s *Store) Add(ctx context.Context, f usecase.Flash) {
	if f.Message == "" {
		return
	}

	key := keyInfo
	if f.Kind == usecase.FlashError {
		key = keyError
	}

	queued, _ := s.sessions.Get(ctx, key).([]string)
	s.sessions.Put(ctx, key, append(queued, f.Message))
}

// Pop returns and removes every queued flash. The slices are never nil.
func (s *Store) Pop(ctx context.Context) Messages {
	return Messages{
		Errors: s.pop(ctx, keyError),
		Info:   s.pop(ctx, keyInfo),
	}
}

func (s *Store) pop(ctx context.Context, key string) []string {
	if !s.sessions.Exists(ctx, key) {
		return []string{}
	}

	messages, _ := s.sessions.Pop(ctx, key).([]string)
	if messages == nil {
		return []string{}
	}

	return messages
}
