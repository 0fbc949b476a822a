package storage

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Ensure MemoryStorage implements the Storage interface
var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage is the default single-instance session store. Carts and
// sessions do not survive a restart; the commerce platform remains the
// source of truth for anything that matters beyond a browsing session.
type MemoryStorage struct {
	handshakes    sync.Map // map[string]Handshake
	sessions      map[string]*CustomerSession
	sessionsMutex sync.RWMutex
	carts         map[string]*CartRecord
	cartsMutex    sync.RWMutex
}

// NewMemoryStorage creates a new in-memory store
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		sessions: make(map[string]*CustomerSession),
		carts:    make(map[string]*CartRecord),
	}
}

// StoreHandshake stores login secrets keyed by handshake id
func (s *MemoryStorage) StoreHandshake(_ context.Context, id string, hs Handshake) error {
	if id == "" {
		return fmt.Errorf("handshake id cannot be empty")
	}
	s.handshakes.Store(id, hs)
	return nil
}

// ConsumeHandshake retrieves and deletes a handshake (one-time use)
func (s *MemoryStorage) ConsumeHandshake(_ context.Context, id string) (*Handshake, error) {
	value, ok := s.handshakes.LoadAndDelete(id)
	if !ok {
		return nil, ErrHandshakeNotFound
	}
	hs := value.(Handshake)
	if time.Now().After(hs.ExpiresAt) {
		return nil, ErrHandshakeNotFound
	}
	return &hs, nil
}

// GetSession returns a live session or deletes an expired one
func (s *MemoryStorage) GetSession(_ context.Context, id string) (*CustomerSession, error) {
	s.sessionsMutex.RLock()
	session, ok := s.sessions[id]
	s.sessionsMutex.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.Expired() {
		s.sessionsMutex.Lock()
		delete(s.sessions, id)
		s.sessionsMutex.Unlock()
		return nil, ErrSessionNotFound
	}

	copied := *session
	return &copied, nil
}

func (s *MemoryStorage) PutSession(_ context.Context, id string, session *CustomerSession) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}

	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	copied := *session
	s.sessions[id] = &copied
	return nil
}

func (s *MemoryStorage) DeleteSession(_ context.Context, id string) error {
	s.sessionsMutex.Lock()
	defer s.sessionsMutex.Unlock()

	delete(s.sessions, id)
	return nil
}

func (s *MemoryStorage) GetCart(_ context.Context, id string) (*CartRecord, error) {
	s.cartsMutex.RLock()
	defer s.cartsMutex.RUnlock()

	record, ok := s.carts[id]
	if !ok {
		return nil, ErrCartNotFound
	}

	copied := *record
	copied.Lines = append([]CartLine(nil), record.Lines...)
	return &copied, nil
}

func (s *MemoryStorage) PutCart(_ context.Context, id string, cart *CartRecord) error {
	if cart == nil {
		return fmt.Errorf("cart cannot be nil")
	}

	s.cartsMutex.Lock()
	defer s.cartsMutex.Unlock()

	copied := *cart
	copied.Lines = append([]CartLine(nil), cart.Lines...)
	s.carts[id] = &copied
	return nil
}

func (s *MemoryStorage) DeleteCart(_ context.Context, id string) error {
	s.cartsMutex.Lock()
	defer s.cartsMutex.Unlock()

	delete(s.carts, id)
	return nil
}

// CleanupExpired drops expired handshakes and sessions
func (s *MemoryStorage) CleanupExpired(_ context.Context) (int, error) {
	removed := 0
	now := time.Now()

	s.handshakes.Range(func(key, value any) bool {
		if now.After(value.(Handshake).ExpiresAt) {
			s.handshakes.Delete(key)
			removed++
		}
		return true
	})

	s.sessionsMutex.Lock()
	for id, session := range s.sessions {
		if session.Expired() {
			delete(s.sessions, id)
			removed++
		}
	}
	s.sessionsMutex.Unlock()

	return removed, nil
}

func (s *MemoryStorage) Stats(_ context.Context) (Stats, error) {
	handshakes := 0
	s.handshakes.Range(func(_, _ any) bool {
		handshakes++
		return true
	})

	s.sessionsMutex.RLock()
	sessions := len(s.sessions)
	s.sessionsMutex.RUnlock()

	s.cartsMutex.RLock()
	carts := len(s.carts)
	s.cartsMutex.RUnlock()

	return Stats{Sessions: sessions, Carts: carts, Handshakes: handshakes}, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
