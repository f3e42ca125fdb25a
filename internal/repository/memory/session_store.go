// Package memory holds process-local implementations of the storage ports.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"ripsnc/internal/domain"
	"ripsnc/internal/port"
)

type sessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*domain.Session
}

// NewSessionStore creates an in-memory SessionStore.
func NewSessionStore() port.SessionStore {
	return &sessionStore{sessions: make(map[uuid.UUID]*domain.Session)}
}

func (s *sessionStore) Create(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *sessionStore) Get(_ context.Context, id uuid.UUID) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return copySession(sess), nil
}

// Save replaces the stored session; the last write wins.
func (s *sessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sess.ID]; !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions[sess.ID] = copySession(sess)
	return nil
}

func (s *sessionStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return domain.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *sessionStore) List(_ context.Context) ([]domain.SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.SessionInfo, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, nil
}

func (s *sessionStore) Sweep(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(before) {
			delete(s.sessions, id)
			n++
		}
	}
	return n, nil
}

func copySession(src *domain.Session) *domain.Session {
	cp := *src
	cp.Note = src.Note.Clone()
	cp.Reference = src.Reference.Clone()
	if src.Summary != nil {
		sum := *src.Summary
		sum.Unmatched = append([]string{}, src.Summary.Unmatched...)
		sum.Warnings = append([]string(nil), src.Summary.Warnings...)
		cp.Summary = &sum
	}
	return &cp
}
