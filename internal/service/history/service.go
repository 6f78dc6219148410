package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sentiforge/backend/internal/model/generation"
)

var ErrSessionNotFound = errors.New("session not found")

// Service keeps per-session generation history in process memory.
// Records are append-only; nothing survives a restart.
type Service struct {
	mu       sync.RWMutex
	limit    int
	sessions map[string]generation.Session
	records  map[string][]generation.Record
	nextPos  map[string]int
}

// NewService bootstraps the in-memory history store. A positive limit caps
// retained records per session; zero keeps everything.
func NewService(limit int) *Service {
	if limit < 0 {
		limit = 0
	}
	return &Service{
		limit:    limit,
		sessions: make(map[string]generation.Session),
		records:  make(map[string][]generation.Record),
		nextPos:  make(map[string]int),
	}
}

// CreateSession provisions an anonymous session with empty history.
func (s *Service) CreateSession(_ context.Context) (generation.Session, error) {
	session := generation.Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.records[session.ID] = make([]generation.Record, 0, 8)
	s.mu.Unlock()

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(_ context.Context, sessionID string) (generation.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return generation.Session{}, ErrSessionNotFound
	}
	return session, nil
}

// Append adds a record to the end of the session history. The stored record
// receives its identifier, position and timestamp here; positions grow
// monotonically even when the cap evicts older entries.
func (s *Service) Append(_ context.Context, record generation.Record) (generation.Record, error) {
	if record.SessionID == "" {
		return generation.Record{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[record.SessionID]; !ok {
		return generation.Record{}, ErrSessionNotFound
	}

	record.ID = uuid.NewString()
	record.Position = s.nextPos[record.SessionID]
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	s.nextPos[record.SessionID]++

	records := append(s.records[record.SessionID], record)
	if s.limit > 0 && len(records) > s.limit {
		records = records[len(records)-s.limit:]
	}
	s.records[record.SessionID] = records

	return record, nil
}

// Records returns a copy of the session history in insertion order.
func (s *Service) Records(_ context.Context, sessionID string) ([]generation.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records, ok := s.records[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]generation.Record, len(records))
	copy(copied, records)
	return copied, nil
}
