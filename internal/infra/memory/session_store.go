package memory

import (
	"context"
	"sync"

	"livequiz-service/internal/domain"
)

// SessionStore is an in-memory implementation of app.SessionStore, used in
// tests and when no Postgres is configured.
type SessionStore struct {
	mu           sync.RWMutex
	sessions     map[string]domain.HostedSession // keyed by code
	participants map[string][]*domain.Participant
	answers      map[string]map[string]domain.AnswerRecord // sessionID -> participantID:questionID
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions:     make(map[string]domain.HostedSession),
		participants: make(map[string][]*domain.Participant),
		answers:      make(map[string]map[string]domain.AnswerRecord),
	}
}

func (s *SessionStore) CreateSession(_ context.Context, session domain.HostedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Code] = session
	return nil
}

func (s *SessionStore) SessionByCode(_ context.Context, code string) (domain.HostedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[code]
	if !ok {
		return domain.HostedSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *SessionStore) UpdateSession(_ context.Context, session domain.HostedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[session.Code]; !ok {
		return domain.ErrSessionNotFound
	}
	s.sessions[session.Code] = session
	return nil
}

func (s *SessionStore) ActiveSessionsByOwner(_ context.Context, ownerID string) ([]domain.HostedSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.HostedSession
	for _, session := range s.sessions {
		if session.OwnerID == ownerID && session.IsActive {
			out = append(out, session)
		}
	}
	return out, nil
}

func (s *SessionStore) Participant(_ context.Context, sessionID, participantID string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants[sessionID] {
		if p.ID == participantID {
			return *p, nil
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (s *SessionStore) FindParticipant(_ context.Context, sessionID, userID, name string) (domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if userID != "" {
		for _, p := range s.participants[sessionID] {
			if p.UserID == userID {
				return *p, nil
			}
		}
	}
	for _, p := range s.participants[sessionID] {
		if p.Name == name {
			return *p, nil
		}
	}
	return domain.Participant{}, domain.ErrParticipantNotFound
}

func (s *SessionStore) CountParticipants(_ context.Context, sessionID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants[sessionID]), nil
}

func (s *SessionStore) SaveParticipant(_ context.Context, participant domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.participants[participant.SessionID] {
		if p.ID == participant.ID {
			copied := participant
			s.participants[participant.SessionID][i] = &copied
			return nil
		}
	}
	copied := participant
	s.participants[participant.SessionID] = append(s.participants[participant.SessionID], &copied)
	return nil
}

func (s *SessionStore) SetParticipantConnected(_ context.Context, sessionID, participantID string, connected bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants[sessionID] {
		if p.ID == participantID {
			p.IsConnected = connected
			return nil
		}
	}
	return domain.ErrParticipantNotFound
}

func (s *SessionStore) ListParticipants(_ context.Context, sessionID string) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Participant, 0, len(s.participants[sessionID]))
	for _, p := range s.participants[sessionID] {
		out = append(out, *p)
	}
	return out, nil
}

func (s *SessionStore) RecordAnswer(_ context.Context, record domain.AnswerRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := record.ParticipantID + ":" + record.QuestionID
	log, ok := s.answers[record.SessionID]
	if !ok {
		log = make(map[string]domain.AnswerRecord)
		s.answers[record.SessionID] = log
	}
	if _, exists := log[key]; exists {
		return 0, domain.ErrDuplicateAnswer
	}

	for _, p := range s.participants[record.SessionID] {
		if p.ID == record.ParticipantID {
			log[key] = record
			p.Score += record.PointsEarned
			return p.Score, nil
		}
	}
	return 0, domain.ErrParticipantNotFound
}

// Answers returns the audit log for assertions in tests.
func (s *SessionStore) Answers(sessionID string) []domain.AnswerRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.AnswerRecord, 0, len(s.answers[sessionID]))
	for _, rec := range s.answers[sessionID] {
		out = append(out, rec)
	}
	return out
}
