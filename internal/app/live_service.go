package app

import (
	"context"
	"errors"
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"

	"livequiz-service/internal/domain"
)

// SessionStore is the durable source of truth for sessions, participants,
// and the append-only answer log. The room registry only caches
// connections; scores always round-trip through here.
type SessionStore interface {
	CreateSession(ctx context.Context, session domain.HostedSession) error
	SessionByCode(ctx context.Context, code string) (domain.HostedSession, error)
	UpdateSession(ctx context.Context, session domain.HostedSession) error
	ActiveSessionsByOwner(ctx context.Context, ownerID string) ([]domain.HostedSession, error)

	Participant(ctx context.Context, sessionID, participantID string) (domain.Participant, error)
	FindParticipant(ctx context.Context, sessionID, userID, name string) (domain.Participant, error)
	CountParticipants(ctx context.Context, sessionID string) (int, error)
	SaveParticipant(ctx context.Context, participant domain.Participant) error
	SetParticipantConnected(ctx context.Context, sessionID, participantID string, connected bool) error
	ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error)

	// RecordAnswer appends the audit record and folds the earned points
	// into the participant's running score in one logical operation,
	// returning the new total. A second record for the same
	// (participant, question) fails with domain.ErrDuplicateAnswer.
	RecordAnswer(ctx context.Context, record domain.AnswerRecord) (int, error)
}

// QuestionBank resolves question content, including the correct answer.
// Read-only from the core's perspective.
type QuestionBank interface {
	Question(ctx context.Context, questionID string) (domain.Question, error)
}

// RoomRegistry maps session codes to live rooms.
type RoomRegistry interface {
	GetOrCreate(code string) *Room
	Get(code string) (*Room, bool)
	DeleteIfDisposable(code string)
}

// CodeReserver optionally claims a freshly generated session code so two
// concurrent creates cannot race to the same one. May be nil.
type CodeReserver interface {
	Reserve(ctx context.Context, code string) (bool, error)
}

// LiveService contains the hosted-session use cases: session creation with
// code generation, join-by-code with the rejoin invariant, and room lookup
// for the transport layer.
type LiveService struct {
	store    SessionStore
	bank     QuestionBank
	rooms    RoomRegistry
	reserver CodeReserver
	now      func() time.Time
	rnd      *rand.Rand
}

func NewLiveService(store SessionStore, bank QuestionBank, rooms RoomRegistry, reserver CodeReserver) *LiveService {
	return &LiveService{
		store:    store,
		bank:     bank,
		rooms:    rooms,
		reserver: reserver,
		now:      time.Now,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// CreateSession makes a durable session under a fresh 6-digit code. Codes
// are drawn uniformly from [100000, 999999] and retried a bounded number
// of times; exhaustion fails the creation.
func (s *LiveService) CreateSession(ctx context.Context, ownerID, name string, maxParticipants int, questionIDs []string) (domain.HostedSession, error) {
	if maxParticipants <= 0 {
		maxParticipants = domain.DefaultMaxParticipants
	}

	code, err := s.generateCode(ctx)
	if err != nil {
		return domain.HostedSession{}, err
	}

	session := domain.HostedSession{
		ID:              uuid.NewString(),
		Code:            code,
		OwnerID:         ownerID,
		Name:            name,
		MaxParticipants: maxParticipants,
		IsActive:        true,
		Settings:        domain.DefaultSettings(),
		QuestionIDs:     questionIDs,
		CreatedAt:       s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return domain.HostedSession{}, err
	}
	return session, nil
}

func (s *LiveService) generateCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < domain.SessionCodeAttempts; attempt++ {
		code := strconv.Itoa(100000 + s.rnd.Intn(900000))

		if s.reserver != nil {
			ok, err := s.reserver.Reserve(ctx, code)
			if err != nil {
				return "", err
			}
			if !ok {
				continue
			}
		}

		_, err := s.store.SessionByCode(ctx, code)
		if errors.Is(err, domain.ErrSessionNotFound) {
			return code, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", domain.ErrCodeExhausted
}

// JoinByCode admits a participant into an active session. Identity is
// matched by userID first, then display name, so re-entering the same
// code+name pair revives the existing record and keeps its score.
func (s *LiveService) JoinByCode(ctx context.Context, code, participantName, userID string) (domain.JoinResult, error) {
	session, err := s.store.SessionByCode(ctx, code)
	if err != nil {
		return domain.JoinResult{}, err
	}
	if !session.IsActive {
		return domain.JoinResult{}, domain.ErrSessionNotFound
	}

	existing, err := s.store.FindParticipant(ctx, session.ID, userID, participantName)
	if err == nil {
		existing.Name = participantName
		existing.IsConnected = true
		if err := s.store.SaveParticipant(ctx, existing); err != nil {
			return domain.JoinResult{}, err
		}
		return domain.JoinResult{Participant: existing, SessionName: session.Name, Rejoined: true}, nil
	}
	if !errors.Is(err, domain.ErrParticipantNotFound) {
		return domain.JoinResult{}, err
	}

	if session.StartedAt != nil && !session.Settings.AllowLateJoins {
		return domain.JoinResult{}, domain.ErrLateJoinClosed
	}

	count, err := s.store.CountParticipants(ctx, session.ID)
	if err != nil {
		return domain.JoinResult{}, err
	}
	if count >= session.MaxParticipants {
		return domain.JoinResult{}, domain.ErrSessionFull
	}

	participant := domain.Participant{
		ID:          uuid.NewString(),
		SessionID:   session.ID,
		UserID:      userID,
		Name:        participantName,
		Score:       0,
		IsConnected: true,
		JoinedAt:    s.now(),
	}
	if err := s.store.SaveParticipant(ctx, participant); err != nil {
		return domain.JoinResult{}, err
	}
	return domain.JoinResult{Participant: participant, SessionName: session.Name, Rejoined: false}, nil
}

// ConnectParticipant flips the durable connection flag for a participant
// arriving over the live transport. The participant must already exist;
// anonymous ws-only joins go through JoinByCode first.
func (s *LiveService) ConnectParticipant(ctx context.Context, code, participantID string) (domain.Participant, error) {
	session, err := s.store.SessionByCode(ctx, code)
	if err != nil {
		return domain.Participant{}, err
	}
	participant, err := s.store.Participant(ctx, session.ID, participantID)
	if err != nil {
		return domain.Participant{}, err
	}
	if !participant.IsConnected {
		if err := s.store.SetParticipantConnected(ctx, session.ID, participantID, true); err != nil {
			return domain.Participant{}, err
		}
		participant.IsConnected = true
	}
	return participant, nil
}

// SessionByCode exposes session metadata for the REST boundary.
func (s *LiveService) SessionByCode(ctx context.Context, code string) (domain.HostedSession, error) {
	session, err := s.store.SessionByCode(ctx, code)
	if err != nil {
		return domain.HostedSession{}, err
	}
	if !session.IsActive {
		return domain.HostedSession{}, domain.ErrSessionNotFound
	}
	return session, nil
}

// ActiveSessions lists a host's running sessions for their dashboard.
func (s *LiveService) ActiveSessions(ctx context.Context, ownerID string) ([]domain.HostedSession, error) {
	return s.store.ActiveSessionsByOwner(ctx, ownerID)
}

// Room returns the live room for a code, creating it on first use.
func (s *LiveService) Room(code string) *Room {
	return s.rooms.GetOrCreate(code)
}

// ReleaseRoom garbage-collects the room if it is empty and ended.
func (s *LiveService) ReleaseRoom(code string) {
	s.rooms.DeleteIfDisposable(code)
}
