package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

func seedSession(t *testing.T, store *memory.SessionStore) domain.HostedSession {
	t.Helper()
	session := domain.HostedSession{
		ID:              "sess-1",
		Code:            "654321",
		OwnerID:         "host-1",
		Name:            "Trivia Night",
		MaxParticipants: 10,
		IsActive:        true,
		Settings:        domain.DefaultSettings(),
		CreatedAt:       time.Now(),
	}
	if err := store.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return session
}

func TestSessionStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := seedSession(t, store)

	got, err := store.SessionByCode(ctx, session.Code)
	if err != nil || got.ID != session.ID {
		t.Fatalf("lookup: %+v, %v", got, err)
	}
	if _, err := store.SessionByCode(ctx, "000000"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	now := time.Now()
	got.IsActive = false
	got.EndedAt = &now
	if err := store.UpdateSession(ctx, got); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, err := store.SessionByCode(ctx, session.Code)
	if err != nil || updated.IsActive || updated.EndedAt == nil {
		t.Fatalf("update not visible: %+v, %v", updated, err)
	}

	if err := store.UpdateSession(ctx, domain.HostedSession{Code: "000000"}); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found on phantom update, got %v", err)
	}
}

func TestSessionStoreParticipants(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := seedSession(t, store)

	alex := domain.Participant{
		ID: "p1", SessionID: session.ID, UserID: "user-7", Name: "Alex",
		IsConnected: true, JoinedAt: time.Now(),
	}
	bea := domain.Participant{
		ID: "p2", SessionID: session.ID, Name: "Bea",
		IsConnected: true, JoinedAt: time.Now(),
	}
	for _, p := range []domain.Participant{alex, bea} {
		if err := store.SaveParticipant(ctx, p); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	if n, _ := store.CountParticipants(ctx, session.ID); n != 2 {
		t.Fatalf("count = %d, want 2", n)
	}

	// Identity wins over name: a stable user id finds the record even
	// after a display-name change.
	found, err := store.FindParticipant(ctx, session.ID, "user-7", "Somebody Else")
	if err != nil || found.ID != "p1" {
		t.Fatalf("find by user id: %+v, %v", found, err)
	}
	found, err = store.FindParticipant(ctx, session.ID, "", "Bea")
	if err != nil || found.ID != "p2" {
		t.Fatalf("find by name: %+v, %v", found, err)
	}
	if _, err := store.FindParticipant(ctx, session.ID, "", "Nobody"); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := store.SetParticipantConnected(ctx, session.ID, "p1", false); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	p1, err := store.Participant(ctx, session.ID, "p1")
	if err != nil || p1.IsConnected {
		t.Fatalf("disconnect not visible: %+v, %v", p1, err)
	}
	if err := store.SetParticipantConnected(ctx, session.ID, "missing", false); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	// Saving an existing id replaces the record rather than appending.
	alex.Name = "Alexandra"
	if err := store.SaveParticipant(ctx, alex); err != nil {
		t.Fatalf("resave: %v", err)
	}
	if n, _ := store.CountParticipants(ctx, session.ID); n != 2 {
		t.Fatalf("resave duplicated: count = %d", n)
	}
}

func TestSessionStoreRecordAnswer(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	session := seedSession(t, store)

	p := domain.Participant{ID: "p1", SessionID: session.ID, Name: "Alex", JoinedAt: time.Now()}
	if err := store.SaveParticipant(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}

	total, err := store.RecordAnswer(ctx, domain.AnswerRecord{
		SessionID: session.ID, ParticipantID: "p1", QuestionID: "q1",
		Answer: "Queen", IsCorrect: true, PointsEarned: 10, AnsweredAt: time.Now(),
	})
	if err != nil || total != 10 {
		t.Fatalf("first answer: total %d, err %v", total, err)
	}

	_, err = store.RecordAnswer(ctx, domain.AnswerRecord{
		SessionID: session.ID, ParticipantID: "p1", QuestionID: "q1",
		Answer: "Queen", IsCorrect: true, PointsEarned: 10, AnsweredAt: time.Now(),
	})
	if !errors.Is(err, domain.ErrDuplicateAnswer) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	got, err := store.Participant(ctx, session.ID, "p1")
	if err != nil || got.Score != 10 {
		t.Fatalf("duplicate changed score: %+v, %v", got, err)
	}

	total, err = store.RecordAnswer(ctx, domain.AnswerRecord{
		SessionID: session.ID, ParticipantID: "p1", QuestionID: "q2",
		PointsEarned: 5, AnsweredAt: time.Now(),
	})
	if err != nil || total != 15 {
		t.Fatalf("second question: total %d, err %v", total, err)
	}

	if _, err := store.RecordAnswer(ctx, domain.AnswerRecord{
		SessionID: session.ID, ParticipantID: "ghost", QuestionID: "q1",
	}); !errors.Is(err, domain.ErrParticipantNotFound) {
		t.Fatalf("expected not found for ghost, got %v", err)
	}

	if records := store.Answers(session.ID); len(records) != 2 {
		t.Fatalf("audit log has %d records, want 2", len(records))
	}
}

func TestActiveSessionsByOwner(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	seedSession(t, store)

	ended := time.Now()
	other := domain.HostedSession{
		ID: "sess-2", Code: "111111", OwnerID: "host-1", Name: "Old Quiz",
		IsActive: false, EndedAt: &ended, CreatedAt: time.Now(),
	}
	if err := store.CreateSession(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	sessions, err := store.ActiveSessionsByOwner(ctx, "host-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != "sess-1" {
		t.Fatalf("unexpected listing: %+v", sessions)
	}
}
