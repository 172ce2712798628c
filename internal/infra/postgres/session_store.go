package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"livequiz-service/internal/domain"
)

const pgUniqueViolation = "23505"

// SessionStore is the Postgres-backed implementation of app.SessionStore.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

func (s *SessionStore) CreateSession(ctx context.Context, session domain.HostedSession) error {
	settings, err := json.Marshal(session.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	questions, err := json.Marshal(session.QuestionIDs)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO quiz_host_sessions
			(id, session_code, host_user_id, session_name, max_participants,
			 is_active, current_question_index, settings, questions, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		session.ID, session.Code, session.OwnerID, session.Name, session.MaxParticipants,
		session.IsActive, session.CurrentQuestion, settings, questions, session.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionStore) SessionByCode(ctx context.Context, code string) (domain.HostedSession, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, session_code, host_user_id, session_name, max_participants,
		       is_active, current_question_index, settings, questions,
		       created_at, started_at, ended_at
		FROM quiz_host_sessions WHERE session_code = $1`, code)
	return scanSession(row)
}

func (s *SessionStore) UpdateSession(ctx context.Context, session domain.HostedSession) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE quiz_host_sessions
		SET is_active = $2, current_question_index = $3, started_at = $4, ended_at = $5
		WHERE id = $1`,
		session.ID, session.IsActive, session.CurrentQuestion, session.StartedAt, session.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *SessionStore) ActiveSessionsByOwner(ctx context.Context, ownerID string) ([]domain.HostedSession, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, session_code, host_user_id, session_name, max_participants,
		       is_active, current_question_index, settings, questions,
		       created_at, started_at, ended_at
		FROM quiz_host_sessions
		WHERE host_user_id = $1 AND is_active
		ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.HostedSession
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (domain.HostedSession, error) {
	var (
		session            domain.HostedSession
		settings, question []byte
	)
	err := row.Scan(
		&session.ID, &session.Code, &session.OwnerID, &session.Name, &session.MaxParticipants,
		&session.IsActive, &session.CurrentQuestion, &settings, &question,
		&session.CreatedAt, &session.StartedAt, &session.EndedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.HostedSession{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.HostedSession{}, fmt.Errorf("scan session: %w", err)
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &session.Settings); err != nil {
			return domain.HostedSession{}, fmt.Errorf("unmarshal settings: %w", err)
		}
	}
	if len(question) > 0 {
		if err := json.Unmarshal(question, &session.QuestionIDs); err != nil {
			return domain.HostedSession{}, fmt.Errorf("unmarshal questions: %w", err)
		}
	}
	return session, nil
}

func (s *SessionStore) Participant(ctx context.Context, sessionID, participantID string) (domain.Participant, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, host_session_id, COALESCE(user_id, ''), participant_name,
		       current_score, is_connected, joined_at
		FROM quiz_host_participants
		WHERE host_session_id = $1 AND id = $2`, sessionID, participantID)
	return scanParticipant(row)
}

// FindParticipant matches identity first, then display name, deciding
// rejoin-vs-insert for the caller.
func (s *SessionStore) FindParticipant(ctx context.Context, sessionID, userID, name string) (domain.Participant, error) {
	if userID != "" {
		row := s.pool.QueryRow(ctx, `
			SELECT id, host_session_id, COALESCE(user_id, ''), participant_name,
			       current_score, is_connected, joined_at
			FROM quiz_host_participants
			WHERE host_session_id = $1 AND user_id = $2`, sessionID, userID)
		participant, err := scanParticipant(row)
		if err == nil || !errors.Is(err, domain.ErrParticipantNotFound) {
			return participant, err
		}
	}
	row := s.pool.QueryRow(ctx, `
		SELECT id, host_session_id, COALESCE(user_id, ''), participant_name,
		       current_score, is_connected, joined_at
		FROM quiz_host_participants
		WHERE host_session_id = $1 AND participant_name = $2`, sessionID, name)
	return scanParticipant(row)
}

func (s *SessionStore) CountParticipants(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM quiz_host_participants WHERE host_session_id = $1`, sessionID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}
	return count, nil
}

func (s *SessionStore) SaveParticipant(ctx context.Context, p domain.Participant) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO quiz_host_participants
			(id, host_session_id, user_id, participant_name, current_score, is_connected, joined_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE
		SET participant_name = EXCLUDED.participant_name,
		    is_connected = EXCLUDED.is_connected`,
		p.ID, p.SessionID, p.UserID, p.Name, p.Score, p.IsConnected, p.JoinedAt,
	)
	if err != nil {
		return fmt.Errorf("save participant: %w", err)
	}
	return nil
}

func (s *SessionStore) SetParticipantConnected(ctx context.Context, sessionID, participantID string, connected bool) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE quiz_host_participants SET is_connected = $3
		WHERE host_session_id = $1 AND id = $2`, sessionID, participantID, connected)
	if err != nil {
		return fmt.Errorf("set connected: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrParticipantNotFound
	}
	return nil
}

func (s *SessionStore) ListParticipants(ctx context.Context, sessionID string) ([]domain.Participant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, host_session_id, COALESCE(user_id, ''), participant_name,
		       current_score, is_connected, joined_at
		FROM quiz_host_participants
		WHERE host_session_id = $1
		ORDER BY joined_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []domain.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func scanParticipant(row pgx.Row) (domain.Participant, error) {
	var p domain.Participant
	err := row.Scan(&p.ID, &p.SessionID, &p.UserID, &p.Name, &p.Score, &p.IsConnected, &p.JoinedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	if err != nil {
		return domain.Participant{}, fmt.Errorf("scan participant: %w", err)
	}
	return p, nil
}

// RecordAnswer appends the audit record and folds the points into the
// participant's running score in one transaction. The unique index on
// (session, participant, question) enforces one answer per question.
func (s *SessionStore) RecordAnswer(ctx context.Context, rec domain.AnswerRecord) (int, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO quiz_host_answers
			(host_session_id, participant_id, question_id, answer, is_correct, points_earned, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.SessionID, rec.ParticipantID, rec.QuestionID, rec.Answer,
		rec.IsCorrect, rec.PointsEarned, rec.AnsweredAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, domain.ErrDuplicateAnswer
		}
		return 0, fmt.Errorf("append answer: %w", err)
	}

	var total int
	err = tx.QueryRow(ctx, `
		UPDATE quiz_host_participants
		SET current_score = current_score + $3
		WHERE host_session_id = $1 AND id = $2
		RETURNING current_score`,
		rec.SessionID, rec.ParticipantID, rec.PointsEarned,
	).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, domain.ErrParticipantNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("update score: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return total, nil
}
