package app

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"livequiz-service/internal/domain"
)

// Phase is the per-session lifecycle state.
type Phase string

const (
	PhaseWaiting Phase = "waiting"
	PhaseActive  Phase = "active"
	PhaseEnded   Phase = "ended"
)

// QuestionPhase is the sub-state of the current question while active.
type QuestionPhase string

const (
	QuestionIdle       QuestionPhase = "idle"
	QuestionCollecting QuestionPhase = "collecting"
	QuestionRevealed   QuestionPhase = "revealed"
	QuestionRanked     QuestionPhase = "ranked"
)

// QuestionRuntime exists only while a question is live. It is replaced
// wholesale when the host advances.
type QuestionRuntime struct {
	Index     int
	Question  domain.Question
	TimeLimit int
	StartedAt time.Time
}

// Room owns the live state for one session code: the connection set, the
// lifecycle state machine, and the auto-reveal timer. Every command locks
// the room mutex for its full duration, including store I/O, so events are
// observed in a single consistent order per room while different rooms
// proceed in parallel. Scores live in the store, never only here.
type Room struct {
	code  string
	store SessionStore
	bank  QuestionBank
	now   func() time.Time

	mu       sync.Mutex
	conns    map[Conn]struct{}
	loaded   bool
	session  domain.HostedSession
	phase    Phase
	qphase   QuestionPhase
	current  *QuestionRuntime
	answered map[string]bool

	timer      *time.Timer
	timerIndex int
}

// NewRoom builds a room for a session code. Session state loads lazily
// from the store on the first command.
func NewRoom(code string, store SessionStore, bank QuestionBank) *Room {
	return NewRoomWithClock(code, store, bank, time.Now)
}

// NewRoomWithClock allows deterministic timestamps in tests.
func NewRoomWithClock(code string, store SessionStore, bank QuestionBank, now func() time.Time) *Room {
	return &Room{
		code:     code,
		store:    store,
		bank:     bank,
		now:      now,
		conns:    make(map[Conn]struct{}),
		phase:    PhaseWaiting,
		qphase:   QuestionIdle,
		answered: make(map[string]bool),
	}
}

// Code returns the session code this room serves.
func (r *Room) Code() string { return r.code }

// Join subscribes a connection to the room. Joining twice is a no-op on
// membership but re-triggers the participant snapshot, so a reconnecting
// client always ends up consistent.
func (r *Room) Join(ctx context.Context, conn Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return err
	}
	r.conns[conn] = struct{}{}

	participants, err := r.store.ListParticipants(ctx, r.session.ID)
	if err != nil {
		return err
	}
	if len(participants) > 0 {
		conn.Send(Event{Type: EventSessionParticipants, Data: participants})
	}
	return nil
}

// Leave drops a connection from the membership set. Durable participant
// state is untouched; that is the explicit participant-leave command.
func (r *Room) Leave(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.conns, conn)
}

// Disposable reports whether the registry may garbage-collect this room.
func (r *Room) Disposable() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns) == 0 && r.phase == PhaseEnded
}

// StartSession flips the session live, stamps startedAt, and if questions
// are configured immediately starts collecting answers for question 0.
func (r *Room) StartSession(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return err
	}
	switch r.phase {
	case PhaseEnded:
		return domain.ErrSessionEnded
	case PhaseActive:
		return domain.ErrInvalidTransition
	}

	now := r.now()
	r.session.IsActive = true
	r.session.StartedAt = &now
	if err := r.store.UpdateSession(ctx, r.session); err != nil {
		return err
	}
	r.phase = PhaseActive
	r.qphase = QuestionIdle
	r.answered = make(map[string]bool)

	r.broadcastLocked(Event{Type: EventSessionStarted, Data: sessionStartedPayload{
		SessionCode: r.session.Code,
		SessionName: r.session.Name,
	}})

	if len(r.session.QuestionIDs) > 0 {
		return r.startQuestionLocked(ctx, 0)
	}
	return nil
}

// NextQuestion advances to the next configured question. Only valid once
// the current question has been revealed (or ranked).
func (r *Room) NextQuestion(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return err
	}
	if r.phase == PhaseEnded {
		return domain.ErrSessionEnded
	}
	if r.phase != PhaseActive || (r.qphase != QuestionRevealed && r.qphase != QuestionRanked) {
		return domain.ErrInvalidTransition
	}
	next := r.session.CurrentQuestion + 1
	if next >= len(r.session.QuestionIDs) {
		return domain.ErrNoMoreQuestions
	}
	return r.startQuestionLocked(ctx, next)
}

func (r *Room) startQuestionLocked(ctx context.Context, index int) error {
	question, err := r.bank.Question(ctx, r.session.QuestionIDs[index])
	if err != nil {
		return err
	}

	r.session.CurrentQuestion = index
	if err := r.store.UpdateSession(ctx, r.session); err != nil {
		return err
	}

	limit := question.TimeLimit
	if limit <= 0 {
		limit = domain.DefaultTimeLimitSeconds
	}
	started := r.now()
	r.current = &QuestionRuntime{
		Index:     index,
		Question:  question,
		TimeLimit: limit,
		StartedAt: started,
	}
	r.answered = make(map[string]bool)
	r.qphase = QuestionCollecting

	r.stopTimerLocked()
	r.timerIndex = index
	r.timer = time.AfterFunc(time.Duration(limit)*time.Second, func() {
		r.autoReveal(index)
	})

	r.broadcastLocked(Event{Type: EventQuestionStarted, Data: questionStartedPayload{
		Question:  question.Public(),
		TimeLimit: limit,
		StartTime: started.UnixMilli(),
	}})
	return nil
}

// autoReveal fires when the countdown elapses. The index tag guards
// against a stale timer revealing a question the room has moved past.
func (r *Room) autoReveal(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.qphase != QuestionCollecting || r.current == nil || r.current.Index != index {
		return
	}
	if err := r.revealLocked(context.Background()); err != nil {
		log.Printf("room %s: auto reveal question %d: %v", r.code, index, err)
	}
}

// Reveal closes answer collection for the current question and broadcasts
// the correct answer. Participants who never answered get a zero-point
// record so the question is settled for everyone.
func (r *Room) Reveal(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return err
	}
	if r.phase == PhaseEnded {
		return domain.ErrSessionEnded
	}
	if r.qphase != QuestionCollecting || r.current == nil {
		return domain.ErrInvalidTransition
	}
	return r.revealLocked(ctx)
}

func (r *Room) revealLocked(ctx context.Context) error {
	r.stopTimerLocked()

	participants, err := r.store.ListParticipants(ctx, r.session.ID)
	if err != nil {
		return err
	}
	now := r.now()
	for _, p := range participants {
		if r.answered[p.ID] {
			continue
		}
		_, err := r.store.RecordAnswer(ctx, domain.AnswerRecord{
			SessionID:     r.session.ID,
			ParticipantID: p.ID,
			QuestionID:    r.current.Question.ID,
			Answer:        "",
			IsCorrect:     false,
			PointsEarned:  0,
			AnsweredAt:    now,
		})
		if err != nil && !errors.Is(err, domain.ErrDuplicateAnswer) {
			return err
		}
		r.answered[p.ID] = true
	}

	r.qphase = QuestionRevealed
	r.broadcastLocked(Event{Type: EventQuestionResults, Data: questionResultsPayload{
		CorrectAnswer: r.current.Question.CorrectAnswer,
		Explanation:   r.current.Question.Explanation,
	}})
	return nil
}

// ShowLeaderboard recomputes ranked standings from the store and
// broadcasts them. Only valid after a reveal.
func (r *Room) ShowLeaderboard(ctx context.Context) ([]domain.LeaderboardEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return nil, err
	}
	if r.phase == PhaseEnded {
		return nil, domain.ErrSessionEnded
	}
	if r.qphase != QuestionRevealed {
		return nil, domain.ErrInvalidTransition
	}

	participants, err := r.store.ListParticipants(ctx, r.session.ID)
	if err != nil {
		return nil, err
	}
	leaderboard := Rank(participants)
	r.qphase = QuestionRanked
	r.broadcastLocked(Event{Type: EventLeaderboardUpdated, Data: leaderboard})
	return leaderboard, nil
}

// EndSession terminates the session. Terminal: nothing transitions out of
// ended, and session-ended broadcasts exactly once.
func (r *Room) EndSession(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return err
	}
	if r.phase == PhaseEnded {
		return domain.ErrSessionEnded
	}

	r.stopTimerLocked()
	now := r.now()
	r.session.IsActive = false
	r.session.EndedAt = &now
	if err := r.store.UpdateSession(ctx, r.session); err != nil {
		return err
	}
	r.phase = PhaseEnded
	r.current = nil

	r.broadcastLocked(Event{Type: EventSessionEnded, Data: sessionEndedPayload{
		SessionCode: r.session.Code,
	}})
	return nil
}

// SubmitAnswer scores a participant's submission. Rejections come back in
// the outcome with a reason; errors are reserved for store/bank failures.
// The raw answer relays to everyone except the submitter, so the host view
// sees it before the reveal without leaking it to other participants.
func (r *Room) SubmitAnswer(ctx context.Context, src Conn, participantID, questionID, answer string) (domain.AnswerOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return domain.AnswerOutcome{}, err
	}

	outcome := domain.AnswerOutcome{QuestionID: questionID}
	if r.phase == PhaseEnded {
		outcome.Reason = domain.RejectSessionEnded
		return outcome, nil
	}
	if r.current == nil || r.qphase == QuestionIdle {
		outcome.Reason = domain.RejectNotCollecting
		return outcome, nil
	}
	if r.qphase != QuestionCollecting || questionID != r.current.Question.ID {
		outcome.Reason = domain.RejectLate
		return outcome, nil
	}
	if r.answered[participantID] {
		outcome.Reason = domain.RejectDuplicate
		return outcome, nil
	}

	participant, err := r.store.Participant(ctx, r.session.ID, participantID)
	if err != nil {
		return domain.AnswerOutcome{}, err
	}

	correct, points := ScoreAnswer(r.current.Question, answer)
	now := r.now()
	total, err := r.store.RecordAnswer(ctx, domain.AnswerRecord{
		SessionID:     r.session.ID,
		ParticipantID: participant.ID,
		QuestionID:    questionID,
		Answer:        answer,
		IsCorrect:     correct,
		PointsEarned:  points,
		AnsweredAt:    now,
	})
	if errors.Is(err, domain.ErrDuplicateAnswer) {
		r.answered[participantID] = true
		outcome.Reason = domain.RejectDuplicate
		return outcome, nil
	}
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	r.answered[participantID] = true

	r.relayLocked(src, Event{Type: EventParticipantAnswered, Data: participantAnsweredPayload{
		ParticipantID: participant.ID,
		QuestionID:    questionID,
		Answer:        answer,
		IsCorrect:     correct,
		PointsEarned:  points,
		Timestamp:     now.UnixMilli(),
	}})

	outcome.Accepted = true
	outcome.IsCorrect = correct
	outcome.PointsEarned = points
	outcome.TotalScore = total
	return outcome, nil
}

// AnnounceJoin broadcasts a participant's arrival to the room.
func (r *Room) AnnounceJoin(ctx context.Context, participant domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return err
	}
	r.broadcastLocked(Event{Type: EventParticipantJoined, Data: participantPresencePayload{
		ParticipantID:   participant.ID,
		ParticipantName: participant.Name,
		Timestamp:       r.now().UnixMilli(),
	}})
	return nil
}

// ParticipantLeave marks a participant disconnected in the store and
// broadcasts the departure. Distinct from a transport-level drop, which
// only removes the dead connection from membership.
func (r *Room) ParticipantLeave(ctx context.Context, participantID, participantName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.ensureLocked(ctx); err != nil {
		return err
	}
	if err := r.store.SetParticipantConnected(ctx, r.session.ID, participantID, false); err != nil {
		return err
	}
	r.broadcastLocked(Event{Type: EventParticipantLeft, Data: participantPresencePayload{
		ParticipantID:   participantID,
		ParticipantName: participantName,
		Timestamp:       r.now().UnixMilli(),
	}})
	return nil
}

// Phase returns the lifecycle state, for transports that surface it.
func (r *Room) Phase() (Phase, QuestionPhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase, r.qphase
}

func (r *Room) ensureLocked(ctx context.Context) error {
	if r.loaded {
		return nil
	}
	session, err := r.store.SessionByCode(ctx, r.code)
	if err != nil {
		return err
	}
	r.session = session
	r.loaded = true
	switch {
	case !session.IsActive || session.EndedAt != nil:
		r.phase = PhaseEnded
	case session.StartedAt != nil:
		r.phase = PhaseActive
	default:
		r.phase = PhaseWaiting
	}
	return nil
}

func (r *Room) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Room) broadcastLocked(event Event) {
	for conn := range r.conns {
		conn.Send(event)
	}
}

func (r *Room) relayLocked(src Conn, event Event) {
	for conn := range r.conns {
		if conn == src {
			continue
		}
		conn.Send(event)
	}
}

type sessionStartedPayload struct {
	SessionCode string `json:"sessionCode"`
	SessionName string `json:"sessionName"`
}

type sessionEndedPayload struct {
	SessionCode string `json:"sessionCode"`
}

type questionStartedPayload struct {
	Question  domain.PublicQuestion `json:"question"`
	TimeLimit int                   `json:"timeLimit"`
	StartTime int64                 `json:"startTime"`
}

type questionResultsPayload struct {
	CorrectAnswer string `json:"correct_answer"`
	Explanation   string `json:"explanation,omitempty"`
}

type participantPresencePayload struct {
	ParticipantID   string `json:"participantId"`
	ParticipantName string `json:"participantName"`
	Timestamp       int64  `json:"timestamp"`
}

type participantAnsweredPayload struct {
	ParticipantID string `json:"participantId"`
	QuestionID    string `json:"questionId"`
	Answer        string `json:"answer"`
	IsCorrect     bool   `json:"isCorrect"`
	PointsEarned  int    `json:"pointsEarned"`
	Timestamp     int64  `json:"timestamp"`
}
