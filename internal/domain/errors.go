package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a code does not resolve to an active session.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionEnded is returned for commands against a terminated session.
	ErrSessionEnded = errors.New("session has ended")
	// ErrSessionFull is returned when the participant count is at capacity.
	ErrSessionFull = errors.New("session is full")
	// ErrLateJoinClosed is returned when joins after start are disabled.
	ErrLateJoinClosed = errors.New("session is not accepting late joins")
	// ErrParticipantNotFound is returned when a user acts before joining.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrQuestionNotFound indicates the question bank cannot resolve an ID.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrDuplicateAnswer indicates a second submission for the same question.
	ErrDuplicateAnswer = errors.New("question already answered")
	// ErrInvalidTransition indicates a host command the current state forbids.
	ErrInvalidTransition = errors.New("command not valid in current state")
	// ErrNoMoreQuestions indicates advance past the configured question list.
	ErrNoMoreQuestions = errors.New("no next question")
	// ErrCodeExhausted is fatal to session creation only.
	ErrCodeExhausted = errors.New("unable to generate unique session code")
)
