package app

// Event is the tagged message delivered to room connections.
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Event vocabulary shared by broker and transport.
const (
	EventSessionStarted      = "session-started"
	EventSessionEnded        = "session-ended"
	EventQuestionStarted     = "question-started"
	EventQuestionResults     = "question-results"
	EventLeaderboardUpdated  = "leaderboard-updated"
	EventParticipantJoined   = "participant-joined"
	EventParticipantLeft     = "participant-left"
	EventParticipantAnswered = "participant-answered"
	EventSessionParticipants = "session-participants"
	EventAnswerAck           = "answer-ack"
	EventError               = "error"
)

// Conn is one live network connection attached to a room. Send must not
// block the caller; transports buffer writes behind a channel.
type Conn interface {
	Send(event Event)
}
