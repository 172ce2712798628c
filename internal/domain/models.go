package domain

import "time"

// QuestionType distinguishes what the participant UI renders as selectable
// options. Scoring is identical for every type.
type QuestionType string

const (
	QuestionMultipleChoice   QuestionType = "multiple_choice"
	QuestionTrueFalse        QuestionType = "true_false"
	QuestionAudioRecognition QuestionType = "audio_recognition"
)

const (
	DefaultQuestionPoints   = 10
	DefaultTimeLimitSeconds = 30
	DefaultMaxParticipants  = 50
	SessionCodeAttempts     = 10
)

// Question is a single quiz question as loaded from the question bank.
type Question struct {
	ID            string       `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"question"`
	Options       []string     `json:"options,omitempty"`
	AudioURL      string       `json:"audioUrl,omitempty"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Points        int          `json:"points"`
	TimeLimit     int          `json:"timeLimit"` // seconds
}

// Public strips everything a participant must not see before the reveal.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:        q.ID,
		Type:      q.Type,
		Prompt:    q.Prompt,
		Options:   q.Options,
		AudioURL:  q.AudioURL,
		Points:    q.Points,
		TimeLimit: q.TimeLimit,
	}
}

// PublicQuestion is the answer-free view broadcast while collecting.
type PublicQuestion struct {
	ID        string       `json:"id"`
	Type      QuestionType `json:"type"`
	Prompt    string       `json:"question"`
	Options   []string     `json:"options,omitempty"`
	AudioURL  string       `json:"audioUrl,omitempty"`
	Points    int          `json:"points"`
	TimeLimit int          `json:"timeLimit"`
}

// SessionSettings is the host-configurable behavior blob stored with a session.
type SessionSettings struct {
	AutoAdvance     bool `json:"autoAdvance"`
	ShowLeaderboard bool `json:"showLeaderboard"`
	AllowLateJoins  bool `json:"allowLateJoins"`
}

// DefaultSettings mirrors what a freshly created session gets.
func DefaultSettings() SessionSettings {
	return SessionSettings{AutoAdvance: true, ShowLeaderboard: true, AllowLateJoins: true}
}

// HostedSession is the durable record of a live hosted quiz.
type HostedSession struct {
	ID              string          `json:"id"`
	Code            string          `json:"sessionCode"`
	OwnerID         string          `json:"hostUserId"`
	Name            string          `json:"sessionName"`
	MaxParticipants int             `json:"maxParticipants"`
	IsActive        bool            `json:"isActive"`
	CurrentQuestion int             `json:"currentQuestionIndex"`
	Settings        SessionSettings `json:"settings"`
	QuestionIDs     []string        `json:"questions,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	StartedAt       *time.Time      `json:"startedAt,omitempty"`
	EndedAt         *time.Time      `json:"endedAt,omitempty"`
}

// Participant is the durable per-session score holder. Score never decreases
// within a session; rejoining reuses the record instead of resetting it.
type Participant struct {
	ID          string    `json:"participantId"`
	SessionID   string    `json:"sessionId"`
	UserID      string    `json:"userId,omitempty"`
	Name        string    `json:"participantName"`
	Score       int       `json:"score"`
	IsConnected bool      `json:"isConnected"`
	JoinedAt    time.Time `json:"joinedAt"`
}

// AnswerRecord is the append-only audit entry, one per (participant, question).
type AnswerRecord struct {
	SessionID     string    `json:"sessionId"`
	ParticipantID string    `json:"participantId"`
	QuestionID    string    `json:"questionId"`
	Answer        string    `json:"answer"`
	IsCorrect     bool      `json:"isCorrect"`
	PointsEarned  int       `json:"pointsEarned"`
	AnsweredAt    time.Time `json:"answeredAt"`
}

// LeaderboardEntry is one ranked row. Ranks are 1-based and dense.
type LeaderboardEntry struct {
	Rank            int    `json:"rank"`
	ParticipantID   string `json:"participantId"`
	ParticipantName string `json:"participantName"`
	Score           int    `json:"score"`
}

// JoinResult reports whether a join created or revived a participant.
type JoinResult struct {
	Participant Participant `json:"participant"`
	SessionName string      `json:"sessionName"`
	Rejoined    bool        `json:"rejoined"`
}

// RejectReason explains why a submission was refused, so clients can
// distinguish a lost race from a real error.
type RejectReason string

const (
	RejectLate          RejectReason = "late"
	RejectDuplicate     RejectReason = "duplicate"
	RejectSessionEnded  RejectReason = "session-ended"
	RejectNotCollecting RejectReason = "not-collecting"
)

// AnswerOutcome acknowledges a submission back to the submitting connection.
type AnswerOutcome struct {
	QuestionID   string       `json:"questionId"`
	Accepted     bool         `json:"accepted"`
	Reason       RejectReason `json:"reason,omitempty"`
	IsCorrect    bool         `json:"isCorrect"`
	PointsEarned int          `json:"pointsEarned"`
	TotalScore   int          `json:"totalScore"`
}
