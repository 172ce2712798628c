package app_test

import (
	"testing"
	"time"

	"livequiz-service/internal/app"
	"livequiz-service/internal/domain"
)

func TestScoreAnswerMatchesCaseInsensitive(t *testing.T) {
	question := domain.Question{
		ID:            "q1",
		Type:          domain.QuestionMultipleChoice,
		CorrectAnswer: "Queen",
		Points:        10,
	}

	cases := []struct {
		submitted string
		correct   bool
		points    int
	}{
		{"Queen", true, 10},
		{"queen", true, 10},
		{"  QUEEN  ", true, 10},
		{"Beatles", false, 0},
		{"", false, 0},
		{"Quee", false, 0},
	}
	for _, tc := range cases {
		correct, points := app.ScoreAnswer(question, tc.submitted)
		if correct != tc.correct || points != tc.points {
			t.Fatalf("ScoreAnswer(%q) = (%v, %d), want (%v, %d)",
				tc.submitted, correct, points, tc.correct, tc.points)
		}
	}
}

func TestScoreAnswerIgnoresQuestionType(t *testing.T) {
	for _, typ := range []domain.QuestionType{
		domain.QuestionMultipleChoice,
		domain.QuestionTrueFalse,
		domain.QuestionAudioRecognition,
	} {
		question := domain.Question{ID: "q1", Type: typ, CorrectAnswer: "false", Points: 5}
		correct, points := app.ScoreAnswer(question, "FALSE ")
		if !correct || points != 5 {
			t.Fatalf("type %s: got (%v, %d), want (true, 5)", typ, correct, points)
		}
	}
}

func TestScoreAnswerDefaultsPoints(t *testing.T) {
	question := domain.Question{ID: "q1", CorrectAnswer: "yes"}
	correct, points := app.ScoreAnswer(question, "yes")
	if !correct || points != domain.DefaultQuestionPoints {
		t.Fatalf("got (%v, %d), want (true, %d)", correct, points, domain.DefaultQuestionPoints)
	}
}

func TestRankOrdersByScoreThenJoinTime(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	participants := []domain.Participant{
		{ID: "p2", Name: "Bea", Score: 10, JoinedAt: base.Add(time.Minute)},
		{ID: "p3", Name: "Cal", Score: 20, JoinedAt: base.Add(2 * time.Minute)},
		{ID: "p1", Name: "Alex", Score: 10, JoinedAt: base},
	}

	entries := app.Rank(participants)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	wantOrder := []string{"p3", "p1", "p2"}
	for i, want := range wantOrder {
		if entries[i].ParticipantID != want {
			t.Fatalf("position %d: got %s, want %s", i, entries[i].ParticipantID, want)
		}
		if entries[i].Rank != i+1 {
			t.Fatalf("position %d: rank %d, want %d", i, entries[i].Rank, i+1)
		}
	}
}

func TestRankIsDeterministicAndPure(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	participants := []domain.Participant{
		{ID: "p1", Name: "Alex", Score: 10, JoinedAt: base},
		{ID: "p2", Name: "Bea", Score: 10, JoinedAt: base.Add(time.Second)},
	}

	first := app.Rank(participants)
	second := app.Rank(participants)
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeated calls disagree at %d: %+v vs %+v", i, first[i], second[i])
		}
	}
	// Tie goes to the earlier joiner.
	if first[0].ParticipantID != "p1" || first[1].ParticipantID != "p2" {
		t.Fatalf("tie-break wrong: %+v", first)
	}
	// Input order must be untouched.
	if participants[0].ID != "p1" || participants[1].ID != "p2" {
		t.Fatalf("input mutated: %+v", participants)
	}
}
