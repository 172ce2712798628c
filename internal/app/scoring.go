package app

import (
	"sort"
	"strings"

	"livequiz-service/internal/domain"
)

// ScoreAnswer checks a submission against the question's correct answer.
// Correctness is a case-insensitive, whitespace-trimmed exact match; the
// question type never changes the comparison. Full points or zero.
func ScoreAnswer(question domain.Question, submitted string) (bool, int) {
	got := strings.ToLower(strings.TrimSpace(submitted))
	want := strings.ToLower(strings.TrimSpace(question.CorrectAnswer))
	if got == "" || got != want {
		return false, 0
	}
	points := question.Points
	if points <= 0 {
		points = domain.DefaultQuestionPoints
	}
	return true, points
}

// Rank orders participants by score descending, ties broken by earliest
// join. Ranks are 1-based and dense. The input is not mutated; repeated
// calls over the same data return the same ordering.
func Rank(participants []domain.Participant) []domain.LeaderboardEntry {
	sorted := make([]domain.Participant, len(participants))
	copy(sorted, participants)

	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Score != sorted[j].Score {
			return sorted[i].Score > sorted[j].Score
		}
		return sorted[i].JoinedAt.Before(sorted[j].JoinedAt)
	})

	entries := make([]domain.LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = domain.LeaderboardEntry{
			Rank:            i + 1,
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			Score:           p.Score,
		}
	}
	return entries
}
