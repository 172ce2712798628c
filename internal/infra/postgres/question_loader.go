package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"livequiz-service/internal/domain"
)

// QuestionLoader loads question content from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	var (
		q       domain.Question
		options []byte
	)
	err := l.pool.QueryRow(ctx, `
		SELECT id, type, question, COALESCE(audio_url, ''), options,
		       correct_answer, COALESCE(explanation, ''), points, time_limit
		FROM quiz_questions WHERE id = $1 AND is_active`, questionID,
	).Scan(&q.ID, &q.Type, &q.Prompt, &q.AudioURL, &options,
		&q.CorrectAnswer, &q.Explanation, &q.Points, &q.TimeLimit)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &q.Options); err != nil {
			return domain.Question{}, fmt.Errorf("unmarshal options: %w", err)
		}
	}
	return q, nil
}
