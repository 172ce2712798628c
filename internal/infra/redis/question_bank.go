package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"livequiz-service/internal/domain"
)

// QuestionLoader fetches question content from a backing store.
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// QuestionBank caches question JSON in Redis and falls back to a loader on
// cache miss. Questions are stored as: SET quiz:question:{id} {json} EX ttl
type QuestionBank struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionBank(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) Question(ctx context.Context, questionID string) (domain.Question, error) {
	key := b.key(questionID)

	if raw, err := b.client.Get(ctx, key).Bytes(); err == nil {
		var question domain.Question
		if err := json.Unmarshal(raw, &question); err == nil {
			return question, nil
		}
	}

	result, err, _ := b.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := b.client.Get(ctx, key).Bytes(); err == nil {
			var question domain.Question
			if err := json.Unmarshal(raw, &question); err == nil {
				return question, nil
			}
		}

		question, err := b.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}

		if raw, err := json.Marshal(question); err == nil {
			_ = b.client.Set(ctx, key, raw, b.ttlWithJitter()).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (b *QuestionBank) key(questionID string) string {
	return fmt.Sprintf("quiz:question:%s", questionID)
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}
