package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"livequiz-service/internal/domain"
)

// QuestionLoader fetches question content from a backing store.
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.Question, error)
}

// QuestionBank caches questions with TTL to avoid repeated store hits
// while a question is live.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestion),
	}
}

func (b *QuestionBank) Question(ctx context.Context, questionID string) (domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if entry, ok := b.cache[questionID]; ok && entry.expiresAt.After(now) {
		b.mu.RUnlock()
		return entry.question, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do(questionID, func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if entry, ok := b.cache[questionID]; ok && entry.expiresAt.After(now) {
			b.mu.RUnlock()
			return entry.question, nil
		}
		b.mu.RUnlock()

		question, err := b.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}

		b.mu.Lock()
		b.cache[questionID] = cachedQuestion{
			question:  question,
			expiresAt: now.Add(b.ttlWithJitter()),
		}
		b.mu.Unlock()
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves questions from an in-memory map (tests/demos).
type StaticQuestionLoader struct {
	questions map[string]domain.Question
}

func NewStaticQuestionLoader(questions map[string]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestion(_ context.Context, questionID string) (domain.Question, error) {
	if question, ok := l.questions[questionID]; ok {
		return question, nil
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}
