package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
)

type countingLoader struct {
	memory.QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestion(ctx context.Context, questionID string) (domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestion(ctx, questionID)
}

func sampleQuestion() domain.Question {
	return domain.Question{
		ID:            "q1",
		Type:          domain.QuestionMultipleChoice,
		Prompt:        "Which band recorded Bohemian Rhapsody?",
		Options:       []string{"Queen", "The Beatles"},
		CorrectAnswer: "Queen",
		Explanation:   "Released in 1975.",
		Points:        10,
		TimeLimit:     30,
	}
}

func newClient(mr *miniredis.Miniredis) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
}

func TestQuestionBankCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string]domain.Question{
			"q1": sampleQuestion(),
		}),
	}
	bank := NewQuestionBank(newClient(mr), loader, time.Minute)

	question, err := bank.Question(context.Background(), "q1")
	if err != nil {
		t.Fatalf("question: %v", err)
	}
	if question.CorrectAnswer != "Queen" {
		t.Fatalf("unexpected question: %+v", question)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	if _, err := bank.Question(context.Background(), "q1"); err != nil {
		t.Fatalf("cached question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}

	if !mr.Exists("quiz:question:q1") {
		t.Fatalf("expected quiz:question:q1 key in redis")
	}
}

func TestQuestionBankReloadsAfterExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string]domain.Question{
			"q1": sampleQuestion(),
		}),
	}
	bank := NewQuestionBank(newClient(mr), loader, time.Minute)

	if _, err := bank.Question(context.Background(), "q1"); err != nil {
		t.Fatalf("question: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if _, err := bank.Question(context.Background(), "q1"); err != nil {
		t.Fatalf("question after expiry: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}
}

func TestQuestionBankPropagatesLoaderMiss(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	bank := NewQuestionBank(newClient(mr), memory.NewStaticQuestionLoader(nil), time.Minute)
	if _, err := bank.Question(context.Background(), "missing"); err != domain.ErrQuestionNotFound {
		t.Fatalf("expected question not found, got %v", err)
	}
}

func TestCodeReserverClaimsOnce(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	reserver := NewCodeReserver(newClient(mr), time.Minute)

	ok, err := reserver.Reserve(context.Background(), "483920")
	if err != nil || !ok {
		t.Fatalf("first reserve: ok=%v err=%v", ok, err)
	}
	ok, err = reserver.Reserve(context.Background(), "483920")
	if err != nil || ok {
		t.Fatalf("second reserve must fail: ok=%v err=%v", ok, err)
	}

	// Reservations expire so abandoned codes return to the pool.
	mr.FastForward(2 * time.Minute)
	ok, err = reserver.Reserve(context.Background(), "483920")
	if err != nil || !ok {
		t.Fatalf("reserve after expiry: ok=%v err=%v", ok, err)
	}
}
