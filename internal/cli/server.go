package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"livequiz-service/internal/app"
	"livequiz-service/internal/config"
	"livequiz-service/internal/domain"
	"livequiz-service/internal/infra/memory"
	pgstore "livequiz-service/internal/infra/postgres"
	redisinfra "livequiz-service/internal/infra/redis"
	transport "livequiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the live quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.QuestionLoader = memory.NewStaticQuestionLoader(sampleQuestions())
	if pool != nil {
		loader = pgstore.NewQuestionLoader(pool)
	}

	questionTTL := config.TTLDuration(cfg.Question.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if redisClient != nil {
		bank = redisinfra.NewQuestionBank(redisClient, loader, questionTTL)
	} else {
		bank = memory.NewQuestionBank(loader, questionTTL)
	}

	var store app.SessionStore
	if pool != nil {
		store = pgstore.NewSessionStore(pool)
	} else {
		store = memory.NewSessionStore()
	}

	var reserver app.CodeReserver
	if redisClient != nil {
		reserver = redisinfra.NewCodeReserver(redisClient, redisTTL)
	}

	registry := memory.NewRoomRegistry(func(code string) *app.Room {
		return app.NewRoom(code, store, bank)
	})
	service := app.NewLiveService(store, bank, registry, reserver)

	wsHandler := transport.NewWSHandler(service)
	apiHandler := transport.NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting live quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleQuestions seeds a minimal bank for running without Postgres.
func sampleQuestions() map[string]domain.Question {
	return map[string]domain.Question{
		"q-bohemian": {
			ID:            "q-bohemian",
			Type:          domain.QuestionMultipleChoice,
			Prompt:        "Which band recorded Bohemian Rhapsody?",
			Options:       []string{"Queen", "The Beatles", "Pink Floyd", "Led Zeppelin"},
			CorrectAnswer: "Queen",
			Explanation:   "Released on A Night at the Opera in 1975.",
			Points:        10,
			TimeLimit:     30,
		},
		"q-truefalse": {
			ID:            "q-truefalse",
			Type:          domain.QuestionTrueFalse,
			Prompt:        "The saxophone is a brass instrument.",
			Options:       []string{"true", "false"},
			CorrectAnswer: "false",
			Explanation:   "It is made of brass but belongs to the woodwind family.",
			Points:        10,
			TimeLimit:     20,
		},
	}
}
