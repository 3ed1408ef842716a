package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"liveclass-quiz-service/internal/app"
	"liveclass-quiz-service/internal/config"
	"liveclass-quiz-service/internal/infra/memory"
	infrapg "liveclass-quiz-service/internal/infra/postgres"
	infraredis "liveclass-quiz-service/internal/infra/redis"
	transport "liveclass-quiz-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz session server",
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
	persistTTL := config.Duration(cfg.Redis.PersistTTL, time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var questionRepo app.QuestionRepository = memory.NewQuestionRepository()
	var progressRepo app.ProgressRepository = memory.NewProgressRepository()
	if pool != nil {
		questionRepo = infrapg.NewQuestionRepository(pool)
		progressRepo = infrapg.NewProgressRepository(pool)
	}

	cacheTTL := config.Duration(cfg.Quiz.CacheTTL, 10*time.Minute)
	if redisClient != nil {
		questionRepo = infraredis.NewCachedQuestionRepository(redisClient, questionRepo, cacheTTL)
	} else {
		questionRepo = memory.NewCachedQuestionRepository(questionRepo, cacheTTL)
	}

	var sessionTransport app.Transport
	if redisClient != nil {
		sessionTransport = infraredis.NewTransport(redisClient, persistTTL)
	} else {
		sessionTransport = memory.NewTransport()
	}

	store := app.NewQuestionStore(questionRepo)
	ledger := app.NewProgressLedger(progressRepo)
	publisher := app.NewPublisher(store, sessionTransport)
	answerWindow := config.Duration(cfg.Quiz.AnswerWindow, app.DefaultAnswerWindow)
	sessionHandler := transport.NewSessionHandler(publisher, ledger, sessionTransport, answerWindow)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", sessionHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session server on :%s", finalPort)
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
