package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RD1707/project-recall-sub001/internal/app"
	"github.com/RD1707/project-recall-sub001/internal/config"
	"github.com/RD1707/project-recall-sub001/internal/domain"
	"github.com/RD1707/project-recall-sub001/internal/infra/memory"
	pgloader "github.com/RD1707/project-recall-sub001/internal/infra/postgres"
	redisinfra "github.com/RD1707/project-recall-sub001/internal/infra/redis"
	transport "github.com/RD1707/project-recall-sub001/internal/transport/http"
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
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 30*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.DeckLoader = memory.NewStaticDeckLoader(sampleDecks())
	if pool != nil {
		loader = pgloader.NewDeckLoader(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var source app.QuestionSource
	if redisClient != nil {
		source = redisinfra.NewQuestionSource(redisClient, loader, cacheTTL)
	} else {
		source = memory.NewQuestionSource(loader, cacheTTL)
	}

	var registry app.RoomRegistry
	if redisClient != nil {
		registry = redisinfra.NewRoomRegistry(redisClient, redisTTL)
	} else {
		registry = memory.NewRoomRegistry()
	}

	hub := transport.NewHub()
	service := app.NewQuizService(registry, source, hub, app.Options{
		MaxQuestions: cfg.Quiz.MaxQuestions,
		AdvanceDelay: config.TTLDuration(cfg.Quiz.AdvanceDelay, 4*time.Second),
		FetchTimeout: config.TTLDuration(cfg.Quiz.FetchTimeout, 5*time.Second),
	})
	wsHandler := transport.NewWSHandler(service, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz session service on :%s", finalPort)
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

// sampleDecks provides demo content so the server runs without Postgres;
// swap the loader for the DB-backed one in production.
func sampleDecks() map[string][]domain.Question {
	return map[string][]domain.Question{
		"deck-1": {
			{ID: "q1", Prompt: "What is 2 + 2?", Answer: "4", Kind: "short"},
			{ID: "q2", Prompt: "Capital of France?", Answer: "Paris", Kind: "short"},
			{ID: "q3", Prompt: "Largest planet in the solar system?", Answer: "Jupiter", Options: []string{"Mars", "Jupiter", "Saturn"}, Kind: "choice"},
		},
	}
}
