package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-duel-service/internal/app"
	"quiz-duel-service/internal/config"
	"quiz-duel-service/internal/domain"
	"quiz-duel-service/internal/infra/memory"
	"quiz-duel-service/internal/infra/postgres"
	rediscache "quiz-duel-service/internal/infra/redis"
	"quiz-duel-service/internal/logger"
	"quiz-duel-service/internal/monitoring"
	transport "quiz-duel-service/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game server",
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
	log, err := logger.New(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer log.Sync()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var (
		games   app.GameStore
		players app.PlayerDirectory
		bank    app.QuestionBank
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
		db := postgres.Open(cfg.Postgres.URL)
		defer db.Close()
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pool.Close()

		games = postgres.NewGameStore(db)
		players = postgres.NewPlayerDirectory(pool)
		bank = postgres.NewQuestionBank(pool)
	} else {
		log.Warn("postgres url not configured, using in-memory store with demo data")
		games = memory.NewGameStore()
		players = memory.NewPlayerDirectory(demoPlayers()...)
		bank = memory.NewStaticQuestionBank(demoQuestions()...)
	}

	cacheTTL := config.TTLDuration(cfg.Questions.CacheTTL, time.Minute)
	var questions app.QuestionBank
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		if err := rediscache.Ping(ctx, client); err != nil {
			return err
		}
		questions = rediscache.NewQuestionCache(client, bank, cacheTTL)
	} else {
		questions = memory.NewQuestionCache(bank, cacheTTL)
	}

	metrics := monitoring.NewMetrics()
	service := app.NewGameService(games, players, questions,
		app.WithRetries(cfg.Retries(3), config.TTLDuration(cfg.Game.RetryBase, 5*time.Millisecond)),
		app.WithLogger(log.Named("game")),
		app.WithMetrics(metrics),
	)
	handler := transport.NewHandler(service, metrics, log.Named("http"))

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler.Routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting quiz duel service", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// demoPlayers and demoQuestions back the in-memory mode.
func demoPlayers() []domain.Player {
	return []domain.Player{
		{ID: "player-1", DisplayName: "Ada"},
		{ID: "player-2", DisplayName: "Linus"},
		{ID: "player-3", DisplayName: "Grace"},
		{ID: "player-4", DisplayName: "Ken"},
	}
}

func demoQuestions() []memory.StaticQuestion {
	raw := []domain.Question{
		{ID: "q-1", Body: "What is 2 + 2?", AcceptedAnswers: []string{"4", "four"}},
		{ID: "q-2", Body: "Capital of France?", AcceptedAnswers: []string{"Paris"}},
		{ID: "q-3", Body: "How many continents are there?", AcceptedAnswers: []string{"7", "seven"}},
		{ID: "q-4", Body: "Chemical symbol for gold?", AcceptedAnswers: []string{"Au"}},
		{ID: "q-5", Body: "Largest planet in the solar system?", AcceptedAnswers: []string{"Jupiter"}},
		{ID: "q-6", Body: "Who wrote Hamlet?", AcceptedAnswers: []string{"Shakespeare", "William Shakespeare"}},
		{ID: "q-7", Body: "Boiling point of water in Celsius?", AcceptedAnswers: []string{"100"}},
	}
	out := make([]memory.StaticQuestion, 0, len(raw))
	for _, q := range raw {
		out = append(out, memory.StaticQuestion{Question: q, Published: true})
	}
	return out
}
