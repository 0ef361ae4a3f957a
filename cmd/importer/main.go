package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/gokatarajesh/quiz-delivery/internal/app"
	"github.com/gokatarajesh/quiz-delivery/internal/config"
	"github.com/gokatarajesh/quiz-delivery/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/quiz-delivery/internal/db/sqlc"
	"github.com/gokatarajesh/quiz-delivery/internal/logging"
	"github.com/gokatarajesh/quiz-delivery/internal/question"
	"github.com/gokatarajesh/quiz-delivery/internal/question/external"
)

func main() {
	var (
		amount          = flag.Int("amount", 20, "Questions to request from each provider (max 50)")
		difficulty      = flag.String("difficulty", "", "easy, medium or hard; empty for any")
		opentdbCategory = flag.String("opentdb-category", "", "OpenTDB numeric category id")
		triviaCategory  = flag.String("trivia-category", "", "The Trivia API category slug")
		skipOpenTDB     = flag.Bool("skip-opentdb", false, "Do not query OpenTDB")
		skipTrivia      = flag.Bool("skip-trivia", false, "Do not query The Trivia API")
	)
	flag.Parse()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	cfg, err := config.LoadTool()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.Name+"-importer", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := app.ConnectPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	repo := repository.NewQuestionRepository(sqlcgen.New(pool))
	svc, _ := app.NewQuestionService(cfg.Dedup, repo, logger)

	httpClient := &http.Client{Timeout: cfg.Import.HTTPTimeout}
	var (
		otdb   question.OpenTDBSource
		trivia question.TriviaSource
	)
	if !*skipOpenTDB {
		otdb = external.NewOpenTDBClient(cfg.Import.OpenTDBBaseURL, httpClient)
	}
	if !*skipTrivia {
		trivia = external.NewTriviaAPIClient(cfg.Import.TriviaAPIBaseURL, cfg.Import.TriviaAPIKey, httpClient)
	}

	importer := question.NewImporter(svc, otdb, trivia, logger)
	report, err := importer.Run(ctx, question.ImportRequest{
		Amount:          *amount,
		Difficulty:      *difficulty,
		OpenTDBCategory: *opentdbCategory,
		TriviaCategory:  *triviaCategory,
	})
	if err != nil {
		logger.Fatal().Err(err).Interface("report", report).Msg("import aborted")
	}
	logger.Info().Interface("report", report).Msg("import complete")
}
