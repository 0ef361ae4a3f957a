package main

import (
	"context"
	"flag"
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
)

func main() {
	pageSize := flag.Int("page-size", 500, "Rows fingerprinted per page")
	flag.Parse()

	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load("configs/.env")
	}

	cfg, err := config.LoadTool()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger := logging.New(cfg.Name+"-backfill", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := app.ConnectPostgres(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer pool.Close()

	repo := repository.NewQuestionRepository(sqlcgen.New(pool))
	_, generator := app.NewQuestionService(cfg.Dedup, repo, logger)

	report, err := question.NewBackfiller(repo, generator, *pageSize, logger).Run(ctx)
	if err != nil {
		logger.Fatal().Err(err).Int("scanned", report.Scanned).Msg("backfill aborted")
	}
	for _, row := range report.Rejected {
		logger.Info().Str("question_id", row.ID).Str("duplicate_of", row.DuplicateOf).Str("reason", row.Reason).Msg("row rejected")
	}
}
