package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/quiz-delivery/internal/antirepeat"
	"github.com/gokatarajesh/quiz-delivery/internal/auth"
	"github.com/gokatarajesh/quiz-delivery/internal/auth/jwt"
	"github.com/gokatarajesh/quiz-delivery/internal/config"
	"github.com/gokatarajesh/quiz-delivery/internal/db/repository"
	sqlcgen "github.com/gokatarajesh/quiz-delivery/internal/db/sqlc"
	"github.com/gokatarajesh/quiz-delivery/internal/dedup"
	"github.com/gokatarajesh/quiz-delivery/internal/fingerprint"
	"github.com/gokatarajesh/quiz-delivery/internal/logging"
	"github.com/gokatarajesh/quiz-delivery/internal/picker"
	"github.com/gokatarajesh/quiz-delivery/internal/question"
	"github.com/gokatarajesh/quiz-delivery/internal/server"
)

// Application aggregates shared infrastructure (DB, anti-repeat state, HTTP server).
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool  *pgxpool.Pool
	redis *redis.Client
	http  *http.Server

	recorder  *picker.AsyncRecorder
	sweeper   *antirepeat.Sweeper
	bgCancels []context.CancelFunc
	bgWG      sync.WaitGroup
}

// ConnectPostgres opens the content store pool.
func ConnectPostgres(ctx context.Context, cfg config.Postgres) (*pgxpool.Pool, error) {
	connString := fmt.Sprintf("%s pool_max_conns=%d", cfg.DSN(), cfg.MaxConns)
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// NewQuestionService builds the ingestion gate over the content store.
func NewQuestionService(cfg config.Dedup, repo *repository.QuestionRepository, logger zerolog.Logger) (*question.Service, *fingerprint.Generator) {
	generator := fingerprint.NewGenerator(cfg.LSHPrefixBits)
	evaluator := dedup.NewEvaluator(repo, generator, dedup.Options{
		HammingNear:  cfg.HammingNear,
		CandidateCap: cfg.CandidateCap,
	}, logger)
	return question.NewService(evaluator, repo, logger), generator
}

// New bootstraps configs, logger, Postgres, Redis and HTTP server.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	pool, err := ConnectPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, err
	}

	questionRepo := repository.NewQuestionRepository(sqlcgen.New(pool))
	questionSvc, _ := NewQuestionService(cfg.Dedup, questionRepo, logger)

	var (
		redisClient *redis.Client
		backend     antirepeat.Backend
		sweeper     *antirepeat.Sweeper
	)
	switch cfg.AntiRepeat.Backend {
	case "memory":
		mem := antirepeat.NewMemoryBackend(nil)
		backend = mem
		sweeper = antirepeat.NewSweeper(mem, cfg.AntiRepeat.SweepInterval, logger)
		logger.Warn().Msg("anti-repeat state is in-process; use the redis backend for multiple instances")
	default:
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		backend = antirepeat.NewRedisBackend(redisClient, cfg.Redis.Prefix)
	}

	repeatStore := antirepeat.NewStore(backend, antirepeat.Options{
		RecentKeep:   cfg.AntiRepeat.RecentKeep,
		SessionTTL:   cfg.AntiRepeat.SessionTTL(),
		LockTTL:      cfg.AntiRepeat.LockTTL(),
		ServeLogTTL:  cfg.AntiRepeat.ServeLogTTL(),
		HotThreshold: int64(cfg.AntiRepeat.HotBucketThreshold),
	}, logger)

	recorder := picker.NewAsyncRecorder(repeatStore, questionRepo, cfg.Picker.RecorderQueue, 0, logger)
	questionPicker := picker.New(questionRepo, repeatStore, recorder, picker.Options{
		CandidateMultiplier: cfg.Picker.CandidateMultiplier,
		HotPenalty:          cfg.Picker.HotBucketPenalty,
		HotPenaltyEnabled:   cfg.Picker.HotPenaltyEnabled,
		Timeout:             cfg.Picker.Timeout,
	}, logger)
	if cfg.Picker.BloomHint {
		logger.Info().Msg("FEATURE_BLOOM_HINT is set; recency exclusion always uses the exact ring")
	}

	tokens := jwt.NewManager(jwt.TokenConfig{
		AccessSecret: []byte(cfg.Security.JWTSecret),
		AccessTTL:    cfg.Security.AccessTTL,
		Issuer:       cfg.Name,
	})

	questionHTTP := question.NewHTTPHandler(questionSvc, logger)
	pickHTTP := picker.NewHTTPHandler(questionPicker, logger)
	analyticsHTTP := antirepeat.NewHTTPHandler(repeatStore, logger)

	checks := map[string]server.Check{"postgres": pool.Ping}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	apiServer := server.NewHTTPServer(cfg, logger, server.Routes{
		Evaluate:     questionHTTP.HandleEvaluate,
		Create:       questionHTTP.HandleCreate,
		Pick:         pickHTTP.HandlePick,
		RepeatRates:  analyticsHTTP.HandleRepeatRates,
		HotBuckets:   analyticsHTTP.HandleHotBuckets,
		Authenticate: auth.AuthMiddleware(tokens, logger),
		Checks:       checks,
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		redis:     redisClient,
		http:      apiServer,
		recorder:  recorder,
		sweeper:   sweeper,
		bgCancels: make([]context.CancelFunc, 0, 1),
	}, nil
}

// Run starts the HTTP server and waits for termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.startBackgroundWorkers(ctx)

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	// In-flight picks have returned, so every serve event is queued before the drain.
	a.recorder.Stop()

	for _, cancel := range a.bgCancels {
		cancel()
	}
	a.bgWG.Wait()

	a.pool.Close()
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error().Err(err).Msg("redis shutdown error")
		}
	}

	a.logger.Info().Msg("shutdown complete")
	return runErr
}

func (a *Application) startBackgroundWorkers(ctx context.Context) {
	go a.recorder.Run()

	if a.sweeper != nil {
		bgCtx, cancel := context.WithCancel(ctx)
		a.bgCancels = append(a.bgCancels, cancel)
		a.bgWG.Add(1)
		go func() {
			defer a.bgWG.Done()
			if err := a.sweeper.Run(bgCtx); err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("anti-repeat sweeper stopped")
			}
		}()
	}
}
