package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"imobzap_backend/internal/conversation"
	"imobzap_backend/internal/delivery"
	"imobzap_backend/internal/funnel"
	apphttp "imobzap_backend/internal/http"
	"imobzap_backend/internal/matching"
	"imobzap_backend/internal/notify"
	"imobzap_backend/internal/pipeline"
	"imobzap_backend/internal/properties"
	"imobzap_backend/internal/reply"
	"imobzap_backend/internal/scheduler"
	"imobzap_backend/internal/tenant"
	"imobzap_backend/internal/transcription"
	"imobzap_backend/internal/webhook"
	"imobzap_backend/migrations"
	"imobzap_backend/platform/config"
	"imobzap_backend/platform/db"
	"imobzap_backend/platform/logger"
	"imobzap_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting funnel engine", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	redisOpt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("invalid redis url", "error", err)
		panic("invalid redis url: " + err.Error())
	}
	redisClient := redis.NewClient(redisOpt)
	defer func() {
		_ = redisClient.Close()
	}()

	archive, err := transcription.NewMediaArchive(cfg)
	if err != nil {
		log.Error("failed to initialize media archive", "error", err)
		panic("failed to initialize media archive: " + err.Error())
	}
	if archive != nil {
		if err := archive.EnsureBucket(ctx); err != nil {
			log.Error("failed to ensure media archive bucket", "error", err)
			panic("failed to ensure media archive bucket: " + err.Error())
		}
		log.Info("media archive initialized", "bucket", cfg.MediaArchiveBucket)
	}

	nudgeClient, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() {
		_ = nudgeClient.Close()
	}()

	// ========================================================================
	// Domain wiring (composition root)
	// ========================================================================

	transcriber := transcription.NewService(transcription.Config{
		BaseURL: cfg.STTBaseURL,
		APIKey:  cfg.STTAPIKey,
		Model:   cfg.STTModel,
		Timeout: cfg.STTTimeout,
	}, archiveOrNil(archive), log)

	dispatcher := delivery.NewDispatcher(
		delivery.NewGatewayClient(cfg.GatewayBaseURL, 15*time.Second),
		delivery.NewBridgeClient(15*time.Second),
		cfg.OutboundRatePerMinute,
		log,
	)

	replyAgent := reply.NewAgent(cfg, log)
	if replyAgent == nil {
		log.Warn("AI replies disabled; scripted replies only")
	}

	repo := conversation.NewRepository(pool)
	val := validator.New()
	propertiesModule := properties.NewModule(pool, val)

	orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
		Tenants:       tenant.New(pool),
		Conversations: repo,
		Leads:         repo,
		Messages:      repo,
		Properties:    propertiesModule.Repository(),
		Lock:          conversation.NewContactLock(redisClient, cfg.ConversationLockTTL),
		Classifier:    funnel.NewClassifier(funnel.DefaultKeywords()),
		Engine:        matching.NewEngine(),
		Transcriber:   transcriber,
		Generator:     reply.NewGenerator(replyAgent, log),
		Dispatcher:    dispatcher,
		Notifier:      notify.NewHandoffNotifier(cfg, log),
		Nudges:        nudgeClient,
		DefaultCreds:  cfg.DefaultCredentials,
		Funnel:        cfg,
		Logger:        log,
	})

	worker, err := scheduler.NewWorker(cfg, orchestrator, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	// ========================================================================
	// HTTP layer
	// ========================================================================

	engine := apphttp.NewRouter(&apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			webhook.NewModule(orchestrator, orchestrator, log),
			propertiesModule,
		},
	})

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		worker.Run(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		panic("server error: " + err.Error())
	}
}

// archiveOrNil keeps the typed-nil pitfall out of the transcription service:
// a nil *MediaArchive must become a nil interface.
func archiveOrNil(archive *transcription.MediaArchive) transcription.Archiver {
	if archive == nil {
		return nil
	}
	return archive
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
