package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/phrazzld/studyloop/internal/api"
	"github.com/phrazzld/studyloop/internal/config"
	"github.com/phrazzld/studyloop/internal/events"
	"github.com/phrazzld/studyloop/internal/ingest"
	"github.com/phrazzld/studyloop/internal/platform/gcs"
	"github.com/phrazzld/studyloop/internal/platform/gemini"
	"github.com/phrazzld/studyloop/internal/platform/postgres"
	"github.com/phrazzld/studyloop/internal/service"
	"github.com/phrazzld/studyloop/internal/service/auth"
	"github.com/phrazzld/studyloop/internal/task"
)

// application holds the shared dependencies of the server so they can be
// wired once and released together on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	jwtService auth.JWTService
	resources  api.ResourceService
	sessions   api.StudySessions

	emitter       *events.InMemoryEventEmitter
	taskRunner    *task.TaskRunner
	storageClient *storage.Client
}

// newApplication wires stores, services, the ingestion pipeline and the
// background task runner. The runner is started last, after every event
// handler is registered, so recovered tasks see a complete graph.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	stores := service.Stores{
		Resources:  postgres.NewPostgresResourceStore(db, logger),
		Blocks:     postgres.NewPostgresBlockStore(db, logger),
		Units:      postgres.NewPostgresUnitStore(db, logger),
		Ingestions: postgres.NewPostgresIngestionStore(db, logger),
	}
	app.emitter = events.NewInMemoryEventEmitter(logger)

	ingestion, err := service.NewIngestionService(stores, service.NewSQLUnitOfWork(db, stores), app.emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestion service: %w", err)
	}
	app.resources = ingestion

	study, err := service.NewStudyService(stores.Units, app.emitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create study service: %w", err)
	}
	app.sessions = study

	generator, err := gemini.NewGeminiGenerator(ctx, logger.With("component", "llm_generator"), cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}
	logger.Info("LLM generator initialized", "model", cfg.LLM.ModelName)

	uploader, err := app.setupUploader(ctx)
	if err != nil {
		return nil, err
	}

	pipeline, err := ingest.NewPipeline(generator, uploader, logger, cfg.Ingest.Concurrency)
	if err != nil {
		return nil, fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}

	runnerConfig := task.DefaultTaskRunnerConfig()
	runnerConfig.WorkerCount = cfg.Ingest.WorkerCount
	runnerConfig.QueueSize = cfg.Ingest.QueueSize
	app.taskRunner = task.NewTaskRunner(postgres.NewPostgresTaskStore(db, logger), runnerConfig, logger)

	factory := task.NewIngestionTaskFactory(ingestion, pipeline, logger)
	app.taskRunner.RegisterRestorer(task.TaskTypeIngestion, factory.Restore)

	app.emitter.RegisterHandler(events.TypeIngestionRequested,
		task.NewTaskFactoryEventHandler(factory, app.taskRunner, logger))
	app.emitter.RegisterHandler(events.TypeUnitStatusChanged,
		service.NewUnitStatusProjector(stores.Units, logger))

	if err := app.taskRunner.Start(); err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// setupUploader returns the screenshot uploader, or nil when no bucket is
// configured.
func (app *application) setupUploader(ctx context.Context) (ingest.Uploader, error) {
	if app.config.Storage.Bucket == "" {
		app.logger.Info("object storage disabled, page images are sent inline")
		return nil, nil
	}

	uploader, client, err := gcs.NewUploader(ctx, app.config.Storage, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize object storage: %w", err)
	}
	app.storageClient = client
	app.logger.Info("object storage initialized", "bucket", app.config.Storage.Bucket)
	return uploader, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down.
func (app *application) Run(ctx context.Context) error {
	if err := app.startHTTPServer(ctx, app.setupRouter()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup releases every resource the application owns.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}
	if app.storageClient != nil {
		if err := app.storageClient.Close(); err != nil {
			app.logger.Error("error closing storage client", "error", err)
		}
	}
	if app.db != nil {
		closeDB(app.db, app.logger)
	}
	app.logger.Info("application shutdown completed")
}
