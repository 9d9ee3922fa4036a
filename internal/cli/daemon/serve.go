// Package daemon holds the autonoted server command.
package daemon

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/autonote-app/autonote/internal/api/handlers"
	"github.com/autonote-app/autonote/internal/config"
	"github.com/autonote-app/autonote/internal/database"
	"github.com/autonote-app/autonote/internal/jobs"
	"github.com/autonote-app/autonote/internal/openai"
	"github.com/autonote-app/autonote/internal/pipeline"
	"github.com/autonote-app/autonote/internal/repository"
	"github.com/autonote-app/autonote/internal/server"
	"github.com/autonote-app/autonote/internal/service"
	"github.com/autonote-app/autonote/internal/storage"
	"github.com/autonote-app/autonote/internal/summarize"
	"github.com/autonote-app/autonote/internal/telemetry"
	"github.com/autonote-app/autonote/internal/transcribe"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"
	openaigo "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the autonote API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if a DSN is configured
	if cfg.SentryDSN != "" {
		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if cfg.SentryEnvironment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              cfg.SentryDSN,
			Environment:      cfg.SentryEnvironment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	pool, err := database.NewPoolFromURL(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()
	log.Println("connected to database")

	// Run migrations unless --no-migrate flag is set
	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := runMigrations(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	if !cfg.HasS3() {
		return fmt.Errorf("audio storage not configured: AUTONOTE_S3_ENDPOINT, AUTONOTE_S3_ACCESS_KEY_ID and AUTONOTE_S3_SECRET_ACCESS_KEY required")
	}
	if !cfg.HasSpeechmatics() {
		return fmt.Errorf("transcription not configured: AUTONOTE_SPEECHMATICS_API_KEY required")
	}
	if !cfg.HasOpenAI() {
		return fmt.Errorf("summarization not configured: AUTONOTE_OPENAI_API_KEY required")
	}

	s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := s3Client.EnsureBucket(ctx); err != nil {
		return fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)

	transcriber, err := transcribe.NewClient(transcribe.Config{
		BaseURL:         cfg.SpeechmaticsURL,
		APIKey:          cfg.SpeechmaticsAPIKey,
		Language:        cfg.SpeechmaticsLanguage,
		PollInterval:    cfg.TranscribePollInterval,
		MaxPollAttempts: cfg.TranscribeMaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("failed to create transcription client: %w", err)
	}

	summarizer, err := summarize.NewClient(summarize.Config{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.SummaryModel,
	})
	if err != nil {
		return fmt.Errorf("failed to create summarization client: %w", err)
	}

	noteRepo := repository.NewNoteRepository(pool)
	embeddingJobRepo := repository.NewEmbeddingJobRepository(pool)
	txRunner := repository.NewTxRunner(pool)

	noteSvc := service.NewNoteServiceWithTx(noteRepo, embeddingJobRepo, s3Client, txRunner)

	embeddingClient := openai.NewClientWithConfig(openai.Config{
		APIKey:         cfg.OpenAIAPIKey,
		EmbeddingModel: openaigo.EmbeddingModel(cfg.EmbeddingModel),
	})
	embeddingSvc := service.NewEmbeddingService(embeddingClient, noteRepo)
	embeddingProcessor := jobs.NewEmbeddingWorker(embeddingJobRepo, embeddingSvc)
	embeddingWorker := jobs.NewWorker(embeddingProcessor, cfg.EmbeddingWorkerInterval)
	go embeddingWorker.Start(ctx)
	log.Println("embedding worker started")

	searchSvc := service.NewSearchService(embeddingClient, noteRepo)

	processor := pipeline.NewProcessor(transcriber, summarizer, noteSvc, s3Client)
	manager := pipeline.NewManager(processor)

	// runs started over HTTP outlive their request; this context reaps them
	// on shutdown
	runCtx, cancelRuns := context.WithCancel(ctx)
	defer cancelRuns()

	routerCfg := server.RouterConfig{
		RecordingHandler: handlers.NewRecordingHandler(runCtx, s3Client, manager),
		NoteHandler:      handlers.NewNoteHandler(noteSvc, searchSvc),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	embeddingWorker.Stop()
	cancelRuns()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}

func runMigrations(databaseURL string) error {
	// Create a sql.DB connection for golang-migrate
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migrations: %w", err)
	}
	defer db.Close()

	// Create postgres driver instance
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	// Create migrate instance with file source
	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	// Run migrations
	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	// Get migration version and status
	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if err == migrate.ErrNilVersion {
		log.Println("migrations: database is up to date (no migrations applied)")
	} else if dirty {
		return fmt.Errorf("migration version %d is dirty - manual intervention required", version)
	} else if err == migrate.ErrNoChange {
		log.Printf("migrations: database is up to date (version %d)", version)
	} else {
		log.Printf("migrations: applied successfully (version %d)", version)
	}

	return nil
}
