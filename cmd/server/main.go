package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ripsnc/internal/config"
	"ripsnc/internal/domain"
	"ripsnc/internal/handler"
	"ripsnc/internal/logger"
	"ripsnc/internal/port"
	"ripsnc/internal/provider/afacturar"
	"ripsnc/internal/repository/memory"
	"ripsnc/internal/repository/postgres"
	"ripsnc/internal/router"
	"ripsnc/internal/service"
	s3storage "ripsnc/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zapLog, err := logger.NewZapLogger(&cfg.Log, cfg.Server.Environment)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = zapLog.Sync() }()

	defaultEnv := domain.Environment(cfg.Provider.DefaultEnvironment)
	if !defaultEnv.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownEnvironment, cfg.Provider.DefaultEnvironment)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Optional audit database
	var (
		auditRepo port.SubmissionAuditRepository
		pinger    handler.Pinger
	)
	if cfg.Audit.Enabled {
		db, err := postgres.NewDB(&cfg.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer db.Close()
		auditRepo = postgres.NewSubmissionAuditRepo(db)
		pinger = db
		zapLog.Info("submission audit enabled", zap.String("db_host", cfg.DB.Host))
	}

	// Optional export archive
	var archiver *service.ExportArchiver
	if cfg.Archive.Enabled {
		store, err := s3storage.NewExportStore(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		archiver = service.NewExportArchiver(store, &cfg.S3, &cfg.Archive, zapLog)
		zapLog.Info("export archive enabled", zap.String("bucket", cfg.S3.Bucket), zap.String("prefix", cfg.Archive.Prefix))
	}

	// Initialize services
	sessions := memory.NewSessionStore()
	sessionSvc := service.NewSessionService(sessions, archiver, &cfg.RIPS, zapLog)
	creditNoteSvc := service.NewCreditNoteService(sessions, zapLog)
	submissionSvc := service.NewSubmissionService(afacturar.NewClient(&cfg.Provider), auditRepo, defaultEnv, zapLog)

	// Initialize handlers
	maxUpload := cfg.Server.MaxUploadMB << 20
	sessionH := handler.NewSessionHandler(sessionSvc, maxUpload, zapLog)
	creditNoteH := handler.NewCreditNoteHandler(creditNoteSvc, submissionSvc, maxUpload, zapLog)
	healthH := handler.NewHealthHandler(pinger)

	r := router.Setup(zapLog, cfg.CORS.AllowedOrigins, sessionH, creditNoteH, healthH)

	go sweepSessions(ctx, sessionSvc, cfg.Server.SweepInterval, cfg.Server.SessionTTL, zapLog)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		zapLog.Info("server starting", zap.String("addr", cfg.Server.Port), zap.String("environment", cfg.Server.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	zapLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// sweepSessions drops sessions idle for longer than ttl until ctx ends.
func sweepSessions(ctx context.Context, svc service.SessionService, every, ttl time.Duration, log *zap.Logger) {
	if every <= 0 || ttl <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := svc.Sweep(ctx, ttl); err != nil {
				log.Warn("session sweep failed", zap.Error(err))
			}
		}
	}
}
