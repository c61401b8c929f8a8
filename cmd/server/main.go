package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/medassist/medassist/internal/config"
	"github.com/medassist/medassist/internal/extract"
	v1 "github.com/medassist/medassist/internal/handler/v1"
	"github.com/medassist/medassist/internal/intent"
	"github.com/medassist/medassist/internal/llm"
	"github.com/medassist/medassist/internal/repository"
	"github.com/medassist/medassist/internal/service"
	"github.com/medassist/medassist/internal/textextract"
	"github.com/medassist/medassist/pkg/auth"
	"github.com/medassist/medassist/pkg/database"
	"github.com/medassist/medassist/pkg/logger"
	"github.com/medassist/medassist/pkg/metrics"
	"github.com/medassist/medassist/pkg/tracer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	log.Info("starting server",
		zap.String("app", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	if cfg.Tracing.Enabled {
		tp, err := tracer.Init(cfg.Tracing)
		if err != nil {
			return fmt.Errorf("initializing tracer: %w", err)
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				log.Warn("tracer shutdown failed", zap.Error(err))
			}
		}()
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	if err := database.Migrate(db, log); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	kb := extract.DefaultKnowledgeBase()
	if err := kb.Validate(); err != nil {
		return fmt.Errorf("validating knowledge base: %w", err)
	}

	var gateway llm.Gateway
	if cfg.OpenAI.Enabled() {
		client, err := llm.NewOpenAIClient(cfg.OpenAI, log)
		if err != nil {
			return fmt.Errorf("initializing model gateway: %w", err)
		}
		gateway = client
		log.Info("model gateway enabled", zap.String("model", cfg.OpenAI.Model))
	} else {
		log.Warn("model gateway disabled, extraction and intent resolution run on local paths only")
	}

	collector := metrics.NewCollector(cfg.App.Name)
	jwtManager := auth.NewJWTManager(cfg.JWT)

	userRepo := repository.NewUserRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	reportRepo := repository.NewReportRepository(db)
	patientRepo := repository.NewPatientRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	consultRepo := repository.NewConsultationRepository(db)
	prescriptionRepo := repository.NewPrescriptionRepository(db)

	auditSvc := service.NewAuditService(auditRepo, log)
	defer auditSvc.Shutdown()

	patternExtractor := extract.NewPatternExtractor(kb, cfg.Extraction.ContextWindow)
	var refiner *extract.Refiner
	if gateway != nil {
		refiner = extract.NewRefiner(gateway, log)
	}
	extractor := extract.NewExtractor(patternExtractor, refiner, log)
	texts := textextract.New(log)

	var classifier *intent.Classifier
	if gateway != nil {
		classifier = intent.NewClassifier(gateway, log)
	}
	resolver := intent.NewResolver(classifier, log)

	authSvc := service.NewAuthService(userRepo, jwtManager, log)
	reportSvc := service.NewReportService(reportRepo, extractor, texts, gateway, auditSvc, collector, log)
	patientSvc := service.NewPatientService(patientRepo, auditSvc, log)
	taskSvc := service.NewTaskService(taskRepo, auditSvc, collector, log)
	consultSvc := service.NewConsultationService(consultRepo, patientRepo, reportRepo, auditSvc, log)
	prescriptionSvc := service.NewPrescriptionService(prescriptionRepo, reportRepo, gateway, auditSvc, collector, log)
	chatSvc := service.NewChatService(resolver, reportSvc, taskSvc, patientSvc, prescriptionSvc, auditSvc, collector, log)

	router := v1.NewRouter(v1.RouterDeps{
		Logger:        log,
		Collector:     collector,
		JWTManager:    jwtManager,
		Auth:          v1.NewAuthHandler(authSvc),
		Reports:       v1.NewReportHandler(reportSvc, cfg.Server.MaxUploadBytes),
		Chat:          v1.NewChatHandler(chatSvc),
		Tasks:         v1.NewTaskHandler(taskSvc),
		Patients:      v1.NewPatientHandler(patientSvc),
		Consultations: v1.NewConsultationHandler(consultSvc),
		Prescriptions: v1.NewPrescriptionHandler(prescriptionSvc),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}

	log.Info("server stopped")
	return nil
}
