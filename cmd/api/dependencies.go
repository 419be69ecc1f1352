package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/assembler"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/extractor"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/handler"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/layout"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/repository"
	"github.com/FACorreiaa/ledger-ingest/internal/domain/ingest/service"
	"github.com/FACorreiaa/ledger-ingest/pkg/config"
	"github.com/FACorreiaa/ledger-ingest/pkg/cron"
	"github.com/FACorreiaa/ledger-ingest/pkg/db"
	"github.com/FACorreiaa/ledger-ingest/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config   *config.Config
	DB       *db.DB
	Logger   *slog.Logger
	Registry *prometheus.Registry

	// Repositories
	LedgerRepo repository.LedgerRepository

	// Services
	Uploads       storage.Storage
	Documents     storage.Storage
	IngestService *service.IngestService
	Scheduler     *cron.Scheduler

	// Handlers
	IngestHandler *handler.IngestHandler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config:   cfg,
		Logger:   logger,
		Registry: prometheus.NewRegistry(),
	}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initRepositories(); err != nil {
		return nil, fmt.Errorf("failed to init repositories: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	if err := deps.initHandlers(); err != nil {
		return nil, fmt.Errorf("failed to init handlers: %w", err)
	}

	logger.Info("all dependencies initialized successfully")

	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        int32(d.Config.Database.MaxConns),
		MinConns:        2,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if d.Config.Database.RunMigrations {
		if err := d.DB.RunMigrations(); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	d.Logger.Info("database connected")
	return nil
}

// initRepositories initializes all repository layer dependencies
func (d *Dependencies) initRepositories() error {
	d.LedgerRepo = repository.NewPostgresLedgerRepository(d.DB.Pool)

	d.Logger.Info("repositories initialized")
	return nil
}

// initServices initializes all service layer dependencies
func (d *Dependencies) initServices() error {
	inferencer, err := newInferencer(d.Config.Ingest.RulesFile, d.Logger)
	if err != nil {
		return err
	}

	asm, err := assembler.New(d.Config.Ingest.Currency)
	if err != nil {
		return fmt.Errorf("failed to init assembler: %w", err)
	}

	d.Uploads, err = storage.New(&storage.Config{LocalPath: d.Config.Storage.UploadsPath})
	if err != nil {
		return fmt.Errorf("failed to init upload storage: %w", err)
	}
	d.Documents, err = storage.New(&storage.Config{LocalPath: d.Config.Storage.DocumentsPath})
	if err != nil {
		return fmt.Errorf("failed to init document storage: %w", err)
	}

	svcCfg := service.Config{
		MaxSpreadsheetBytes: d.Config.Ingest.MaxSpreadsheetBytes,
		MaxDocumentBytes:    d.Config.Ingest.MaxDocumentBytes,
		UploadRetention:     d.Config.Storage.UploadRetention,
	}
	d.IngestService = service.NewIngestService(
		svcCfg,
		layout.New(nil),
		extractor.New(inferencer),
		asm,
		d.LedgerRepo,
		d.Logger,
	).
		WithUploadStorage(d.Uploads).
		WithDocumentStorage(d.Documents).
		WithMetrics(service.NewMetrics(d.Registry))

	// Pending uploads from unfinished sheet selections
	d.Scheduler = cron.NewScheduler(d.IngestService, d.Config.Storage.SweepSchedule, d.Logger)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() error {
	d.IngestHandler = handler.NewIngestHandler(d.IngestService, handler.Limits{
		MaxSpreadsheetBytes: d.Config.Ingest.MaxSpreadsheetBytes,
		MaxDocumentBytes:    d.Config.Ingest.MaxDocumentBytes,
	}, d.Logger)

	d.Logger.Info("handlers initialized")
	return nil
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}
