// Package app verdrahtet Datenbank, Quellen und Dienste für Server und CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pharma-deck/config"
	"pharma-deck/pharmaai"
	"pharma-deck/providers"
	"pharma-deck/providers/chembl"
	"pharma-deck/providers/clinicaltrials"
	"pharma-deck/providers/europepmc"
	"pharma-deck/providers/fetch"
	"pharma-deck/providers/openfda"
	"pharma-deck/providers/pubchem"
	"pharma-deck/providers/pubmed"
	"pharma-deck/providers/rxclass"
	"pharma-deck/providers/rxnorm"
	"pharma-deck/providers/unpaywall"
	"pharma-deck/services"
	"pharma-deck/storage"
)

// App hält die langlebigen Abhängigkeiten eines Prozesses.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	Store  *storage.Store
	Ingest *services.IngestService
}

// OpenDatabase verbindet sich mit PostgreSQL, ohne gorm-Logausgabe.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}

// New öffnet die Datenbank, migriert sie und baut den Orchestrator samt optionaler Helfer.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	db, err := OpenDatabase(cfg)
	if err != nil {
		return nil, err
	}
	store := storage.New(db, log)
	log.Info("Running database auto-migration...")
	if err := store.Migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return Wire(ctx, cfg, store, log), nil
}

// Wire baut den Orchestrator über einem bestehenden Store.
func Wire(ctx context.Context, cfg *config.Config, store *storage.Store, log *zap.Logger) *App {
	client := func(rps float64) *fetch.Client {
		return fetch.NewClient(log, fetch.WithTimeout(cfg.FetchTimeout), fetch.WithRateLimit(rps))
	}
	nlm := client(0)
	openFDA := client(cfg.OpenFDARateLimit)
	literature := client(cfg.PubMedRateLimit)
	other := client(0)

	identity := rxnorm.NewFetcher(cfg, nlm, log)
	drugsFDA := openfda.NewDrugsFDAFetcher(cfg, openFDA, log)
	sources := services.Sources{
		Structure:  pubchem.NewFetcher(cfg, other, log),
		Regulatory: openfda.NewLabelFetcher(cfg, openFDA, drugsFDA, log),
		Literature: literatureSource(cfg, literature, log),
		Targets:    chembl.NewFetcher(cfg, client(cfg.ChEMBLRateLimit), log),
		Classes:    rxclass.NewFetcher(cfg, nlm, log),
		Trials:     clinicaltrials.NewFetcher(cfg, other, log),
		Products:   openfda.NewProductFetcher(cfg, openFDA, log),
	}
	svc := services.NewIngestService(cfg, store, identity, sources, log)

	if links := unpaywall.NewFetcher(cfg, other, log); links.Enabled() {
		svc.OpenLinks = links
	}

	extractor, err := pharmaai.NewOpenAIExtractor(cfg, log)
	switch {
	case err == nil:
		svc.Extractor = extractor
		log.Info("KI-Extraktion aktiv", zap.String("model", cfg.OpenAIModel))
	case errors.Is(err, pharmaai.ErrDisabled):
		log.Info("KI-Extraktion deaktiviert, nur Regex-Heuristik")
	default:
		log.Warn("KI-Extraktion nicht verfügbar", zap.Error(err))
	}

	archive, err := storage.NewArchive(ctx, cfg)
	switch {
	case err == nil:
		svc.Archive = archive
	case errors.Is(err, storage.ErrArchiveDisabled):
	default:
		log.Warn("Card-Archiv nicht verfügbar", zap.Error(err))
	}

	return &App{Config: cfg, Logger: log, Store: store, Ingest: svc}
}

func literatureSource(cfg *config.Config, client *fetch.Client, log *zap.Logger) providers.Adapter[[]providers.Study] {
	if cfg.UseEuropePMC() {
		log.Info("Literaturquelle: Europe PMC")
		return europepmc.NewFetcher(cfg, client, log)
	}
	return pubmed.NewFetcher(cfg, client, log)
}

// NewWorker erstellt einen Queue-Worker mit Batch- und Poolgröße aus der Konfiguration.
// Der Aufrufer muss Release aufrufen.
func (a *App) NewWorker() (*services.QueueWorker, error) {
	return services.NewQueueWorker(a.Store, a.Ingest, a.Config.QueueBatchSize, a.Config.WorkerPoolSize, a.Logger)
}
