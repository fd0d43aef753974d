package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jennie1434/BDD-lvmh/internal/cleaning"
	"github.com/Jennie1434/BDD-lvmh/internal/config"
	"github.com/Jennie1434/BDD-lvmh/internal/domain"
	"github.com/Jennie1434/BDD-lvmh/internal/infrastructure/csvio"
	"github.com/Jennie1434/BDD-lvmh/internal/infrastructure/htmlexport"
	"github.com/Jennie1434/BDD-lvmh/internal/infrastructure/llm"
	"github.com/Jennie1434/BDD-lvmh/internal/infrastructure/notify"
	"github.com/Jennie1434/BDD-lvmh/internal/infrastructure/scheduler"
	"github.com/Jennie1434/BDD-lvmh/internal/infrastructure/storage"
	"github.com/Jennie1434/BDD-lvmh/internal/logging"
	"github.com/Jennie1434/BDD-lvmh/internal/ports"
	"github.com/Jennie1434/BDD-lvmh/internal/ranking"
	"github.com/Jennie1434/BDD-lvmh/internal/reattribution"
	"github.com/Jennie1434/BDD-lvmh/internal/report"
	"github.com/Jennie1434/BDD-lvmh/internal/taxonomy"
	"github.com/Jennie1434/BDD-lvmh/internal/usecase"
)

// Application wires configuration to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	runner    *usecase.Runner
	repo      *storage.SQLiteRepository
	source    ports.Source
	reprocess *usecase.Pipeline
	handshake *reattribution.Handshake
}

// New builds a runnable application instance from configuration.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	pool, err := buildPool(cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	cleaner, err := buildCleaner(cfg, pool, baseLogger)
	if err != nil {
		return nil, err
	}

	classifier, tree, err := buildClassifier(cfg)
	if err != nil {
		return nil, err
	}

	opts := []usecase.Option{
		usecase.WithLogger(baseLogger.With("component", "pipeline")),
		usecase.WithWorkers(cfg.Pipeline.Workers),
		usecase.WithTagBatchSize(cfg.Pipeline.TagBatchSize),
	}

	if pool != nil && tree != nil {
		taxonomyJSON, err := tree.JSON()
		if err != nil {
			return nil, err
		}
		opts = append(opts, usecase.WithTagger(llm.NewTagger(pool, taxonomyJSON)))
	}

	var notifier ports.Notifier
	if url := cfg.Notifications.Webhook.URL; url != "" {
		notifier = notify.NewWebhook(url, cfg.Notifications.Webhook.Headers, nil)
	} else {
		notifier = notify.NewLog(baseLogger.With("component", "notifier"))
	}

	// Reprocessing pipeline for single-record operations: no dedup, no
	// broadcast, otherwise identical.
	reprocess := usecase.NewPipeline(cleaner, classifier, ranking.New(nil), opts...)

	opts = append(opts, usecase.WithNotifier(notifier))

	var repo *storage.SQLiteRepository
	if cfg.Database.Path != "" {
		repo, err = storage.Open(cfg.Database.Path)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		opts = append(opts, usecase.WithRepository(repo))
	}

	pipeline := usecase.NewPipeline(cleaner, classifier, ranking.New(nil), opts...)

	var handshake *reattribution.Handshake
	if url := cfg.Reattribution.RecipientURL; url != "" {
		recipient := notify.NewHTTPRecipient(url, nil)
		handshake = reattribution.New(recipient, notifier, cfg.Reattribution.DecisionWait(),
			baseLogger.With("component", "reattribution"))
	}

	source, err := buildSource(cfg, baseLogger)
	if err != nil {
		return nil, err
	}

	var exporter ports.Exporter
	if cfg.Export.Path != "" {
		exporter = csvio.NewWriter(cfg.Export.Path)
	}

	runner := usecase.NewRunner(
		source,
		pipeline,
		exporter,
		scheduler.NewCronScheduler(cfg.Scheduler.CronExpression),
		baseLogger.With("component", "runner"),
	)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		runner:    runner,
		repo:      repo,
		source:    source,
		reprocess: reprocess,
		handshake: handshake,
	}, nil
}

// Transfer proposes reattributing one record to another advisor. The
// record is re-read from the source and reprocessed so the offer carries a
// fresh synthesis.
func (a *Application) Transfer(ctx context.Context, recordID, from, to string) (reattribution.Result, error) {
	if a.handshake == nil {
		return reattribution.Result{}, fmt.Errorf("reattribution recipient not configured")
	}

	records, err := a.source.Fetch(ctx)
	if err != nil {
		return reattribution.Result{}, fmt.Errorf("fetching records: %w", err)
	}

	var match *domain.RawRecord
	for i := range records {
		if records[i].ID == recordID {
			match = &records[i]
			break
		}
	}
	if match == nil {
		return reattribution.Result{}, fmt.Errorf("record %s not found in source", recordID)
	}

	outcomes, err := a.reprocess.Run(ctx, []domain.RawRecord{*match})
	if err != nil {
		return reattribution.Result{}, err
	}
	if len(outcomes) == 0 || outcomes[0].Record == nil {
		return reattribution.Result{}, fmt.Errorf("record %s could not be processed", recordID)
	}

	offer := reattribution.NewOffer(*outcomes[0].Record, from, to)
	offer.Summary = report.Format(*outcomes[0].Record)
	return a.handshake.Propose(ctx, offer)
}

// RunOnce executes a single batch run.
func (a *Application) RunOnce(ctx context.Context) ([]domain.Outcome, error) {
	return a.runner.RunOnce(ctx)
}

// Watch starts scheduled runs and blocks until the context is cancelled.
func (a *Application) Watch(ctx context.Context) error {
	if err := a.runner.Start(ctx); err != nil {
		return err
	}
	a.logger.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression)

	<-ctx.Done()
	return a.runner.Stop(context.Background())
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.repo != nil {
		return a.repo.Close()
	}
	return nil
}

func buildPool(cfg config.Config, logger *slog.Logger) (*llm.Pool, error) {
	var generators []ports.Generator
	for _, pc := range cfg.Providers {
		if pc.APIKey == "" {
			continue
		}
		provider, err := llm.NewProvider(llm.ProviderConfig{
			Name:              pc.Name,
			URL:               pc.URL,
			Model:             pc.Model,
			APIKey:            pc.APIKey,
			RequestsPerSecond: pc.RequestsPerSecond,
			Timeout:           providerTimeout(pc.TimeoutSeconds),
		}, nil)
		if err != nil {
			return nil, fmt.Errorf("provider %s: %w", pc.Name, err)
		}
		generators = append(generators, provider)
	}
	if len(generators) == 0 {
		return nil, nil
	}
	return llm.NewPool(generators, logger.With("component", "llm")), nil
}

func buildCleaner(cfg config.Config, pool *llm.Pool, logger *slog.Logger) (*cleaning.Cleaner, error) {
	var rules *cleaning.Ruleset
	if path := cfg.Cleaning.RulesetPath; path != "" {
		loaded, err := cleaning.LoadRuleset(path)
		if err != nil {
			return nil, err
		}
		rules = loaded
	}

	var redactor ports.Redactor
	if cfg.Cleaning.Redact && pool != nil {
		redactor = llm.NewRedactor(pool)
	}

	return cleaning.New(rules, redactor, cleaning.Options{
		Capitalize: cfg.Cleaning.Capitalize,
		PIIColumns: cfg.Cleaning.PIIColumns,
	}, logger.With("component", "cleaner")), nil
}

func buildClassifier(cfg config.Config) (*taxonomy.Classifier, *taxonomy.Taxonomy, error) {
	rules := taxonomy.DefaultRules()
	if path := cfg.Taxonomy.RulesPath; path != "" {
		loaded, err := taxonomy.LoadRules(path)
		if err != nil {
			return nil, nil, err
		}
		rules = loaded
	}

	var tree *taxonomy.Taxonomy
	if path := cfg.Taxonomy.TreePath; path != "" {
		loaded, err := taxonomy.Load(path)
		if err != nil {
			return nil, nil, err
		}
		tree = loaded
	}

	return taxonomy.NewClassifier(rules, tree), tree, nil
}

func buildSource(cfg config.Config, logger *slog.Logger) (ports.Source, error) {
	switch cfg.Source.Kind {
	case "csv", "":
		return csvio.NewReader(csvio.ReaderConfig{
			Path:       cfg.Source.Path,
			IDColumn:   cfg.Source.IDColumn,
			TextColumn: cfg.Source.TextColumn,
			DateColumn: cfg.Source.DateColumn,
		}, logger.With("component", "source")), nil
	case "html":
		return htmlexport.NewSource(cfg.Source.Path, htmlexport.Selectors{}, logger.With("component", "source")), nil
	default:
		return nil, fmt.Errorf("unknown source kind %q", cfg.Source.Kind)
	}
}

func providerTimeout(seconds int) time.Duration {
	if seconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(seconds) * time.Second
}
