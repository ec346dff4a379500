package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"dailybrief/internal/config"
	"dailybrief/internal/domain"
	"dailybrief/internal/infrastructure/audio"
	"dailybrief/internal/infrastructure/delivery"
	"dailybrief/internal/infrastructure/llm"
	"dailybrief/internal/infrastructure/mailbox"
	"dailybrief/internal/infrastructure/render"
	"dailybrief/internal/infrastructure/rss"
	"dailybrief/internal/infrastructure/scheduler"
	"dailybrief/internal/infrastructure/storage"
	"dailybrief/internal/infrastructure/telegram"
	"dailybrief/internal/logging"
	"dailybrief/internal/ports"
	"dailybrief/internal/retry"
	"dailybrief/internal/sources"
	"dailybrief/internal/usecase"
)

// Application wires configuration to the briefing pipeline, its adapters,
// and the daily trigger.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	pipeline  *usecase.Pipeline
	store     *storage.PostgresStore
	scheduler *usecase.Scheduler
	db        *sql.DB
}

// New builds a runnable application instance from configuration. Optional
// collaborators (Telegram, narration, persistence) stay nil when their
// settings are absent.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	retrier := retry.New(retry.Config{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   cfg.Retry.BaseDelay.Std(),
		MaxDelay:    cfg.Retry.MaxDelay.Std(),
	}, baseLogger.With("component", "retry"))

	registry := sources.NewRegistry()
	registry.Register(domain.SourceMailbox, mailbox.NewReader(cfg.Mailbox.Root))
	registry.Register(domain.SourceFeed, rss.NewFetcher(nil))

	intel := llm.NewClient(cfg.LLM.Endpoint, cfg.LLM.Model, cfg.LLM.APIKey)
	callTimeout := cfg.LLM.Timeout.Std()

	extractor := usecase.NewExtractor(intel, retrier, usecase.ExtractConfig{
		MinDocumentChars: cfg.Pipeline.MinDocumentChars,
		MaxDocumentChars: cfg.Pipeline.MaxDocumentChars,
		Timeout:          callTimeout,
	})
	clusters := usecase.NewClusterBuilder(usecase.ClusterConfig{
		SimilarityThreshold: cfg.Pipeline.SimilarityThreshold,
	})
	merger := usecase.NewMerger(usecase.MergeConfig{
		NoveltyThreshold: cfg.Pipeline.NoveltyThreshold,
		MaxSummaryChars:  cfg.Pipeline.MaxSummaryChars,
	})
	ranker := usecase.NewRanker(intel, retrier, usecase.RankConfig{
		TopStories:          cfg.Pipeline.TopStories,
		SecondaryStories:    cfg.Pipeline.SecondaryStories,
		CorroborationWeight: cfg.Pipeline.CorroborationWeight,
		Timeout:             callTimeout,
	}, baseLogger.With("component", "ranker"))

	renderer, err := render.NewRenderer(cfg.Briefing.SubjectPrefix)
	if err != nil {
		return nil, fmt.Errorf("build renderer: %w", err)
	}

	mailer := delivery.NewMailer(delivery.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		To:       cfg.SMTP.To,
		Admin:    cfg.SMTP.Admin,
	})

	var notifier ports.Notifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID)
	}

	var narrator ports.Narrator
	if cfg.Audio.Enabled {
		narrator = audio.NewNarrator(cfg.Audio.VoiceID, cfg.Audio.APIKey)
	}

	var (
		db    *sql.DB
		store *storage.PostgresStore
		repts ports.ReportStore
	)
	if cfg.Database.DSN != "" {
		db, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		store = storage.NewPostgresStore(db)
		repts = store
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Sources:      cfg.DomainSources(),
		Registry:     registry,
		Extractor:    extractor,
		Clusters:     clusters,
		Merger:       merger,
		Ranker:       ranker,
		Assembler:    usecase.NewAssembler(),
		Renderer:     renderer,
		Deliverer:    mailer,
		Notifier:     notifier,
		Narrator:     narrator,
		Reports:      repts,
		Retrier:      retrier,
		Logger:       baseLogger.With("component", "pipeline"),
		Workers:      cfg.Pipeline.Workers,
		RequireItems: cfg.Pipeline.RequireItems,
	})

	trigger := scheduler.NewDailyScheduler(cfg.Schedule.Hour, cfg.Schedule.Minute)

	return &Application{
		cfg:       cfg,
		logger:    baseLogger,
		pipeline:  pipeline,
		store:     store,
		scheduler: usecase.NewScheduler(trigger, pipeline, baseLogger.With("component", "scheduler")),
		db:        db,
	}, nil
}

// RunOnce executes a single briefing for the given date.
func (a *Application) RunOnce(ctx context.Context, date time.Time) (*domain.RunReport, error) {
	if err := a.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return a.pipeline.Run(ctx, date)
}

// Preview renders the briefing for the given date without delivering,
// narrating, or persisting anything.
func (a *Application) Preview(ctx context.Context, date time.Time) (domain.Document, *domain.RunReport, error) {
	return a.pipeline.Preview(ctx, date)
}

// RecentReports lists the latest persisted run reports, newest first.
func (a *Application) RecentReports(ctx context.Context, limit int) ([]domain.RunReport, error) {
	if a.store == nil {
		return nil, fmt.Errorf("report history requires database.dsn")
	}
	return a.store.RecentReports(ctx, limit)
}

// Sources returns the configured sources in file order.
func (a *Application) Sources() []domain.Source {
	return a.cfg.DomainSources()
}

// Serve blocks running the daily trigger until the context is cancelled.
func (a *Application) Serve(ctx context.Context) error {
	if err := a.ensureSchema(ctx); err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "scheduler starting",
		"daily_at", fmt.Sprintf("%02d:%02d UTC", a.cfg.Schedule.Hour, a.cfg.Schedule.Minute))

	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	_ = a.scheduler.Stop(context.Background())
	a.logger.Info("scheduler stopped")
	return nil
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

func (a *Application) ensureSchema(ctx context.Context) error {
	if a.store == nil {
		return nil
	}
	if err := a.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("prepare report store: %w", err)
	}
	return nil
}
