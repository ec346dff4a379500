package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
	"dailybrief/internal/retry"
	"dailybrief/internal/sources"
)

// PipelineDeps wires the stages and driven adapters into the orchestrator.
// Notifier, Narrator and Reports are optional; everything else is required.
type PipelineDeps struct {
	Sources   []domain.Source
	Registry  *sources.Registry
	Extractor *Extractor
	Clusters  *ClusterBuilder
	Merger    *Merger
	Ranker    *Ranker
	Assembler *Assembler
	Renderer  ports.Renderer
	Deliverer ports.Deliverer
	Notifier  ports.Notifier
	Narrator  ports.Narrator
	Reports   ports.ReportStore
	Retrier   *retry.Retrier
	Logger    *slog.Logger

	Workers      int
	RequireItems bool
}

// Pipeline implements one briefing run as a state machine over the
// RunReport: start, fetching, extracting, clustering, merging, ranking,
// assembling, delivering, then completed or aborted. Failures below the
// orchestrator never escape as panics or process exits; every stage hands
// back a result or a recorded failure.
type Pipeline struct {
	feeds     []domain.Source
	registry  *sources.Registry
	extractor *Extractor
	clusters  *ClusterBuilder
	merger    *Merger
	ranker    *Ranker
	assembler *Assembler
	renderer  ports.Renderer
	deliverer ports.Deliverer
	notifier  ports.Notifier
	narrator  ports.Narrator
	reports   ports.ReportStore
	retrier   *retry.Retrier
	logger    *slog.Logger

	workers      int
	requireItems bool
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	workers := deps.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Pipeline{
		feeds:        deps.Sources,
		registry:     deps.Registry,
		extractor:    deps.Extractor,
		clusters:     deps.Clusters,
		merger:       deps.Merger,
		ranker:       deps.Ranker,
		assembler:    deps.Assembler,
		renderer:     deps.Renderer,
		deliverer:    deps.Deliverer,
		notifier:     deps.Notifier,
		narrator:     deps.Narrator,
		reports:      deps.Reports,
		retrier:      deps.Retrier,
		logger:       deps.Logger,
		workers:      workers,
		requireItems: deps.RequireItems,
	}
}

// Run executes one briefing for the given date and returns the finished
// report. The error is nil exactly when the digest was delivered.
func (p *Pipeline) Run(ctx context.Context, date time.Time) (*domain.RunReport, error) {
	report := domain.NewRunReport(uuid.New().String(), date)
	logger := p.logger.With("run_id", report.RunID, "date", date.Format("2006-01-02"))
	logger.InfoContext(ctx, "run starting", "sources", len(p.feeds))

	digest, err := p.build(ctx, logger, report, date)
	if err != nil {
		return p.abort(ctx, logger, report, err)
	}

	doc, err := p.renderer.Render(ctx, digest)
	if err != nil {
		return p.abort(ctx, logger, report, fmt.Errorf("render digest: %w", err))
	}

	p.narrate(ctx, logger, report, digest, &doc)

	report.Transition(domain.StateDelivering)
	err = p.retrier.Do(ctx, "deliver digest", func(ctx context.Context) error {
		return p.deliverer.Deliver(ctx, doc, *report)
	})
	if err != nil {
		report.RecordRunError(domain.FailureDelivery, err.Error())
		return p.abort(ctx, logger, report, &domain.DeliveryError{Err: err})
	}
	report.Delivered = true

	if p.notifier != nil {
		if nErr := p.notifier.PublishDigest(ctx, digest); nErr != nil {
			logger.WarnContext(ctx, "secondary digest notification failed", "err", nErr)
		}
	}

	report.Transition(domain.StateCompleted)
	report.FinishedAt = time.Now()
	p.saveReport(ctx, logger, report)
	logger.InfoContext(ctx, "run completed",
		"items", report.TotalItems,
		"clusters", report.TotalClusters,
		"failed_sources", len(report.SourceFailures))
	return report, nil
}

// Preview runs the pipeline up to rendering and returns the document
// without delivering, narrating, or persisting anything.
func (p *Pipeline) Preview(ctx context.Context, date time.Time) (domain.Document, *domain.RunReport, error) {
	report := domain.NewRunReport(uuid.New().String(), date)
	logger := p.logger.With("run_id", report.RunID, "date", date.Format("2006-01-02"))

	digest, err := p.build(ctx, logger, report, date)
	if err != nil {
		report.Transition(domain.StateAborted)
		report.FinishedAt = time.Now()
		return domain.Document{}, report, err
	}

	doc, err := p.renderer.Render(ctx, digest)
	if err != nil {
		report.Transition(domain.StateAborted)
		report.FinishedAt = time.Now()
		return domain.Document{}, report, fmt.Errorf("render digest: %w", err)
	}

	report.Transition(domain.StateCompleted)
	report.FinishedAt = time.Now()
	return doc, report, nil
}

// build walks the stages from fetching through assembly. Per-source
// failures are recorded and tolerated; the returned error is one of the
// run-fatal conditions only.
func (p *Pipeline) build(ctx context.Context, logger *slog.Logger, report *domain.RunReport, date time.Time) (domain.Digest, error) {
	enabled := enabledSources(p.feeds)
	for _, src := range enabled {
		report.SourcesAttempted = append(report.SourcesAttempted, src.Name)
	}
	if len(enabled) == 0 {
		return domain.Digest{}, domain.ErrAllSourcesFailed
	}

	report.Transition(domain.StateFetching)
	docs := p.fetchAll(ctx, logger, enabled, date, report)
	if err := ctx.Err(); err != nil {
		return domain.Digest{}, err
	}

	report.Transition(domain.StateExtracting)
	candidates := p.extractAll(ctx, logger, docs, report)
	report.TotalCandidates = len(candidates)
	if err := ctx.Err(); err != nil {
		return domain.Digest{}, err
	}
	if len(report.SourceFailures) >= len(enabled) {
		return domain.Digest{}, domain.ErrAllSourcesFailed
	}

	report.Transition(domain.StateClustering)
	clusters := p.clusters.Build(candidates)
	report.TotalClusters = len(clusters)
	logger.InfoContext(ctx, "candidates clustered",
		"candidates", len(candidates), "clusters", len(clusters))

	report.Transition(domain.StateMerging)
	items := p.mergeAll(ctx, logger, clusters, report)
	report.TotalItems = len(items)

	report.Transition(domain.StateRanking)
	ranked, err := p.ranker.Rank(ctx, items, p.requireItems, report)
	if err != nil {
		return domain.Digest{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.Digest{}, err
	}

	report.Transition(domain.StateAssembling)
	return p.assembler.Assemble(date, ranked, report), nil
}

// fetchAll retrieves every enabled source concurrently under the worker
// limit. Slots keep the configured source order regardless of completion
// order, and the report is only written after all workers have joined.
func (p *Pipeline) fetchAll(ctx context.Context, logger *slog.Logger, enabled []domain.Source, date time.Time, report *domain.RunReport) []domain.RawDocument {
	type slot struct {
		doc     domain.RawDocument
		ok      bool
		failure *domain.SourceFailure
	}
	slots := make([]slot, len(enabled))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, src := range enabled {
		i, src := i, src
		g.Go(func() error {
			doc, err := p.fetchOne(gctx, src, date)
			switch {
			case errors.Is(err, domain.ErrSourceNotFound):
				logger.InfoContext(gctx, "no document for source", "source", src.Name)
				slots[i].failure = &domain.SourceFailure{
					Source: src.Name,
					Kind:   domain.FailureMissing,
					Reason: "no document for run date",
				}
			case err != nil:
				logger.WarnContext(gctx, "source unavailable", "source", src.Name, "err", err)
				slots[i].failure = &domain.SourceFailure{
					Source: src.Name,
					Kind:   domain.FailureMissing,
					Reason: err.Error(),
				}
			default:
				slots[i].doc = doc
				slots[i].ok = true
			}
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]domain.RawDocument, 0, len(enabled))
	for i := range slots {
		if slots[i].failure != nil {
			report.SourceFailures = append(report.SourceFailures, *slots[i].failure)
			continue
		}
		if slots[i].ok {
			docs = append(docs, slots[i].doc)
		}
	}
	return docs
}

func (p *Pipeline) fetchOne(ctx context.Context, src domain.Source, date time.Time) (domain.RawDocument, error) {
	adapter, err := p.registry.Resolve(src.Kind)
	if err != nil {
		return domain.RawDocument{}, err
	}
	var doc domain.RawDocument
	err = p.retrier.Do(ctx, "fetch "+src.Name, func(ctx context.Context) error {
		var fErr error
		doc, fErr = adapter.Fetch(ctx, src, date)
		return fErr
	})
	return doc, err
}

// extractAll runs candidate extraction per fetched document concurrently.
// A failed source is recorded and skipped; its failure never cancels the
// sibling extractions.
func (p *Pipeline) extractAll(ctx context.Context, logger *slog.Logger, docs []domain.RawDocument, report *domain.RunReport) []domain.ItemCandidate {
	type slot struct {
		candidates []domain.ItemCandidate
		failure    *domain.SourceFailure
	}
	slots := make([]slot, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, doc := range docs {
		i, doc := i, doc
		g.Go(func() error {
			candidates, err := p.extractor.Extract(gctx, doc)
			switch {
			case errors.Is(err, domain.ErrEmptyDocument):
				logger.InfoContext(gctx, "document too short, skipping source", "source", doc.Source.Name)
				slots[i].failure = &domain.SourceFailure{
					Source: doc.Source.Name,
					Kind:   domain.FailureEmpty,
					Reason: "document below minimum length",
				}
			case err != nil:
				logger.WarnContext(gctx, "extraction failed", "source", doc.Source.Name, "err", err)
				slots[i].failure = &domain.SourceFailure{
					Source: doc.Source.Name,
					Kind:   domain.FailureExtraction,
					Reason: err.Error(),
				}
			default:
				logger.InfoContext(gctx, "candidates extracted", "source", doc.Source.Name, "count", len(candidates))
				slots[i].candidates = candidates
			}
			return nil
		})
	}
	_ = g.Wait()

	var all []domain.ItemCandidate
	for i := range slots {
		if slots[i].failure != nil {
			report.SourceFailures = append(report.SourceFailures, *slots[i].failure)
			continue
		}
		all = append(all, slots[i].candidates...)
	}
	return all
}

// mergeAll folds clusters into canonical items. A cluster that cannot
// merge is dropped and recorded, never fatal.
func (p *Pipeline) mergeAll(ctx context.Context, logger *slog.Logger, clusters []domain.Cluster, report *domain.RunReport) []domain.CanonicalItem {
	items := make([]domain.CanonicalItem, 0, len(clusters))
	for _, cluster := range clusters {
		item, err := p.merger.Merge(cluster)
		if err != nil {
			logger.WarnContext(ctx, "cluster dropped", "cluster", cluster.ID, "err", err)
			report.RecordClusterFailure(cluster.ID, err.Error())
			continue
		}
		items = append(items, item)
	}
	return items
}

// narrate attaches the spoken rendition when a narrator is wired. Audio
// failures degrade the run, they never abort it.
func (p *Pipeline) narrate(ctx context.Context, logger *slog.Logger, report *domain.RunReport, digest domain.Digest, doc *domain.Document) {
	if p.narrator == nil || digest.Empty() {
		return
	}
	audio, err := p.narrator.Narrate(ctx, digest)
	if err != nil {
		logger.WarnContext(ctx, "narration failed, continuing without audio", "err", err)
		report.RecordRunError(domain.FailureAudio, err.Error())
		return
	}
	if len(audio) == 0 {
		return
	}
	doc.Audio = audio
	doc.AudioName = fmt.Sprintf("briefing-%s.mp3", digest.Date.Format("2006-01-02"))
	report.AudioIncluded = true
}

// abort finishes the run on the failure path. The report is still flushed
// to the delivery collaborator as a failure notification, on a detached
// context when the run's own context is already cancelled, so an aborted
// run never disappears silently.
func (p *Pipeline) abort(ctx context.Context, logger *slog.Logger, report *domain.RunReport, cause error) (*domain.RunReport, error) {
	report.Transition(domain.StateAborted)
	report.FinishedAt = time.Now()
	logger.ErrorContext(ctx, "run aborted", "state_trail", len(report.Trail), "cause", cause)

	nctx := ctx
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		nctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
	}
	if err := p.deliverer.NotifyFailure(nctx, *report); err != nil {
		logger.ErrorContext(nctx, "failure notification could not be sent", "err", err)
	}
	p.saveReport(nctx, logger, report)
	return report, cause
}

// saveReport persists the report when a history store is configured.
func (p *Pipeline) saveReport(ctx context.Context, logger *slog.Logger, report *domain.RunReport) {
	if p.reports == nil {
		return
	}
	if err := p.reports.SaveReport(ctx, *report); err != nil {
		logger.WarnContext(ctx, "run report not persisted", "err", err)
	}
}

func enabledSources(all []domain.Source) []domain.Source {
	var enabled []domain.Source
	for _, src := range all {
		if src.Enabled {
			enabled = append(enabled, src)
		}
	}
	return enabled
}
