package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"dailybrief/internal/domain"
	"dailybrief/internal/retry"
	"dailybrief/internal/sources"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fastRetrier() *retry.Retrier {
	return retry.New(retry.Config{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		Multiplier:  2,
		Jitter:      0.01,
	}, discardLogger())
}

// httpStatusErr mimics a transport error that carries an HTTP status.
type httpStatusErr struct{ status int }

func (e *httpStatusErr) Error() string   { return fmt.Sprintf("status %d", e.status) }
func (e *httpStatusErr) HTTPStatus() int { return e.status }

// stubIntel fakes the text capability. The default extraction parses one
// candidate per "headline|summary|url" line so tests steer candidates
// through document bodies; default judgment looks scores up by headline.
type stubIntel struct {
	mu           sync.Mutex
	extractCalls int
	judgeCalls   int
	extractFn    func(ctx context.Context, text string, source domain.Source) ([]domain.ItemCandidate, error)
	judgeFn      func(ctx context.Context, items []domain.CanonicalItem) ([]float64, error)
	scores       map[string]float64
}

func (s *stubIntel) ExtractItems(ctx context.Context, text string, source domain.Source) ([]domain.ItemCandidate, error) {
	s.mu.Lock()
	s.extractCalls++
	s.mu.Unlock()
	if s.extractFn != nil {
		return s.extractFn(ctx, text, source)
	}
	return parseCandidates(text), nil
}

func (s *stubIntel) JudgeSignificance(ctx context.Context, items []domain.CanonicalItem) ([]float64, error) {
	s.mu.Lock()
	s.judgeCalls++
	s.mu.Unlock()
	if s.judgeFn != nil {
		return s.judgeFn(ctx, items)
	}
	scores := make([]float64, len(items))
	for i, item := range items {
		scores[i] = s.scores[item.Headline]
	}
	return scores, nil
}

func (s *stubIntel) calls() (extract, judge int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.extractCalls, s.judgeCalls
}

func parseCandidates(text string) []domain.ItemCandidate {
	var out []domain.ItemCandidate
	for _, line := range strings.Split(text, "\n") {
		parts := strings.Split(line, "|")
		if len(parts) != 3 {
			continue
		}
		out = append(out, domain.ItemCandidate{
			Headline: strings.TrimSpace(parts[0]),
			Summary:  strings.TrimSpace(parts[1]),
			URL:      strings.TrimSpace(parts[2]),
		})
	}
	return out
}

// stubMail serves bodies or errors keyed by source name. A source with
// neither entry has no document for the date.
type stubMail struct {
	bodies map[string]string
	errs   map[string]error
	delays map[string]time.Duration
}

func (s *stubMail) Fetch(ctx context.Context, source domain.Source, date time.Time) (domain.RawDocument, error) {
	if d := s.delays[source.Name]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return domain.RawDocument{}, ctx.Err()
		}
	}
	if err, ok := s.errs[source.Name]; ok {
		return domain.RawDocument{}, err
	}
	body, ok := s.bodies[source.Name]
	if !ok {
		return domain.RawDocument{}, domain.ErrSourceNotFound
	}
	return domain.RawDocument{
		Source:      source,
		Date:        date,
		Subject:     source.DisplayName,
		Body:        body,
		RetrievedAt: time.Now(),
	}, nil
}

type stubRenderer struct {
	mu      sync.Mutex
	digests []domain.Digest
	err     error
}

func (s *stubRenderer) Render(ctx context.Context, digest domain.Digest) (domain.Document, error) {
	s.mu.Lock()
	s.digests = append(s.digests, digest)
	s.mu.Unlock()
	if s.err != nil {
		return domain.Document{}, s.err
	}
	return domain.Document{
		Subject:  "Daily Brief " + digest.Date.Format("2006-01-02"),
		HTMLBody: "<html></html>",
		TextBody: fmt.Sprintf("%d items", digest.TotalItems),
	}, nil
}

func (s *stubRenderer) lastDigest(t *testing.T) domain.Digest {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.digests) == 0 {
		t.Fatal("nothing was rendered")
	}
	return s.digests[len(s.digests)-1]
}

type stubDeliverer struct {
	mu            sync.Mutex
	delivered     []domain.Document
	failures      []domain.RunReport
	notifyCtxErrs []error
	deliverErr    error
}

func (s *stubDeliverer) Deliver(ctx context.Context, doc domain.Document, report domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deliverErr != nil {
		return s.deliverErr
	}
	s.delivered = append(s.delivered, doc)
	return nil
}

func (s *stubDeliverer) NotifyFailure(ctx context.Context, report domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, report)
	s.notifyCtxErrs = append(s.notifyCtxErrs, ctx.Err())
	return nil
}

func (s *stubDeliverer) counts() (delivered, notified int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered), len(s.failures)
}

type stubStore struct {
	mu    sync.Mutex
	saved []domain.RunReport
}

func (s *stubStore) SaveReport(ctx context.Context, report domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, report)
	return nil
}

func (s *stubStore) RecentReports(ctx context.Context, limit int) ([]domain.RunReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit > len(s.saved) {
		limit = len(s.saved)
	}
	out := make([]domain.RunReport, limit)
	copy(out, s.saved[len(s.saved)-limit:])
	return out, nil
}

type stubNotifier struct {
	calls int
	err   error
}

func (s *stubNotifier) PublishDigest(ctx context.Context, digest domain.Digest) error {
	s.calls++
	return s.err
}

type stubNarrator struct {
	calls int
	audio []byte
	err   error
}

func (s *stubNarrator) Narrate(ctx context.Context, digest domain.Digest) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

func mailboxSource(name string) domain.Source {
	return domain.Source{
		Name:        name,
		DisplayName: name,
		Address:     name + "@news.example.com",
		Kind:        domain.SourceMailbox,
		Enabled:     true,
	}
}

// stubTrigger is a hand-operated trigger driver.
type stubTrigger struct {
	mu      sync.Mutex
	job     func(time.Time)
	started int
	stopped int
}

func (s *stubTrigger) Start(_ context.Context, job func(time.Time)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.job = job
	s.started++
	return nil
}

func (s *stubTrigger) Stop(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func (s *stubTrigger) fire(at time.Time) {
	s.mu.Lock()
	job := s.job
	s.mu.Unlock()
	if job != nil {
		job(at)
	}
}

// pipelineFixture wires a full pipeline over stub adapters.
type pipelineFixture struct {
	pipeline  *Pipeline
	mail      *stubMail
	intel     *stubIntel
	renderer  *stubRenderer
	deliverer *stubDeliverer
	store     *stubStore
}

func newFixture(srcs []domain.Source, mail *stubMail, intel *stubIntel) *pipelineFixture {
	f := &pipelineFixture{
		mail:      mail,
		intel:     intel,
		renderer:  &stubRenderer{},
		deliverer: &stubDeliverer{},
		store:     &stubStore{},
	}
	retrier := fastRetrier()
	logger := discardLogger()
	registry := sources.NewRegistry()
	registry.Register(domain.SourceMailbox, mail)

	f.pipeline = NewPipeline(PipelineDeps{
		Sources:   srcs,
		Registry:  registry,
		Extractor: NewExtractor(intel, retrier, ExtractConfig{MinDocumentChars: 10, MaxDocumentChars: 50000, Timeout: time.Second}),
		Clusters:  NewClusterBuilder(ClusterConfig{}),
		Merger:    NewMerger(MergeConfig{}),
		Ranker:    NewRanker(intel, retrier, RankConfig{Timeout: time.Second}, logger),
		Assembler: NewAssembler(),
		Renderer:  f.renderer,
		Deliverer: f.deliverer,
		Reports:   f.store,
		Retrier:   retrier,
		Logger:    logger,
	})
	return f
}
