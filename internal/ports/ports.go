package ports

import (
	"context"
	"time"

	"dailybrief/internal/domain"
)

// MessageSource retrieves the raw newsletter body for one source and date.
// A missing document is reported with domain.ErrSourceNotFound and recorded
// as a missing source, never treated as a hard failure.
type MessageSource interface {
	Fetch(ctx context.Context, source domain.Source, date time.Time) (domain.RawDocument, error)
}

// TextIntelligence is the black-box text-understanding capability behind
// candidate extraction and significance judgment. Its responses are not
// assumed to be repeatable between calls.
type TextIntelligence interface {
	ExtractItems(ctx context.Context, text string, source domain.Source) ([]domain.ItemCandidate, error)
	JudgeSignificance(ctx context.Context, items []domain.CanonicalItem) ([]float64, error)
}

// Renderer turns an assembled digest into a deliverable document.
type Renderer interface {
	Render(ctx context.Context, digest domain.Digest) (domain.Document, error)
}

// Deliverer sends the rendered digest, or a failure notice when a run
// aborts before producing one.
type Deliverer interface {
	Deliver(ctx context.Context, doc domain.Document, report domain.RunReport) error
	NotifyFailure(ctx context.Context, report domain.RunReport) error
}

// Notifier pushes a compact digest summary to a secondary channel.
type Notifier interface {
	PublishDigest(ctx context.Context, digest domain.Digest) error
}

// Narrator produces a spoken rendition of the digest.
type Narrator interface {
	Narrate(ctx context.Context, digest domain.Digest) ([]byte, error)
}

// ReportStore persists run reports for history and audit.
type ReportStore interface {
	SaveReport(ctx context.Context, report domain.RunReport) error
	RecentReports(ctx context.Context, limit int) ([]domain.RunReport, error)
}

// Scheduler controls when runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
