package usecase

import (
	"context"
	"strings"
	"time"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
	"dailybrief/internal/retry"
)

// ExtractConfig bounds the per-source extraction step.
type ExtractConfig struct {
	MinDocumentChars int
	MaxDocumentChars int
	Timeout          time.Duration
}

// Extractor turns one raw document into filtered item candidates.
type Extractor struct {
	intel   ports.TextIntelligence
	retrier *retry.Retrier
	cfg     ExtractConfig
}

// NewExtractor constructs the extraction stage.
func NewExtractor(intel ports.TextIntelligence, retrier *retry.Retrier, cfg ExtractConfig) *Extractor {
	if cfg.MinDocumentChars <= 0 {
		cfg.MinDocumentChars = 100
	}
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = 50000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Extractor{intel: intel, retrier: retrier, cfg: cfg}
}

// Extract returns the candidate list for one document. A source either
// contributes its full candidate list or fails as a whole: an unparsable
// response from the capability is an extraction failure, never a partial
// result. Non-news content is filtered out here.
func (e *Extractor) Extract(ctx context.Context, doc domain.RawDocument) ([]domain.ItemCandidate, error) {
	body := strings.TrimSpace(doc.Body)
	if runeLen(body) < e.cfg.MinDocumentChars {
		return nil, domain.ErrEmptyDocument
	}
	if runeLen(body) > e.cfg.MaxDocumentChars {
		body = truncateRunes(body, e.cfg.MaxDocumentChars)
	}

	var candidates []domain.ItemCandidate
	err := e.retrier.Do(ctx, "extract "+doc.Source.Name, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
		defer cancel()

		got, callErr := e.intel.ExtractItems(callCtx, body, doc.Source)
		if callErr != nil {
			return callErr
		}
		candidates = got
		return nil
	})
	if err != nil {
		return nil, &domain.ExtractionError{Source: doc.Source.Name, Err: err}
	}

	kept := filterCandidates(candidates)
	for i := range kept {
		kept[i].Source = doc.Source.Name
	}
	return kept, nil
}

func runeLen(s string) int {
	return len([]rune(s))
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
