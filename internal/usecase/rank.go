package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
	"dailybrief/internal/retry"
)

// RankConfig tunes scoring and tier sizes.
type RankConfig struct {
	TopStories          int
	SecondaryStories    int
	CorroborationWeight float64
	Timeout             time.Duration
}

// Ranker orders canonical items and assigns display tiers.
type Ranker struct {
	intel   ports.TextIntelligence
	retrier *retry.Retrier
	cfg     RankConfig
	logger  *slog.Logger
}

// NewRanker constructs the ranking stage.
func NewRanker(intel ports.TextIntelligence, retrier *retry.Retrier, cfg RankConfig, logger *slog.Logger) *Ranker {
	if cfg.TopStories <= 0 {
		cfg.TopStories = 5
	}
	if cfg.SecondaryStories <= 0 {
		cfg.SecondaryStories = 10
	}
	if cfg.CorroborationWeight <= 0 {
		cfg.CorroborationWeight = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Ranker{intel: intel, retrier: retrier, cfg: cfg, logger: logger}
}

// Rank orders items by significance and assigns tiers. The score combines
// the judged content significance with a corroboration bonus per extra
// contributing source; ties go to the item with more sources, then to the
// earlier cluster. An empty input is an error only when the caller
// required a non-empty digest; a no-news day is not a failure.
func (r *Ranker) Rank(ctx context.Context, items []domain.CanonicalItem, requireItems bool, report *domain.RunReport) ([]domain.RankedItem, error) {
	if len(items) == 0 {
		if requireItems {
			return nil, domain.ErrNoRankableItems
		}
		return []domain.RankedItem{}, nil
	}

	judged := r.judge(ctx, items, report)

	type entry struct {
		item    domain.CanonicalItem
		score   float64
		sources int
		index   int
	}
	entries := make([]entry, len(items))
	for i, item := range items {
		score := judged[i] + r.cfg.CorroborationWeight*float64(len(item.Sources)-1)
		entries[i] = entry{item: item, score: score, sources: len(item.Sources), index: i}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		if entries[i].sources != entries[j].sources {
			return entries[i].sources > entries[j].sources
		}
		return entries[i].index < entries[j].index
	})

	ranked := make([]domain.RankedItem, 0, len(entries))
	positions := make(map[domain.Tier]int)
	for i, e := range entries {
		tier := r.tierFor(i)
		positions[tier]++
		e.item.Score = e.score
		ranked = append(ranked, domain.RankedItem{Item: e.item, Tier: tier, Position: positions[tier]})
	}
	return ranked, nil
}

// tierFor maps a rank position to its tier. Monotonic by construction:
// a lower rank can never land in a more important tier.
func (r *Ranker) tierFor(rank int) domain.Tier {
	switch {
	case rank < r.cfg.TopStories:
		return domain.TierHeadline
	case rank < r.cfg.TopStories+r.cfg.SecondaryStories:
		return domain.TierNotable
	default:
		return domain.TierMinor
	}
}

// judge obtains per-item significance scores through the capability. When
// the call keeps failing the run degrades instead of aborting: all judged
// scores become zero and corroboration alone orders the digest.
func (r *Ranker) judge(ctx context.Context, items []domain.CanonicalItem, report *domain.RunReport) []float64 {
	scores := make([]float64, len(items))
	err := r.retrier.Do(ctx, "judge significance", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()

		got, callErr := r.intel.JudgeSignificance(callCtx, items)
		if callErr != nil {
			return callErr
		}
		if len(got) != len(items) {
			return fmt.Errorf("%w: %d scores for %d items", domain.ErrMalformedResponse, len(got), len(items))
		}
		copy(scores, got)
		return nil
	})
	if err != nil {
		r.logger.Warn("significance judgment unavailable, ranking on corroboration only", "err", err)
		if report != nil {
			report.RecordRunError(domain.FailureSignificance, err.Error())
		}
		for i := range scores {
			scores[i] = 0
		}
	}
	return scores
}
