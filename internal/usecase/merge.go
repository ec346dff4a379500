package usecase

import (
	"errors"
	"strings"

	"dailybrief/internal/domain"
	"dailybrief/internal/similarity"
)

// MergeConfig tunes canonical-item synthesis.
type MergeConfig struct {
	NoveltyThreshold float64
	MaxSummaryChars  int
}

// Merger folds each cluster into one canonical item.
type Merger struct {
	novelty  float64
	maxChars int
}

// NewMerger constructs the merge stage.
func NewMerger(cfg MergeConfig) *Merger {
	if cfg.NoveltyThreshold <= 0 || cfg.NoveltyThreshold > 1 {
		cfg.NoveltyThreshold = 0.5
	}
	if cfg.MaxSummaryChars <= 0 {
		cfg.MaxSummaryChars = 600
	}
	return &Merger{novelty: cfg.NoveltyThreshold, maxChars: cfg.MaxSummaryChars}
}

// Merge synthesizes the canonical item for one cluster. The headline comes
// from the member with the most detailed summary (longest wins, earliest
// member on ties); the summary keeps that member's text and appends
// sentences from the others that add enough new information. URLs and
// contributing sources keep first-seen order without duplicates.
func (m *Merger) Merge(cluster domain.Cluster) (domain.CanonicalItem, error) {
	if len(cluster.Members) == 0 {
		return domain.CanonicalItem{}, &domain.MergeError{ClusterID: cluster.ID, Err: errors.New("cluster has no members")}
	}

	base := 0
	for i, member := range cluster.Members {
		if runeLen(member.Summary) > runeLen(cluster.Members[base].Summary) {
			base = i
		}
	}

	headline := strings.TrimSpace(cluster.Members[base].Headline)
	summary := m.synthesize(cluster.Members, base)
	if headline == "" || summary == "" {
		return domain.CanonicalItem{}, &domain.MergeError{ClusterID: cluster.ID, Err: errors.New("synthesis produced no headline or summary")}
	}

	return domain.CanonicalItem{
		ClusterID: cluster.ID,
		Headline:  headline,
		Summary:   summary,
		URLs:      collectURLs(cluster.Members),
		Sources:   collectSources(cluster.Members),
	}, nil
}

// synthesize combines distinct details across members instead of copying a
// single member verbatim: sentences from non-base members are appended
// when enough of their keywords are new to the text built so far.
func (m *Merger) synthesize(members []domain.ItemCandidate, base int) string {
	summary := strings.TrimSpace(members[base].Summary)
	if summary == "" {
		summary = strings.TrimSpace(members[base].Headline)
	}

	known := make(map[string]bool)
	absorb := func(text string) {
		for _, tok := range similarity.Keywords(text) {
			known[tok] = true
		}
	}
	absorb(summary)

	for i, member := range members {
		if i == base {
			continue
		}
		for _, sentence := range splitSentences(member.Summary) {
			keys := similarity.Keywords(sentence)
			if len(keys) == 0 {
				continue
			}
			novel := 0
			for _, tok := range keys {
				if !known[tok] {
					novel++
				}
			}
			if float64(novel)/float64(len(keys)) < m.novelty {
				continue
			}
			if !endsTerminated(summary) {
				summary += "."
			}
			if !endsTerminated(sentence) {
				sentence += "."
			}
			summary += " " + sentence
			absorb(sentence)
		}
	}

	return clipAtSentence(summary, m.maxChars)
}

func collectURLs(members []domain.ItemCandidate) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, member := range members {
		raw := strings.TrimSpace(member.URL)
		if raw == "" {
			continue
		}
		key := similarity.CanonicalURL(raw)
		if seen[key] {
			continue
		}
		seen[key] = true
		urls = append(urls, raw)
	}
	return urls
}

func collectSources(members []domain.ItemCandidate) []string {
	seen := make(map[string]bool)
	var names []string
	for _, member := range members {
		if member.Source == "" || seen[member.Source] {
			continue
		}
		seen[member.Source] = true
		names = append(names, member.Source)
	}
	return names
}

// splitSentences cuts text at terminal punctuation followed by whitespace.
func splitSentences(s string) []string {
	var out []string
	var b strings.Builder
	runes := []rune(strings.TrimSpace(s))
	for i, r := range runes {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if i+1 >= len(runes) || runes[i+1] == ' ' || runes[i+1] == '\n' {
				if t := strings.TrimSpace(b.String()); t != "" {
					out = append(out, t)
				}
				b.Reset()
			}
		}
	}
	if t := strings.TrimSpace(b.String()); t != "" {
		out = append(out, t)
	}
	return out
}

func endsTerminated(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}

// clipAtSentence keeps whole sentences up to the limit. When even the
// first sentence is too long it is cut at the limit instead.
func clipAtSentence(s string, maxChars int) string {
	if runeLen(s) <= maxChars {
		return s
	}
	var clipped string
	for _, sentence := range splitSentences(s) {
		candidate := sentence
		if clipped != "" {
			candidate = clipped + " " + sentence
		}
		if runeLen(candidate) > maxChars {
			break
		}
		clipped = candidate
	}
	if clipped == "" {
		return truncateRunes(s, maxChars)
	}
	return clipped
}
