package usecase

import (
	"time"

	"dailybrief/internal/domain"
)

// Section titles for the three display tiers.
const (
	sectionTop     = "Top Stories"
	sectionNotable = "Also Notable"
	sectionMinor   = "In Brief"
)

// Assembler groups ranked items into the digest's named sections.
type Assembler struct{}

// NewAssembler constructs the assembly stage.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Assemble builds the digest for one run: sections in tier order, source
// coverage for the degraded-run annotation, and the counts the renderer
// prints. Empty tiers produce no section; a run with no items still
// yields a valid digest.
func (a *Assembler) Assemble(date time.Time, ranked []domain.RankedItem, report *domain.RunReport) domain.Digest {
	byTier := make(map[domain.Tier][]domain.RankedItem)
	for _, item := range ranked {
		byTier[item.Tier] = append(byTier[item.Tier], item)
	}

	var sections []domain.Section
	for _, def := range []struct {
		tier  domain.Tier
		title string
	}{
		{domain.TierHeadline, sectionTop},
		{domain.TierNotable, sectionNotable},
		{domain.TierMinor, sectionMinor},
	} {
		if items := byTier[def.tier]; len(items) > 0 {
			sections = append(sections, domain.Section{Title: def.title, Items: items})
		}
	}

	return domain.Digest{
		Date:            date,
		Sections:        sections,
		SourcesCovered:  report.SucceededSources(),
		SourcesMissing:  report.FailedSourceNames(),
		TotalItems:      len(ranked),
		TotalCandidates: report.TotalCandidates,
	}
}
