package usecase

import (
	"strings"

	"dailybrief/internal/domain"
)

// promoTags mark candidates that are not news: sponsorships, tooling tips,
// tutorials, hiring posts. Matched against normalized topic tags.
var promoTags = map[string]bool{
	"promo": true, "promotion": true, "promotional": true,
	"sponsor": true, "sponsored": true, "sponsorship": true,
	"ad": true, "ads": true, "advertisement": true, "advertising": true,
	"tutorial": true, "tutorials": true, "guide": true, "howto": true,
	"tip": true, "tips": true, "tool": true, "tools": true,
	"webinar": true, "course": true, "courses": true,
	"deal": true, "deals": true, "discount": true,
	"job": true, "jobs": true, "hiring": true,
}

// promoPhrases catch promotional headlines that arrive untagged.
var promoPhrases = []string{
	"sponsored",
	"[sponsor",
	"advertisement",
	"how to ",
	"tutorial",
	"webinar",
	"% off",
	"sign up now",
	"limited time offer",
}

// filterCandidates drops non-news candidates and anything without a
// headline. The filter runs after extraction so promotional content never
// reaches clustering, where it would distort the dedup math.
func filterCandidates(candidates []domain.ItemCandidate) []domain.ItemCandidate {
	kept := make([]domain.ItemCandidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.Headline) == "" {
			continue
		}
		if isPromotional(c) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func isPromotional(c domain.ItemCandidate) bool {
	for _, tag := range c.Tags {
		if promoTags[strings.ToLower(strings.TrimSpace(tag))] {
			return true
		}
	}
	headline := strings.ToLower(c.Headline)
	for _, phrase := range promoPhrases {
		if strings.Contains(headline, phrase) {
			return true
		}
	}
	return false
}
