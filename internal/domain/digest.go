package domain

import "time"

// Section is one named group of ranked items in display order.
type Section struct {
	Title string
	Items []RankedItem
}

// Digest is the assembled briefing for one run date, ready for rendering.
type Digest struct {
	Date            time.Time
	Sections        []Section
	SourcesCovered  []string
	SourcesMissing  []string
	TotalItems      int
	TotalCandidates int
}

// TopStories returns the items of the first section, if any.
func (d Digest) TopStories() []RankedItem {
	if len(d.Sections) == 0 {
		return nil
	}
	return d.Sections[0].Items
}

// Empty reports whether the digest carries no items at all.
func (d Digest) Empty() bool {
	return d.TotalItems == 0
}

// Document is a rendered digest ready for delivery.
type Document struct {
	Subject   string
	HTMLBody  string
	TextBody  string
	AudioName string
	Audio     []byte
}
