package domain

import "time"

// SourceKind selects the adapter that retrieves documents for a source.
type SourceKind string

const (
	SourceMailbox SourceKind = "mailbox"
	SourceFeed    SourceKind = "rss"
)

// Source identifies one newsletter feed contributing items to a run.
type Source struct {
	Name        string
	DisplayName string
	Address     string
	FeedURL     string
	Kind        SourceKind
	Enabled     bool
}

// Label returns the name shown in rendered output.
func (s Source) Label() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	return s.Name
}

// RawDocument is the plain-text body retrieved for one source on one run date.
type RawDocument struct {
	Source      Source
	Date        time.Time
	Subject     string
	Body        string
	RetrievedAt time.Time
}
