package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
	"dailybrief/pkg/htmltext"
)

// Fetcher implements ports.MessageSource over RSS and Atom feeds, for
// newsletters that publish a web edition instead of delivering mail.
type Fetcher struct {
	parser *gofeed.Parser
}

var _ ports.MessageSource = (*Fetcher)(nil)

// NewFetcher wires an HTTP client into the feed parser.
func NewFetcher(client *http.Client) *Fetcher {
	parser := gofeed.NewParser()
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	parser.Client = client
	return &Fetcher{parser: parser}
}

// Fetch loads the feed and joins every entry published on the requested
// day into one document. Feeds that post one entry per story and feeds
// that post one entry per issue both come out as a single issue text.
func (f *Fetcher) Fetch(ctx context.Context, source domain.Source, date time.Time) (domain.RawDocument, error) {
	if source.FeedURL == "" {
		return domain.RawDocument{}, fmt.Errorf("source %s has no feed url", source.Name)
	}

	feed, err := f.parser.ParseURLWithContext(source.FeedURL, ctx)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("parse feed %s: %w", source.Name, err)
	}

	day := date.UTC().Truncate(24 * time.Hour)
	entries := entriesOn(feed.Items, day)
	if len(entries) == 0 {
		return domain.RawDocument{}, fmt.Errorf("%s has no entry for %s: %w",
			source.Name, day.Format("2006-01-02"), domain.ErrSourceNotFound)
	}

	var body strings.Builder
	for _, entry := range entries {
		raw := entry.Content
		if raw == "" {
			raw = entry.Description
		}
		text, cErr := htmltext.Convert(raw)
		if cErr != nil || text == "" {
			continue
		}
		if body.Len() > 0 {
			body.WriteString("\n\n")
		}
		if title := strings.TrimSpace(entry.Title); title != "" && len(entries) > 1 {
			body.WriteString(title + "\n")
		}
		body.WriteString(text)
		if link := strings.TrimSpace(entry.Link); link != "" {
			body.WriteString("\n" + link)
		}
	}

	subject := strings.TrimSpace(entries[0].Title)
	if subject == "" {
		subject = source.DisplayName
	}

	return domain.RawDocument{
		Source:      source,
		Date:        date,
		Subject:     subject,
		Body:        body.String(),
		RetrievedAt: time.Now(),
	}, nil
}

func entriesOn(items []*gofeed.Item, day time.Time) []*gofeed.Item {
	var matches []*gofeed.Item
	for _, item := range items {
		ts := item.PublishedParsed
		if ts == nil {
			ts = item.UpdatedParsed
		}
		if ts == nil {
			continue
		}
		if ts.UTC().Truncate(24 * time.Hour).Equal(day) {
			matches = append(matches, item)
		}
	}
	return matches
}
