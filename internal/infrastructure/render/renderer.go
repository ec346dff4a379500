package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"strings"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
)

//go:embed templates/digest.html.tmpl
var templateFS embed.FS

const maxSubjectHeadline = 60

// Renderer produces the HTML and plain-text renditions of a digest.
type Renderer struct {
	tmpl          *template.Template
	subjectPrefix string
}

var _ ports.Renderer = (*Renderer)(nil)

// NewRenderer parses the embedded digest template.
func NewRenderer(subjectPrefix string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/digest.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse digest template: %w", err)
	}
	if strings.TrimSpace(subjectPrefix) == "" {
		subjectPrefix = "Daily Brief"
	}
	return &Renderer{tmpl: tmpl, subjectPrefix: subjectPrefix}, nil
}

type itemData struct {
	Headline string
	Summary  string
	URLs     []string
	Sources  string
}

type sectionData struct {
	Title string
	Items []itemData
}

type templateData struct {
	Title           string
	Date            string
	Sections        []sectionData
	MissingLine     string
	CoverageLine    string
	TotalItems      int
	TotalCandidates int
}

// Render builds the deliverable document for one digest.
func (r *Renderer) Render(ctx context.Context, digest domain.Digest) (domain.Document, error) {
	data := r.templateData(digest)

	var html bytes.Buffer
	if err := r.tmpl.Execute(&html, data); err != nil {
		return domain.Document{}, fmt.Errorf("render html: %w", err)
	}

	return domain.Document{
		Subject:  r.subject(digest),
		HTMLBody: html.String(),
		TextBody: renderText(digest),
	}, nil
}

func (r *Renderer) templateData(digest domain.Digest) templateData {
	data := templateData{
		Title:           r.subjectPrefix,
		Date:            digest.Date.Format("Monday, January 2, 2006"),
		TotalItems:      digest.TotalItems,
		TotalCandidates: digest.TotalCandidates,
	}
	if len(digest.SourcesMissing) > 0 {
		data.MissingLine = "Not heard from today: " + strings.Join(digest.SourcesMissing, ", ")
	}
	if len(digest.SourcesCovered) > 0 {
		data.CoverageLine = "Covered: " + strings.Join(digest.SourcesCovered, ", ")
	}
	for _, section := range digest.Sections {
		sec := sectionData{Title: section.Title}
		for _, ranked := range section.Items {
			sec.Items = append(sec.Items, itemData{
				Headline: ranked.Item.Headline,
				Summary:  ranked.Item.Summary,
				URLs:     ranked.Item.URLs,
				Sources:  strings.Join(ranked.Item.Sources, ", "),
			})
		}
		data.Sections = append(data.Sections, sec)
	}
	return data
}

// subject is "<prefix> <date>: <top headline>", with the headline cut to
// keep mail clients from mangling it.
func (r *Renderer) subject(digest domain.Digest) string {
	base := fmt.Sprintf("%s %s", r.subjectPrefix, digest.Date.Format("2006-01-02"))
	top := digest.TopStories()
	if len(top) == 0 {
		return base
	}
	return base + ": " + truncate(top[0].Item.Headline, maxSubjectHeadline)
}

func renderText(digest domain.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", digest.Date.Format("Monday, January 2, 2006"))

	if len(digest.Sections) == 0 {
		b.WriteString("No stories made the cut today.\n")
	}
	for _, section := range digest.Sections {
		fmt.Fprintf(&b, "%s\n\n", strings.ToUpper(section.Title))
		for _, ranked := range section.Items {
			fmt.Fprintf(&b, "%d. %s", ranked.Position, ranked.Item.Headline)
			if len(ranked.Item.Sources) > 0 {
				fmt.Fprintf(&b, " [%s]", strings.Join(ranked.Item.Sources, ", "))
			}
			b.WriteString("\n")
			if ranked.Item.Summary != "" {
				fmt.Fprintf(&b, "   %s\n", ranked.Item.Summary)
			}
			for _, url := range ranked.Item.URLs {
				fmt.Fprintf(&b, "   %s\n", url)
			}
			b.WriteString("\n")
		}
	}

	if len(digest.SourcesCovered) > 0 {
		fmt.Fprintf(&b, "Covered: %s\n", strings.Join(digest.SourcesCovered, ", "))
	}
	if len(digest.SourcesMissing) > 0 {
		fmt.Fprintf(&b, "Not heard from today: %s\n", strings.Join(digest.SourcesMissing, ", "))
	}
	return b.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n-3])) + "..."
}
