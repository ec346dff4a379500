// Package htmltext converts newsletter HTML into plain text suitable for
// model prompts.
package htmltext

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\r\f]+`)
	newlineRun = regexp.MustCompile(`\n{3,}`)
)

// blockSelector matches elements that render on their own line.
const blockSelector = "p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote, table, ul, ol, section, article, header, footer, pre"

// Convert renders HTML as plain text. Scripts and styles are dropped,
// block elements and <br> become line breaks, and link targets stay
// visible next to their anchor text so extracted items keep their URLs.
func Convert(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find("script, style, noscript, iframe, svg").Remove()
	doc.Find("br").ReplaceWithHtml("\n")

	doc.Find("a[href]").Each(func(_ int, link *goquery.Selection) {
		href := strings.TrimSpace(link.AttrOr("href", ""))
		text := strings.TrimSpace(link.Text())
		if text == "" || text == href || !strings.HasPrefix(href, "http") {
			return
		}
		link.SetText(fmt.Sprintf("%s (%s)", text, href))
	})

	doc.Find(blockSelector).AppendHtml("\n")

	return tidy(doc.Find("body").Text()), nil
}

// tidy collapses the whitespace noise left over from table-based
// newsletter layouts.
func tidy(s string) string {
	s = spaceRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = newlineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
