package telegram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
)

const maxMessageChars = 4096

// Notifier posts a compact digest summary to a Telegram chat via bot API.
type Notifier struct {
	botToken string
	chatID   string
	apiBase  string
	client   *http.Client
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier registers bot token and chat identifier.
func NewNotifier(botToken, chatID string) *Notifier {
	return &Notifier{
		botToken: botToken,
		chatID:   chatID,
		apiBase:  "https://api.telegram.org",
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// PublishDigest posts a Markdown message listing the top stories.
func (n *Notifier) PublishDigest(ctx context.Context, digest domain.Digest) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.apiBase, n.botToken)
	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", formatMessage(digest))
	form.Set("parse_mode", "Markdown")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}

var markdownEscaper = strings.NewReplacer("_", "\\_", "*", "\\*", "`", "\\`", "[", "\\[")

// formatMessage builds the top-stories summary. Only the first section is
// listed in full; the rest collapses into a count.
func formatMessage(digest domain.Digest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Daily Brief %s*\n", digest.Date.Format("2006-01-02"))

	top := digest.TopStories()
	if len(top) == 0 {
		b.WriteString("\nNo stories made the cut today.")
		return b.String()
	}

	for i, ranked := range top {
		item := ranked.Item
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", i+1,
			markdownEscaper.Replace(item.Headline), strings.Join(item.Sources, ", "))
		if len(item.URLs) > 0 {
			b.WriteString(item.URLs[0])
			b.WriteString("\n")
		}
	}

	if rest := digest.TotalItems - len(top); rest > 0 {
		fmt.Fprintf(&b, "\nPlus %d more in the full digest.", rest)
	}

	return clip(b.String(), maxMessageChars)
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
