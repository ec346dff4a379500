package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"dailybrief/internal/domain"
	"dailybrief/internal/ports"
)

const extractSystemPrompt = `You read one day's issue of a technology newsletter and list the distinct news items it reports.
News means announcements, launches, funding, research results and policy changes.
Skip tips, tools, tutorials, how-to guides, opinion pieces and sponsored placements.
Respond with a JSON array only. Each element has the fields:
  "headline": a short factual headline
  "summary": one to three sentences in your own words
  "url": the story link if the text provides one, otherwise ""
  "tags": lowercase topic tags; use "sponsored", "tutorial" or "tool" if something slips through that is not news
Do not invent items. An issue with no news yields [].`

const judgeSystemPrompt = `You rate how significant each news item is for a daily technology briefing.
Respond with a JSON array of numbers only, one per item in the given order.
Use 0 for noise up to 10 for industry-shifting news.`

// Client implements ports.TextIntelligence against an OpenAI-compatible
// chat completions endpoint.
type Client struct {
	endpoint   string
	model      string
	apiKey     string
	httpClient *http.Client
}

var _ ports.TextIntelligence = (*Client)(nil)

// NewClient builds a reusable client. The API key may be empty for
// local gateways that do not authenticate.
func NewClient(endpoint, model, apiKey string) *Client {
	return &Client{
		endpoint:   endpoint,
		model:      model,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 90 * time.Second},
	}
}

// ExtractItems asks the model to list the news items a newsletter issue
// reports. The model's output is untrusted: anything that does not parse
// as the expected JSON comes back as domain.ErrMalformedResponse.
func (c *Client) ExtractItems(ctx context.Context, text string, source domain.Source) ([]domain.ItemCandidate, error) {
	user := fmt.Sprintf("Source: %s\n\n%s", source.Label(), text)
	content, err := c.complete(ctx, extractSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	var payload []struct {
		Headline string   `json:"headline"`
		Summary  string   `json:"summary"`
		URL      string   `json:"url"`
		Tags     []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}

	candidates := make([]domain.ItemCandidate, 0, len(payload))
	for _, item := range payload {
		candidates = append(candidates, domain.ItemCandidate{
			Headline: strings.TrimSpace(item.Headline),
			Summary:  strings.TrimSpace(item.Summary),
			URL:      strings.TrimSpace(item.URL),
			Tags:     item.Tags,
		})
	}
	return candidates, nil
}

// JudgeSignificance scores the given items from 0 to 10. The caller
// checks that the count matches; this client only clamps the range.
func (c *Client) JudgeSignificance(ctx context.Context, items []domain.CanonicalItem) ([]float64, error) {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n%s\n\n", i+1, item.Headline, item.Summary)
	}

	content, err := c.complete(ctx, judgeSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}

	var scores []float64
	if err := json.Unmarshal([]byte(stripFences(content)), &scores); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	for i, s := range scores {
		switch {
		case s < 0:
			scores[i] = 0
		case s > 10:
			scores[i] = 10
		}
	}
	return scores, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// complete posts one chat completion and returns the assistant content.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	if c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("llm client misconfigured")
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", &apiError{status: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", domain.ErrMalformedResponse)
	}
	return parsed.Choices[0].Message.Content, nil
}

// apiError keeps the HTTP status visible so retry classification can tell
// overload from rejection.
type apiError struct {
	status int
	body   string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("llm api status %d: %s", e.status, e.body)
}

func (e *apiError) HTTPStatus() int { return e.status }

// stripFences removes a markdown code fence wrapper some models insist on.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
