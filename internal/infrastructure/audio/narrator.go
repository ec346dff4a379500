package audio

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

// Narrator speaks the digest through the ElevenLabs text-to-speech API.
type Narrator struct {
	apiBase string
	voiceID string
	modelID string
	apiKey  string
	client  *http.Client
}

var _ ports.Narrator = (*Narrator)(nil)

// NewNarrator registers the voice and API key for speech synthesis.
func NewNarrator(voiceID, apiKey string) *Narrator {
	return &Narrator{
		apiBase: "https://api.elevenlabs.io",
		voiceID: voiceID,
		modelID: "eleven_monolingual_v1",
		apiKey:  apiKey,
		client:  &http.Client{Timeout: 2 * time.Minute},
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Narrate converts the digest into a spoken script and synthesizes it.
// The returned bytes are an MP3 stream.
func (n *Narrator) Narrate(ctx context.Context, digest domain.Digest) ([]byte, error) {
	if n.voiceID == "" || n.apiKey == "" {
		return nil, fmt.Errorf("narrator misconfigured")
	}
	script := buildScript(digest)
	if script == "" {
		return nil, fmt.Errorf("nothing to narrate")
	}

	payload, err := json.Marshal(struct {
		Text          string        `json:"text"`
		ModelID       string        `json:"model_id"`
		VoiceSettings voiceSettings `json:"voice_settings"`
	}{
		Text:    script,
		ModelID: n.modelID,
		VoiceSettings: voiceSettings{
			Stability:       0.75,
			SimilarityBoost: 0.75,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s", n.apiBase, n.voiceID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("speech synthesis failed: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("speech synthesis returned no audio")
	}
	return audio, nil
}

// buildScript turns the digest into a conversational narration. Top
// stories are read with their summaries, the rest as a headline roundup.
func buildScript(digest domain.Digest) string {
	top := digest.TopStories()
	if len(top) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Good morning. Here is your briefing for %s.\n\n",
		digest.Date.Format("Monday, January 2"))

	for i, ranked := range top {
		item := ranked.Item
		if i == 0 {
			b.WriteString("Our top story today: ")
		} else {
			b.WriteString("Next up: ")
		}
		b.WriteString(spoken(item.Headline))
		if item.Summary != "" {
			b.WriteString(" ")
			b.WriteString(spoken(item.Summary))
		}
		b.WriteString("\n\n")
	}

	var roundup []string
	for _, section := range digest.Sections[1:] {
		for _, ranked := range section.Items {
			roundup = append(roundup, spoken(ranked.Item.Headline))
		}
	}
	if len(roundup) > 0 {
		fmt.Fprintf(&b, "Also worth knowing: %s\n\n", strings.Join(roundup, " "))
	}

	b.WriteString("That's all for today.")
	return b.String()
}

// spoken terminates a fragment so the voice pauses between items.
func spoken(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	switch s[len(s)-1] {
	case '.', '!', '?':
		return s
	}
	return s + "."
}
