package audio

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dailybrief/internal/domain"
)

func sampleDigest() domain.Digest {
	return domain.Digest{
		Date: time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		Sections: []domain.Section{
			{Title: "Top Stories", Items: []domain.RankedItem{
				{Item: domain.CanonicalItem{
					Headline: "OpenAI releases GPT-5",
					Summary:  "OpenAI releases GPT-5 with stronger reasoning.",
				}},
				{Item: domain.CanonicalItem{
					Headline: "Nvidia ships Blackwell successor",
					Summary:  "",
				}},
			}},
			{Title: "Also Notable", Items: []domain.RankedItem{
				{Item: domain.CanonicalItem{Headline: "Meta opens new datacenter in Ohio"}},
			}},
		},
		TotalItems: 3,
	}
}

func TestBuildScriptReadsTopStories(t *testing.T) {
	t.Parallel()

	script := buildScript(sampleDigest())
	for _, want := range []string{
		"Good morning. Here is your briefing for Monday, November 3.",
		"Our top story today: OpenAI releases GPT-5. OpenAI releases GPT-5 with stronger reasoning.",
		"Next up: Nvidia ships Blackwell successor.",
		"Also worth knowing: Meta opens new datacenter in Ohio.",
		"That's all for today.",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q in %q", want, script)
		}
	}
}

func TestBuildScriptEmptyDigest(t *testing.T) {
	t.Parallel()

	if script := buildScript(domain.Digest{}); script != "" {
		t.Errorf("script = %q, want empty", script)
	}
}

func TestNarrateRequestsSynthesis(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "key-1" {
			t.Errorf("xi-api-key = %q", got)
		}
		if !strings.HasSuffix(r.URL.Path, "/v1/text-to-speech/voice-7") {
			t.Errorf("path = %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req struct {
			Text          string        `json:"text"`
			ModelID       string        `json:"model_id"`
			VoiceSettings voiceSettings `json:"voice_settings"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Errorf("unmarshal request: %v", err)
		}
		if !strings.Contains(req.Text, "Our top story today") {
			t.Errorf("text = %q", req.Text)
		}
		if req.ModelID == "" {
			t.Error("model_id missing")
		}
		if req.VoiceSettings.Stability == 0 || req.VoiceSettings.SimilarityBoost == 0 {
			t.Errorf("voice settings not sent: %+v", req.VoiceSettings)
		}
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer server.Close()

	n := NewNarrator("voice-7", "key-1")
	n.apiBase = server.URL

	audio, err := n.Narrate(context.Background(), sampleDigest())
	if err != nil {
		t.Fatalf("Narrate: %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Errorf("audio = %q", audio)
	}
}

func TestNarrateRejectsAPIError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer server.Close()

	n := NewNarrator("voice-7", "bad-key")
	n.apiBase = server.URL

	_, err := n.Narrate(context.Background(), sampleDigest())
	if err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("Narrate error = %v", err)
	}
}

func TestNarrateRequiresConfiguration(t *testing.T) {
	t.Parallel()

	n := NewNarrator("voice-7", "")
	if _, err := n.Narrate(context.Background(), sampleDigest()); err == nil {
		t.Fatal("Narrate accepted narrator without key")
	}
}
