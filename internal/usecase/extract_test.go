package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/domain"
)

func testDocument(source, body string) domain.RawDocument {
	return domain.RawDocument{
		Source: mailboxSource(source),
		Date:   time.Date(2025, 11, 3, 0, 0, 0, 0, time.UTC),
		Body:   body,
	}
}

func TestExtractStampsSourceOnCandidates(t *testing.T) {
	intel := &stubIntel{}
	extractor := NewExtractor(intel, fastRetrier(), ExtractConfig{MinDocumentChars: 10, Timeout: time.Second})
	body := "OpenAI releases GPT-5|OpenAI released GPT-5 today.|https://openai.com/gpt-5\n" +
		"Meta opens datacenter|Meta opened a campus.|"

	candidates, err := extractor.Extract(context.Background(), testDocument("alpha", body))

	require.NoError(t, err)
	require.Len(t, candidates, 2)
	for _, c := range candidates {
		assert.Equal(t, "alpha", c.Source, "attribution must survive extraction")
	}
	assert.Equal(t, "OpenAI releases GPT-5", candidates[0].Headline)
	assert.Equal(t, "https://openai.com/gpt-5", candidates[0].URL)
}

func TestExtractRejectsShortDocument(t *testing.T) {
	intel := &stubIntel{}
	extractor := NewExtractor(intel, fastRetrier(), ExtractConfig{MinDocumentChars: 40, Timeout: time.Second})

	_, err := extractor.Extract(context.Background(), testDocument("alpha", "  unsubscribed footer only  "))

	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
	extractCalls, _ := intel.calls()
	assert.Zero(t, extractCalls, "an empty document never reaches the model")
}

func TestExtractTruncatesLongDocument(t *testing.T) {
	var received string
	intel := &stubIntel{
		extractFn: func(ctx context.Context, text string, source domain.Source) ([]domain.ItemCandidate, error) {
			received = text
			return nil, nil
		},
	}
	extractor := NewExtractor(intel, fastRetrier(), ExtractConfig{MinDocumentChars: 10, MaxDocumentChars: 50, Timeout: time.Second})

	candidates, err := extractor.Extract(context.Background(), testDocument("alpha", strings.Repeat("x", 120)))

	require.NoError(t, err)
	assert.Empty(t, candidates)
	assert.Equal(t, 50, len([]rune(received)), "oversized bodies are cut before the model call")
}

func TestExtractWrapsModelFailure(t *testing.T) {
	intel := &stubIntel{
		extractFn: func(ctx context.Context, text string, source domain.Source) ([]domain.ItemCandidate, error) {
			return nil, errors.New("response is not valid json")
		},
	}
	extractor := NewExtractor(intel, fastRetrier(), ExtractConfig{MinDocumentChars: 10, Timeout: time.Second})

	_, err := extractor.Extract(context.Background(), testDocument("alpha", "a long enough body"))

	var extractionErr *domain.ExtractionError
	require.ErrorAs(t, err, &extractionErr)
	assert.Equal(t, "alpha", extractionErr.Source)
	extractCalls, _ := intel.calls()
	assert.Equal(t, 1, extractCalls, "an unclassified failure is permanent")
}

func TestExtractRetriesTransientModelError(t *testing.T) {
	attempts := 0
	intel := &stubIntel{}
	intel.extractFn = func(ctx context.Context, text string, source domain.Source) ([]domain.ItemCandidate, error) {
		attempts++
		if attempts == 1 {
			return nil, &httpStatusErr{status: 429}
		}
		return []domain.ItemCandidate{{Headline: "OpenAI releases GPT-5"}}, nil
	}
	extractor := NewExtractor(intel, fastRetrier(), ExtractConfig{MinDocumentChars: 10, Timeout: time.Second})

	candidates, err := extractor.Extract(context.Background(), testDocument("alpha", "a long enough body"))

	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	require.Len(t, candidates, 1)
	assert.Equal(t, "alpha", candidates[0].Source)
}

func TestExtractDropsPromotionalCandidates(t *testing.T) {
	intel := &stubIntel{
		extractFn: func(ctx context.Context, text string, source domain.Source) ([]domain.ItemCandidate, error) {
			return []domain.ItemCandidate{
				{Headline: "OpenAI releases GPT-5", Summary: "OpenAI released GPT-5 today."},
				{Headline: "TechCo cloud credits", Tags: []string{"Sponsored"}},
				{Headline: "How to build agents in a weekend"},
				{Headline: "Last chance: 50% off GPU instances"},
				{Headline: "", Summary: "a summary with no headline"},
			}, nil
		},
	}
	extractor := NewExtractor(intel, fastRetrier(), ExtractConfig{MinDocumentChars: 10, Timeout: time.Second})

	candidates, err := extractor.Extract(context.Background(), testDocument("alpha", "a long enough body"))

	require.NoError(t, err)
	require.Len(t, candidates, 1, "tagged promos, promo phrasing and headlineless items are dropped")
	assert.Equal(t, "OpenAI releases GPT-5", candidates[0].Headline)
}
