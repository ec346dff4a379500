package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/domain"
)

func TestMergeHeadlineFollowsMostDetailedSummary(t *testing.T) {
	merger := NewMerger(MergeConfig{})
	cluster := domain.Cluster{ID: "story-001", Members: []domain.ItemCandidate{
		candidate("alpha", "Short take", "GPT-5 is out.", ""),
		candidate("beta", "OpenAI ships GPT-5 with major reasoning gains", "OpenAI released GPT-5 today with major gains in reasoning and coding benchmarks.", ""),
		candidate("gamma", "Another angle", "Brief.", ""),
	}}

	item, err := merger.Merge(cluster)

	require.NoError(t, err)
	assert.Equal(t, "OpenAI ships GPT-5 with major reasoning gains", item.Headline)
	assert.Equal(t, "story-001", item.ClusterID)
}

func TestMergeHeadlineTieKeepsEarliestMember(t *testing.T) {
	merger := NewMerger(MergeConfig{})
	cluster := domain.Cluster{ID: "story-001", Members: []domain.ItemCandidate{
		candidate("alpha", "First headline", "Same size summary here one.", ""),
		candidate("beta", "Second headline", "Same size summary here two.", ""),
	}}

	item, err := merger.Merge(cluster)

	require.NoError(t, err)
	assert.Equal(t, "First headline", item.Headline)
}

func TestMergeAppendsNovelDetailOnly(t *testing.T) {
	merger := NewMerger(MergeConfig{})
	base := "OpenAI released GPT-5 today with stronger reasoning and better coding scores."
	novel := "The rollout includes a new developer platform for building agents."
	restated := "OpenAI released GPT-5 today with stronger reasoning."
	cluster := domain.Cluster{ID: "story-001", Members: []domain.ItemCandidate{
		candidate("alpha", "OpenAI releases GPT-5", base, ""),
		candidate("beta", "GPT-5 rollout details", novel, ""),
		candidate("gamma", "GPT-5 recap", restated, ""),
	}}

	item, err := merger.Merge(cluster)

	require.NoError(t, err)
	assert.Equal(t, base+" "+novel, item.Summary,
		"a sentence with new information is appended, a restatement is not")
}

func TestMergeSummaryIsNotSingleMemberVerbatim(t *testing.T) {
	merger := NewMerger(MergeConfig{})
	cluster := domain.Cluster{ID: "story-001", Members: []domain.ItemCandidate{
		candidate("alpha", "Chip export rules tighten", "New export rules restrict shipments of advanced accelerators.", ""),
		candidate("beta", "Chip export rules", "Several vendors already paused orders from affected regions.", ""),
	}}

	item, err := merger.Merge(cluster)

	require.NoError(t, err)
	for _, member := range cluster.Members {
		assert.NotEqual(t, member.Summary, item.Summary,
			"distinct details from both members should be combined")
	}
	assert.Contains(t, item.Summary, "export rules restrict")
	assert.Contains(t, item.Summary, "paused orders")
}

func TestMergeCollectsURLsWithoutDuplicates(t *testing.T) {
	merger := NewMerger(MergeConfig{})
	cluster := domain.Cluster{ID: "story-001", Members: []domain.ItemCandidate{
		candidate("alpha", "OpenAI releases GPT-5", "OpenAI released GPT-5 with stronger reasoning today.", "https://openai.com/gpt-5?utm_source=x"),
		candidate("beta", "GPT-5 arrives", "", "https://www.openai.com/gpt-5/"),
		candidate("gamma", "GPT-5 analysis", "", "https://blog.example.com/gpt5-analysis"),
	}}

	item, err := merger.Merge(cluster)

	require.NoError(t, err)
	// The two variants share a canonical form; the first raw string wins.
	assert.Equal(t, []string{"https://openai.com/gpt-5?utm_source=x", "https://blog.example.com/gpt5-analysis"}, item.URLs)
}

func TestMergeCollectsSourcesFirstSeen(t *testing.T) {
	merger := NewMerger(MergeConfig{})
	cluster := domain.Cluster{ID: "story-001", Members: []domain.ItemCandidate{
		candidate("alpha", "OpenAI releases GPT-5", "OpenAI released GPT-5 with stronger reasoning today.", ""),
		candidate("alpha", "GPT-5 is out now", "", ""),
		candidate("beta", "GPT-5 arrives", "", ""),
	}}

	item, err := merger.Merge(cluster)

	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, item.Sources)
}

func TestMergeClipsAtSentenceBoundary(t *testing.T) {
	merger := NewMerger(MergeConfig{MaxSummaryChars: 80})
	first := "Alpha beta gamma delta epsilon zeta eta theta iota kappa lambda."
	second := "Totally different keywords appear within this next sentence."
	cluster := domain.Cluster{ID: "story-001", Members: []domain.ItemCandidate{
		candidate("alpha", "Greek letters", first, ""),
		candidate("beta", "More letters", second, ""),
	}}

	item, err := merger.Merge(cluster)

	require.NoError(t, err)
	assert.Equal(t, first, item.Summary, "the clip must land on a sentence boundary")
}

func TestMergeFallsBackToHeadlineWhenSummariesEmpty(t *testing.T) {
	merger := NewMerger(MergeConfig{})
	cluster := domain.Cluster{ID: "story-001", Members: []domain.ItemCandidate{
		candidate("alpha", "Quiet funding round closes", "", ""),
		candidate("beta", "Funding round wrap", "", ""),
	}}

	item, err := merger.Merge(cluster)

	require.NoError(t, err)
	assert.Equal(t, "Quiet funding round closes", item.Headline)
	assert.Equal(t, "Quiet funding round closes", item.Summary)
}

func TestMergeEmptyClusterFails(t *testing.T) {
	merger := NewMerger(MergeConfig{})

	_, err := merger.Merge(domain.Cluster{ID: "story-009"})

	var mergeErr *domain.MergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, "story-009", mergeErr.ClusterID)
}

func TestMergeHeadlinelessClusterFails(t *testing.T) {
	merger := NewMerger(MergeConfig{})
	cluster := domain.Cluster{ID: "story-002", Members: []domain.ItemCandidate{
		candidate("alpha", "", "", "https://example.com/only-a-link"),
	}}

	_, err := merger.Merge(cluster)

	var mergeErr *domain.MergeError
	require.ErrorAs(t, err, &mergeErr)
	assert.Equal(t, "story-002", mergeErr.ClusterID)
}
