package usecase

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dailybrief/internal/domain"
)

func candidate(source, headline, summary, url string) domain.ItemCandidate {
	return domain.ItemCandidate{Source: source, Headline: headline, Summary: summary, URL: url}
}

// gptCandidates is one story reported by three sources with varied
// phrasing, five candidates in total.
func gptCandidates() []domain.ItemCandidate {
	return []domain.ItemCandidate{
		candidate("alpha", "OpenAI releases GPT-5", "OpenAI releases GPT-5 with stronger reasoning.", "https://openai.com/gpt-5"),
		candidate("alpha", "OpenAI releases GPT-5 to everyone", "", "https://openai.com/gpt-5?utm_source=mail"),
		candidate("beta", "OpenAI releases GPT-5 flagship model", "The GPT-5 flagship model is out.", ""),
		candidate("beta", "OpenAI releases the GPT-5 model today", "OpenAI releases the GPT-5 model.", ""),
		candidate("gamma", "GPT-5 arrives", "", "https://www.openai.com/gpt-5/"),
	}
}

// metaCandidates is an unrelated story mentioned twice by one source.
func metaCandidates() []domain.ItemCandidate {
	return []domain.ItemCandidate{
		candidate("delta", "Meta opens new datacenter in Ohio", "Meta opened a giant datacenter campus in Ohio.", "https://meta.com/news/ohio"),
		candidate("delta", "Meta opens Ohio datacenter", "", ""),
	}
}

func partitionOf(clusters []domain.Cluster) map[string]string {
	membership := make(map[string]string)
	for _, cluster := range clusters {
		for _, member := range cluster.Members {
			membership[member.Headline] = cluster.ID
		}
	}
	return membership
}

func TestBuildPartitionsCandidates(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	candidates := append(gptCandidates(), metaCandidates()...)

	clusters := builder.Build(candidates)

	total := 0
	seen := make(map[string]bool)
	for _, cluster := range clusters {
		require.NotEmpty(t, cluster.Members, "clusters must have at least one member")
		for _, member := range cluster.Members {
			key := member.Source + "/" + member.Headline
			assert.False(t, seen[key], "candidate %s appears in two clusters", key)
			seen[key] = true
			total++
		}
	}
	assert.Equal(t, len(candidates), total, "every candidate belongs to exactly one cluster")
}

func TestBuildMergesOneStoryAcrossSources(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	candidates := append(gptCandidates(), metaCandidates()...)

	clusters := builder.Build(candidates)

	require.Len(t, clusters, 2)
	assert.Len(t, clusters[0].Members, 5, "five reports of the release belong together")
	assert.Len(t, clusters[1].Members, 2, "the repeated Meta story forms its own cluster")
}

func TestBuildClustersSameSourceNearDuplicates(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})

	clusters := builder.Build(metaCandidates())

	require.Len(t, clusters, 1, "source identity is not part of the similarity key")
	assert.Len(t, clusters[0].Members, 2)
}

func TestBuildTransitiveClosure(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	a := candidate("alpha", "Nvidia announces Blackwell Ultra GPU", "", "")
	b := candidate("beta", "Nvidia Blackwell Ultra GPU ships", "", "")
	c := candidate("gamma", "Blackwell Ultra ships to cloud providers in November", "", "")

	// The endpoints alone are not similar enough to match.
	endpoints := builder.Build([]domain.ItemCandidate{a, c})
	require.Len(t, endpoints, 2, "a and c alone must stay apart")

	// With the middle candidate present the relation closes transitively.
	all := builder.Build([]domain.ItemCandidate{a, b, c})
	require.Len(t, all, 1, "a~b and b~c must pull all three together")
	assert.Len(t, all[0].Members, 3)
}

func TestBuildKeepsDistinctStoriesApart(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	candidates := []domain.ItemCandidate{
		candidate("alpha", "Anthropic updates Claude", "Anthropic shipped a coding update to Claude.", ""),
		candidate("beta", "DeepMind publishes protein folding results", "New protein structure predictions from DeepMind.", ""),
		candidate("gamma", "EU passes liability directive", "The directive assigns liability for automated systems.", ""),
	}

	clusters := builder.Build(candidates)

	assert.Len(t, clusters, 3, "unrelated stories must not merge")
}

func TestBuildMembershipIsOrderIndependent(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	candidates := append(gptCandidates(), metaCandidates()...)

	base := partitionOf(builder.Build(candidates))

	reversed := make([]domain.ItemCandidate, len(candidates))
	for i, c := range candidates {
		reversed[len(candidates)-1-i] = c
	}
	flipped := partitionOf(builder.Build(reversed))

	// Same groups regardless of input order: two candidates share a cluster
	// in one run exactly when they share one in the other.
	for _, x := range candidates {
		for _, y := range candidates {
			sameBase := base[x.Headline] == base[y.Headline]
			sameFlipped := flipped[x.Headline] == flipped[y.Headline]
			assert.Equal(t, sameBase, sameFlipped,
				"membership of %q and %q depends on input order", x.Headline, y.Headline)
		}
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	candidates := append(gptCandidates(), metaCandidates()...)

	first := builder.Build(candidates)
	second := builder.Build(candidates)

	require.Equal(t, first, second, "same input, same order, same partition")
}

func TestBuildLinksByURLAlone(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	candidates := []domain.ItemCandidate{
		candidate("alpha", "Funding news of the week", "A quiet week for venture rounds.", "https://example.com/funding?utm_campaign=daily"),
		candidate("beta", "Venture capital wrap-up", "Rounds closed across the industry.", "https://www.example.com/funding/"),
	}

	clusters := builder.Build(candidates)

	require.Len(t, clusters, 1, "an exact canonical URL match is decisive")
}

func TestBuildEmptyInput(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	assert.Nil(t, builder.Build(nil))
}

func TestBuildClusterIDsAreStable(t *testing.T) {
	builder := NewClusterBuilder(ClusterConfig{})
	candidates := append(gptCandidates(), metaCandidates()...)

	clusters := builder.Build(candidates)

	for i, cluster := range clusters {
		assert.Equal(t, fmt.Sprintf("story-%03d", i+1), cluster.ID)
	}
}
