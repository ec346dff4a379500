package usecase

import (
	"fmt"

	"dailybrief/internal/domain"
	"dailybrief/internal/similarity"
)

// ClusterConfig tunes the pairwise similarity decision.
type ClusterConfig struct {
	SimilarityThreshold float64
}

// ClusterBuilder partitions the run's candidates into story clusters.
type ClusterBuilder struct {
	threshold float64
}

// NewClusterBuilder constructs the clustering stage.
func NewClusterBuilder(cfg ClusterConfig) *ClusterBuilder {
	t := cfg.SimilarityThreshold
	if t <= 0 || t > 1 {
		t = 0.55
	}
	return &ClusterBuilder{threshold: t}
}

// Build groups candidates that describe the same story. Matching is
// pairwise and symmetric; union-find closes the relation transitively, so
// A~B and B~C put all three in one cluster even when A and C alone would
// not match. Given the same candidates in the same order the partition is
// always identical, and reordering the input never changes which
// candidates end up together.
func (b *ClusterBuilder) Build(candidates []domain.ItemCandidate) []domain.Cluster {
	if len(candidates) == 0 {
		return nil
	}

	keys := make([][]string, len(candidates))
	urls := make([]string, len(candidates))
	heads := make([]string, len(candidates))
	for i, c := range candidates {
		keys[i] = similarity.Keywords(c.Headline + " " + c.Summary)
		urls[i] = similarity.CanonicalURL(c.URL)
		heads[i] = similarity.Normalize(c.Headline)
	}

	uf := newUnionFind(len(candidates))
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if b.related(urls[i], urls[j], keys[i], keys[j], heads[i], heads[j]) {
				uf.union(i, j)
			}
		}
	}

	// Members stay in input order; clusters are ordered by their first-seen
	// member, which later serves as the stable rank tie-break.
	byRoot := make(map[int][]int)
	var roots []int
	for i := range candidates {
		root := uf.find(i)
		if _, ok := byRoot[root]; !ok {
			roots = append(roots, root)
		}
		byRoot[root] = append(byRoot[root], i)
	}

	clusters := make([]domain.Cluster, 0, len(roots))
	for n, root := range roots {
		members := make([]domain.ItemCandidate, 0, len(byRoot[root]))
		for _, idx := range byRoot[root] {
			members = append(members, candidates[idx])
		}
		clusters = append(clusters, domain.Cluster{
			ID:      fmt.Sprintf("story-%03d", n+1),
			Members: members,
		})
	}
	return clusters
}

// related decides whether two candidates describe the same story. A shared
// canonical URL is decisive on its own; otherwise the better of keyword
// overlap and headline edit similarity must clear the threshold. Source
// identity never enters the decision, so a source repeating itself still
// collapses into one story.
func (b *ClusterBuilder) related(urlA, urlB string, keysA, keysB []string, headA, headB string) bool {
	if urlA != "" && urlA == urlB {
		return true
	}
	score := similarity.TokenOverlap(keysA, keysB)
	if headA != "" && headB != "" {
		if r := similarity.Ratio(headA, headB); r > score {
			score = r
		}
	}
	return score >= b.threshold
}

// unionFind is a disjoint-set over candidate indices.
type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent, rank: make([]int, n)}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}
