package domain

// ItemCandidate is one news item as seen by a single source, pre-merge.
type ItemCandidate struct {
	Headline string
	Summary  string
	URL      string
	Source   string
	Tags     []string
}

// Cluster groups candidates believed to describe the same real-world event.
// Clusters partition the candidate set; a cluster has at least one member.
type Cluster struct {
	ID      string
	Members []ItemCandidate
}

// CanonicalItem is the merged representation of one cluster.
type CanonicalItem struct {
	ClusterID string
	Headline  string
	Summary   string
	URLs      []string
	Sources   []string
	Score     float64
}

// Tier buckets ranked items for display grouping, 1 being the most important.
type Tier int

const (
	TierHeadline Tier = 1
	TierNotable  Tier = 2
	TierMinor    Tier = 3
)

// RankedItem is a canonical item with its final position in the digest.
type RankedItem struct {
	Item     CanonicalItem
	Tier     Tier
	Position int
}
