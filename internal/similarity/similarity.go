// Package similarity clusters semantically similar texts.
//
// It is the one place in the engine that looks like a numerics dependency.
// The concrete implementation is self-contained: sparse TF-IDF n-gram
// vectors partitioned by bounded, deterministically seeded k-means.
package similarity

// Cluster is one group of similar documents.
type Cluster struct {
	// Members are indices into the clustered corpus.
	Members []int

	// Cohesion is the average pairwise cosine similarity within the cluster.
	Cohesion float64

	// TopTerms are the highest-weight centroid terms, most significant first.
	TopTerms []string
}

// TextSimilarity is the capability the pattern ledger depends on.
//
// Cluster partitions the corpus into at most k groups; implementations may
// return fewer. Similarity scores two texts in [0,1].
type TextSimilarity interface {
	Cluster(texts []string, k int) []Cluster
	Similarity(a, b string) float64
}
