package similarity

import (
	"math"
	"math/rand"
	"sort"
)

// clusterSeed fixes the k-means initialization so identical corpora cluster
// identically across runs.
const clusterSeed = 1

// maxCohesionPairs bounds the pairwise cohesion computation per cluster.
const maxCohesionPairs = 2000

// TFIDF is the concrete TextSimilarity implementation: sparse TF-IDF n-gram
// vectors partitioned by centroid clustering with a fixed iteration budget.
type TFIDF struct {
	maxDims       int
	maxIterations int
}

// NewTFIDF creates a TFIDF similarity engine. Non-positive arguments fall
// back to defaults (1000 dimensions, 20 iterations).
func NewTFIDF(maxDims, maxIterations int) *TFIDF {
	if maxDims <= 0 {
		maxDims = 1000
	}
	if maxIterations <= 0 {
		maxIterations = 20
	}
	return &TFIDF{maxDims: maxDims, maxIterations: maxIterations}
}

// Similarity scores two texts by the cosine of their TF-IDF vectors over a
// vocabulary fitted to just this pair.
func (t *TFIDF) Similarity(a, b string) float64 {
	docs := [][]string{tokenize(a), tokenize(b)}
	vocab := fitVocabulary(docs, t.maxDims)
	va := vocab.vectorizeDoc(docs[0])
	vb := vocab.vectorizeDoc(docs[1])
	return cosine(va, vb)
}

// Cluster partitions texts into at most k clusters.
//
// With k < 2 or fewer than 2 texts the corpus is returned as a single
// cluster: too small to partition, still valid pattern evidence. The
// clustering is approximate; downstream confidence scoring absorbs the
// imprecision.
func (t *TFIDF) Cluster(texts []string, k int) []Cluster {
	n := len(texts)
	if n == 0 {
		return nil
	}

	docs := make([][]string, n)
	for i, text := range texts {
		docs[i] = tokenize(text)
	}
	vocab := fitVocabulary(docs, t.maxDims)
	vectors := make([]vector, n)
	for i, doc := range docs {
		vectors[i] = vocab.vectorizeDoc(doc)
	}

	if k < 2 || n < 2 {
		members := make([]int, n)
		for i := range members {
			members[i] = i
		}
		return []Cluster{t.buildCluster(members, vectors, vocab)}
	}
	if k > n {
		k = n
	}

	assignments := t.partition(vectors, k)

	groups := make(map[int][]int)
	for i, c := range assignments {
		groups[c] = append(groups[c], i)
	}
	keys := make([]int, 0, len(groups))
	for c := range groups {
		keys = append(keys, c)
	}
	sort.Ints(keys)

	clusters := make([]Cluster, 0, len(keys))
	for _, c := range keys {
		clusters = append(clusters, t.buildCluster(groups[c], vectors, vocab))
	}
	return clusters
}

// partition runs bounded k-means and returns the cluster index per vector.
func (t *TFIDF) partition(vectors []vector, k int) []int {
	n := len(vectors)
	rng := rand.New(rand.NewSource(clusterSeed))

	// Initial centroids: k distinct members chosen by the seeded generator.
	perm := rng.Perm(n)
	centroids := make([][]float64, k)
	for c := 0; c < k; c++ {
		centroids[c] = densify(vectors[perm[c]], t.maxDims)
	}

	assignments := make([]int, n)
	for iter := 0; iter < t.maxIterations; iter++ {
		changed := false
		for i, v := range vectors {
			best, bestSim := 0, math.Inf(-1)
			for c := range centroids {
				sim := dotSparse(v, centroids[c])
				if sim > bestSim {
					best, bestSim = c, sim
				}
			}
			if assignments[i] != best {
				assignments[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		// Recompute centroids as normalized member means.
		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, t.maxDims)
		}
		for i, v := range vectors {
			c := assignments[i]
			counts[c]++
			for dim, w := range v {
				next[c][dim] += w
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// Keep the previous centroid for empty clusters.
				next[c] = centroids[c]
				continue
			}
			normalize(next[c])
		}
		centroids = next
	}
	return assignments
}

// buildCluster assembles a Cluster with cohesion and centroid top terms.
func (t *TFIDF) buildCluster(members []int, vectors []vector, vocab *vocabulary) Cluster {
	sort.Ints(members)

	centroid := make([]float64, len(vocab.terms))
	for _, i := range members {
		for dim, w := range vectors[i] {
			centroid[dim] += w
		}
	}
	normalize(centroid)

	return Cluster{
		Members:  members,
		Cohesion: pairwiseCohesion(members, vectors),
		TopTerms: topCentroidTerms(centroid, vocab, 5),
	}
}

// pairwiseCohesion is the average pairwise cosine similarity, capped at
// maxCohesionPairs pairs. A single-member cluster is fully cohesive.
func pairwiseCohesion(members []int, vectors []vector) float64 {
	if len(members) < 2 {
		return 1.0
	}
	var sum float64
	var pairs int
	for i := 0; i < len(members) && pairs < maxCohesionPairs; i++ {
		for j := i + 1; j < len(members) && pairs < maxCohesionPairs; j++ {
			sum += cosine(vectors[members[i]], vectors[members[j]])
			pairs++
		}
	}
	return sum / float64(pairs)
}

// topCentroidTerms returns the n highest-weight vocabulary terms of a centroid.
func topCentroidTerms(centroid []float64, vocab *vocabulary, n int) []string {
	type tw struct {
		term   string
		weight float64
	}
	var weighted []tw
	for dim, w := range centroid {
		if w > 0 {
			weighted = append(weighted, tw{vocab.terms[dim], w})
		}
	}
	sort.Slice(weighted, func(i, j int) bool {
		if weighted[i].weight != weighted[j].weight {
			return weighted[i].weight > weighted[j].weight
		}
		return weighted[i].term < weighted[j].term
	})
	if len(weighted) > n {
		weighted = weighted[:n]
	}
	terms := make([]string, len(weighted))
	for i, w := range weighted {
		terms[i] = w.term
	}
	return terms
}

// densify expands a sparse vector into a dense slice of the given size.
func densify(v vector, size int) []float64 {
	out := make([]float64, size)
	for dim, w := range v {
		out[dim] = w
	}
	return out
}

// dotSparse is the dot product of a sparse vector with a dense one.
func dotSparse(v vector, dense []float64) float64 {
	var dot float64
	for dim, w := range v {
		if dim < len(dense) {
			dot += w * dense[dim]
		}
	}
	return dot
}

// normalize scales a dense vector to unit length in place.
func normalize(v []float64) {
	var norm float64
	for _, w := range v {
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range v {
			v[i] /= norm
		}
	}
}

var _ TextSimilarity = (*TFIDF)(nil)
