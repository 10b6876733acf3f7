package similarity

import (
	"math"
	"sort"
	"strings"
)

// stopwords are excluded from vectorization. Short list: the TF-IDF
// weighting already downweights corpus-wide filler.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"had": true, "has": true, "have": true, "he": true, "her": true,
	"his": true, "i": true, "in": true, "is": true, "it": true, "its": true,
	"of": true, "on": true, "or": true, "our": true, "she": true, "so": true,
	"that": true, "the": true, "their": true, "there": true, "they": true,
	"this": true, "to": true, "was": true, "we": true, "were": true,
	"will": true, "with": true, "you": true, "your": true,
}

// vector is a sparse term-weighted document vector over a fitted vocabulary.
type vector map[int]float64

// vocabulary maps n-gram terms to dimension indices, capped at maxDims.
type vocabulary struct {
	index map[string]int
	terms []string
	idf   []float64
}

// tokenize lowercases, strips punctuation, filters stopwords and produces
// 1-3 word n-grams.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})

	words := fields[:0]
	for _, w := range fields {
		if len(w) < 2 || stopwords[w] {
			continue
		}
		words = append(words, w)
	}

	grams := make([]string, 0, len(words)*3)
	for i := range words {
		grams = append(grams, words[i])
		if i+1 < len(words) {
			grams = append(grams, words[i]+" "+words[i+1])
		}
		if i+2 < len(words) {
			grams = append(grams, words[i]+" "+words[i+1]+" "+words[i+2])
		}
	}
	return grams
}

// fitVocabulary builds the capped vocabulary and IDF weights for a corpus.
//
// When the corpus produces more than maxDims distinct terms, the terms with
// the highest document frequency are kept; ties break lexicographically so
// the fit is deterministic.
func fitVocabulary(docs [][]string, maxDims int) *vocabulary {
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool, len(doc))
		for _, t := range doc {
			if !seen[t] {
				seen[t] = true
				df[t]++
			}
		}
	}

	terms := make([]string, 0, len(df))
	for t := range df {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if df[terms[i]] != df[terms[j]] {
			return df[terms[i]] > df[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > maxDims {
		terms = terms[:maxDims]
	}

	v := &vocabulary{
		index: make(map[string]int, len(terms)),
		terms: terms,
		idf:   make([]float64, len(terms)),
	}
	n := float64(len(docs))
	for i, t := range terms {
		v.index[t] = i
		// Smoothed IDF so corpus-ubiquitous terms keep a small positive weight.
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
	return v
}

// vectorizeDoc produces the l2-normalized TF-IDF vector for one tokenized doc.
func (v *vocabulary) vectorizeDoc(doc []string) vector {
	tf := make(map[int]float64)
	for _, t := range doc {
		if i, ok := v.index[t]; ok {
			tf[i]++
		}
	}
	if len(tf) == 0 {
		return vector{}
	}

	vec := make(vector, len(tf))
	var norm float64
	for i, f := range tf {
		w := f * v.idf[i]
		vec[i] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}

// cosine returns the dot product of two l2-normalized sparse vectors.
func cosine(a, b vector) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for i, w := range a {
		dot += w * b[i]
	}
	return dot
}
