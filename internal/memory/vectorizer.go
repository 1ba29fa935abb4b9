package memory

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// The vector space is rebuilt for every query over the candidate plus all
// historical texts so that vocabulary is shared; retrieval cost scales with
// corpus size, which is acceptable off the generation hot path.
const maxFeatures = 1000

var tokenPattern = regexp.MustCompile(`[a-z0-9]{2,}`)

// A compact english stopword list matching the terms that matter for
// financial text; filtered before n-gram formation.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "but": true, "by": true, "for": true, "from": true,
	"had": true, "has": true, "have": true, "in": true, "into": true, "is": true,
	"it": true, "its": true, "more": true, "most": true, "no": true, "not": true,
	"of": true, "on": true, "or": true, "our": true, "so": true, "some": true,
	"such": true, "than": true, "that": true, "the": true, "their": true,
	"then": true, "there": true, "these": true, "they": true, "this": true,
	"to": true, "was": true, "we": true, "were": true, "which": true,
	"while": true, "will": true, "with": true, "would": true, "you": true,
}

// terms tokenizes a document into stopword-filtered unigrams and bigrams.
func terms(text string) []string {
	words := tokenPattern.FindAllString(strings.ToLower(text), -1)
	filtered := words[:0]
	for _, w := range words {
		if !stopwords[w] {
			filtered = append(filtered, w)
		}
	}
	out := make([]string, 0, len(filtered)*2)
	out = append(out, filtered...)
	for i := 0; i+1 < len(filtered); i++ {
		out = append(out, filtered[i]+" "+filtered[i+1])
	}
	return out
}

// tfidfVectors builds l2-normalized TF-IDF vectors for all docs over a shared
// vocabulary capped at maxFeatures terms (most frequent first, alphabetical on
// ties, for determinism).
func tfidfVectors(docs []string) [][]float64 {
	n := len(docs)
	docTerms := make([]map[string]int, n)
	totals := make(map[string]int)
	df := make(map[string]int)

	for i, doc := range docs {
		counts := make(map[string]int)
		for _, t := range terms(doc) {
			counts[t]++
		}
		docTerms[i] = counts
		for t, c := range counts {
			totals[t] += c
			df[t]++
		}
	}

	vocab := make([]string, 0, len(totals))
	for t := range totals {
		vocab = append(vocab, t)
	}
	sort.Slice(vocab, func(i, j int) bool {
		if totals[vocab[i]] != totals[vocab[j]] {
			return totals[vocab[i]] > totals[vocab[j]]
		}
		return vocab[i] < vocab[j]
	})
	if len(vocab) > maxFeatures {
		vocab = vocab[:maxFeatures]
	}

	index := make(map[string]int, len(vocab))
	for i, t := range vocab {
		index[t] = i
	}

	idf := make([]float64, len(vocab))
	for i, t := range vocab {
		idf[i] = math.Log(float64(1+n)/float64(1+df[t])) + 1
	}

	vectors := make([][]float64, n)
	for i, counts := range docTerms {
		vec := make([]float64, len(vocab))
		var norm float64
		for t, c := range counts {
			j, ok := index[t]
			if !ok {
				continue
			}
			vec[j] = float64(c) * idf[j]
			norm += vec[j] * vec[j]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for j := range vec {
				vec[j] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors
}

// cosine returns the cosine similarity of two equal-length vectors.
func cosine(a, b []float64) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
