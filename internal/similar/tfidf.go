package similar

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// maxFeatures caps the vocabulary at the most frequent terms.
const maxFeatures = 100

// Match is a candidate ranked by similarity to the target.
type Match struct {
	Index int
	Score float64
}

// Rank scores each candidate title against target by cosine similarity of
// TF-IDF vectors over word unigrams and bigrams, and returns the k best
// with a positive score, most similar first.
func Rank(target string, candidates []string, k int) []Match {
	if strings.TrimSpace(target) == "" || len(candidates) == 0 || k <= 0 {
		return nil
	}

	docs := make([][]string, 0, len(candidates)+1)
	docs = append(docs, terms(target))
	for _, c := range candidates {
		docs = append(docs, terms(c))
	}

	vocab := vocabulary(docs)
	vectors := weigh(docs, vocab)

	matches := make([]Match, 0, len(candidates))
	for i := range candidates {
		score := dot(vectors[0], vectors[i+1])
		if score > 0 {
			matches = append(matches, Match{Index: i, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// terms lowercases s, splits it into words of two or more letters or
// digits, and appends the bigrams of adjacent words.
func terms(s string) []string {
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	kept := words[:0]
	for _, w := range words {
		if utf8.RuneCountInString(w) >= 2 {
			kept = append(kept, w)
		}
	}
	out := append([]string(nil), kept...)
	for i := 0; i+1 < len(kept); i++ {
		out = append(out, kept[i]+" "+kept[i+1])
	}
	return out
}

// vocabulary maps the maxFeatures most frequent terms to column indices.
func vocabulary(docs [][]string) map[string]int {
	freq := map[string]int{}
	for _, d := range docs {
		for _, t := range d {
			freq[t]++
		}
	}
	all := make([]string, 0, len(freq))
	for t := range freq {
		all = append(all, t)
	}
	sort.Slice(all, func(i, j int) bool {
		if freq[all[i]] != freq[all[j]] {
			return freq[all[i]] > freq[all[j]]
		}
		return all[i] < all[j]
	})
	if len(all) > maxFeatures {
		all = all[:maxFeatures]
	}
	vocab := make(map[string]int, len(all))
	for i, t := range all {
		vocab[t] = i
	}
	return vocab
}

// weigh builds L2-normalized TF-IDF vectors with smoothed IDF:
// idf = ln((1+n)/(1+df)) + 1.
func weigh(docs [][]string, vocab map[string]int) [][]float64 {
	df := make([]int, len(vocab))
	for _, d := range docs {
		seen := map[int]bool{}
		for _, t := range d {
			if col, ok := vocab[t]; ok && !seen[col] {
				seen[col] = true
				df[col]++
			}
		}
	}

	n := float64(len(docs))
	vectors := make([][]float64, len(docs))
	for i, d := range docs {
		v := make([]float64, len(vocab))
		for _, t := range d {
			if col, ok := vocab[t]; ok {
				v[col]++
			}
		}
		var norm float64
		for col := range v {
			v[col] *= math.Log((1+n)/(1+float64(df[col]))) + 1
			norm += v[col] * v[col]
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for col := range v {
				v[col] /= norm
			}
		}
		vectors[i] = v
	}
	return vectors
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
