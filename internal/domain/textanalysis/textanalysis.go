// Package textanalysis implements the lexical primitives used by the
// semantic scorer: tokenization, TF-IDF weighting, cosine and Jaccard
// similarity, and n-gram key-phrase extraction.
//
// Every function is pure and total: empty or absent input yields an empty
// or zero result, never an error.
package textanalysis

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gonum.org/v1/gonum/floats"
)

// minTokenLength is the shortest token kept by Tokenize.
const minTokenLength = 3

// stopWords are common English function words dropped by Tokenize.
var stopWords = map[string]struct{}{ //nolint:gochecknoglobals // fixed lexicon
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {}, "you": {}, "all": {},
	"any": {}, "can": {}, "had": {}, "her": {}, "was": {}, "one": {}, "our": {}, "out": {},
	"has": {}, "have": {}, "his": {}, "how": {}, "its": {}, "may": {}, "who": {}, "did": {},
	"yet": {}, "she": {}, "him": {}, "this": {}, "that": {}, "these": {}, "those": {},
	"with": {}, "from": {}, "they": {}, "them": {}, "their": {}, "there": {}, "then": {},
	"than": {}, "were": {}, "been": {}, "being": {}, "what": {}, "which": {}, "when": {},
	"where": {}, "while": {}, "will": {}, "would": {}, "could": {}, "should": {}, "about": {},
	"into": {}, "over": {}, "also": {}, "very": {}, "just": {}, "some": {}, "such": {},
}

// IsStopWord reports whether w (lowercase) is in the stop-word set.
func IsStopWord(w string) bool {
	_, ok := stopWords[w]
	return ok
}

// Tokenize lowercases text, strips every rune that is neither a letter, a
// digit nor whitespace, splits on whitespace, and drops short tokens and
// stop words.
func Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, text)

	fields := strings.Fields(cleaned)
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < minTokenLength || IsStopWord(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// TermFrequency returns count(t)/len(tokens) for every token.
func TermFrequency(tokens []string) map[string]float64 {
	tf := make(map[string]float64)
	if len(tokens) == 0 {
		return tf
	}
	for _, t := range tokens {
		tf[t]++
	}
	total := float64(len(tokens))
	for t, c := range tf {
		tf[t] = c / total
	}
	return tf
}

// InverseDocumentFrequency returns ln(|corpus| / df(term)), or 0 when no
// document contains term.
func InverseDocumentFrequency(corpus [][]string, term string) float64 {
	df := 0
	for _, doc := range corpus {
		for _, t := range doc {
			if t == term {
				df++
				break
			}
		}
	}
	if df == 0 {
		return 0
	}
	return math.Log(float64(len(corpus)) / float64(df))
}

// TFIDF weights every unique token in tokens against corpus.
func TFIDF(tokens []string, corpus [][]string) map[string]float64 {
	tf := TermFrequency(tokens)
	out := make(map[string]float64, len(tf))
	for t, f := range tf {
		out[t] = f * InverseDocumentFrequency(corpus, t)
	}
	return out
}

// CosineSimilarity compares two sparse vectors over the union of their
// keys. It returns 0 when either vector has zero magnitude.
func CosineSimilarity(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	va := make([]float64, len(keys))
	vb := make([]float64, len(keys))
	for i, k := range keys {
		va[i] = a[k]
		vb[i] = b[k]
	}

	na, nb := floats.Norm(va, 2), floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	sim := floats.Dot(va, vb) / (na * nb)
	return math.Max(0, math.Min(1, sim))
}

// JaccardSimilarity returns |A∩B| / |A∪B| over the distinct members of a
// and b. Two empty sets yield 0, not 1.
func JaccardSimilarity(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	union := len(setA)
	inter := 0
	for k := range setB {
		if _, ok := setA[k]; ok {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// ExtractKeyPhrases returns up to topN of the most frequent bigrams and
// trigrams of text. Bigrams are enumerated before trigrams and equal counts
// keep that first-seen order.
func ExtractKeyPhrases(text string, topN int) []string {
	tokens := Tokenize(text)
	if topN <= 0 || len(tokens) < 2 {
		return []string{}
	}

	counts := make(map[string]int)
	var order []string
	add := func(p string) {
		if _, ok := counts[p]; !ok {
			order = append(order, p)
		}
		counts[p]++
	}
	for i := 0; i+1 < len(tokens); i++ {
		add(tokens[i] + " " + tokens[i+1])
	}
	for i := 0; i+2 < len(tokens); i++ {
		add(tokens[i] + " " + tokens[i+1] + " " + tokens[i+2])
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > topN {
		order = order[:topN]
	}
	return order
}

// CommonTokens returns the distinct tokens present in both a and b, in the
// order they first appear in a.
func CommonTokens(a, b []string) []string {
	inB := toSet(b)
	seen := make(map[string]struct{})
	var out []string
	for _, t := range a {
		if _, ok := inB[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

func toSet(items []string) map[string]struct{} {
	s := make(map[string]struct{}, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}
