package scoring

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/textanalysis"
)

// Blend weights and reporting thresholds of the semantic score.
const (
	overallWeight  = 0.5
	bioWeight      = 0.3
	interestWeight = 0.2

	reasonThreshold     = 0.5
	maxKeywordsInReason = 3
	similarUserMinScore = 20
)

// Semantic scores lexical similarity of bios and tag text.
type Semantic struct{}

// Name implements PairScorer.
func (Semantic) Name() string { return StrategySemantic }

// SemanticSignals are the intermediate similarities behind a semantic score.
type SemanticSignals struct {
	Overall        float64
	Bio            float64
	Interest       float64
	CommonKeywords []string
}

// Signals computes the three similarities for a and b.
//
// Overall similarity is the TF-IDF cosine of the concatenated profile text
// over the two-document corpus {a, b}. Bio similarity is the cosine of the
// bios' term-frequency vectors, 0 when either bio is blank. Interest
// similarity is the Jaccard index of the normalized interest sets.
func (Semantic) Signals(a, b model.Profile) SemanticSignals {
	ta := textanalysis.Tokenize(profileText(a))
	tb := textanalysis.Tokenize(profileText(b))
	corpus := [][]string{ta, tb}

	sig := SemanticSignals{
		Overall:        textanalysis.CosineSimilarity(textanalysis.TFIDF(ta, corpus), textanalysis.TFIDF(tb, corpus)),
		Interest:       textanalysis.JaccardSimilarity(normalizedSet(a.Interests), normalizedSet(b.Interests)),
		CommonKeywords: textanalysis.CommonTokens(ta, tb),
	}
	if strings.TrimSpace(a.Bio) != "" && strings.TrimSpace(b.Bio) != "" {
		sig.Bio = textanalysis.CosineSimilarity(
			textanalysis.TermFrequency(textanalysis.Tokenize(a.Bio)),
			textanalysis.TermFrequency(textanalysis.Tokenize(b.Bio)),
		)
	}
	return sig
}

// Score implements PairScorer.
func (s Semantic) Score(a, b model.Profile) model.ScoreResult {
	sig := s.Signals(a, b)
	blended := overallWeight*sig.Overall + bioWeight*sig.Bio + interestWeight*sig.Interest
	res := model.ScoreResult{
		Score:   int(math.Round(maxScore * blended)),
		Reasons: []string{},
	}

	if sig.Bio > reasonThreshold {
		res.Reasons = append(res.Reasons, fmt.Sprintf("Similar professional background (%d%% bio similarity)", percent(sig.Bio)))
	}
	if sig.Interest > reasonThreshold {
		res.Reasons = append(res.Reasons, fmt.Sprintf("Strongly aligned interests (%d%% overlap)", percent(sig.Interest)))
	}
	if len(sig.CommonKeywords) > 0 {
		kw := sig.CommonKeywords
		if len(kw) > maxKeywordsInReason {
			kw = kw[:maxKeywordsInReason]
		}
		res.Reasons = append(res.Reasons, "Common topics: "+strings.Join(kw, ", "))
	}
	return res
}

// FindSimilarUsers scores every candidate against target, keeps scores
// above 20 and returns the best n.
func (s Semantic) FindSimilarUsers(target model.Profile, candidates []model.Profile, n int) []model.ScoredProfile {
	if n <= 0 {
		return []model.ScoredProfile{}
	}
	out := make([]model.ScoredProfile, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		r := s.Score(target, c)
		if r.Score <= similarUserMinScore {
			continue
		}
		out = append(out, model.ScoredProfile{Profile: c, Score: r.Score, Reasons: r.Reasons})
	}
	return rankScored(out, n)
}

// profileText concatenates the free text and tags of p.
func profileText(p model.Profile) string {
	parts := make([]string, 0, 1+len(p.Interests)+len(p.Industries)+len(p.Goals))
	parts = append(parts, p.Bio)
	parts = append(parts, p.Interests...)
	parts = append(parts, p.Industries...)
	parts = append(parts, p.Goals...)
	return strings.Join(parts, " ")
}

func percent(f float64) int {
	return int(math.Round(f * maxScore))
}
