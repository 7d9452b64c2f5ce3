package textanalysis_test

import (
	"math"
	"testing"

	"github.com/okian/matchmaker/internal/domain/textanalysis"
	. "github.com/smartystreets/goconvey/convey"
)

func TestTokenize(t *testing.T) {
	Convey("Given free text", t, func() {
		Convey("When it mixes case, punctuation, short words and stop words", func() {
			tokens := textanalysis.Tokenize("The AI-driven platform, for FinTech & Web3 founders!! an ok go")

			Convey("Then it keeps lowercase content words only", func() {
				So(tokens, ShouldResemble, []string{"aidriven", "platform", "fintech", "web3", "founders"})
			})
		})

		Convey("When text is empty or only noise", func() {
			Convey("Then the result is empty, not nil-erroring", func() {
				So(textanalysis.Tokenize(""), ShouldBeEmpty)
				So(textanalysis.Tokenize("!!! ?? a an to"), ShouldBeEmpty)
			})
		})
	})
}

func TestTermFrequency(t *testing.T) {
	Convey("Given tokens", t, func() {
		Convey("When counting", func() {
			tf := textanalysis.TermFrequency([]string{"data", "data", "cloud", "edge"})

			Convey("Then counts are normalised by the token total", func() {
				So(tf["data"], ShouldEqual, 0.5)
				So(tf["cloud"], ShouldEqual, 0.25)
			})
		})

		Convey("When there are no tokens", func() {
			Convey("Then the map is empty", func() {
				So(textanalysis.TermFrequency(nil), ShouldBeEmpty)
			})
		})
	})
}

func TestInverseDocumentFrequency(t *testing.T) {
	Convey("Given a corpus", t, func() {
		corpus := [][]string{{"alpha", "beta"}, {"beta", "gamma"}, {"beta"}, {"delta"}}

		Convey("Then idf is ln(N/df)", func() {
			So(textanalysis.InverseDocumentFrequency(corpus, "alpha"), ShouldAlmostEqual, math.Log(4), 1e-12)
			So(textanalysis.InverseDocumentFrequency(corpus, "beta"), ShouldAlmostEqual, math.Log(4.0/3.0), 1e-12)
		})

		Convey("Then an absent term has idf 0 instead of infinity", func() {
			So(textanalysis.InverseDocumentFrequency(corpus, "omega"), ShouldEqual, 0)
			So(textanalysis.InverseDocumentFrequency(nil, "omega"), ShouldEqual, 0)
		})
	})
}

func TestTFIDF(t *testing.T) {
	Convey("Given a two-document corpus", t, func() {
		a := []string{"golang", "cloud", "cloud"}
		b := []string{"cloud", "design"}
		corpus := [][]string{a, b}

		w := textanalysis.TFIDF(a, corpus)

		Convey("Then shared terms weigh zero and unique terms weigh tf*ln2", func() {
			So(w["cloud"], ShouldEqual, 0)
			So(w["golang"], ShouldAlmostEqual, (1.0/3.0)*math.Log(2), 1e-12)
			So(len(w), ShouldEqual, 2)
		})
	})
}

func TestCosineSimilarity(t *testing.T) {
	Convey("Given sparse vectors", t, func() {
		Convey("When they are identical", func() {
			v := map[string]float64{"x": 1, "y": 2}
			So(textanalysis.CosineSimilarity(v, v), ShouldAlmostEqual, 1, 1e-12)
		})

		Convey("When they are orthogonal", func() {
			So(textanalysis.CosineSimilarity(map[string]float64{"x": 1}, map[string]float64{"y": 1}), ShouldEqual, 0)
		})

		Convey("When they partially overlap", func() {
			a := map[string]float64{"x": 1, "y": 1}
			b := map[string]float64{"x": 1}
			So(textanalysis.CosineSimilarity(a, b), ShouldAlmostEqual, 1/math.Sqrt2, 1e-12)
		})

		Convey("When either magnitude is zero", func() {
			zero := map[string]float64{"x": 0}
			So(textanalysis.CosineSimilarity(zero, map[string]float64{"x": 1}), ShouldEqual, 0)
			So(textanalysis.CosineSimilarity(nil, map[string]float64{"x": 1}), ShouldEqual, 0)
			So(math.IsNaN(textanalysis.CosineSimilarity(zero, zero)), ShouldBeFalse)
		})
	})
}

func TestJaccardSimilarity(t *testing.T) {
	Convey("Given tag sets", t, func() {
		Convey("Then overlap is intersection over union of distinct members", func() {
			So(textanalysis.JaccardSimilarity([]string{"ai", "web3", "ai"}, []string{"ai", "design"}), ShouldAlmostEqual, 1.0/3.0, 1e-12)
			So(textanalysis.JaccardSimilarity([]string{"ai"}, []string{"ai"}), ShouldEqual, 1)
		})

		// Two empty sets score 0 rather than 1. Callers rely on "no data"
		// contributing nothing to a match score.
		Convey("Then two empty sets score 0", func() {
			So(textanalysis.JaccardSimilarity(nil, nil), ShouldEqual, 0)
			So(textanalysis.JaccardSimilarity([]string{}, []string{}), ShouldEqual, 0)
		})

		Convey("Then one empty set scores 0", func() {
			So(textanalysis.JaccardSimilarity([]string{"ai"}, nil), ShouldEqual, 0)
		})
	})
}

func TestExtractKeyPhrases(t *testing.T) {
	Convey("Given text with repeated phrases", t, func() {
		text := "machine learning engineer loves machine learning research and machine learning products"

		Convey("When extracting the top phrases", func() {
			phrases := textanalysis.ExtractKeyPhrases(text, 3)

			Convey("Then the most frequent bigram leads and ties keep first-seen order", func() {
				So(phrases, ShouldHaveLength, 3)
				So(phrases[0], ShouldEqual, "machine learning")
				So(phrases[1], ShouldEqual, "learning engineer")
				So(phrases[2], ShouldEqual, "engineer loves")
			})
		})

		Convey("When text is too short or topN is not positive", func() {
			So(textanalysis.ExtractKeyPhrases("golang", 5), ShouldBeEmpty)
			So(textanalysis.ExtractKeyPhrases(text, 0), ShouldBeEmpty)
		})

		Convey("When asking for more phrases than exist", func() {
			So(textanalysis.ExtractKeyPhrases("distributed systems design", 10), ShouldResemble,
				[]string{"distributed systems", "systems design", "distributed systems design"})
		})
	})
}

func TestCommonTokens(t *testing.T) {
	Convey("Common tokens keep first-seen order of the left side", t, func() {
		So(textanalysis.CommonTokens([]string{"cloud", "golang", "cloud", "data"}, []string{"data", "cloud"}),
			ShouldResemble, []string{"cloud", "data"})
		So(textanalysis.CommonTokens(nil, []string{"x"}), ShouldBeEmpty)
	})
}
