package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/matchmaker/internal/adapters/http/api"
	service "github.com/okian/matchmaker/internal/app"
	"github.com/okian/matchmaker/internal/domain/matching"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var clock = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

// stubService overrides selected service calls to force transport-level
// failure paths.
type stubService struct {
	*service.Service
	submitErr error
	topErr    error
}

func (s *stubService) SubmitInteraction(ctx context.Context, e model.InteractionEvent) (service.Submission, error) {
	if s.submitErr != nil {
		return service.Submission{}, s.submitErr
	}
	return s.Service.SubmitInteraction(ctx, e)
}

func (s *stubService) TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	if s.topErr != nil {
		return nil, s.topErr
	}
	return s.Service.TopN(ctx, n)
}

func newService() *service.Service {
	svc := service.New(
		service.WithClock(func() time.Time { return clock }),
		service.WithWorkerCount(1),
		service.WithMatchingOptions(matching.WithMinScore(0)),
	)
	ctx := context.Background()
	for _, p := range []model.Profile{
		{ID: "alice", Name: "Alice", Bio: "Fintech founder building payment products",
			Industries: []string{"Fintech"}, Interests: []string{"AI", "Payments"}, Goals: []string{"Fundraising"}, Active: true},
		{ID: "bob", Name: "Bob", Bio: "Investor in fintech and payment products",
			Industries: []string{"Fintech", "Venture"}, Interests: []string{"Payments", "AI"}, Goals: []string{"Fundraising"}, Active: true},
		{ID: "carol", Name: "Carol", Bio: "Designer of health apps",
			Industries: []string{"Health"}, Interests: []string{"Design"}, Active: true},
	} {
		So(svc.PutProfile(ctx, p), ShouldBeNil)
	}
	return svc
}

func newMux(deps api.Dependencies, stats api.StatsProvider) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, stats, api.WithMaxLeaderboardLimit(20), api.WithMaxRecommendationLimit(5)).
		Register(context.Background(), mux)
	return mux
}

func do(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestServer_Profiles(t *testing.T) {
	Convey("Given a server over a seeded service", t, func() {
		svc := newService()
		mux := newMux(svc, svc)

		Convey("When a profile is posted", func() {
			w := do(mux, http.MethodPost, "/profiles", `{"id":"dan","name":"Dan","industries":["Media"],"active":true}`)

			Convey("Then it is stored and readable", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				got := decode[model.Profile](do(mux, http.MethodGet, "/profiles/dan", ""))
				So(got.Name, ShouldEqual, "Dan")
				So(got.Industries, ShouldResemble, []string{"Media"})
			})
		})

		Convey("When the body is malformed or incomplete", func() {
			So(do(mux, http.MethodPost, "/profiles", `{"id":`).Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodPost, "/profiles", `{"name":"nobody"}`)
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[apiError](w).Code, ShouldEqual, "bad_request")
		})

		Convey("When the profile is unknown", func() {
			w := do(mux, http.MethodGet, "/profiles/ghost", "")
			So(w.Code, ShouldEqual, http.StatusNotFound)
			So(decode[apiError](w).Code, ShouldEqual, "not_found")
		})
	})
}

func TestServer_Interactions(t *testing.T) {
	Convey("Given a server over a seeded service", t, func() {
		svc := newService()
		stub := &stubService{Service: svc}
		mux := newMux(stub, svc)
		body := `{"interaction_id":"i-1","subject_id":"alice","kind":"message-sent","target_id":"bob","timestamp":"2026-06-01T09:00:00Z"}`

		Convey("When the service has not started", func() {
			w := do(mux, http.MethodPost, "/interactions", body)
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
		})

		Convey("When the service is running", func() {
			So(svc.Start(context.Background()), ShouldBeNil)
			Reset(svc.Stop)

			Convey("Then a new interaction is accepted and a repeat is a duplicate", func() {
				first := do(mux, http.MethodPost, "/interactions", body)
				So(first.Code, ShouldEqual, http.StatusAccepted)
				So(first.Body.String(), ShouldContainSubstring, `"interaction_id":"i-1"`)

				again := do(mux, http.MethodPost, "/interactions", body)
				So(again.Code, ShouldEqual, http.StatusOK)
				So(again.Body.String(), ShouldContainSubstring, `"duplicate":true`)
			})

			Convey("Then an interaction without id is assigned one", func() {
				w := do(mux, http.MethodPost, "/interactions", `{"subject_id":"alice","kind":"search-performed"}`)
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldNotContainSubstring, `"interaction_id":""`)
			})

			Convey("Then bad input is rejected", func() {
				So(do(mux, http.MethodPost, "/interactions", `{"subject_id":"alice","kind":"wave"}`).Code,
					ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/interactions", `{"subject_id":"alice","kind":"profile-view","timestamp":"yesterday"}`).Code,
					ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/interactions", `{"kind":"profile-view"}`).Code,
					ShouldEqual, http.StatusBadRequest)
				So(do(mux, http.MethodPost, "/interactions", `not json`).Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("Then a full queue answers 429", func() {
				stub.submitErr = service.ErrBackpressure
				w := do(mux, http.MethodPost, "/interactions", body)
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(decode[apiError](w).Code, ShouldEqual, "backpressure")
			})
		})
	})
}

func TestServer_Users(t *testing.T) {
	Convey("Given a server over a seeded service", t, func() {
		svc := newService()
		mux := newMux(svc, svc)

		Convey("Then recommendations exclude the subject", func() {
			w := do(mux, http.MethodGet, "/users/alice/recommendations?limit=100", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			recs := decode[[]model.MatchCandidate](w)
			So(recs, ShouldNotBeEmpty)
			So(len(recs), ShouldBeLessThanOrEqualTo, 5)
			for _, r := range recs {
				So(r.CandidateID, ShouldNotEqual, "alice")
			}
		})

		Convey("Then invalid limits and unknown users are reported", func() {
			So(do(mux, http.MethodGet, "/users/alice/recommendations?limit=abc", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/users/alice/recommendations?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/users/ghost/recommendations", "").Code, ShouldEqual, http.StatusNotFound)
			So(do(mux, http.MethodGet, "/users/ghost/social-capital", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then similar users can be found by text or by behaviour", func() {
			w := do(mux, http.MethodGet, "/users/alice/similar", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			for _, sp := range decode[[]model.ScoredProfile](w) {
				So(sp.Profile.ID, ShouldNotEqual, "alice")
			}
			So(do(mux, http.MethodGet, "/users/alice/similar?by=behavior", "").Code, ShouldEqual, http.StatusOK)
			So(do(mux, http.MethodGet, "/users/alice/similar?by=horoscope", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then behaviour, serendipity and social capital are served", func() {
			w := do(mux, http.MethodGet, "/users/carol/behavior", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"engagement_score":0`)

			So(do(mux, http.MethodGet, "/users/carol/serendipity", "").Code, ShouldEqual, http.StatusOK)

			sc := decode[model.SocialCapitalScore](do(mux, http.MethodGet, "/users/carol/social-capital", ""))
			So(sc.UserID, ShouldEqual, "carol")
			So(sc.Total, ShouldEqual, 10)
		})
	})
}

func TestServer_Matches(t *testing.T) {
	Convey("Given a server over a seeded service", t, func() {
		svc := newService()
		mux := newMux(svc, svc)

		Convey("Then a pair can be explained", func() {
			w := do(mux, http.MethodGet, "/matches/explain?a=alice&b=bob", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			exp := decode[model.Explanation](w)
			So(exp.CandidateID, ShouldEqual, "bob")
			So(exp.Recommendation, ShouldNotBeEmpty)
		})

		Convey("Then a single strategy can be run", func() {
			w := do(mux, http.MethodGet, "/matches/score?a=alice&b=bob&strategy=rule-based", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			// 1 industry (20) + 2 interests (20) + 1 goal (15)
			So(decode[model.ScoreResult](w).Score, ShouldEqual, 55)

			So(do(mux, http.MethodGet, "/matches/score?a=alice&b=bob&strategy=astrology", "").Code,
				ShouldEqual, http.StatusBadRequest)
		})

		Convey("Then interest can be predicted", func() {
			w := do(mux, http.MethodGet, "/matches/predict?a=alice&b=bob", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, `"target_id":"bob"`)
		})

		Convey("Then the pair is required", func() {
			So(do(mux, http.MethodGet, "/matches/explain?a=alice", "").Code, ShouldEqual, http.StatusBadRequest)
			So(do(mux, http.MethodGet, "/matches/explain?a=alice&b=ghost", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_Leaderboard(t *testing.T) {
	Convey("Given a server over a seeded service", t, func() {
		svc := newService()
		stub := &stubService{Service: svc}
		mux := newMux(stub, svc)

		Convey("Then the top of the board is served", func() {
			w := do(mux, http.MethodGet, "/leaderboard?limit=2", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[[]model.LeaderboardEntry](w), ShouldHaveLength, 2)
			So(decode[[]model.LeaderboardEntry](do(mux, http.MethodGet, "/leaderboard", "")), ShouldHaveLength, 3)
		})

		Convey("Then limits are validated", func() {
			So(do(mux, http.MethodGet, "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
			w := do(mux, http.MethodGet, "/leaderboard?limit=21", "")
			So(w.Code, ShouldEqual, http.StatusBadRequest)
			So(decode[apiError](w).Code, ShouldEqual, "limit_exceeded")
		})

		Convey("Then ranks are served by id", func() {
			w := do(mux, http.MethodGet, "/rank/alice", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[model.LeaderboardEntry](w).Rank, ShouldEqual, 1)
			So(do(mux, http.MethodGet, "/rank/ghost", "").Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Then unexpected failures are server errors", func() {
			stub.topErr = errors.New("disk on fire")
			w := do(mux, http.MethodGet, "/leaderboard", "")
			So(w.Code, ShouldEqual, http.StatusInternalServerError)
			So(decode[apiError](w).Code, ShouldEqual, "internal_error")
		})
	})
}

func TestServer_Operational(t *testing.T) {
	Convey("Given a server over a seeded service", t, func() {
		svc := newService()
		mux := newMux(svc, svc)

		Convey("Then health and metrics expose the registry", func() {
			So(do(mux, http.MethodGet, "/healthz", "").Code, ShouldEqual, http.StatusOK)
			do(mux, http.MethodGet, "/profiles/ghost", "")
			w := do(mux, http.MethodGet, "/metrics", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(w.Body.String(), ShouldContainSubstring, "profile")
		})

		Convey("Then stats are JSON", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode[map[string]any](w), ShouldContainKey, "started")
		})

		Convey("Then methods and paths are enforced", func() {
			So(do(mux, http.MethodPost, "/leaderboard", "").Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(do(mux, http.MethodGet, "/unknown", "").Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestServer_RegisterNilMux(t *testing.T) {
	Convey("Given a nil mux", t, func() {
		svc := service.New()
		So(func() { api.NewServer(svc, svc).Register(context.Background(), nil) }, ShouldPanic)
	})
}
