package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	service "github.com/okian/matchmaker/internal/app"
	"github.com/okian/matchmaker/internal/domain/model"
	"github.com/okian/matchmaker/internal/domain/scoring"
	"github.com/okian/matchmaker/internal/loadgen"
)

const seedDrainTimeout = time.Minute

func newSeedCmd(g *globalFlags) *cobra.Command {
	var (
		users, interactions int
		seed                uint64
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write synthetic profiles and interactions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			gen := loadgen.NewGenerator(seed)
			profiles := gen.Profiles(users)
			events := gen.Interactions(profiles, interactions, time.Now())

			var summary seedSummary
			err := withService(ctx, g, true, func(svc *service.Service) error {
				for _, p := range profiles {
					if err := svc.PutProfile(ctx, p); err != nil {
						return err
					}
				}
				for _, e := range events {
					sub, err := submit(ctx, svc, e)
					if err != nil {
						return err
					}
					if sub.Duplicate {
						summary.Duplicates++
					}
				}
				return waitDrained(ctx, svc)
			})
			if err != nil {
				return err
			}
			summary.Profiles, summary.Interactions = len(profiles), len(events)
			return render(cmd.OutOrStdout(), g.asJSON, summary,
				[]string{"PROFILES", "INTERACTIONS", "DUPLICATES"},
				[][]string{{strconv.Itoa(summary.Profiles), strconv.Itoa(summary.Interactions), strconv.Itoa(summary.Duplicates)}})
		},
	}
	cmd.Flags().IntVarP(&users, "users", "u", 50, "Number of profiles")
	cmd.Flags().IntVarP(&interactions, "interactions", "n", 1000, "Number of interactions")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Generator seed")
	return cmd
}

type seedSummary struct {
	Profiles     int `json:"profiles"`
	Interactions int `json:"interactions"`
	Duplicates   int `json:"duplicates"`
}

// submit retries e while the ingest queue is full.
func submit(ctx context.Context, svc *service.Service, e model.InteractionEvent) (service.Submission, error) {
	for {
		sub, err := svc.SubmitInteraction(ctx, e)
		if !errors.Is(err, service.ErrBackpressure) {
			return sub, err
		}
		select {
		case <-ctx.Done():
			return sub, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// waitDrained blocks until the ingest queue is empty. Stop then waits for
// the in-flight items.
func waitDrained(ctx context.Context, svc *service.Service) error {
	ctx, cancel := context.WithTimeout(ctx, seedDrainTimeout)
	defer cancel()
	for {
		if n, _ := svc.GetStats()["queue_length"].(int); n == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("ingest did not drain: %w", ctx.Err())
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func newScoreCmd(g *globalFlags) *cobra.Command {
	var strategy string
	cmd := &cobra.Command{
		Use:   "score USER_A USER_B",
		Short: "Run one scoring strategy on a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, false, func(svc *service.Service) error {
				res, err := svc.ScorePair(cmd.Context(), args[0], args[1], strategy)
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), g.asJSON, res,
					[]string{"STRATEGY", "SCORE", "REASONS"},
					[][]string{{strategy, strconv.Itoa(res.Score), strings.Join(res.Reasons, "; ")}})
			})
		},
	}
	cmd.Flags().StringVarP(&strategy, "strategy", "s", scoring.StrategyRuleBased,
		"One of: "+strings.Join(scoring.Strategies(), ", "))
	return cmd
}

func newExplainCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "explain USER_A USER_B",
		Short: "Explain the enhanced score of a pair",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, false, func(svc *service.Service) error {
				exp, err := svc.ExplainMatch(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				bd := exp.Breakdown
				return render(cmd.OutOrStdout(), g.asJSON, exp,
					[]string{"TOTAL", "RULE", "SEMANTIC", "BEHAVIORAL", "COMPAT", "CONFIDENCE", "RECOMMENDATION"},
					[][]string{{
						strconv.Itoa(exp.TotalScore), strconv.Itoa(bd.RuleBased), strconv.Itoa(bd.Semantic),
						strconv.Itoa(bd.Behavioral), strconv.Itoa(bd.Compatibility), string(exp.Confidence), exp.Recommendation,
					}})
			})
		},
	}
}

func newRecommendCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "recommend USER",
		Short: "List smart recommendations for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, false, func(svc *service.Service) error {
				recs, err := svc.GetSmartRecommendations(cmd.Context(), args[0], limit)
				if err != nil {
					return err
				}
				rows := make([][]string, len(recs))
				for i, r := range recs {
					rows[i] = []string{strconv.Itoa(i + 1), r.CandidateID, strconv.Itoa(r.TotalScore),
						string(r.Confidence), strings.Join(r.Reasons, "; ")}
				}
				return render(cmd.OutOrStdout(), g.asJSON, recs,
					[]string{"#", "CANDIDATE", "SCORE", "CONFIDENCE", "REASONS"}, rows)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of recommendations")
	return cmd
}

func newSocialCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "social USER",
		Short: "Show the social-capital score of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd.Context(), g, false, func(svc *service.Service) error {
				sc, err := svc.SocialCapital(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				badges := make([]string, len(sc.Badges))
				for i, b := range sc.Badges {
					badges[i] = string(b)
				}
				return render(cmd.OutOrStdout(), g.asJSON, sc,
					[]string{"USER", "TOTAL", "RANK", "LEVEL", "NEXT", "BADGES"},
					[][]string{{sc.UserID, strconv.Itoa(sc.Total), string(sc.Rank), strconv.Itoa(sc.Level),
						strconv.Itoa(sc.NextLevelAt), strings.Join(badges, ",")}})
			})
		},
	}
}

func newLeaderboardCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank users by social capital",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withService(cmd.Context(), g, true, func(svc *service.Service) error {
				top, err := svc.TopN(cmd.Context(), limit)
				if err != nil {
					return err
				}
				rows := make([][]string, len(top))
				for i, e := range top {
					rows[i] = []string{strconv.Itoa(e.Rank), e.UserID, strconv.Itoa(e.Score)}
				}
				return render(cmd.OutOrStdout(), g.asJSON, top, []string{"RANK", "USER", "SCORE"}, rows)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of entries")
	return cmd
}
