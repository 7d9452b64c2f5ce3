package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/matchmaker/internal/adapters/repository"
	service "github.com/okian/matchmaker/internal/app"
)

type globalFlags struct {
	db      string
	asJSON  bool
	workers int
}

func newRootCmd(out io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "matchctl",
		Short:         "Seed and query a matchmaker database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVarP(&g.db, "db", "d", "data/matchmaker.db", "SQLite database path")
	root.PersistentFlags().BoolVar(&g.asJSON, "json", false, "Print JSON instead of a table")
	root.PersistentFlags().IntVar(&g.workers, "workers", 4, "Ingest workers used by seed")

	root.AddCommand(
		newSeedCmd(g),
		newScoreCmd(g),
		newExplainCmd(g),
		newRecommendCmd(g),
		newSocialCmd(g),
		newLeaderboardCmd(g),
	)
	return root
}

// withService opens the database, runs fn against a service over it and
// closes everything afterwards. Started services also rebuild the
// leaderboard and accept interactions.
func withService(ctx context.Context, g *globalFlags, start bool, fn func(*service.Service) error) error {
	store, err := repository.NewSQLiteStore(ctx, g.db)
	if err != nil {
		return err
	}
	svc := service.New(service.WithStore(store), service.WithWorkerCount(g.workers))
	defer svc.Stop()
	if start {
		if err := svc.Start(ctx); err != nil {
			return err
		}
	}
	return fn(svc)
}

// render prints v as JSON, or as a table of header and rows.
func render(w io.Writer, asJSON bool, v any, header []string, rows [][]string) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}
