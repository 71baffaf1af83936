package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/snipdex/internal/domain/search/request"
)

func newSearchCommand(st *cliState) *cobra.Command {
	var (
		limit    int
		minScore float64
	)

	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Rank snippets by similarity to a query",
		Long: `Rank every snippet against the query. Snippets without a cached
embedding are embedded first. An empty query lists snippets unranked.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("limit") {
				limit = st.cfg.Search.DefaultLimit
			}
			if !cmd.Flags().Changed("min-score") {
				minScore = st.cfg.Search.MinScore
			}
			req, err := request.New(strings.Join(args, " "), limit, minScore)
			if err != nil {
				return err //nolint:wrapcheck // already descriptive
			}
			return st.withApp(cmd, func(ctx context.Context, a *app) error {
				resp, err := a.search.Search(ctx, req)
				if err != nil {
					snap := a.search.Snapshot()
					return fmt.Errorf("%s: %w", snap.Status, err)
				}
				views := rankedViews(resp.Results)
				if st.jsonOut {
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"token":   resp.Token,
						"state":   resp.State,
						"results": views,
					})
				}
				return printTable(cmd.OutOrStdout(), views, !req.IsEmpty())
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum results (0 = all)")
	cmd.Flags().Float64Var(&minScore, "min-score", 0, "drop results scoring below this similarity")
	return cmd
}
