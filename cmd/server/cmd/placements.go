package cmd

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/ifeis/server/internal/config"
	"github.com/ifeis/server/internal/domain/scores"
	"github.com/ifeis/server/internal/storage/postgres"
	"github.com/spf13/cobra"
)

type placementCalculator interface {
	CalculatePlacements(ctx context.Context, feisID, eventID string, details bool) ([]scores.Result, error)
	CachePlacements(ctx context.Context, feisID, eventID string) ([]scores.Stored, error)
}

func newPlacementsCommand() *cobra.Command {
	var cache bool
	cmd := &cobra.Command{
		Use:   "placements FEIS_ID EVENT_ID",
		Short: "Calculate the placements of an event",
		Long: `Rank an event from its scoresheets and print the result.

With --cache the placements are also written to the participant records, the
same as the tabulation room's "cache placements" button.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			pool, err := openPool(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			repo, err := postgres.NewRepository(pool)
			if err != nil {
				return err
			}
			svc := scores.NewService(repo.Scores(), config.NewLogger(cfg.Logging))
			return printPlacements(cmd.Context(), cmd.OutOrStdout(), svc, args[0], args[1], cache)
		},
	}
	cmd.Flags().BoolVar(&cache, "cache", false, "store the placements on the participant records")
	return cmd
}

func printPlacements(ctx context.Context, out io.Writer, calc placementCalculator, feisID, eventID string, cache bool) error {
	results, err := calc.CalculatePlacements(ctx, feisID, eventID, false)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PLACE\tNUMBER\tPOINTS\tPLACED\tPERSON")
	for _, r := range results {
		num := "-"
		if r.Competitor != nil {
			num = strconv.Itoa(*r.Competitor)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%t\t%s\n", r.Placement, num, r.Total, r.Placed, r.PersonID)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if !cache {
		return nil
	}
	stored, err := calc.CachePlacements(ctx, feisID, eventID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "cached %d placement(s)\n", len(stored))
	return nil
}
