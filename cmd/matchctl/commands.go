package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"internmatch/internal/app"
	"internmatch/internal/config"
	"internmatch/internal/database/seeder"
	"internmatch/internal/domain/matching"
	"internmatch/internal/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configFile string
	debug      bool
	json       bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "matchctl",
		Short:         "matchctl inspects and drives the internship matching engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default config.yaml in the working directory)")
	root.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "verbose output")
	root.PersistentFlags().BoolVarP(&opts.json, "json", "j", false, "json log format")

	root.AddCommand(newRankCmd(opts), newMatchCmd(opts), newPurgeCacheCmd(opts), newSeedCmd(opts))
	return root
}

func newRankCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <applicant-id>",
		Short: "Print every open posting ranked for an applicant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid applicant id %q: %w", args[0], err)
			}
			return withContainer(cmd.Context(), opts, func(c *app.Container) error {
				ranked, err := c.RankingUC.RankPostingsForApplicant(cmd.Context(), id)
				if err != nil {
					return err
				}
				return printRanking(cmd.OutOrStdout(), ranked)
			})
		},
	}
}

func newMatchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "match <applicant-id>",
		Short: "Run matching for an applicant and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid applicant id %q: %w", args[0], err)
			}
			return withContainer(cmd.Context(), opts, func(c *app.Container) error {
				res, err := c.MatchingUC.RunMatching(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "outcome=%s written=%d removed=%d\n", res.Outcome, res.Written, res.Removed)
				return nil
			})
		},
	}
}

func newPurgeCacheCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-cache",
		Short: "Delete expired rows from the Postgres embedding cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd.Context(), opts, func(c *app.Container) error {
				n, err := c.PostgresCache.PurgeExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired embeddings\n", n)
				return nil
			})
		},
	}
}

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load the demo skills, postings, applicant and advertisement",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withContainer(cmd.Context(), opts, func(c *app.Container) error {
				if err := seeder.Default().Run(cmd.Context(), c.DB); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded demo data, applicant %s\n", seeder.DemoApplicantID)
				return nil
			})
		},
	}
}

func withContainer(ctx context.Context, opts *rootOptions, fn func(c *app.Container) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.configFile != "" {
		if err := os.Setenv(config.ConfigPathEnvVar, opts.configFile); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	lc := logging.Config{Level: cfg.Log.Level, Format: "console"}
	if opts.json {
		lc.Format = "json"
	}
	if opts.debug {
		lc.Level = zerolog.LevelDebugValue
	}
	c, err := app.NewContainer(ctx, cfg, logging.New(lc))
	if err != nil {
		return err
	}
	defer c.Close()
	return fn(c)
}

func printRanking(w io.Writer, ranked []matching.Ranked) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tPOSTING\tFINAL\tSIMILARITY\tMODALITY\tDISTANCE\tKM")
	for i, r := range ranked {
		km := "-"
		if r.Components.DistanceKm != nil {
			km = fmt.Sprintf("%.3f", *r.Components.DistanceKm)
		}
		fmt.Fprintf(tw, "%d\t%s\t%.3f\t%.3f\t%.3f\t%.3f\t%s\n",
			i+1, r.PostingID, r.FinalScore,
			r.Components.Similarity, r.Components.Modality, r.Components.Distance, km)
	}
	return tw.Flush()
}
