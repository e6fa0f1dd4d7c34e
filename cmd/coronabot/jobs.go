package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tbourn/go-corona-bot/internal/identity"
	"github.com/tbourn/go-corona-bot/internal/repo"
	"github.com/tbourn/go-corona-bot/internal/report"
	"github.com/tbourn/go-corona-bot/internal/services"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Run one fetch cycle and store the result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.RequireSheets(); err != nil {
			return err
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.reconciler.RunCycle(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: stored %d rows, %d entered, total %d\n",
			res.Date.Format(time.DateOnly), res.Rows, res.Entered, res.Total)
		return nil
	},
}

var (
	populationFile string
	populationOnly bool
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create one region per sheet row and merge population figures",
	Long: `seed creates the regions from the current sheet. Regions that already
exist keep their id, name and area. With --population the district data
set (a JSON array of {"fields": {"gen", "bez", "ewz"}} records) is merged
into the stored regions; every region must match or nothing is written.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if populationOnly && populationFile == "" {
			return errors.New("--population-only needs --population")
		}
		if !populationOnly {
			if err := cfg.RequireSheets(); err != nil {
				return err
			}
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		s := &services.Seeder{DB: a.db, Fetcher: a.sheet}
		out := cmd.OutOrStdout()
		if !populationOnly {
			res, err := s.Seed(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "seeded %d of %d rows (%s)\n", res.Created, res.Rows, res.Strategy)
		}
		if populationFile == "" {
			return nil
		}
		entries, err := readPopulation(populationFile)
		if err != nil {
			return err
		}
		n, err := s.MergePopulation(cmd.Context(), entries)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "population merged for %d regions\n", n)
		return nil
	},
}

func readPopulation(path string) ([]identity.Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return services.ParsePopulation(f)
}

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete case records older than RETENTION_DAYS and expired update ids",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		recs, err := a.reconciler.Purge(cmd.Context(), cfg.Schedule.RetentionDays)
		if err != nil {
			return err
		}
		upd, err := repo.PurgeProcessedUpdates(cmd.Context(), a.db, time.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d case records, %d update ids\n", recs, upd)
		return nil
	},
}

var (
	reportRegion string
	reportRisk   bool
	reportSend   bool
	reportPlain  bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print today's summary, the risk areas or a region's history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if reportSend && (reportRisk || reportRegion != "") {
			return errors.New("--send only broadcasts the summary")
		}
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		today := a.reporter.Today()
		if reportSend {
			if a.notifier == nil {
				return errors.New("TELEGRAM_TOKEN is required for --send")
			}
			res, err := a.notifier.Broadcast(ctx, today)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "delivered %d of %d (%d failed, %d deactivated)\n",
				res.Delivered, res.Recipients, res.Failed, res.Deactivated)
			return nil
		}

		var text string
		switch {
		case reportRegion != "":
			h, err := a.reporter.RegionHistory(ctx, reportRegion)
			if err != nil {
				return err
			}
			text = report.FormatHistory(h)
		case reportRisk:
			list, err := a.reporter.RiskAreas(ctx, today)
			if err != nil {
				return err
			}
			text = report.FormatRiskAreas(today, list)
		default:
			s, err := a.reporter.Summarize(ctx, today)
			if err != nil {
				return err
			}
			text = report.FormatSummary(s)
		}
		if reportPlain {
			text = report.Unescape(text)
		}
		fmt.Fprintln(cmd.OutOrStdout(), text)
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		a.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&populationFile, "population", "", "district data set to merge (kreis.json)")
	seedCmd.Flags().BoolVar(&populationOnly, "population-only", false, "skip the sheet and only merge --population")

	reportCmd.Flags().StringVar(&reportRegion, "region", "", "print the history of this region")
	reportCmd.Flags().BoolVar(&reportRisk, "risk", false, "print the risk areas")
	reportCmd.Flags().BoolVar(&reportSend, "send", false, "broadcast the summary to all subscribers")
	reportCmd.Flags().BoolVar(&reportPlain, "plain", false, "strip MarkdownV2 escapes")
}
