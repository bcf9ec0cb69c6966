package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/altozano-realty/intake-cli/internal/enrich"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Backfill listing coordinates",
	Long:  "Commands for resolving missing property coordinates through the geocoding service.",
}

// -- geocode backfill --

var geocodeBackfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Geocode one batch of properties missing coordinates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		job := enrich.NewJob(st, initGeocoder(), cfg.Geocoder)

		summary, err := job.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "geocode backfill")
		}

		formatGeocodeSummary(summary)
		return nil
	},
}

// -- geocode status --

var geocodeStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show how many properties still lack coordinates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		remaining, err := st.CountGeocodeTargets(ctx)
		if err != nil {
			return eris.Wrap(err, "geocode status")
		}

		if remaining == 0 {
			fmt.Println("All properties have coordinates.")
			return nil
		}
		fmt.Printf("%d properties awaiting geocoding.\n", remaining)
		return nil
	},
}

func formatGeocodeSummary(s *enrich.Summary) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Resolved:\t%d\n", s.Resolved)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Remaining:\t%d\n", s.Remaining)
	_ = w.Flush()
}

func init() {
	geocodeCmd.AddCommand(geocodeBackfillCmd)
	geocodeCmd.AddCommand(geocodeStatusCmd)
	rootCmd.AddCommand(geocodeCmd)
}
