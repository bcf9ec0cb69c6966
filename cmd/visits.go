package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/altozano-realty/intake-cli/internal/model"
)

var visitsCmd = &cobra.Command{
	Use:   "visits",
	Short: "Inspect scheduled visits",
}

var visitsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List visit requests",
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

		status, _ := cmd.Flags().GetString("status")
		property, _ := cmd.Flags().GetString("property")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := model.VisitFilter{
			Status:     model.VisitStatus(status),
			PropertyID: property,
			Limit:      limit,
		}

		visits, err := st.ListVisits(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "visits list")
		}

		if len(visits) == 0 {
			fmt.Fprintln(os.Stderr, "No visits found.")
			return nil
		}

		formatVisitsList(os.Stdout, visits)
		return nil
	},
}

func init() {
	visitsListCmd.Flags().String("status", "", "filter by status (pending, confirmed, done, cancelled)")
	visitsListCmd.Flags().String("property", "", "filter by property ID")
	visitsListCmd.Flags().Int("limit", 50, "max number of visits to display")

	visitsCmd.AddCommand(visitsListCmd)
	rootCmd.AddCommand(visitsCmd)
}

// formatVisitsList writes a tabular list of visits to w.
func formatVisitsList(out io.Writer, visits []model.Visit) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPROPERTY\tNAME\tPHONE\tSTATUS\tPREFERRED\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t----\t-----\t------\t---------\t-------")

	for _, v := range visits {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(v.ID),
			truncateID(v.PropertyID),
			v.Name,
			v.Phone,
			v.Status,
			v.PreferredDate,
			v.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}
