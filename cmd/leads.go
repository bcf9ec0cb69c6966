package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/altozano-realty/intake-cli/internal/model"
)

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "Inspect and export captured leads",
	Long:  "Commands for listing leads by pipeline stage and exporting them for follow-up.",
}

// -- leads list --

var leadsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List captured leads",
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

		stage, _ := cmd.Flags().GetString("stage")
		source, _ := cmd.Flags().GetString("source")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := model.LeadFilter{
			Stage:  model.PipelineStage(stage),
			Source: source,
			Limit:  limit,
		}

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads list")
		}

		if len(leads) == 0 {
			fmt.Fprintln(os.Stderr, "No leads found.")
			return nil
		}

		formatLeadsList(os.Stdout, leads)
		return nil
	},
}

// -- leads export --

var leadsExportCmd = &cobra.Command{
	Use:   "export <output.xlsx>",
	Short: "Export leads to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		stage, _ := cmd.Flags().GetString("stage")
		filter := model.LeadFilter{
			Stage: model.PipelineStage(stage),
			Limit: 10000,
		}

		leads, err := st.ListLeads(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "leads export")
		}

		if err := writeLeadsXLSX(args[0], leads); err != nil {
			return err
		}

		fmt.Printf("Exported %d leads to %s.\n", len(leads), args[0])
		return nil
	},
}

func init() {
	leadsListCmd.Flags().String("stage", "", "filter by pipeline stage (new, contacted, qualified, won, lost)")
	leadsListCmd.Flags().String("source", "", "filter by submission source")
	leadsListCmd.Flags().Int("limit", 50, "max number of leads to display")

	leadsExportCmd.Flags().String("stage", "", "filter by pipeline stage")

	leadsCmd.AddCommand(leadsListCmd)
	leadsCmd.AddCommand(leadsExportCmd)
	rootCmd.AddCommand(leadsCmd)
}

// formatLeadsList writes a tabular list of leads to w.
func formatLeadsList(out io.Writer, leads []model.Lead) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPHONE\tSTAGE\tSOURCE\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t----\t-----\t-----\t------\t-------")

	for _, l := range leads {
		name := l.Name
		if len(name) > 30 {
			name = name[:27] + "..."
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(l.ID),
			name,
			l.Phone,
			l.PipelineStage,
			l.Source,
			l.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

var leadsExportHeader = []string{
	"ID", "Name", "Phone", "Email", "Property", "Operation", "Neighborhood",
	"Stage", "Source", "Message", "Created",
}

// writeLeadsXLSX writes the leads to a single-sheet XLSX workbook at path.
func writeLeadsXLSX(path string, leads []model.Lead) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Leads")
	if err != nil {
		return eris.Wrap(err, "leads export: add sheet")
	}

	header := sheet.AddRow()
	for _, col := range leadsExportHeader {
		header.AddCell().SetString(col)
	}

	for _, l := range leads {
		row := sheet.AddRow()
		row.AddCell().SetString(l.ID)
		row.AddCell().SetString(l.Name)
		row.AddCell().SetString(l.Phone)
		row.AddCell().SetString(l.Email)
		row.AddCell().SetString(l.PropertyID)
		row.AddCell().SetString(l.OperationType)
		row.AddCell().SetString(l.Neighborhood)
		row.AddCell().SetString(string(l.PipelineStage))
		row.AddCell().SetString(l.Source)
		row.AddCell().SetString(l.Message)
		row.AddCell().SetString(l.CreatedAt.Format(time.RFC3339))
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "leads export: save workbook")
	}
	return nil
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
