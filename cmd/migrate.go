package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altozano-realty/intake-cli/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database schema migrations",
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

		fmt.Printf("Migrations applied (%s).\n", storeLabel(cfg))
		return nil
	},
}

func storeLabel(c *config.Config) string {
	if c.Store.Driver == "sqlite" {
		dsn := c.Store.DatabaseURL
		if dsn == "" {
			dsn = "intake.db"
		}
		return "sqlite: " + dsn
	}
	return "postgres"
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
