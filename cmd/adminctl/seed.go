package main

import (
	"fmt"

	"adlink-platform/internal/database"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the settings row and a sample house campaign on an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if err := database.SeedDatabase(cmd.Context(), e.db); err != nil {
			return fmt.Errorf("failed to seed database: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Seed complete.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
