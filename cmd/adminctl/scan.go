package main

import (
	"fmt"

	"adlink-platform/internal/placements"
	"adlink-platform/internal/repository"

	"github.com/spf13/cobra"
)

var templatesDir string

var scanCmd = &cobra.Command{
	Use:   "scan-placements",
	Short: "Scan templates for ad slot markers and create or update placements",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		scanner := placements.NewScanner(repository.NewAdRepository(e.db, e.log), e.log)
		result, err := scanner.Scan(cmd.Context(), templatesDir)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Scan complete. Created: %d, Updated: %d, Total: %d\n",
			result.Created, result.Updated, result.Total)
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&templatesDir, "templates-dir", "templates", "Root templates directory to scan")
	rootCmd.AddCommand(scanCmd)
}
