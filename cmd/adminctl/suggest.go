package main

import (
	"fmt"

	"adlink-platform/internal/linking"
	"adlink-platform/internal/repository"
	"adlink-platform/internal/settings"

	"github.com/spf13/cobra"
)

var suggestLimit int

var suggestCmd = &cobra.Command{
	Use:   "suggest-links",
	Short: "Regenerate internal-link suggestions for every linkable entity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("limit") && suggestLimit <= 0 {
			return fmt.Errorf("--limit must be positive, got %d", suggestLimit)
		}

		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		cfg := settings.NewStore(repository.NewSettingsRepository(e.db), e.log, 0).Config(ctx)
		if !cfg.SEOEnabled || !cfg.AutoLinkingEnabled {
			fmt.Fprintln(cmd.OutOrStdout(), "SEO or auto-linking is disabled; nothing to do.")
			return nil
		}

		limit := suggestLimit
		if limit <= 0 {
			limit = e.cfg.SuggestLimit
		}

		refresher := linking.NewRefresher(repository.NewLinkRepository(e.db, e.log), e.log)
		processed, err := refresher.RefreshAll(ctx, cfg, limit)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Suggestions generated for %d sources\n", processed)
		return nil
	},
}

func init() {
	suggestCmd.Flags().IntVar(&suggestLimit, "limit", 0, "Suggestions per source (defaults to SUGGEST_LIMIT)")
	rootCmd.AddCommand(suggestCmd)
}
