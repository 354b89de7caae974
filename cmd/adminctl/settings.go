package main

import (
	"encoding/json"

	"adlink-platform/internal/models"
	"adlink-platform/internal/repository"
	"adlink-platform/internal/settings"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change the site feature flags",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current settings row",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		row, err := settings.NewStore(repository.NewSettingsRepository(e.db), e.log, 0).Settings(cmd.Context())
		if err != nil {
			return err
		}
		return printJSON(cmd, row)
	},
}

var (
	setAds            bool
	setAdNetworks     bool
	setAffiliate      bool
	setSEO            bool
	setAutoLinking    bool
	setAggressiveness string
)

var settingsSetCmd = &cobra.Command{
	Use:     "set",
	Short:   "Update the flags given on the command line",
	Example: "  adminctl settings set --ads=true --aggressiveness=aggressive",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		flags := cmd.Flags()
		var patch models.SettingsPatch
		if flags.Changed("ads") {
			patch.AdsEnabled = &setAds
		}
		if flags.Changed("ad-networks") {
			patch.AdNetworksEnabled = &setAdNetworks
		}
		if flags.Changed("affiliate") {
			patch.AffiliateEnabled = &setAffiliate
		}
		if flags.Changed("seo") {
			patch.SEOEnabled = &setSEO
		}
		if flags.Changed("auto-linking") {
			patch.AutoLinkingEnabled = &setAutoLinking
		}
		if flags.Changed("aggressiveness") {
			patch.AdAggressivenessLevel = &setAggressiveness
		}

		row, err := settings.NewStore(repository.NewSettingsRepository(e.db), e.log, 0).Update(cmd.Context(), patch)
		if err != nil {
			return err
		}
		return printJSON(cmd, row)
	},
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	f := settingsSetCmd.Flags()
	f.BoolVar(&setAds, "ads", false, "Serve ads")
	f.BoolVar(&setAdNetworks, "ad-networks", false, "Allow third-party ad networks")
	f.BoolVar(&setAffiliate, "affiliate", false, "Resolve affiliate links")
	f.BoolVar(&setSEO, "seo", false, "Maintain the linkable registry")
	f.BoolVar(&setAutoLinking, "auto-linking", false, "Generate link suggestions")
	f.StringVar(&setAggressiveness, "aggressiveness", "", "minimal, balanced or aggressive")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
