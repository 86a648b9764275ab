package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vincentbai/visittrace-agent/internal/config"
	"github.com/vincentbai/visittrace-agent/internal/domains"
)

func newClassifyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>...",
		Short: "Show the registrable domain of each URL and whether it is tracked",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			classifier := domains.NewClassifier(domains.NewSet(cfg.Tracking.Domains))

			for _, rawURL := range args {
				domain, ok := domains.RegistrableDomain(rawURL)
				if !ok {
					domain = "-"
				}
				status := "untracked"
				if _, tracked := classifier.Classify(rawURL); tracked {
					status = "tracked"
				}
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", rawURL, domain, status); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
