package cli

import (
	"github.com/spf13/cobra"

	"cmctracker/internal/app"
)

var (
	runMarket string
	runResume bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one tracking session",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.RunOptions{Market: runMarket}
		if cmd.Flags().Changed("resume") {
			opts.Resume = &runResume
		}
		return getApp().Run(cmd.Context(), opts)
	},
}

func init() {
	runCmd.Flags().StringVar(&runMarket, "market", "", "Market pair to track, e.g. XLM/BTC (defaults to config)")
	runCmd.Flags().BoolVar(&runResume, "resume", false, "Resume from an existing archive instead of starting fresh")
}
