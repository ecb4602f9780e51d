package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"cmctracker/internal/app"
)

var (
	showMarket string
	showLimit  int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display recent archived snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		if showLimit <= 0 {
			return fmt.Errorf("--limit must be greater than zero")
		}

		opts := app.ShowOptions{
			Market: showMarket,
			Limit:  showLimit,
		}

		return getApp().Show(cmd.Context(), opts)
	},
}

func init() {
	showCmd.Flags().StringVar(&showMarket, "market", "", "Market pair, e.g. XLM/BTC (defaults to config)")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "Number of snapshots to display")
}
