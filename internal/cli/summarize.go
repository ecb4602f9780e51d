package cli

import (
	"github.com/spf13/cobra"
)

var summarizeMarket string

var summarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Print the first-vs-last delta for a market's current archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Summarize(cmd.Context(), summarizeMarket)
	},
}

func init() {
	summarizeCmd.Flags().StringVar(&summarizeMarket, "market", "", "Market pair, e.g. XLM/BTC (defaults to config)")
}
