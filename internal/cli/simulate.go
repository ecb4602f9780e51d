package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"cmctracker/internal/app"
)

var (
	simulateMarket     string
	simulateFirstPrice float64
	simulateLastPrice  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a synthetic final alert to verify chat wiring",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateFirstPrice <= 0 || simulateLastPrice <= 0 {
			return errors.New("--first-price and --last-price must be greater than 0")
		}

		return getApp().SimulateAlert(cmd.Context(), app.SimulateOptions{
			Market:     simulateMarket,
			FirstPrice: simulateFirstPrice,
			LastPrice:  simulateLastPrice,
		})
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateMarket, "market", "", "Market pair, e.g. XLM/BTC (defaults to config)")
	simulateCmd.Flags().Float64Var(&simulateFirstPrice, "first-price", 0, "Synthetic session opening price")
	simulateCmd.Flags().Float64Var(&simulateLastPrice, "last-price", 0, "Synthetic session closing price")
}
