package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/caseworks/activity-cli/internal/config"
	"github.com/caseworks/activity-cli/internal/policy"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage the code rate table",
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured rates",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rates, err := cfg.RateTable()
		if err != nil {
			return err
		}
		for _, code := range rates.Codes() {
			rate, _ := rates.Rate(code)
			fmt.Printf("%-6s %10s\n", code, rate.StringFixed(2))
		}
		return nil
	},
}

var ratesAddCmd = &cobra.Command{
	Use:   "add CODE RATE",
	Short: "Add or update a rate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := policy.NormalizeCode(args[0])
		rate, err := decimal.NewFromString(args[1])
		if err != nil {
			return eris.Wrapf(err, "rate %q is not numeric", args[1])
		}
		if rate.IsNegative() {
			return eris.Errorf("rate for %q must not be negative", code)
		}

		normalizeRates()
		cfg.Rates[code] = rate.String()
		if err := config.Save(cfg, ""); err != nil {
			return err
		}
		fmt.Printf("Saved rate %s = %s\n", code, rate.StringFixed(2))
		return nil
	},
}

var ratesRemoveCmd = &cobra.Command{
	Use:   "remove CODE",
	Short: "Remove a rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := policy.NormalizeCode(args[0])
		normalizeRates()
		if _, ok := cfg.Rates[code]; !ok {
			return eris.Errorf("code %q is not configured", code)
		}
		delete(cfg.Rates, code)
		if err := config.Save(cfg, ""); err != nil {
			return err
		}
		fmt.Printf("Removed rate %s\n", code)
		return nil
	},
}

// normalizeRates upper-cases the config map keys in place so edits land on
// the canonical code regardless of how the file spells it.
func normalizeRates() {
	normalized := make(map[string]string, len(cfg.Rates))
	for code, rate := range cfg.Rates {
		normalized[policy.NormalizeCode(code)] = rate
	}
	cfg.Rates = normalized
}

func init() {
	ratesCmd.AddCommand(ratesListCmd, ratesAddCmd, ratesRemoveCmd)
	rootCmd.AddCommand(ratesCmd)
}
