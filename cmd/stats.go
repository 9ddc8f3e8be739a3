package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/caseworks/activity-cli/internal/fetcher"
	"github.com/caseworks/activity-cli/internal/model"
	"github.com/caseworks/activity-cli/internal/pipeline"
)

var (
	statsInput string
	statsSheet string
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print dataset statistics without exporting a report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		rates, err := cfg.RateTable()
		if err != nil {
			return err
		}
		excl := cfg.ExclusionPolicy()

		records, err := fetcher.ReadRecords(statsInput, fetcher.Options{SheetName: statsSheet})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return eris.Errorf("no data rows in %s", statsInput)
		}

		res := pipeline.Run(records, rates, excl)
		agg := pipeline.NewAggregator(res.Accepted, rates)
		summary := pipeline.Summarize(res, agg)

		fmt.Printf("Rows:             %d (%d accepted, %d rejected)\n",
			summary.TotalRows, summary.Accepted, summary.Rejected)
		fmt.Printf("Unique persons:   %d\n", summary.UniquePersons)
		fmt.Printf("Unique operators: %d\n", summary.UniqueOperators)
		fmt.Printf("Types:            %s\n", strings.Join(summary.Types, ", "))
		fmt.Printf("Codes:            %s\n", strings.Join(summary.Codes, ", "))
		if !summary.PeriodStart.IsZero() {
			fmt.Printf("Period:           %s - %s\n",
				summary.PeriodStart.Format("02/01/2006"), summary.PeriodEnd.Format("02/01/2006"))
		}
		fmt.Printf("Total revenue:    %s\n", summary.TotalRevenue.StringFixed(2))

		if summary.Rejected > 0 {
			fmt.Println("\nRejections by reason:")
			reasons := make([]string, 0, len(summary.ReasonCounts))
			for r := range summary.ReasonCounts {
				reasons = append(reasons, string(r))
			}
			sort.Strings(reasons)
			for _, r := range reasons {
				fmt.Printf("  %-20s %d\n", r, summary.ReasonCounts[model.RejectReason(r)])
			}
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsInput, "input", "i", "", "path to the source XLSX file (required)")
	statsCmd.Flags().StringVar(&statsSheet, "sheet", "", "sheet name to read (default: first sheet)")
	_ = statsCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(statsCmd)
}
