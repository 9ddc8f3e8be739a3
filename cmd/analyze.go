package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/caseworks/activity-cli/internal/export"
	"github.com/caseworks/activity-cli/internal/fetcher"
	"github.com/caseworks/activity-cli/internal/pipeline"
)

var (
	analyzeInput  string
	analyzeOutput string
	analyzeSheet  string
	analyzeTop    int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full analysis and export the report workbook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// Private snapshots for the whole run; later config edits cannot
		// leak in mid-run.
		rates, err := cfg.RateTable()
		if err != nil {
			return err
		}
		excl := cfg.ExclusionPolicy()

		records, err := fetcher.ReadRecords(analyzeInput, fetcher.Options{SheetName: analyzeSheet})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			return eris.Errorf("no data rows in %s", analyzeInput)
		}

		res := pipeline.Run(records, rates, excl)
		agg := pipeline.NewAggregator(res.Accepted, rates)
		summary := pipeline.Summarize(res, agg)

		out := analyzeOutput
		if out == "" {
			out = fmt.Sprintf("%s_%s.xlsx", cfg.Output.Prefix, time.Now().Format("20060102_150405"))
		}

		top := analyzeTop
		if top <= 0 {
			top = cfg.Report.TopPersons
		}

		if err := export.New(agg, summary, res.Rejected, top).Write(out); err != nil {
			return err
		}

		zap.L().Info("analyze complete",
			zap.String("run_id", summary.ID),
			zap.Int("accepted", summary.Accepted),
			zap.Int("rejected", summary.Rejected),
			zap.String("total_revenue", summary.TotalRevenue.String()),
			zap.String("output", out),
		)
		fmt.Printf("Report written to %s (%d accepted, %d rejected, revenue %s)\n",
			out, summary.Accepted, summary.Rejected, summary.TotalRevenue.StringFixed(2))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeInput, "input", "i", "", "path to the source XLSX file (required)")
	analyzeCmd.Flags().StringVarP(&analyzeOutput, "output", "o", "", "path for the report workbook (default: <prefix>_<timestamp>.xlsx)")
	analyzeCmd.Flags().StringVar(&analyzeSheet, "sheet", "", "sheet name to read (default: first sheet)")
	analyzeCmd.Flags().IntVar(&analyzeTop, "top", 0, "size of the top-persons ranking (default from config)")
	_ = analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}
