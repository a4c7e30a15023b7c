package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var costCmd = &cobra.Command{
	Use:   "cost",
	Short: "Report LLM spend and cache performance",
}

// costWindowPresets maps the --window shorthand to a trailing
// duration; --since always wins if the caller sets it explicitly.
var costWindowPresets = map[string]time.Duration{
	"day":   24 * time.Hour,
	"week":  7 * 24 * time.Hour,
	"month": 30 * 24 * time.Hour,
}

var (
	costReportSince  time.Duration
	costReportWindow string
	costReportByModel bool
)

var costReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize cost-ledger totals over a trailing window",
	RunE: func(cmd *cobra.Command, args []string) error {
		window := costReportSince
		if !cmd.Flags().Changed("since") && costReportWindow != "" {
			preset, ok := costWindowPresets[costReportWindow]
			if !ok {
				return fmt.Errorf("unknown --window %q (want day, week, or month)", costReportWindow)
			}
			window = preset
		}

		eng, err := buildEngine(cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		cutoff := time.Now().Add(-window)
		ctx := context.Background()

		summary, err := eng.store.CostSummarySince(ctx, cutoff.Unix())
		if err != nil {
			return err
		}

		var hitRate float64
		if summary.TotalCalls > 0 {
			hitRate = float64(summary.CacheHits) / float64(summary.TotalCalls) * 100
		}

		fmt.Printf("since %s\n", humanize.Time(cutoff))
		fmt.Printf("  calls:        %s (%s cache hits, %.1f%% hit rate)\n",
			humanize.Comma(summary.TotalCalls), humanize.Comma(summary.CacheHits), hitRate)
		fmt.Printf("  tokens:       %s prompt, %s completion\n",
			humanize.Comma(summary.PromptTokens), humanize.Comma(summary.CompletionTokens))
		fmt.Printf("  total cost:   $%s\n", humanize.Commaf(summary.TotalCostUSD))

		if costReportByModel {
			byModel, err := eng.store.CostSummaryByModel(ctx, cutoff.Unix())
			if err != nil {
				return err
			}
			fmt.Printf("\nby model:\n")
			for _, m := range byModel {
				fmt.Printf("  %-24s %s calls, $%s, %s+%s tokens\n",
					m.Model, humanize.Comma(m.TotalCalls), humanize.Commaf(m.TotalCostUSD),
					humanize.Comma(m.PromptTokens), humanize.Comma(m.CompletionTokens))
			}
		}
		return nil
	},
}

func init() {
	costReportCmd.Flags().DurationVar(&costReportSince, "since", 30*24*time.Hour, "Trailing window to summarize (overrides --window)")
	costReportCmd.Flags().StringVar(&costReportWindow, "window", "", "Trailing window preset: day, week, or month")
	costReportCmd.Flags().BoolVar(&costReportByModel, "by-model", false, "Break spend down per model")
	costCmd.AddCommand(costReportCmd)
}
