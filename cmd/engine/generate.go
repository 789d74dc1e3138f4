package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/strategy-engine/internal/strategy"
)

func newGenerateCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "generate [source...]",
		Short: "Generate strategies for the given sources (comma or space separated)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if days <= 0 {
				days = a.cfg.AnalysisPeriod
			}
			sources := strategy.ParseSources(args...)
			if len(sources) == 0 {
				sources = a.cfg.Sources
			}

			results := a.strategies.GenerateBatch(cmd.Context(), sources, days, a.cfg.BatchConcurrency)
			failed := 0
			for _, r := range results {
				if !r.OK() {
					failed++
					a.log.Error("strategy generation failed", slog.String("source", r.Source), slog.String("err", r.Err.Error()))
					continue
				}
				a.log.Info("strategy",
					slog.String("source", r.Source),
					slog.Int64("id", r.Result.ID),
					slog.String("strategy_type", string(r.Result.StrategyType)),
					slog.Int("confidence", r.Result.ConfidenceScore),
					slog.Int("recommendations", len(r.Result.Recommendations)))
			}
			if failed == len(results) {
				return fmt.Errorf("all %d strategy generations failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "analysis period in days (default ANALYSIS_PERIOD)")
	return cmd
}
