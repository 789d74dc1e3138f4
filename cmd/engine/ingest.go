package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/AngelCh415/strategy-engine/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var since string
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Pull measurements from ADS_API_URL into the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.collector == nil {
				return ingest.ErrNotConfigured
			}

			var sincePtr *time.Time
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("bad --since: %w", err)
				}
				sincePtr = &t
			}
			n, err := a.collector.Run(cmd.Context(), sincePtr)
			if err != nil {
				return err
			}
			a.log.Info("ingested measurements", slog.Int("rows", n))
			return nil
		},
	}
	cmd.Flags().StringVar(&since, "since", "", "only ingest rows on or after this date (YYYY-MM-DD)")
	return cmd
}
