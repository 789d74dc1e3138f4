package strategy

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/AngelCh415/strategy-engine/internal/models"
)

// DefaultSources are used when a batch names no sources.
var DefaultSources = []string{"yandex", "google", "vk"}

// BatchResult is the outcome for one source: Result is valid only when Err is nil.
type BatchResult struct {
	Source string                `json:"source"`
	Result models.StrategyResult `json:"result"`
	Err    error                 `json:"-"`
}

func (b BatchResult) OK() bool { return b.Err == nil }

// ParseSources splits comma-separated lists, trims and drops empties and
// duplicates while keeping first-seen order.
func ParseSources(args ...string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, a := range args {
		for _, p := range strings.Split(a, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}

// GenerateBatch generates a strategy per source with at most concurrency
// generations in flight. One source failing never affects the others.
// Results are returned in the order of sources.
func (s *Service) GenerateBatch(ctx context.Context, sources []string, daysBack, concurrency int) []BatchResult {
	if len(sources) == 0 {
		sources = DefaultSources
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	runID := uuid.NewString()
	log := s.log.With(slog.String("run_id", runID))
	log.Info("batch generation started", slog.Int("sources", len(sources)), slog.Int("days_back", daysBack))

	out := make([]BatchResult, len(sources))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			res, err := s.Generate(ctx, src, daysBack)
			out[i] = BatchResult{Source: src, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range out {
		if !r.OK() {
			failed++
		}
	}
	log.Info("batch generation complete", slog.Int("ok", len(out)-failed), slog.Int("failed", failed))
	return out
}
