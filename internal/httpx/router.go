package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/AngelCh415/strategy-engine/internal/ingest"
	"github.com/AngelCh415/strategy-engine/internal/metrics"
	"github.com/AngelCh415/strategy-engine/internal/models"
	"github.com/AngelCh415/strategy-engine/internal/store"
	"github.com/AngelCh415/strategy-engine/internal/strategy"
	"github.com/AngelCh415/strategy-engine/internal/telemetry"
	"github.com/AngelCh415/strategy-engine/internal/utils"
)

type Deps struct {
	Log         *slog.Logger
	Strategies  *strategy.Service
	Measures    *metrics.Service
	Collector   *ingest.Collector // nil disables /ingest/run
	Telemetry   *telemetry.Metrics
	DefaultDays int
	Concurrency int
	Sources     []string // batch default when ?sources= is empty
	CORSOrigins []string // empty disables CORS
}

type batchItem struct {
	Source string                 `json:"source"`
	Result *models.StrategyResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

func NewRouter(d Deps) http.Handler {
	mux := chi.NewRouter()
	mux.Use(utils.RequestID)
	mux.Use(utils.Logger(d.Log))
	if len(d.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         300,
		}))
	}

	mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) })
	mux.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ready")) })
	mux.Method(http.MethodGet, "/metrics", d.Telemetry.Handler())

	analysis := d.Strategies.Analysis()

	mux.Route("/analysis", func(ar chi.Router) {
		ar.Get("/efficiency", func(w http.ResponseWriter, r *http.Request) {
			days, ok := daysParam(w, r, d.DefaultDays)
			if !ok {
				return
			}
			eff, err := analysis.SourceEfficiency(r.Context(), days)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, eff)
		})
		ar.Get("/trends", func(w http.ResponseWriter, r *http.Request) {
			days, ok := daysParam(w, r, d.DefaultDays)
			if !ok {
				return
			}
			tr, err := analysis.MetricTrends(r.Context(), days)
			if err != nil {
				writeErr(w, err)
				return
			}
			writeJSON(w, tr)
		})
		ar.Get("/anomalies", func(w http.ResponseWriter, r *http.Request) {
			days, ok := daysParam(w, r, d.DefaultDays)
			if !ok {
				return
			}
			an, err := analysis.AnomalyRecords(r.Context(), days)
			if err != nil {
				writeErr(w, err)
				return
			}
			if an == nil {
				an = []models.Anomaly{}
			}
			writeJSON(w, an)
		})
	})

	mux.Get("/measurements", func(w http.ResponseWriter, r *http.Request) {
		rows, err := d.Measures.QuerySources(r.Context(), r.URL.Query())
		if err != nil {
			if errors.Is(err, store.ErrDataAccess) {
				writeErr(w, err)
				return
			}
			http.Error(w, err.Error(), 400)
			return
		}
		writeJSON(w, rows)
	})

	mux.Post("/strategies/generate", func(w http.ResponseWriter, r *http.Request) {
		src := strings.TrimSpace(r.URL.Query().Get("source"))
		if src == "" {
			http.Error(w, "source required", 400)
			return
		}
		days, ok := daysParam(w, r, d.DefaultDays)
		if !ok {
			return
		}
		res, err := d.Strategies.Generate(r.Context(), src, days)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSONCode(w, http.StatusCreated, res)
	})

	// SEASONAL y COMPETITIVE solo se alcanzan por aqui
	mux.Get("/recommendations", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		src := strings.TrimSpace(q.Get("source"))
		if src == "" {
			http.Error(w, "source required", 400)
			return
		}
		st, err := models.ParseStrategyType(q.Get("type"))
		if err != nil {
			http.Error(w, err.Error(), 400)
			return
		}
		days, ok := daysParam(w, r, d.DefaultDays)
		if !ok {
			return
		}
		tr, err := analysis.MetricTrends(r.Context(), days)
		if err != nil {
			writeErr(w, err)
			return
		}
		an, err := analysis.Anomalies(r.Context(), days)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, strategy.Recommend(src, st, tr, an))
	})

	mux.Post("/strategies/batch", func(w http.ResponseWriter, r *http.Request) {
		days, ok := daysParam(w, r, d.DefaultDays)
		if !ok {
			return
		}
		sources := strategy.ParseSources(r.URL.Query().Get("sources"))
		if len(sources) == 0 {
			sources = d.Sources
		}
		results := d.Strategies.GenerateBatch(r.Context(), sources, days, d.Concurrency)
		out := make([]batchItem, 0, len(results))
		for _, br := range results {
			it := batchItem{Source: br.Source}
			if br.OK() {
				res := br.Result
				it.Result = &res
			} else {
				it.Error = br.Err.Error()
			}
			out = append(out, it)
		}
		writeJSON(w, out)
	})

	mux.Post("/ingest/run", func(w http.ResponseWriter, r *http.Request) {
		if d.Collector == nil {
			http.Error(w, ingest.ErrNotConfigured.Error(), 503)
			return
		}
		q := r.URL.Query().Get("since")
		var since *time.Time
		if q != "" {
			t, err := time.Parse("2006-01-02", q)
			if err != nil {
				http.Error(w, "bad since", 400)
				return
			}
			since = &t
		}
		n, err := d.Collector.Run(r.Context(), since)
		if err != nil {
			http.Error(w, err.Error(), 502)
			return
		}
		writeJSON(w, map[string]any{"ingested": n})
	})

	return mux
}

// daysParam reads ?days=, defaulting to def. It writes a 400 and returns
// false on a non-positive or malformed value.
func daysParam(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	q := r.URL.Query().Get("days")
	if q == "" {
		return def, true
	}
	n, err := strconv.Atoi(q)
	if err != nil || n <= 0 {
		http.Error(w, "days must be a positive integer", 400)
		return 0, false
	}
	return n, true
}

func writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	if errors.Is(err, store.ErrDataAccess) {
		code = http.StatusBadGateway
	}
	http.Error(w, err.Error(), code)
}

func writeJSON(w http.ResponseWriter, v any) { writeJSONCode(w, http.StatusOK, v) }

func writeJSONCode(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")
	enc.Encode(v)
}
