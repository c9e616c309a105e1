// Package admin serves the operator HTTP endpoints: health, Prometheus
// metrics, the current status document and connection counts.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gstoney/mchub"
	"github.com/gstoney/mchub/status"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Stats is implemented by *mchub.Server.
type Stats interface {
	ActiveConns() int
	CountPhase(p mchub.Phase) int
}

type Options struct {
	Gatherer prometheus.Gatherer
	Stats    Stats
	Status   status.Source
	Registry *mchub.Registry
	Started  time.Time
}

func NewRouter(opts Options) http.Handler {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Started.IsZero() {
		opts.Started = time.Now()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]any{
			"status": "ok",
			"uptime": time.Since(opts.Started).Round(time.Second).String(),
		}
		if opts.Stats != nil {
			body["connections"] = opts.Stats.ActiveConns()
		}
		writeJSON(w, http.StatusOK, body)
	})

	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		if opts.Status == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no status source"})
			return
		}
		st, err := opts.Status.Status(r.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, st)
	})

	r.Get("/connections", func(w http.ResponseWriter, r *http.Request) {
		if opts.Stats == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no server"})
			return
		}
		phases := map[string]int{}
		for _, p := range []mchub.Phase{mchub.Handshaking, mchub.Status, mchub.Login, mchub.Play} {
			phases[p.String()] = opts.Stats.CountPhase(p)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"active": opts.Stats.ActiveConns(),
			"phases": phases,
		})
	})

	r.Get("/packets", func(w http.ResponseWriter, r *http.Request) {
		type entry struct {
			Phase string `json:"phase"`
			ID    string `json:"id"`
		}
		entries := []entry{}
		if opts.Registry != nil {
			opts.Registry.Each(func(p mchub.Phase, id int32, _ mchub.Handler) {
				entries = append(entries, entry{Phase: p.String(), ID: fmt.Sprintf("0x%02x", id)})
			})
		}
		writeJSON(w, http.StatusOK, entries)
	})

	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves h on addr until ctx is cancelled.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	stop := context.AfterFunc(ctx, func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	})
	defer stop()

	log.WithField("addr", addr).Info("admin endpoint listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin: %w", err)
	}
	return nil
}
