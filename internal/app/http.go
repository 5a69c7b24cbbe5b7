package app

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MrWong99/halidom/internal/health"
	"github.com/MrWong99/halidom/internal/observe"
)

// Handler returns the HTTP surface: health probes and Prometheus metrics.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()
	h := health.New([]health.Checker{
		health.IndexChecker(func() string {
			if x := a.svc.Current(); x != nil {
				return x.Version()
			}
			return ""
		}),
		health.SourcesChecker(a.Sources),
	})
	h.Register(mux)
	mux.Handle("GET /metrics", promhttp.Handler())
	return observe.Middleware(a.metrics)(mux)
}

func newServer(addr string, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
