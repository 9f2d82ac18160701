package prometheus

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sifan077/PowerHook/config"
	"go.uber.org/zap"
)

const (
	readHeaderTimeout = 5 * time.Second
	writeTimeout      = 10 * time.Second
	defaultPort       = 9090
)

// NewServer builds the scrape listener for m. It serves /metrics, instrumented
// against m's own registry, and a plain /healthz for probes.
func NewServer(cfg config.PrometheusConfig, m *Metrics, logger *zap.Logger) *http.Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	handler := promhttp.InstrumentMetricHandler(m.Registry(),
		promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{
			ErrorLog:          zap.NewStdLog(logger),
			EnableOpenMetrics: true,
		}),
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		ErrorLog:          zap.NewStdLog(logger),
	}
}
