package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promexporter "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"
)

// ReadyCheck reports whether a subsystem is ready to serve. It returns nil
// when the check passes, or an error describing the failure.
type ReadyCheck func(ctx context.Context) error

// DiagnosticsServer exposes liveness and Prometheus metrics endpoints over
// HTTP while a long discovery run is in flight.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
	meter    metric.Meter
}

// NewDiagnosticsServer starts an HTTP server at addr with /healthz,
// /readyz, and /metrics endpoints, backed by a fresh Prometheus registry
// and OTel meter provider. Readiness is gated on the given checks; with no
// checks, /readyz always reports ready. The returned server's Meter feeds
// the discovery instruments.
func NewDiagnosticsServer(addr string, checks ...ReadyCheck) (*DiagnosticsServer, error) {
	registry := prometheus.NewRegistry()

	exporter, err := promexporter.New(promexporter.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))

	mux := http.NewServeMux()
	mux.Handle("/healthz", healthHandler())
	mux.Handle("/readyz", readyHandler(checks...))
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	var lc net.ListenConfig

	listener, err := lc.Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mux}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Warn("diagnostics server stopped", "error", serveErr)
		}
	}()

	return &DiagnosticsServer{
		server:   srv,
		listener: listener,
		meter:    provider.Meter("tablescope"),
	}, nil
}

// Meter returns the meter wired to the server's /metrics endpoint.
func (d *DiagnosticsServer) Meter() metric.Meter {
	return d.meter
}

// Addr returns the address the server is listening on.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close gracefully shuts down the diagnostics server.
func (d *DiagnosticsServer) Close() error {
	err := d.server.Shutdown(context.Background())
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}

// healthHandler serves liveness checks: always HTTP 200 {"status":"ok"}.
func healthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeStatus(rw, http.StatusOK, healthStatusOK)
	})
}

// readyHandler serves readiness checks. If any check fails, it returns
// HTTP 503 with {"status":"unavailable"}; otherwise HTTP 200.
func readyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, hr *http.Request) {
		for _, check := range checks {
			err := check(hr.Context())
			if err != nil {
				writeStatus(rw, http.StatusServiceUnavailable, healthStatusUnavailable)

				return
			}
		}

		writeStatus(rw, http.StatusOK, healthStatusOK)
	})
}

func writeStatus(rw http.ResponseWriter, code int, status string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	data, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return
	}

	_, _ = rw.Write(data)
}
