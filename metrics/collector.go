// Package metrics exports the status registry to prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/lixenwraith/rumble/status"
)

// Namespace prefixes every exported metric
const Namespace = "rumble"

// Collector is an unchecked collector, the registry's key set grows at runtime
type Collector struct {
	reg *status.Registry
}

// NewCollector wraps reg
func NewCollector(reg *status.Registry) *Collector {
	return &Collector{reg: reg}
}

// Describe implements prometheus.Collector, sending nothing marks it unchecked
func (c *Collector) Describe(chan<- *prometheus.Desc) {}

// Collect implements prometheus.Collector
// Ints, floats and bools become gauges, strings become an info gauge with a value label
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	snap := c.reg.Snapshot()

	for k, v := range snap.Ints {
		ch <- gauge(k, "", float64(v))
	}
	for k, v := range snap.Floats {
		ch <- gauge(k, "", v)
	}
	for k, v := range snap.Bools {
		f := 0.0
		if v {
			f = 1
		}
		ch <- gauge(k, "", f)
	}
	for k, v := range snap.Strings {
		ch <- gauge(k+".info", v, 1)
	}
}

// MetricName maps a registry key to its exported name
func MetricName(key string) string {
	return Namespace + "_" + strings.NewReplacer(".", "_", "-", "_").Replace(key)
}

func gauge(key, label string, v float64) prometheus.Metric {
	if label == "" {
		desc := prometheus.NewDesc(MetricName(key), "rumble status "+key, nil, nil)
		return prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v)
	}
	desc := prometheus.NewDesc(MetricName(key), "rumble status "+key, []string{"value"}, nil)
	return prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, v, label)
}

// Handler serves reg plus the Go runtime collectors
func Handler(reg *status.Registry) http.Handler {
	pr := prometheus.NewRegistry()
	pr.MustRegister(
		NewCollector(reg),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(pr, promhttp.HandlerOpts{})
}

// Serve runs an HTTP server exposing /metrics on addr until ctx is done
func Serve(ctx context.Context, addr string, reg *status.Registry, l *zap.Logger) error {
	if l == nil {
		l = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		l.Info("metrics listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
