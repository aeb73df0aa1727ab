// Package metrics exposes the application's Prometheus instrumentation.
package metrics

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/DSroD/PyCon/internal/pubsub"
)

// Metrics bundles every collector the application registers.
type Metrics struct {
	registry *prometheus.Registry

	BusPublished   *prometheus.CounterVec
	BusDropped     *prometheus.CounterVec
	WSConnections  *prometheus.GaugeVec
	RconReconnects *prometheus.CounterVec

	processCPU prometheus.Gauge
	processRSS prometheus.Gauge
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		BusPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_published_total",
			Help: "Messages published on the bus, by topic.",
		}, []string{"topic"}),
		BusDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pubsub_dropped_total",
			Help: "Messages shed by full subscription queues, by topic.",
		}, []string{"topic"}),
		WSConnections: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Open WebSocket connections, by endpoint.",
		}, []string{"endpoint"}),
		RconReconnects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "rcon_connect_attempts_total",
			Help: "RCON connection attempts, by server and outcome.",
		}, []string{"server", "outcome"}),
		processCPU: factory.NewGauge(prometheus.GaugeOpts{
			Name: "process_cpu_percent",
			Help: "Process CPU utilisation sampled from the OS.",
		}),
		processRSS: factory.NewGauge(prometheus.GaugeOpts{
			Name: "process_resident_memory_bytes_sampled",
			Help: "Process resident memory sampled from the OS.",
		}),
	}
}

// Handler serves the scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// BusHooks adapts the bus instrumentation points onto the counters.
func (m *Metrics) BusHooks() pubsub.Hooks {
	return pubsub.Hooks{
		OnPublish: func(topic string) { m.BusPublished.WithLabelValues(topic).Inc() },
		OnDrop:    func(topic string) { m.BusDropped.WithLabelValues(topic).Inc() },
	}
}

// SampleProcess polls OS-level process stats until the context ends.
func (m *Metrics) SampleProcess(ctx context.Context, interval time.Duration, logger zerolog.Logger) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn().Err(err).Msg("process stats unavailable")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if cpu, err := proc.CPUPercent(); err == nil {
				m.processCPU.Set(cpu)
			}
			if mem, err := proc.MemoryInfo(); err == nil && mem != nil {
				m.processRSS.Set(float64(mem.RSS))
			}
		case <-ctx.Done():
			return
		}
	}
}
