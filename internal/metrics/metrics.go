// Package metrics exports rotation pass results as Prometheus metrics.
//
// The daemon and one-shot runs are short-lived from a scraper's point of
// view, so results are written in text format for node_exporter's textfile
// collector rather than served over HTTP.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/blackwell-systems/snaprotate/internal/rotator"
)

const namespace = "snaprotate"

// Collector holds the gauges describing the most recent pass.
type Collector struct {
	registry *prometheus.Registry

	lastRun     prometheus.Gauge
	processed   prometheus.Gauge
	failed      prometheus.Gauge
	passesTotal prometheus.Counter

	subvolumeUp *prometheus.GaugeVec
	created     *prometheus.GaugeVec
	deleted     *prometheus.GaugeVec
	retained    *prometheus.GaugeVec
	classErrors *prometheus.GaugeVec
}

// NewCollector creates a Collector and registers its metrics with registry.
// A nil registry gets a fresh one.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	classLabels := []string{"subvolume", "class"}
	c := &Collector{
		registry: registry,
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the most recent rotation pass",
		}),
		processed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subvolumes_processed",
			Help:      "Subvolumes visited by the most recent pass",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subvolumes_failed",
			Help:      "Subvolumes that did not complete cleanly in the most recent pass",
		}),
		passesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Rotation passes observed by this process",
		}),
		subvolumeUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subvolume_ok",
			Help:      "1 if the subvolume completed cleanly in the most recent pass",
		}, []string{"subvolume"}),
		created: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots_created",
			Help:      "Snapshots created in the most recent pass",
		}, classLabels),
		deleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots_deleted",
			Help:      "Snapshots deleted in the most recent pass",
		}, classLabels),
		retained: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "snapshots_retained",
			Help:      "Snapshots of the class left after the most recent pass",
		}, classLabels),
		classErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "class_errors",
			Help:      "1 if the class recorded an error in the most recent pass",
		}, classLabels),
	}

	registry.MustRegister(
		c.lastRun, c.processed, c.failed, c.passesTotal,
		c.subvolumeUp, c.created, c.deleted, c.retained, c.classErrors,
	)
	return c
}

// Registry returns the registry the collector writes to.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe replaces the per-subvolume gauges with the results of report.
// Subvolumes missing from report drop out of the output.
func (c *Collector) Observe(report *rotator.Report) {
	c.subvolumeUp.Reset()
	c.created.Reset()
	c.deleted.Reset()
	c.retained.Reset()
	c.classErrors.Reset()

	c.lastRun.Set(float64(report.StartedAt.Unix()))
	c.processed.Set(float64(report.Processed()))
	c.failed.Set(float64(report.Failed()))
	c.passesTotal.Inc()

	for _, sv := range report.Subvolumes {
		c.subvolumeUp.WithLabelValues(sv.Path).Set(boolToFloat(sv.OK()))

		for _, cr := range sv.Classes {
			class := cr.Class.Tag()
			created := 0.0
			if cr.Created != "" {
				created = 1
			}
			c.created.WithLabelValues(sv.Path, class).Set(created)
			c.deleted.WithLabelValues(sv.Path, class).Set(float64(len(cr.Deleted)))
			c.retained.WithLabelValues(sv.Path, class).Set(float64(cr.Retained))
			c.classErrors.WithLabelValues(sv.Path, class).Set(boolToFloat(cr.Err != nil))
		}
	}
}

// WriteTextfile writes every registered metric to path in Prometheus text
// format. The file is replaced atomically so the textfile collector never
// reads a partial write.
func (c *Collector) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to write metrics file %s: %w", path, err)
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
