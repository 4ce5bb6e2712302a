package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type metrics struct {
	lastSyncTimestamp prometheus.Gauge
	instancesTotal    prometheus.Gauge
	errorsTotal       prometheus.Counter
	changesTotal      changeCounter
}

func newMetrics() *metrics {
	return &metrics{
		lastSyncTimestamp: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "f5_aws_autoscale",
				Subsystem: "tagger",
				Name:      "last_sync_timestamp_seconds",
				Help:      "Timestamp of the last successful tag reconciliation run",
			},
		),
		instancesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "f5_aws_autoscale",
				Subsystem: "tagger",
				Name:      "instances_total",
				Help:      "Number of running F5 EC2 instances",
			},
		),
		errorsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "f5_aws_autoscale",
				Subsystem: "tagger",
				Name:      "instance_errors_total",
				Help:      "Number of instances that failed to reconcile",
			},
		),
		changesTotal: changeCounter{prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "f5_aws_autoscale",
				Subsystem: "tagger",
				Name:      "tag_changes_total",
				Help:      "Number of pool tags written to or removed from EC2 instances",
			},
			[]string{"operation"},
		)},
	}
}

type changeCounter struct {
	*prometheus.CounterVec
}

func (c changeCounter) created(n int) {
	c.WithLabelValues("create").Add(float64(n))
}

func (c changeCounter) deleted(n int) {
	c.WithLabelValues("delete").Add(float64(n))
}

func (metrics *metrics) register(reg prometheus.Registerer) {
	reg.MustRegister(metrics.lastSyncTimestamp)
	reg.MustRegister(metrics.instancesTotal)
	reg.MustRegister(metrics.errorsTotal)
	reg.MustRegister(metrics.changesTotal)
}

func (metrics *metrics) serve(address string) {
	metrics.register(prometheus.DefaultRegisterer)

	http.Handle("/metrics", promhttp.Handler())
	log.Fatal(http.ListenAndServe(address, nil))
}
