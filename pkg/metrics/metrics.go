// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Command outcomes
const (
	OutcomeOK     = "ok"
	OutcomeError  = "error"
	OutcomeDenied = "denied"
	OutcomePanic  = "panic"
)

// Metrics holds all Prometheus metrics for the bot
type Metrics struct {
	registry *prometheus.Registry

	CommandsTotal     *prometheus.CounterVec
	CommandDuration   *prometheus.HistogramVec
	EventsTotal       *prometheus.CounterVec
	PaginatorsActive  prometheus.Gauge
	PaginatorActions  *prometheus.CounterVec
	Guilds            prometheus.Gauge
	GatewayLatency    prometheus.Gauge
	DBQueuedWrites    prometheus.Gauge
	MQTTRequestsTotal *prometheus.CounterVec
}

// New creates the metrics on their own registry, together with the Go and process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helperbot_commands_total",
			Help: "Command invocations by command path, source and outcome",
		}, []string{"command", "source", "outcome"}),
		CommandDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helperbot_command_duration_seconds",
			Help:    "Time spent running command handlers",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
		EventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helperbot_events_total",
			Help: "Gateway events handled by listener handlers",
		}, []string{"event", "outcome"}),
		PaginatorsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "helperbot_paginators_active",
			Help: "Paginated messages currently accepting input",
		}),
		PaginatorActions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helperbot_paginator_actions_total",
			Help: "Paginator actions by action and result",
		}, []string{"action", "result"}),
		Guilds: factory.NewGauge(prometheus.GaugeOpts{
			Name: "helperbot_guilds",
			Help: "Guilds the bot is currently in",
		}),
		GatewayLatency: factory.NewGauge(prometheus.GaugeOpts{
			Name: "helperbot_gateway_latency_seconds",
			Help: "Last heartbeat latency reported by the gateway",
		}),
		DBQueuedWrites: factory.NewGauge(prometheus.GaugeOpts{
			Name: "helperbot_db_queued_writes",
			Help: "Writes waiting for the database connection",
		}),
		MQTTRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "helperbot_mqtt_requests_total",
			Help: "Remote requests served over MQTT by topic and outcome",
		}, []string{"topic", "outcome"}),
	}
}

// Registry returns the registry holding these metrics
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler exposing the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCommand records one command invocation
func (m *Metrics) ObserveCommand(command, source, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, source, outcome).Inc()
	if outcome != OutcomeDenied {
		m.CommandDuration.WithLabelValues(command).Observe(took.Seconds())
	}
}

// ObserveEvent records one handled gateway event
func (m *Metrics) ObserveEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(event, outcome).Inc()
}

// ObservePaginatorAction records a paginator input
func (m *Metrics) ObservePaginatorAction(action, result string) {
	if m == nil {
		return
	}
	m.PaginatorActions.WithLabelValues(action, result).Inc()
}

// SetPaginatorsActive updates the active paginator gauge
func (m *Metrics) SetPaginatorsActive(n int) {
	if m == nil {
		return
	}
	m.PaginatorsActive.Set(float64(n))
}

// SetGuilds updates the guild gauge
func (m *Metrics) SetGuilds(n int) {
	if m == nil {
		return
	}
	m.Guilds.Set(float64(n))
}

// SetGatewayLatency updates the heartbeat latency gauge
func (m *Metrics) SetGatewayLatency(d time.Duration) {
	if m == nil {
		return
	}
	m.GatewayLatency.Set(d.Seconds())
}

// SetDBQueuedWrites updates the offline write queue gauge
func (m *Metrics) SetDBQueuedWrites(n int) {
	if m == nil {
		return
	}
	m.DBQueuedWrites.Set(float64(n))
}

// ObserveMQTTRequest records one request served over MQTT
func (m *Metrics) ObserveMQTTRequest(topic, outcome string) {
	if m == nil {
		return
	}
	m.MQTTRequestsTotal.WithLabelValues(topic, outcome).Inc()
}
