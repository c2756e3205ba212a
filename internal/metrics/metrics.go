package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TreeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerttree_tree_executions_total",
		Help: "Total number of tree executions, labelled by tree ID and final status.",
	}, []string{"tree_id", "status"})

	TreeExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "alerttree_tree_execution_duration_ms",
		Help:    "End-to-end tree execution latency in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"tree_id"})

	NodeExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerttree_node_executions_total",
		Help: "Total number of node executions, labelled by node type and status.",
	}, []string{"node_type", "status"})

	HandlerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerttree_handler_failures_total",
		Help: "Action/condition handler failures, labelled by kind, handler ID and reason.",
	}, []string{"kind", "handler_id", "reason"})

	TreesRegistered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alerttree_trees_registered",
		Help: "Number of trees currently registered.",
	})

	ExecutionsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerttree_executions_enqueued_total",
		Help: "Total number of async executions placed on the queue.",
	})

	ExecutionsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerttree_executions_dropped_total",
		Help: "Total number of async executions rejected due to a full queue.",
	})

	NotificationsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerttree_notifications_published_total",
		Help: "Total number of events handed to the notification sink.",
	})

	NotificationsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerttree_notifications_dropped_total",
		Help: "Total number of events dropped due to a full notification queue.",
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "alerttree_queue_utilization_ratio",
		Help: "Current async execution queue utilization (0–1).",
	})
)
