package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "automate"

// Collector holds the counters the queue and handlers bump. If any of the
// liveness counters stops increasing the service is stuck.
type Collector struct {
	tasksProcessed *prometheus.CounterVec

	triggerRuns          *prometheus.CounterVec
	poolsScanned         prometheus.Counter
	contractsSoftDeleted prometheus.Counter
	notificationsCreated prometheus.Counter
}

func NewCollector(reg prometheus.Registerer) *Collector {
	return &Collector{
		tasksProcessed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "tasks_processed_total",
				Help:      "Tasks completed by the queue runner, by handler and terminal status",
			}, []string{"handler", "status"}),

		triggerRuns: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "trigger_runs_total",
				Help:      "Trigger evaluation runs, by result (fired, skipped, error)",
			}, []string{"result"}),

		poolsScanned: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pools_scanned_total",
				Help:      "On-chain pools inspected by the reconciler",
			}),

		contractsSoftDeleted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "contracts_soft_deleted_total",
				Help:      "Catalogue rows hidden because their pool left the on-chain registry",
			}),

		notificationsCreated: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_created_total",
				Help:      "Notification rows created by the event fan-out",
			}),
	}
}

func (c *Collector) IncTaskProcessed(handler, status string) {
	c.tasksProcessed.WithLabelValues(handler, status).Inc()
}

func (c *Collector) IncTriggerRun(result string) {
	c.triggerRuns.WithLabelValues(result).Inc()
}

func (c *Collector) AddPoolsScanned(n int) {
	c.poolsScanned.Add(float64(n))
}

func (c *Collector) IncContractSoftDeleted() {
	c.contractsSoftDeleted.Inc()
}

func (c *Collector) AddNotificationsCreated(n int) {
	c.notificationsCreated.Add(float64(n))
}
