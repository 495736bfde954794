package editormru

import "github.com/rcrowley/go-metrics"

const (
	MetricEditors        = "editors.mru.size"
	MetricEnsureLimit    = "editors.limit.ensure"
	MetricEvicted        = "editors.limit.evicted"
	MetricCloseRejected  = "editors.limit.close_rejected"
	MetricReconciled     = "editors.limit.reconciled"
	MetricStateSaved     = "editors.state.saved"
	MetricStateSkipped   = "editors.state.skipped"
	MetricStateRestored  = "editors.state.restored"
	MetricStateSaveError = "editors.state.save_error"
)

type observerMetrics struct {
	registry      metrics.Registry
	editors       metrics.Gauge
	ensureLimit   metrics.Timer
	evicted       metrics.Counter
	closeRejected metrics.Counter
	// reconciled counts victims that were not closed, because they changed
	// while previous group close request was in process.
	reconciled   metrics.Counter
	stateSaved   metrics.Counter
	stateSkipped metrics.Counter
	restored     metrics.Counter
	saveErrors   metrics.Counter
}

func newObserverMetrics(r metrics.Registry) *observerMetrics {
	if r == nil {
		r = metrics.NewRegistry()
	}
	return &observerMetrics{
		registry:      r,
		editors:       metrics.GetOrRegisterGauge(MetricEditors, r),
		ensureLimit:   metrics.GetOrRegisterTimer(MetricEnsureLimit, r),
		evicted:       metrics.GetOrRegisterCounter(MetricEvicted, r),
		closeRejected: metrics.GetOrRegisterCounter(MetricCloseRejected, r),
		reconciled:    metrics.GetOrRegisterCounter(MetricReconciled, r),
		stateSaved:    metrics.GetOrRegisterCounter(MetricStateSaved, r),
		stateSkipped:  metrics.GetOrRegisterCounter(MetricStateSkipped, r),
		restored:      metrics.GetOrRegisterCounter(MetricStateRestored, r),
		saveErrors:    metrics.GetOrRegisterCounter(MetricStateSaveError, r),
	}
}
