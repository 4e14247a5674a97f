package observer

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "table_inspector"

// PrometheusObserver exports analysis events as Prometheus metrics
type PrometheusObserver struct {
	analysesTotal      *prometheus.CounterVec
	analysisDuration   *prometheus.HistogramVec
	inFlight           prometheus.Gauge
	connectivityChecks *prometheus.CounterVec
	imageFetches       *prometheus.CounterVec
}

// NewPrometheusObserver creates the collectors and registers them with reg
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		analysesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Total number of table analyses, labeled by result (success or error kind).",
		}, []string{"result"}),
		analysisDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Time of a table analysis from the start of preprocessing to the parsed model response, excluding the image fetch.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"result"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyses_in_flight",
			Help:      "Number of analyses currently running.",
		}),
		connectivityChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connectivity_checks_total",
			Help:      "Total number of connectivity probes, labeled by result.",
		}, []string{"result"}),
		imageFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "source",
			Name:      "fetches_total",
			Help:      "Total number of image fetches by reference, labeled by result.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{o.analysesTotal, o.analysisDuration, o.inFlight, o.connectivityChecks, o.imageFetches} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// OnEvent updates the collectors for event
func (o *PrometheusObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	switch event.EventType {
	case AnalysisStarted:
		o.inFlight.Inc()
	case AnalysisCompleted:
		o.inFlight.Dec()
		o.analysesTotal.WithLabelValues("success").Inc()
		o.analysisDuration.WithLabelValues("success").Observe(event.ProcessingTime.Seconds())
	case AnalysisFailed:
		o.inFlight.Dec()
		result := event.ErrorType
		if result == "" {
			result = "internal"
		}
		o.analysesTotal.WithLabelValues(result).Inc()
		o.analysisDuration.WithLabelValues(result).Observe(event.ProcessingTime.Seconds())
	case ImageFetched:
		o.imageFetches.WithLabelValues("success").Inc()
	case ImageFetchFailed:
		o.imageFetches.WithLabelValues("failure").Inc()
	case ConnectivityChecked:
		o.connectivityChecks.WithLabelValues(successLabel(event.Success)).Inc()
	}
}

// GetObserverName returns the observer name
func (o *PrometheusObserver) GetObserverName() string {
	return "prometheus_observer"
}

// Synchronous keeps the in-flight gauge from seeing a completion before its start
func (o *PrometheusObserver) Synchronous() bool { return true }

func successLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
