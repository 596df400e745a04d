// Package metrics exposes Prometheus collectors for the input pipeline.
package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-access/pkg/modality"
)

var (
	registry     *prometheus.Registry
	registryOnce sync.Once

	// InputEventsTotal counts published input events.
	InputEventsTotal *prometheus.CounterVec

	// InputEventConfidence tracks the confidence of published input events.
	InputEventConfidence *prometheus.HistogramVec

	// ResponseTime tracks the response time reported by input events.
	ResponseTime *prometheus.HistogramVec

	// InvalidSamplesTotal counts samples dropped by the conditioner.
	InvalidSamplesTotal *prometheus.CounterVec

	// CalibrationAccuracy holds the latest calibration accuracy per modality.
	CalibrationAccuracy *prometheus.GaugeVec

	// CalibrationsTotal counts completed calibrations.
	CalibrationsTotal *prometheus.CounterVec

	// RecommendationsTotal counts delivered recommendations.
	RecommendationsTotal *prometheus.CounterVec

	// SubscriberFaultsTotal counts bus subscribers that failed or panicked.
	SubscriberFaultsTotal prometheus.Counter

	// ModalityActive is 1 while a modality is active.
	ModalityActive *prometheus.GaugeVec

	// SensorUnavailableTotal counts failed activations.
	SensorUnavailableTotal *prometheus.CounterVec
)

// Init creates and registers every collector. Safe to call more than once.
func Init() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()

		InputEventsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_input_events_total",
				Help: "Total number of input events published",
			},
			[]string{"modality", "action"},
		)

		InputEventConfidence = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "access_input_event_confidence",
				Help:    "Confidence of published input events",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
			[]string{"modality"},
		)

		ResponseTime = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "access_response_time_seconds",
				Help:    "Response time reported by input events",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5, 10},
			},
			[]string{"modality"},
		)

		InvalidSamplesTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_invalid_samples_total",
				Help: "Total number of raw samples dropped by signal conditioning",
			},
			[]string{"modality", "reason"},
		)

		CalibrationAccuracy = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "access_calibration_accuracy",
				Help: "Accuracy of the latest calibration",
			},
			[]string{"modality"},
		)

		CalibrationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_calibrations_total",
				Help: "Total number of completed calibrations",
			},
			[]string{"modality"},
		)

		RecommendationsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_recommendations_total",
				Help: "Total number of delivered recommendations",
			},
			[]string{"kind"},
		)

		SubscriberFaultsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "access_subscriber_faults_total",
				Help: "Total number of event bus subscriber faults",
			},
		)

		ModalityActive = prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "access_modality_active",
				Help: "Whether a modality is currently active",
			},
			[]string{"modality"},
		)

		SensorUnavailableTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "access_sensor_unavailable_total",
				Help: "Total number of activations refused because the sensor was unavailable",
			},
			[]string{"modality"},
		)

		registry.MustRegister(
			InputEventsTotal,
			InputEventConfidence,
			ResponseTime,
			InvalidSamplesTotal,
			CalibrationAccuracy,
			CalibrationsTotal,
			RecommendationsTotal,
			SubscriberFaultsTotal,
			ModalityActive,
			SensorUnavailableTotal,
			prometheus.NewGoCollector(),
		)
	})
}

// Registry returns the metrics registry, initialising it if needed.
func Registry() *prometheus.Registry {
	Init()
	return registry
}

// Handler returns an HTTP handler serving the registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry(), promhttp.HandlerOpts{})
}

// Event records a published input event.
func Event(m modality.Modality, action string, confidence float64, responseTime time.Duration) {
	Init()
	InputEventsTotal.WithLabelValues(string(m), action).Inc()
	InputEventConfidence.WithLabelValues(string(m)).Observe(confidence)
	if responseTime > 0 {
		ResponseTime.WithLabelValues(string(m)).Observe(responseTime.Seconds())
	}
}

// reasons keeps label cardinality bounded.
var reasons = map[string]struct{}{
	"non-finite": {},
	"envelope":   {},
	"stale":      {},
}

// ReasonLabel maps a rejection error onto a bounded label. Callers pass
// errors that carry one of the reason strings through an interface.
type ReasonLabel interface {
	Reason() string
}

// InvalidSample records a dropped sample.
func InvalidSample(m modality.Modality, err error) {
	Init()
	reason := "other"
	var rl ReasonLabel
	if errors.As(err, &rl) {
		if _, ok := reasons[rl.Reason()]; ok {
			reason = rl.Reason()
		}
	}
	InvalidSamplesTotal.WithLabelValues(string(m), reason).Inc()
}

// Calibration records a completed calibration.
func Calibration(m modality.Modality, accuracy float64) {
	Init()
	CalibrationAccuracy.WithLabelValues(string(m)).Set(accuracy)
	CalibrationsTotal.WithLabelValues(string(m)).Inc()
}

// Recommendation records a delivered recommendation.
func Recommendation(kind string) {
	Init()
	RecommendationsTotal.WithLabelValues(kind).Inc()
}

// SubscriberFault records a failed bus subscriber.
func SubscriberFault() {
	Init()
	SubscriberFaultsTotal.Inc()
}

// Active records whether a modality is active.
func Active(m modality.Modality, active bool) {
	Init()
	v := 0.0
	if active {
		v = 1
	}
	ModalityActive.WithLabelValues(string(m)).Set(v)
}

// SensorUnavailable records a refused activation.
func SensorUnavailable(m modality.Modality) {
	Init()
	SensorUnavailableTotal.WithLabelValues(string(m)).Inc()
}
