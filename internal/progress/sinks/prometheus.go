package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/markercheck/internal/progress"
)

// PrometheusSink exports run progress as Prometheus collectors.
type PrometheusSink struct {
	runsStarted   prometheus.Counter
	idsAdmitted   prometheus.Counter
	results       *prometheus.CounterVec
	attempts      *prometheus.CounterVec
	retries       prometheus.Counter
	faults        prometheus.Counter
	fetchDuration *prometheus.HistogramVec
	taskDuration  *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markercheck_runs_started_total",
			Help: "Runs started by this process.",
		}),
		idsAdmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markercheck_ids_admitted_total",
			Help: "Identifiers handed to the task queue.",
		}),
		results: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markercheck_results_total",
			Help: "Result rows written, partitioned by label.",
		}, []string{"label"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "markercheck_fetch_attempts_total",
			Help: "Fetch attempts partitioned by status class.",
		}, []string{"status_class"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markercheck_retries_total",
			Help: "Failed attempts that were retried.",
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "markercheck_task_faults_total",
			Help: "Tasks that panicked and were isolated.",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "markercheck_fetch_duration_seconds",
			Help:    "Duration of individual fetch attempts.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		}, []string{"status_class"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "markercheck_task_duration_seconds",
			Help:    "Wall time per identifier including waits and retries.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"label"}),
	}
	for _, collector := range []prometheus.Collector{
		s.runsStarted,
		s.idsAdmitted,
		s.results,
		s.attempts,
		s.retries,
		s.faults,
		s.fetchDuration,
		s.taskDuration,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	switch evt.Stage {
	case progress.StageRunStart:
		s.runsStarted.Inc()
		s.idsAdmitted.Add(float64(evt.Total))
	case progress.StageAttempt:
		class := string(evt.StatusClass)
		if class == "" {
			class = string(progress.StatusOther)
		}
		s.attempts.WithLabelValues(class).Inc()
		if evt.Dur > 0 {
			s.fetchDuration.WithLabelValues(class).Observe(evt.Dur.Seconds())
		}
	case progress.StageRetry:
		s.retries.Inc()
	case progress.StageTaskDone:
		label := string(evt.Label)
		s.results.WithLabelValues(label).Inc()
		if evt.Dur > 0 {
			s.taskDuration.WithLabelValues(label).Observe(evt.Dur.Seconds())
		}
	case progress.StageTaskFault:
		s.faults.Inc()
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
