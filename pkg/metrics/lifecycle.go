package metrics

import (
	"time"

	pkgerrors "github.com/angelmondragon/partyhub-backend/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

const outcomeOK = "ok"

// LifecycleMetrics records command outcomes for the party lifecycle engine.
type LifecycleMetrics struct {
	duration *prometheus.HistogramVec
	total    *prometheus.CounterVec
	seats    prometheus.Counter
}

// NewLifecycleMetrics registers the lifecycle metrics on the provided registerer.
func NewLifecycleMetrics(reg prometheus.Registerer) *LifecycleMetrics {
	if reg == nil {
		return &LifecycleMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "partyhub_command_duration_seconds",
		Help:    "Duration of lifecycle commands in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})
	total := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "partyhub_commands_total",
		Help: "Lifecycle commands by outcome.",
	}, []string{"command", "outcome"})
	seats := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "partyhub_recruitment_seats_filled_total",
		Help: "Recruitment seats filled by approved applications.",
	})
	reg.MustRegister(duration, total, seats)
	return &LifecycleMetrics{
		duration: duration,
		total:    total,
		seats:    seats,
	}
}

// ObserveCommand records the duration and outcome of a single command.
func (m *LifecycleMetrics) ObserveCommand(command string, err error, elapsed time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	command = normalizeLabel(command)
	m.duration.WithLabelValues(command).Observe(elapsed.Seconds())
	m.total.WithLabelValues(command, Outcome(err)).Inc()
}

// IncSeatsFilled counts a seat consumed by an approval.
func (m *LifecycleMetrics) IncSeatsFilled() {
	if m == nil || m.seats == nil {
		return
	}
	m.seats.Inc()
}

// Outcome maps a command error to a bounded label value.
func Outcome(err error) string {
	if err == nil {
		return outcomeOK
	}
	if typed := pkgerrors.As(err); typed != nil {
		return string(typed.Code())
	}
	return string(pkgerrors.CodeInternal)
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
