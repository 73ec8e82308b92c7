package registration

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values for the submissions counter.
const (
	outcomeSuccess    = "success"
	outcomeValidation = "validation"
	outcomeDuplicate  = "duplicate"
	outcomeError      = "error"
	outcomeBadRequest = "bad_request"
)

// Metrics counts registration attempts by outcome.
type Metrics struct {
	submissions *prometheus.CounterVec
}

// NewMetrics registers the registration collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		submissions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "waitlist",
			Name:      "registration_attempts_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}
