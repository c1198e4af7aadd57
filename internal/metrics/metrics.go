package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slotdesk",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	slotsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotdesk",
			Name:      "slots_generated_total",
			Help:      "Count of time slots created by the generator.",
		},
	)

	appointmentBooked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotdesk",
			Name:      "appointment_booked_total",
			Help:      "Count of appointments booked.",
		},
	)

	appointmentCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "slotdesk",
			Name:      "appointment_cancelled_total",
			Help:      "Count of appointments cancelled.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, slotsGenerated, appointmentBooked, appointmentCancelled)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func AddSlotsGenerated(n int64) {
	slotsGenerated.Add(float64(n))
}

func IncAppointmentBooked() {
	appointmentBooked.Inc()
}

func IncAppointmentCancelled() {
	appointmentCancelled.Inc()
}
