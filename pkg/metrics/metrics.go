package metrics

import (
	"errors"
	"net/http"
	"time"

	"go-contact-backend/pkg/email"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Submission outcomes, one per terminal state of the contact handler.
const (
	OutcomeOK            = "ok"
	OutcomeMissingFields = "missing_fields"
	OutcomeInvalidEmail  = "invalid_email"
	OutcomeBadRequest    = "bad_request"
	OutcomeServerError   = "server_error"
)

// Recorder holds the service metrics. A nil *Recorder records nothing.
type Recorder struct {
	submissions      *prometheus.CounterVec
	dispatches       *prometheus.CounterVec
	dispatchDuration *prometheus.HistogramVec
	rateLimited      *prometheus.CounterVec
}

// NewRegistry returns a registry with the process and Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	registerCollector(reg, collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	registerCollector(reg, collectors.NewGoCollector())
	return reg
}

func registerCollector(reg prometheus.Registerer, c prometheus.Collector) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			return
		}
		panic(err)
	}
}

// NewRecorder creates the contact metrics and registers them on reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_submissions_total",
			Help: "Contact form submissions by outcome.",
		}, []string{"outcome"}),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_mail_dispatches_total",
			Help: "Mail dispatch attempts by message kind and result.",
		}, []string{"kind", "result"}),
		dispatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "contact_mail_dispatch_duration_seconds",
			Help:    "Time spent handing a message to the relay.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"kind"}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contact_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"route"}),
	}

	registerCollector(reg, r.submissions)
	registerCollector(reg, r.dispatches)
	registerCollector(reg, r.dispatchDuration)
	registerCollector(reg, r.rateLimited)
	return r
}

// ObserveSubmission counts one finished contact request.
func (r *Recorder) ObserveSubmission(outcome string) {
	if r == nil {
		return
	}
	r.submissions.WithLabelValues(outcome).Inc()
}

// ObserveDispatch implements email.Observer.
func (r *Recorder) ObserveDispatch(kind email.Kind, err error, elapsed time.Duration) {
	if r == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failure"
	}
	r.dispatches.WithLabelValues(string(kind), result).Inc()
	r.dispatchDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ObserveRateLimited counts one request rejected with 429.
func (r *Recorder) ObserveRateLimited(route string) {
	if r == nil {
		return
	}
	r.rateLimited.WithLabelValues(route).Inc()
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
