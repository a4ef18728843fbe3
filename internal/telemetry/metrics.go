package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Payment funnel and subscription lifecycle metrics.
var (
	PaymentFlowsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlink",
		Name:      "payment_flows_started_total",
		Help:      "Payment flows initiated",
	})

	PaymentAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlink",
		Name:      "payment_attempts_total",
		Help:      "Individual processor attempts, including retries",
	})

	PaymentRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlink",
		Name:      "payment_retries_total",
		Help:      "Automatic payment retries",
	})

	PaymentSucceeded = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlink",
		Name:      "payment_succeeded_total",
		Help:      "Payment flows that completed successfully",
	})

	PaymentFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pitchlink",
		Name:      "payment_failed_total",
		Help:      "Payment flows that terminated in failure, by error category",
	}, []string{"category"})

	PaymentDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "pitchlink",
		Name:      "payment_duration_seconds",
		Help:      "Wall time of a payment flow from initiation to terminal state",
		Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60},
	})

	SubscriptionsActivated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlink",
		Name:      "subscriptions_activated_total",
		Help:      "Subscriptions written active after successful payment",
	})

	SubscriptionsCanceled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "pitchlink",
		Name:      "subscriptions_canceled_total",
		Help:      "Subscriptions canceled",
	})
)
