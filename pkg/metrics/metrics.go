// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ListingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dormscout_listings_created_total",
		Help: "Listings posted, by kind and verification outcome.",
	}, []string{"kind", "verified"})

	WishlistMatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormscout_wishlist_matches_total",
		Help: "Wishlist match notifications fired.",
	})

	NegotiationsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormscout_negotiations_started_total",
		Help: "Negotiation sessions opened.",
	})

	NegotiationAgreements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormscout_negotiation_agreements_total",
		Help: "Sessions that reached an agreed price.",
	})

	NegotiationTurnFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dormscout_negotiation_turn_failures_total",
		Help: "Agent turns dropped because the agent service failed.",
	})

	Payments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dormscout_payments_total",
		Help: "Payment channels chosen at the end of a negotiation.",
	}, []string{"method"})

	AgentCallSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dormscout_agent_call_seconds",
		Help:    "Latency of calls to the conversational and image-analysis services.",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	}, []string{"call", "ok"})
)

func ObserveAgentCall(call string, start time.Time, err error) {
	AgentCallSeconds.WithLabelValues(call, strconv.FormatBool(err == nil)).Observe(time.Since(start).Seconds())
}
