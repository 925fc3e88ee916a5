package app

import (
	"errors"
	"time"

	"github.com/pixbank/golang_services/internal/ledger_service/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pixChargesCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bank",
			Subsystem: "pix",
			Name:      "charges_generated_total",
			Help:      "PIX charge generation attempts by result.",
		},
		[]string{"result"},
	)
	pixCreditsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bank",
			Subsystem: "pix",
			Name:      "verifications_total",
			Help:      "PIX verifications by outcome (credited, already_paid, pending, expired, gateway_error).",
		},
		[]string{"outcome"},
	)
	pixCreditedAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bank",
			Subsystem: "pix",
			Name:      "credited_net_amount_total",
			Help:      "Sum of net amounts credited from PIX receipts.",
		},
	)
	pixExpiredCounter = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bank",
			Subsystem: "pix",
			Name:      "charges_expired_total",
			Help:      "PIX charges moved to expired.",
		},
	)
	withdrawalRequestsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bank",
			Subsystem: "withdrawal",
			Name:      "requests_total",
			Help:      "Withdrawal requests by result.",
		},
		[]string{"result"},
	)
	withdrawalDecisionsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bank",
			Subsystem: "withdrawal",
			Name:      "decisions_total",
			Help:      "Admin withdrawal decisions by decision and result.",
		},
		[]string{"decision", "result"},
	)
	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bank",
			Subsystem: "pix_gateway",
			Name:      "request_duration_seconds",
			Help:      "Latency of PIX gateway calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"operation", "result"},
	)
)

func observeGateway(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	gatewayRequestDuration.WithLabelValues(operation, result).Observe(time.Since(start).Seconds())
}

// resultLabel collapses an error into a bounded label value.
func resultLabel(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, domain.ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrGateway):
		return "gateway_error"
	default:
		return "error"
	}
}
