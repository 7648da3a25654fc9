package metrics

import (
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	SettlementsTotal           metric.Int64Counter
	DuplicateConfirmationsTotal metric.Int64Counter
	SettlementDurationSeconds  metric.Float64Histogram
	ExpiryNotificationsSent    metric.Int64Counter
	ExpiryNotificationsFailed  metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics initializes the global metric instruments only once.
// It gets the Meter from the globally configured MeterProvider.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("melodia-subscriptions")
		var err error
		m := &AppMetrics{}

		m.SettlementsTotal, err = meter.Int64Counter(
			"payment_settlements_total",
			metric.WithDescription("Total number of payment confirmations settled into a new subscription period"),
			metric.WithUnit("{settlement}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create payment_settlements_total: %v", err)
		}

		m.DuplicateConfirmationsTotal, err = meter.Int64Counter(
			"duplicate_payment_confirmations_total",
			metric.WithDescription("Total number of payment confirmations answered from an already-settled order"),
			metric.WithUnit("{confirmation}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create duplicate_payment_confirmations_total: %v", err)
		}

		m.SettlementDurationSeconds, err = meter.Float64Histogram(
			"payment_settlement_duration_seconds",
			metric.WithDescription("Duration of payment settlement transactions in seconds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create payment_settlement_duration_seconds: %v", err)
		}

		m.ExpiryNotificationsSent, err = meter.Int64Counter(
			"expiry_notifications_sent_total",
			metric.WithDescription("Total number of expiry notifications delivered to the push sender"),
			metric.WithUnit("{notification}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create expiry_notifications_sent_total: %v", err)
		}

		m.ExpiryNotificationsFailed, err = meter.Int64Counter(
			"expiry_notifications_failed_total",
			metric.WithDescription("Total number of expiry notifications the push sender rejected"),
			metric.WithUnit("{notification}"),
		)
		if err != nil {
			log.Fatalf("Metrics: Failed to create expiry_notifications_failed_total: %v", err)
		}

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the globally initialized AppMetrics instance.
// Panics if InitAppMetrics was not called first.
func Get() *AppMetrics {
	if appMetrics == nil {
		panic("metrics.Get called before metrics.InitAppMetrics")
	}
	return appMetrics
}
