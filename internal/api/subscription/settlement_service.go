package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	appmetrics "github.com/melodia-app/subscriptions/app/observability/metrics"
	"github.com/melodia-app/subscriptions/internal/api/plan"
	"github.com/melodia-app/subscriptions/internal/types"
)

var _ SettlementService = (*SettlementServiceImpl)(nil)

// SettlementService turns a trusted payment confirmation into exactly one
// subscription period. Confirmations are idempotent on the order id: the
// gateway may deliver the same confirmation more than once, and every
// delivery after the first returns the period the first one committed.
type SettlementService interface {
	ConfirmPayment(ctx context.Context, userID uuid.UUID, req types.ConfirmPaymentRequest) (*types.SubscriptionSnapshot, error)
}

type SettlementServiceImpl struct {
	logger  *slog.Logger
	ledger  Repository
	plans   plan.Service
	metrics *appmetrics.AppMetrics
	now     func() time.Time
}

// NewSettlementService creates the settlement service. metrics may be nil
// (tests run without a meter provider).
func NewSettlementService(ledger Repository, plans plan.Service, m *appmetrics.AppMetrics, logger *slog.Logger) *SettlementServiceImpl {
	return &SettlementServiceImpl{
		logger:  logger,
		ledger:  ledger,
		plans:   plans,
		metrics: m,
		now:     time.Now,
	}
}

func (s *SettlementServiceImpl) ConfirmPayment(ctx context.Context, userID uuid.UUID, req types.ConfirmPaymentRequest) (*types.SubscriptionSnapshot, error) {
	ctx, span := otel.Tracer("SettlementService").Start(ctx, "ConfirmPayment", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("order.id", req.OrderID),
		attribute.String("plan.id", req.PlanID.String()),
	))
	defer span.End()

	l := s.logger.With(
		slog.String("method", "ConfirmPayment"),
		slog.String("userID", userID.String()),
		slog.String("orderID", req.OrderID),
	)
	l.DebugContext(ctx, "Settling payment confirmation")

	started := s.now()

	if req.OrderID == "" || req.PaymentKey == "" {
		span.SetStatus(codes.Error, "Missing settlement metadata")
		return nil, fmt.Errorf("order id and payment key are required: %w", types.ErrInvalidInput)
	}

	// Idempotency pre-read: a confirmation for an order that already settled
	// is a no-op success built from the committed row's real fields.
	existing, err := s.ledger.FindByOrderID(ctx, req.OrderID)
	if err == nil {
		l.InfoContext(ctx, "Order already settled, returning committed period",
			slog.String("subscriptionID", existing.ID.String()))
		span.SetAttributes(attribute.Bool("settlement.duplicate", true))
		span.SetStatus(codes.Ok, "Already settled")
		if s.metrics != nil {
			s.metrics.DuplicateConfirmationsTotal.Add(ctx, 1)
		}
		return types.NewSubscriptionSnapshot(existing, s.now()), nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		// A genuine storage failure is reported as such, never converted
		// into a fabricated success.
		l.ErrorContext(ctx, "Idempotency lookup failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Idempotency lookup failed")
		return nil, fmt.Errorf("error checking order settlement state: %w", err)
	}

	// The plan identity is carried explicitly in the confirmation payload.
	planRow, err := s.plans.GetPlan(ctx, req.PlanID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve plan for settlement", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unknown plan")
		return nil, fmt.Errorf("error resolving plan for settlement: %w", err)
	}

	now := s.now()
	amount := req.AmountCents
	paymentKey := req.PaymentKey
	orderID := req.OrderID

	sub, err := s.ledger.CreatePeriod(ctx, NewPeriodParams{
		UserID:      userID,
		PlanID:      planRow.ID,
		PlanName:    planRow.Name,
		AmountCents: &amount,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, planRow.DurationDays),
		PaymentKey:  &paymentKey,
		OrderID:     &orderID,
	})
	if err != nil {
		if errors.Is(err, types.ErrDuplicateOrder) {
			// Lost the race to a concurrent call for this exact order.
			// Re-read and answer with what that call committed.
			committed, readErr := s.ledger.FindByOrderID(ctx, req.OrderID)
			if readErr != nil {
				l.ErrorContext(ctx, "Re-read after duplicate order failed", slog.Any("error", readErr))
				span.RecordError(readErr)
				span.SetStatus(codes.Error, "Conflict re-read failed")
				return nil, fmt.Errorf("order %q settled concurrently but could not be re-read: %w",
					req.OrderID, types.ErrConcurrencyConflict)
			}
			l.InfoContext(ctx, "Order settled by concurrent call, returning committed period",
				slog.String("subscriptionID", committed.ID.String()))
			span.SetAttributes(attribute.Bool("settlement.duplicate", true))
			span.SetStatus(codes.Ok, "Already settled concurrently")
			if s.metrics != nil {
				s.metrics.DuplicateConfirmationsTotal.Add(ctx, 1)
			}
			return types.NewSubscriptionSnapshot(committed, s.now()), nil
		}
		l.ErrorContext(ctx, "Failed to settle payment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Settlement failed")
		return nil, fmt.Errorf("error settling payment: %w", err)
	}

	l.InfoContext(ctx, "Payment settled",
		slog.String("subscriptionID", sub.ID.String()),
		slog.String("plan", sub.PlanName),
		slog.Time("endDate", sub.EndDate))
	span.SetStatus(codes.Ok, "Payment settled")
	if s.metrics != nil {
		s.metrics.SettlementsTotal.Add(ctx, 1)
		s.metrics.SettlementDurationSeconds.Record(ctx, s.now().Sub(started).Seconds())
	}
	return types.NewSubscriptionSnapshot(sub, s.now()), nil
}
