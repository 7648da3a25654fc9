package subscription

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/melodia-app/subscriptions/internal/api/plan"
	"github.com/melodia-app/subscriptions/internal/types"
)

var _ AdminService = (*AdminServiceImpl)(nil)

// AdminService mutates a user's subscription directly, bypassing payment.
// Grants follow the same supersede-then-insert path as settlement so the
// single-active invariant holds no matter which door a period came through.
type AdminService interface {
	// Grant opens a period for the user without payment metadata.
	Grant(ctx context.Context, userID, planID uuid.UUID) (*types.SubscriptionSnapshot, error)

	// Cancel closes a specific period row. ErrNotFound if it does not exist.
	Cancel(ctx context.Context, subscriptionID uuid.UUID) (*types.SubscriptionSnapshot, error)

	// Update partially overwrites the user's current active period.
	Update(ctx context.Context, userID uuid.UUID, params types.UpdateSubscriptionParams) (*types.SubscriptionSnapshot, error)

	// GetCurrent returns the user's live period, or ErrNotFound.
	GetCurrent(ctx context.Context, userID uuid.UUID) (*types.SubscriptionSnapshot, error)
}

type AdminServiceImpl struct {
	logger *slog.Logger
	ledger Repository
	plans  plan.Service
	now    func() time.Time
}

func NewAdminService(ledger Repository, plans plan.Service, logger *slog.Logger) *AdminServiceImpl {
	return &AdminServiceImpl{
		logger: logger,
		ledger: ledger,
		plans:  plans,
		now:    time.Now,
	}
}

func (s *AdminServiceImpl) Grant(ctx context.Context, userID, planID uuid.UUID) (*types.SubscriptionSnapshot, error) {
	ctx, span := otel.Tracer("SubscriptionAdminService").Start(ctx, "Grant", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("plan.id", planID.String()),
	))
	defer span.End()

	l := s.logger.With(
		slog.String("method", "Grant"),
		slog.String("userID", userID.String()),
		slog.String("planID", planID.String()),
	)
	l.DebugContext(ctx, "Granting subscription")

	planRow, err := s.plans.GetPlan(ctx, planID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to resolve plan for grant", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Unknown plan")
		return nil, fmt.Errorf("error resolving plan for grant: %w", err)
	}

	now := s.now()
	sub, err := s.ledger.CreatePeriod(ctx, NewPeriodParams{
		UserID:    userID,
		PlanID:    planRow.ID,
		PlanName:  planRow.Name,
		StartDate: now,
		EndDate:   now.AddDate(0, 0, planRow.DurationDays),
	})
	if err != nil {
		l.ErrorContext(ctx, "Failed to grant subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Grant failed")
		return nil, fmt.Errorf("error granting subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription granted",
		slog.String("subscriptionID", sub.ID.String()),
		slog.Time("endDate", sub.EndDate))
	span.SetStatus(codes.Ok, "Subscription granted")
	return types.NewSubscriptionSnapshot(sub, s.now()), nil
}

func (s *AdminServiceImpl) Cancel(ctx context.Context, subscriptionID uuid.UUID) (*types.SubscriptionSnapshot, error) {
	ctx, span := otel.Tracer("SubscriptionAdminService").Start(ctx, "Cancel", trace.WithAttributes(
		attribute.String("subscription.id", subscriptionID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Cancel"), slog.String("subscriptionID", subscriptionID.String()))
	l.DebugContext(ctx, "Cancelling subscription")

	sub, err := s.ledger.Cancel(ctx, subscriptionID, s.now())
	if err != nil {
		l.ErrorContext(ctx, "Failed to cancel subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cancel failed")
		return nil, fmt.Errorf("error cancelling subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription cancelled")
	span.SetStatus(codes.Ok, "Subscription cancelled")
	return types.NewSubscriptionSnapshot(sub, s.now()), nil
}

func (s *AdminServiceImpl) Update(ctx context.Context, userID uuid.UUID, params types.UpdateSubscriptionParams) (*types.SubscriptionSnapshot, error) {
	ctx, span := otel.Tracer("SubscriptionAdminService").Start(ctx, "Update", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "Update"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Updating active subscription")

	sub, err := s.ledger.UpdateActive(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update active subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, fmt.Errorf("error updating subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription updated", slog.String("subscriptionID", sub.ID.String()))
	span.SetStatus(codes.Ok, "Subscription updated")
	return types.NewSubscriptionSnapshot(sub, s.now()), nil
}

func (s *AdminServiceImpl) GetCurrent(ctx context.Context, userID uuid.UUID) (*types.SubscriptionSnapshot, error) {
	ctx, span := otel.Tracer("SubscriptionAdminService").Start(ctx, "GetCurrent", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "GetCurrent"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching current subscription")

	sub, err := s.ledger.FindActive(ctx, userID)
	if err != nil {
		// ErrInvariantViolation surfaces loudly: a user with two live
		// periods is a ledger bug, not something to paper over.
		l.ErrorContext(ctx, "Failed to fetch current subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch current subscription")
		return nil, fmt.Errorf("error fetching current subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "Current subscription fetched")
	return types.NewSubscriptionSnapshot(sub, s.now()), nil
}
