package plan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/melodia-app/subscriptions/internal/types"
)

var _ Service = (*ServiceImpl)(nil)

// Service is the read-mostly plan catalog consumed by the settlement core.
// Lookups are cached; the cache only ever holds catalog rows, never ledger
// state, so staleness is bounded by admin mutations which invalidate it.
type Service interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*types.SubscriptionPlan, error)
	GetPlanByName(ctx context.Context, name string) (*types.SubscriptionPlan, error)
	ListPlans(ctx context.Context) ([]types.SubscriptionPlan, error)
	CreatePlan(ctx context.Context, params types.CreatePlanParams) (*types.SubscriptionPlan, error)
	UpdatePlan(ctx context.Context, id uuid.UUID, params types.UpdatePlanParams) (*types.SubscriptionPlan, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	repo   Repository
	cache  *cache.Cache
}

func NewPlanService(repo Repository, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(10*time.Minute, 30*time.Minute),
	}
}

func planIDKey(id uuid.UUID) string { return "plan:id:" + id.String() }
func planNameKey(name string) string { return "plan:name:" + name }

func (s *ServiceImpl) GetPlan(ctx context.Context, id uuid.UUID) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "GetPlan", trace.WithAttributes(
		attribute.String("plan.id", id.String()),
	))
	defer span.End()

	if cached, found := s.cache.Get(planIDKey(id)); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Plan served from cache")
		return cached.(*types.SubscriptionPlan), nil
	}

	l := s.logger.With(slog.String("method", "GetPlan"), slog.String("planID", id.String()))

	plan, err := s.repo.FindByID(ctx, id)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch plan")
		return nil, fmt.Errorf("error fetching plan: %w", err)
	}

	s.cache.Set(planIDKey(plan.ID), plan, cache.DefaultExpiration)
	s.cache.Set(planNameKey(plan.Name), plan, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "Plan fetched")
	return plan, nil
}

func (s *ServiceImpl) GetPlanByName(ctx context.Context, name string) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "GetPlanByName", trace.WithAttributes(
		attribute.String("plan.name", name),
	))
	defer span.End()

	if cached, found := s.cache.Get(planNameKey(name)); found {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		span.SetStatus(codes.Ok, "Plan served from cache")
		return cached.(*types.SubscriptionPlan), nil
	}

	l := s.logger.With(slog.String("method", "GetPlanByName"), slog.String("planName", name))

	plan, err := s.repo.FindByName(ctx, name)
	if err != nil {
		l.ErrorContext(ctx, "Failed to fetch plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to fetch plan")
		return nil, fmt.Errorf("error fetching plan: %w", err)
	}

	s.cache.Set(planIDKey(plan.ID), plan, cache.DefaultExpiration)
	s.cache.Set(planNameKey(plan.Name), plan, cache.DefaultExpiration)
	span.SetStatus(codes.Ok, "Plan fetched")
	return plan, nil
}

func (s *ServiceImpl) ListPlans(ctx context.Context) ([]types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "ListPlans")
	defer span.End()

	l := s.logger.With(slog.String("method", "ListPlans"))

	plans, err := s.repo.ListAll(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list plans", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list plans")
		return nil, fmt.Errorf("error listing plans: %w", err)
	}

	span.SetStatus(codes.Ok, "Plans listed")
	return plans, nil
}

func (s *ServiceImpl) CreatePlan(ctx context.Context, params types.CreatePlanParams) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "CreatePlan", trace.WithAttributes(
		attribute.String("plan.name", params.Name),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "CreatePlan"), slog.String("planName", params.Name))
	l.DebugContext(ctx, "Creating plan")

	plan, err := s.repo.Create(ctx, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to create plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create plan")
		return nil, fmt.Errorf("error creating plan: %w", err)
	}

	l.InfoContext(ctx, "Plan created", slog.String("planID", plan.ID.String()))
	span.SetStatus(codes.Ok, "Plan created")
	return plan, nil
}

func (s *ServiceImpl) UpdatePlan(ctx context.Context, id uuid.UUID, params types.UpdatePlanParams) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanService").Start(ctx, "UpdatePlan", trace.WithAttributes(
		attribute.String("plan.id", id.String()),
	))
	defer span.End()

	l := s.logger.With(slog.String("method", "UpdatePlan"), slog.String("planID", id.String()))
	l.DebugContext(ctx, "Updating plan")

	// Drop any cached copy before the write so readers never see the old row
	// past the mutation.
	if cached, found := s.cache.Get(planIDKey(id)); found {
		s.cache.Delete(planNameKey(cached.(*types.SubscriptionPlan).Name))
	}
	s.cache.Delete(planIDKey(id))

	plan, err := s.repo.Update(ctx, id, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update plan")
		return nil, fmt.Errorf("error updating plan: %w", err)
	}

	l.InfoContext(ctx, "Plan updated")
	span.SetStatus(codes.Ok, "Plan updated")
	return plan, nil
}
