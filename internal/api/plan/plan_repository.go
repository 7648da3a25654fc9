package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/melodia-app/subscriptions/internal/types"
)

var _ Repository = (*PostgresPlanRepo)(nil)

type Repository interface {
	// FindByID returns the catalog plan with the given id.
	// Returns ErrNotFound if no such plan exists.
	FindByID(ctx context.Context, id uuid.UUID) (*types.SubscriptionPlan, error)

	// FindByName returns the catalog plan with the given unique name.
	// Returns ErrNotFound if no such plan exists.
	FindByName(ctx context.Context, name string) (*types.SubscriptionPlan, error)

	// ListAll returns the full plan catalog ordered by price.
	ListAll(ctx context.Context) ([]types.SubscriptionPlan, error)

	// Create inserts a new catalog plan. Name collisions surface as an error.
	Create(ctx context.Context, params types.CreatePlanParams) (*types.SubscriptionPlan, error)

	// Update partially updates a plan's mutable fields (name, price, description).
	// DurationDays is fixed once created. Returns ErrNotFound for unknown ids.
	Update(ctx context.Context, id uuid.UUID, params types.UpdatePlanParams) (*types.SubscriptionPlan, error)
}

type PostgresPlanRepo struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
}

func NewPostgresPlanRepo(pgxpool *pgxpool.Pool, logger *slog.Logger) *PostgresPlanRepo {
	return &PostgresPlanRepo{
		logger: logger,
		pgpool: pgxpool,
	}
}

const planColumns = `id, name, price_cents, duration_days, description, created_at, updated_at`

func scanPlan(row pgx.Row) (*types.SubscriptionPlan, error) {
	var p types.SubscriptionPlan
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.PriceCents,
		&p.DurationDays,
		&p.Description,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, id uuid.UUID) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "FindByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.String("plan.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "FindByID"), slog.String("planID", id.String()))
	l.DebugContext(ctx, "Fetching subscription plan")

	query := fmt.Sprintf(`SELECT %s FROM subscription_plans WHERE id = $1`, planColumns)

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.WarnContext(ctx, "Subscription plan not found")
			span.SetStatus(codes.Error, "Plan not found")
			return nil, fmt.Errorf("subscription plan %s: %w", id, types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to query subscription plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching plan: %w", err)
	}

	span.SetStatus(codes.Ok, "Plan fetched")
	return plan, nil
}

func (r *PostgresPlanRepo) FindByName(ctx context.Context, name string) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "FindByName", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.String("plan.name", name),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "FindByName"), slog.String("planName", name))
	l.DebugContext(ctx, "Fetching subscription plan by name")

	query := fmt.Sprintf(`SELECT %s FROM subscription_plans WHERE name = $1`, planColumns)

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.WarnContext(ctx, "Subscription plan not found")
			span.SetStatus(codes.Error, "Plan not found")
			return nil, fmt.Errorf("subscription plan %q: %w", name, types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to query subscription plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching plan: %w", err)
	}

	span.SetStatus(codes.Ok, "Plan fetched")
	return plan, nil
}

func (r *PostgresPlanRepo) ListAll(ctx context.Context) ([]types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "ListAll", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "subscription_plans"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListAll"))
	l.DebugContext(ctx, "Listing subscription plans")

	query := fmt.Sprintf(`SELECT %s FROM subscription_plans ORDER BY price_cents ASC`, planColumns)

	rows, err := r.pgpool.Query(ctx, query)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query subscription plans", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing plans: %w", err)
	}
	defer rows.Close()

	var plans []types.SubscriptionPlan
	for rows.Next() {
		var p types.SubscriptionPlan
		err := rows.Scan(&p.ID, &p.Name, &p.PriceCents, &p.DurationDays, &p.Description, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			l.ErrorContext(ctx, "Failed to scan subscription plan", slog.Any("error", err))
			span.RecordError(err)
			span.SetStatus(codes.Error, "Row scan failed")
			return nil, fmt.Errorf("database error scanning plan: %w", err)
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("database error iterating plans: %w", err)
	}

	span.SetStatus(codes.Ok, "Plans listed")
	span.SetAttributes(attribute.Int("plan.count", len(plans)))
	return plans, nil
}

func (r *PostgresPlanRepo) Create(ctx context.Context, params types.CreatePlanParams) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "Create", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.String("plan.name", params.Name),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Create"), slog.String("planName", params.Name))
	l.DebugContext(ctx, "Creating subscription plan")

	query := fmt.Sprintf(`
		INSERT INTO subscription_plans (name, price_cents, duration_days, description)
		VALUES ($1, $2, $3, $4)
		RETURNING %s
	`, planColumns)

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, query, params.Name, params.PriceCents, params.DurationDays, params.Description))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			l.WarnContext(ctx, "Plan name already exists")
			span.SetStatus(codes.Error, "Duplicate plan name")
			return nil, fmt.Errorf("plan name %q already exists: %w", params.Name, types.ErrConcurrencyConflict)
		}
		l.ErrorContext(ctx, "Failed to insert subscription plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error creating plan: %w", err)
	}

	l.InfoContext(ctx, "Subscription plan created", slog.String("planID", plan.ID.String()))
	span.SetStatus(codes.Ok, "Plan created")
	return plan, nil
}

func (r *PostgresPlanRepo) Update(ctx context.Context, id uuid.UUID, params types.UpdatePlanParams) (*types.SubscriptionPlan, error) {
	ctx, span := otel.Tracer("PlanRepo").Start(ctx, "Update", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "subscription_plans"),
		attribute.String("plan.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Update"), slog.String("planID", id.String()))
	l.DebugContext(ctx, "Updating subscription plan")

	// Build query dynamically
	var setClauses []string
	var args []interface{}
	argID := 1

	if params.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argID))
		args = append(args, *params.Name)
		argID++
	}
	if params.PriceCents != nil {
		setClauses = append(setClauses, fmt.Sprintf("price_cents = $%d", argID))
		args = append(args, *params.PriceCents)
		argID++
	}
	if params.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argID))
		args = append(args, *params.Description)
		argID++
	}

	if len(setClauses) == 0 {
		l.InfoContext(ctx, "Update called with no fields to update")
		span.SetStatus(codes.Ok, "No update fields provided")
		return r.FindByID(ctx, id)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE subscription_plans SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argID, planColumns)

	plan, err := scanPlan(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.WarnContext(ctx, "Subscription plan not found for update")
			span.SetStatus(codes.Error, "Plan not found")
			return nil, fmt.Errorf("subscription plan %s: %w", id, types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to update subscription plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error updating plan: %w", err)
	}

	l.InfoContext(ctx, "Subscription plan updated")
	span.SetStatus(codes.Ok, "Plan updated")
	return plan, nil
}
