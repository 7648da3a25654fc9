package subscription

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/melodia-app/subscriptions/internal/types"
)

// PGXPool is the slice of pgxpool.Pool the ledger uses. Declared as an
// interface so pgxmock can stand in for the pool in tests.
type PGXPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ Repository = (*PostgresSubscriptionRepo)(nil)

// NewPeriodParams carries everything needed to open a subscription period.
// PaymentKey/OrderID/AmountCents are nil for admin grants.
type NewPeriodParams struct {
	UserID      uuid.UUID
	PlanID      uuid.UUID
	PlanName    string
	AmountCents *int64
	StartDate   time.Time
	EndDate     time.Time
	PaymentKey  *string
	OrderID     *string
}

// Repository is the persistence boundary of the subscription ledger. The
// ledger table is the single source of truth; nothing here is cached.
type Repository interface {
	// FindActive returns the user's single live period (is_active AND
	// end_date in the future). Returns ErrNotFound when there is none and
	// ErrInvariantViolation when more than one row qualifies.
	FindActive(ctx context.Context, userID uuid.UUID) (*types.UserSubscription, error)

	// FindByID returns a specific period row. ErrNotFound if missing.
	FindByID(ctx context.Context, id uuid.UUID) (*types.UserSubscription, error)

	// FindByOrderID is the idempotency lookup: at most one row ever carries
	// a given order id. ErrNotFound if the order was never settled.
	FindByOrderID(ctx context.Context, orderID string) (*types.UserSubscription, error)

	// CreatePeriod opens a new period in one transaction: it takes a
	// per-user advisory lock (serializing concurrent settlements for the
	// same user, including two first purchases with no row to lock),
	// closes any active rows (is_active=false AND end_date=now, always
	// both), and inserts the replacement. A unique violation on order_id
	// maps to ErrDuplicateOrder; lock contention and a unique violation on
	// the active-per-user index map to ErrConcurrencyConflict.
	CreatePeriod(ctx context.Context, params NewPeriodParams) (*types.UserSubscription, error)

	// Cancel closes a specific period row: is_active=false, end_date=at.
	// ErrNotFound if the row does not exist.
	Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*types.UserSubscription, error)

	// UpdateActive partially updates the user's current active row.
	// ErrNotFound when the user has no active row.
	UpdateActive(ctx context.Context, userID uuid.UUID, params types.UpdateSubscriptionParams) (*types.UserSubscription, error)

	// ListExpiringBetween returns active periods ending inside (from, to]
	// that have not yet been notified for their current end date.
	ListExpiringBetween(ctx context.Context, from, to time.Time) ([]types.UserSubscription, error)

	// MarkNotified records that an expiry notification went out for the
	// period's current end date, making the sweep idempotent per expiry.
	MarkNotified(ctx context.Context, id uuid.UUID, expiry, at time.Time) error
}

type PostgresSubscriptionRepo struct {
	logger *slog.Logger
	pgpool PGXPool
}

func NewPostgresSubscriptionRepo(pgpool PGXPool, logger *slog.Logger) *PostgresSubscriptionRepo {
	return &PostgresSubscriptionRepo{
		logger: logger,
		pgpool: pgpool,
	}
}

const subscriptionColumns = `id, user_id, plan_id, plan_name, amount_cents, start_date, end_date,
	       is_active, payment_key, order_id, notified_for_expiry, last_notified_at,
	       created_at, updated_at`

func scanSubscription(row pgx.Row) (*types.UserSubscription, error) {
	var s types.UserSubscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlanID,
		&s.PlanName,
		&s.AmountCents,
		&s.StartDate,
		&s.EndDate,
		&s.IsActive,
		&s.PaymentKey,
		&s.OrderID,
		&s.NotifiedForExpiry,
		&s.LastNotifiedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// isLockContention matches lock_not_available, serialization_failure and
// deadlock_detected, all of which the caller may retry.
func isLockContention(pgErr *pgconn.PgError) bool {
	return pgErr.Code == "55P03" || pgErr.Code == "40001" || pgErr.Code == "40P01"
}

func (r *PostgresSubscriptionRepo) FindActive(ctx context.Context, userID uuid.UUID) (*types.UserSubscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "FindActive", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "FindActive"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Fetching active subscription")

	query := fmt.Sprintf(`
		SELECT %s FROM user_subscriptions
		WHERE user_id = $1 AND is_active AND end_date > now()
	`, subscriptionColumns)

	rows, err := r.pgpool.Query(ctx, query, userID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query active subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching active subscription: %w", err)
	}
	defer rows.Close()

	var matches []*types.UserSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Row scan failed")
			return nil, fmt.Errorf("database error scanning subscription: %w", err)
		}
		matches = append(matches, sub)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("database error iterating subscriptions: %w", err)
	}

	switch len(matches) {
	case 0:
		span.SetStatus(codes.Error, "No active subscription")
		return nil, fmt.Errorf("no active subscription for user %s: %w", userID, types.ErrNotFound)
	case 1:
		span.SetStatus(codes.Ok, "Active subscription fetched")
		return matches[0], nil
	default:
		// More than one live row is a hard consistency failure. Never pick one.
		l.ErrorContext(ctx, "Multiple active subscriptions for one user",
			slog.Int("count", len(matches)))
		span.SetStatus(codes.Error, "Multiple active subscriptions")
		return nil, fmt.Errorf("user %s has %d active subscriptions: %w",
			userID, len(matches), types.ErrInvariantViolation)
	}
}

func (r *PostgresSubscriptionRepo) FindByID(ctx context.Context, id uuid.UUID) (*types.UserSubscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "FindByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "FindByID"), slog.String("subscriptionID", id.String()))

	query := fmt.Sprintf(`SELECT %s FROM user_subscriptions WHERE id = $1`, subscriptionColumns)

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.WarnContext(ctx, "Subscription not found")
			span.SetStatus(codes.Error, "Subscription not found")
			return nil, fmt.Errorf("subscription %s: %w", id, types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to query subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching subscription: %w", err)
	}

	span.SetStatus(codes.Ok, "Subscription fetched")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) FindByOrderID(ctx context.Context, orderID string) (*types.UserSubscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "FindByOrderID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("order.id", orderID),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "FindByOrderID"), slog.String("orderID", orderID))
	l.DebugContext(ctx, "Idempotency lookup by order id")

	query := fmt.Sprintf(`SELECT %s FROM user_subscriptions WHERE order_id = $1`, subscriptionColumns)

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "Order not settled")
			return nil, fmt.Errorf("order %q not settled: %w", orderID, types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to query subscription by order id", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error fetching subscription by order id: %w", err)
	}

	span.SetStatus(codes.Ok, "Subscription fetched")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) CreatePeriod(ctx context.Context, params NewPeriodParams) (*types.UserSubscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "CreatePeriod", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("user.id", params.UserID.String()),
		attribute.String("plan.id", params.PlanID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "CreatePeriod"), slog.String("userID", params.UserID.String()))
	l.DebugContext(ctx, "Opening new subscription period")

	tx, err := r.pgpool.Begin(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to begin transaction", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "BEGIN failed")
		return nil, fmt.Errorf("database error starting settlement transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op after a successful commit

	// Per-user advisory lock, held until commit or rollback. A row lock on
	// the active period is not enough: on a first purchase there is no row
	// to lock, and two concurrent settlements could both observe "no active
	// subscription" and both insert a live period. The advisory lock
	// serializes settlements for the same user regardless of row count.
	lockQuery := `SELECT pg_advisory_xact_lock(hashtextextended($1::text, 0))`
	if _, err := tx.Exec(ctx, lockQuery, params.UserID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && isLockContention(pgErr) {
			span.SetStatus(codes.Error, "Lock contention")
			return nil, fmt.Errorf("settlement lock contention for user %s: %w", params.UserID, types.ErrConcurrencyConflict)
		}
		l.ErrorContext(ctx, "Failed to acquire settlement lock", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Settlement lock failed")
		return nil, fmt.Errorf("database error acquiring settlement lock: %w", err)
	}

	// Supersede: close the prior period completely. Both fields move
	// together so a closed row never reports a future end date.
	supersedeQuery := `
		UPDATE user_subscriptions
		SET is_active = FALSE, end_date = $2, updated_at = $2
		WHERE user_id = $1 AND is_active
	`
	if _, err := tx.Exec(ctx, supersedeQuery, params.UserID, params.StartDate); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			// Closing a period before its recorded start can only happen when
			// another writer moved it concurrently. Retryable.
			span.SetStatus(codes.Error, "Supersede check violation")
			return nil, fmt.Errorf("settlement conflict for user %s: %w", params.UserID, types.ErrConcurrencyConflict)
		}
		l.ErrorContext(ctx, "Failed to supersede prior subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Supersede failed")
		return nil, fmt.Errorf("database error superseding prior subscription: %w", err)
	}

	insertQuery := fmt.Sprintf(`
		INSERT INTO user_subscriptions
			(user_id, plan_id, plan_name, amount_cents, start_date, end_date, is_active, payment_key, order_id)
		VALUES ($1, $2, $3, $4, $5, $6, TRUE, $7, $8)
		RETURNING %s
	`, subscriptionColumns)

	sub, err := scanSubscription(tx.QueryRow(ctx, insertQuery,
		params.UserID,
		params.PlanID,
		params.PlanName,
		params.AmountCents,
		params.StartDate,
		params.EndDate,
		params.PaymentKey,
		params.OrderID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "order_id") {
				// A concurrent call already settled this exact order.
				l.WarnContext(ctx, "Order already settled by a concurrent call")
				span.SetStatus(codes.Error, "Duplicate order id")
				return nil, fmt.Errorf("order already settled: %w", types.ErrDuplicateOrder)
			}
			if pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, "active_user") {
				// The unique active-per-user index is the last line of
				// defense behind the advisory lock. Hitting it means a
				// concurrent writer slipped a live row in; retryable.
				l.WarnContext(ctx, "Concurrent writer left a live period for this user")
				span.SetStatus(codes.Error, "Concurrent active period")
				return nil, fmt.Errorf("settlement conflict for user %s: %w", params.UserID, types.ErrConcurrencyConflict)
			}
			if pgErr.Code == "23503" {
				span.SetStatus(codes.Error, "Unknown plan reference")
				return nil, fmt.Errorf("plan %s: %w", params.PlanID, types.ErrNotFound)
			}
			if isLockContention(pgErr) {
				span.SetStatus(codes.Error, "Lock contention")
				return nil, fmt.Errorf("settlement conflict for user %s: %w", params.UserID, types.ErrConcurrencyConflict)
			}
		}
		l.ErrorContext(ctx, "Failed to insert subscription period", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB INSERT failed")
		return nil, fmt.Errorf("database error inserting subscription period: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		l.ErrorContext(ctx, "Failed to commit settlement transaction", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "COMMIT failed")
		return nil, fmt.Errorf("database error committing settlement: %w", err)
	}

	l.InfoContext(ctx, "Subscription period opened",
		slog.String("subscriptionID", sub.ID.String()),
		slog.Time("endDate", sub.EndDate))
	span.SetStatus(codes.Ok, "Period created")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) Cancel(ctx context.Context, id uuid.UUID, at time.Time) (*types.UserSubscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "Cancel", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "Cancel"), slog.String("subscriptionID", id.String()))
	l.DebugContext(ctx, "Cancelling subscription period")

	// is_active guard keeps closed periods immutable: cancelling twice
	// must not move the recorded end date.
	query := fmt.Sprintf(`
		UPDATE user_subscriptions
		SET is_active = FALSE, end_date = $2, updated_at = $2
		WHERE id = $1 AND is_active
		RETURNING %s
	`, subscriptionColumns)

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, id, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish "already closed" from "does not exist".
			existing, findErr := r.FindByID(ctx, id)
			if findErr != nil {
				span.SetStatus(codes.Error, "Subscription not found")
				return nil, findErr
			}
			span.SetStatus(codes.Ok, "Subscription already inactive")
			return existing, nil
		}
		l.ErrorContext(ctx, "Failed to cancel subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error cancelling subscription: %w", err)
	}

	l.InfoContext(ctx, "Subscription cancelled", slog.Time("endDate", sub.EndDate))
	span.SetStatus(codes.Ok, "Subscription cancelled")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) UpdateActive(ctx context.Context, userID uuid.UUID, params types.UpdateSubscriptionParams) (*types.UserSubscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "UpdateActive", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "UpdateActive"), slog.String("userID", userID.String()))
	l.DebugContext(ctx, "Updating active subscription", slog.Any("params", params))

	// Build query dynamically
	var setClauses []string
	var args []interface{}
	argID := 1

	if params.PlanID != nil {
		setClauses = append(setClauses, fmt.Sprintf("plan_id = $%d", argID))
		args = append(args, *params.PlanID)
		argID++
		setClauses = append(setClauses, fmt.Sprintf("plan_name = (SELECT name FROM subscription_plans WHERE id = $%d)", argID))
		args = append(args, *params.PlanID)
		argID++
		span.SetAttributes(attribute.Bool("update.plan", true))
	}
	if params.EndDate != nil {
		setClauses = append(setClauses, fmt.Sprintf("end_date = $%d", argID))
		args = append(args, *params.EndDate)
		argID++
		span.SetAttributes(attribute.Bool("update.end_date", true))
	}
	if params.IsActive != nil {
		setClauses = append(setClauses, fmt.Sprintf("is_active = $%d", argID))
		args = append(args, *params.IsActive)
		argID++
		span.SetAttributes(attribute.Bool("update.is_active", true))
	}

	if len(setClauses) == 0 {
		l.InfoContext(ctx, "UpdateActive called with no fields to update")
		span.SetStatus(codes.Ok, "No update fields provided")
		return r.FindActive(ctx, userID)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argID))
	args = append(args, time.Now())
	argID++

	args = append(args, userID)
	query := fmt.Sprintf(`
		UPDATE user_subscriptions SET %s
		WHERE user_id = $%d AND is_active AND end_date > now()
		RETURNING %s
	`, strings.Join(setClauses, ", "), argID, subscriptionColumns)

	sub, err := scanSubscription(r.pgpool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			l.WarnContext(ctx, "No active subscription to update")
			span.SetStatus(codes.Error, "No active subscription")
			return nil, fmt.Errorf("no active subscription for user %s: %w", userID, types.ErrNotFound)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			span.SetStatus(codes.Error, "Unknown plan reference")
			return nil, fmt.Errorf("plan %s: %w", params.PlanID, types.ErrNotFound)
		}
		l.ErrorContext(ctx, "Failed to update active subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return nil, fmt.Errorf("database error updating subscription: %w", err)
	}

	l.InfoContext(ctx, "Active subscription updated", slog.String("subscriptionID", sub.ID.String()))
	span.SetStatus(codes.Ok, "Subscription updated")
	return sub, nil
}

func (r *PostgresSubscriptionRepo) ListExpiringBetween(ctx context.Context, from, to time.Time) ([]types.UserSubscription, error) {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "ListExpiringBetween", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.sql.table", "user_subscriptions"),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "ListExpiringBetween"))
	l.DebugContext(ctx, "Listing expiring subscriptions",
		slog.Time("from", from), slog.Time("to", to))

	// Rows already notified for their current end date are filtered out;
	// extending a subscription resets the marker implicitly because the
	// stored expiry no longer matches.
	query := fmt.Sprintf(`
		SELECT %s FROM user_subscriptions
		WHERE is_active
		  AND end_date > $1 AND end_date <= $2
		  AND (notified_for_expiry IS NULL OR notified_for_expiry <> end_date)
		ORDER BY end_date ASC
	`, subscriptionColumns)

	rows, err := r.pgpool.Query(ctx, query, from, to)
	if err != nil {
		l.ErrorContext(ctx, "Failed to query expiring subscriptions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB SELECT failed")
		return nil, fmt.Errorf("database error listing expiring subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []types.UserSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Row scan failed")
			return nil, fmt.Errorf("database error scanning subscription: %w", err)
		}
		subs = append(subs, *sub)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("database error iterating subscriptions: %w", err)
	}

	span.SetStatus(codes.Ok, "Expiring subscriptions listed")
	span.SetAttributes(attribute.Int("subscription.count", len(subs)))
	return subs, nil
}

func (r *PostgresSubscriptionRepo) MarkNotified(ctx context.Context, id uuid.UUID, expiry, at time.Time) error {
	ctx, span := otel.Tracer("SubscriptionRepo").Start(ctx, "MarkNotified", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "user_subscriptions"),
		attribute.String("subscription.id", id.String()),
	))
	defer span.End()

	l := r.logger.With(slog.String("method", "MarkNotified"), slog.String("subscriptionID", id.String()))

	query := `
		UPDATE user_subscriptions
		SET notified_for_expiry = $2, last_notified_at = $3, updated_at = $3
		WHERE id = $1
	`

	tag, err := r.pgpool.Exec(ctx, query, id, expiry, at)
	if err != nil {
		l.ErrorContext(ctx, "Failed to mark subscription notified", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB UPDATE failed")
		return fmt.Errorf("database error marking subscription notified: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "Subscription not found")
		return fmt.Errorf("subscription %s: %w", id, types.ErrNotFound)
	}

	span.SetStatus(codes.Ok, "Notification marker updated")
	return nil
}
