package expiry

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	appmetrics "github.com/melodia-app/subscriptions/app/observability/metrics"
	"github.com/melodia-app/subscriptions/internal/api/subscription"
)

// Notifier sweeps the ledger for periods expiring inside the lookahead
// window and pushes a reminder per period. Each successful send is recorded
// against the period's current end date, so one expiry event is notified
// exactly once even though the sweep runs daily.
type Notifier struct {
	logger        *slog.Logger
	ledger        subscription.Repository
	sender        PushSender
	metrics       *appmetrics.AppMetrics
	window        time.Duration
	maxConcurrent int
	now           func() time.Time

	running atomic.Bool
}

// NewNotifier creates the expiry notifier. metrics may be nil in tests.
func NewNotifier(ledger subscription.Repository, sender PushSender, m *appmetrics.AppMetrics, windowDays, maxConcurrent int, logger *slog.Logger) *Notifier {
	if windowDays <= 0 {
		windowDays = 3
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Notifier{
		logger:        logger,
		ledger:        ledger,
		sender:        sender,
		metrics:       m,
		window:        time.Duration(windowDays) * 24 * time.Hour,
		maxConcurrent: maxConcurrent,
		now:           time.Now,
	}
}

// RunOnce executes one sweep and returns the number of notifications sent.
// Overlapping invocations are skipped: a sweep that is still running wins.
func (n *Notifier) RunOnce(ctx context.Context) (int, error) {
	ctx, span := otel.Tracer("ExpirationNotifier").Start(ctx, "RunOnce")
	defer span.End()

	l := n.logger.With(slog.String("method", "RunOnce"))

	if !n.running.CompareAndSwap(false, true) {
		l.WarnContext(ctx, "Previous sweep still running, skipping this trigger")
		span.SetStatus(codes.Ok, "Sweep skipped, already running")
		return 0, nil
	}
	defer n.running.Store(false)

	now := n.now()
	rows, err := n.ledger.ListExpiringBetween(ctx, now, now.Add(n.window))
	if err != nil {
		l.ErrorContext(ctx, "Failed to list expiring subscriptions", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Ledger sweep failed")
		return 0, fmt.Errorf("error listing expiring subscriptions: %w", err)
	}

	l.InfoContext(ctx, "Expiry sweep started", slog.Int("candidates", len(rows)))
	span.SetAttributes(attribute.Int("sweep.candidates", len(rows)))

	var sent atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.maxConcurrent)
	for _, row := range rows {
		g.Go(func() error {
			// One bad recipient must not abort the rest of the sweep, so
			// per-row failures are logged and counted, never returned.
			title := "Your subscription is expiring soon"
			body := fmt.Sprintf("Your %s plan ends on %s. Renew to keep listening without interruption.",
				row.PlanName, row.EndDate.Format("January 2, 2006"))

			if err := n.sender.Send(gctx, row.UserID, title, body); err != nil {
				n.logger.ErrorContext(gctx, "Failed to send expiry notification",
					slog.String("subscriptionID", row.ID.String()),
					slog.String("userID", row.UserID.String()),
					slog.Any("error", err))
				if n.metrics != nil {
					n.metrics.ExpiryNotificationsFailed.Add(gctx, 1)
				}
				return nil
			}

			// Marking after the send keeps the contract at-least-once: a
			// crash between send and mark re-notifies, never drops.
			if err := n.ledger.MarkNotified(gctx, row.ID, row.EndDate, n.now()); err != nil {
				n.logger.ErrorContext(gctx, "Failed to record notification marker",
					slog.String("subscriptionID", row.ID.String()),
					slog.Any("error", err))
			}
			if n.metrics != nil {
				n.metrics.ExpiryNotificationsSent.Add(gctx, 1)
			}
			sent.Add(1)
			return nil
		})
	}
	_ = g.Wait() // Workers never return errors; Wait only fences completion

	l.InfoContext(ctx, "Expiry sweep finished",
		slog.Int("candidates", len(rows)),
		slog.Int64("sent", sent.Load()))
	span.SetAttributes(attribute.Int64("sweep.sent", sent.Load()))
	span.SetStatus(codes.Ok, "Sweep finished")
	return int(sent.Load()), nil
}
