package subscription

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	appMiddleware "github.com/melodia-app/subscriptions/app/middleware"
	"github.com/melodia-app/subscriptions/internal/api"
	"github.com/melodia-app/subscriptions/internal/types"
)

type Handler struct {
	settlementService SettlementService
	adminService      AdminService
	logger            *slog.Logger
}

func NewSubscriptionHandler(settlementService SettlementService, adminService AdminService, logger *slog.Logger) *Handler {
	return &Handler{
		settlementService: settlementService,
		adminService:      adminService,
		logger:            logger,
	}
}

// writeServiceError maps the settlement error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, types.ErrInvalidInput):
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid request")
	case errors.Is(err, types.ErrNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "Requested resource not found")
	case errors.Is(err, types.ErrConcurrencyConflict):
		// Retryable: the caller should resubmit with the same order id.
		api.ErrorResponse(w, r, http.StatusConflict, "Conflicting concurrent request, please retry")
	case errors.Is(err, types.ErrInvariantViolation):
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Subscription state is inconsistent")
	default:
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
	}
}

// ConfirmPayment settles an authenticated payment confirmation into the
// caller's subscription.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SubscriptionHandler").Start(r.Context(), "ConfirmPayment", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/payments/confirm"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ConfirmPayment"))

	userIDStr, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}
	span.SetAttributes(attribute.String("user.id", userID.String()))

	var req types.ConfirmPaymentRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid request format: %s", err.Error()))
		return
	}

	if req.OrderID == "" || req.PaymentKey == "" || req.PlanID == uuid.Nil {
		l.WarnContext(ctx, "Missing settlement fields")
		span.SetStatus(codes.Error, "Missing settlement fields")
		api.ErrorResponse(w, r, http.StatusBadRequest, "order_id, payment_key and plan_id are required")
		return
	}
	span.SetAttributes(attribute.String("order.id", req.OrderID))

	snapshot, err := h.settlementService.ConfirmPayment(ctx, userID, req)
	if err != nil {
		l.ErrorContext(ctx, "Failed to settle payment", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Settlement failed")
		writeServiceError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Payment settled")
	api.WriteJSONResponse(w, r, http.StatusOK, snapshot)
}

// GetCurrentSubscription returns the caller's live subscription period.
func (h *Handler) GetCurrentSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SubscriptionHandler").Start(r.Context(), "GetCurrentSubscription", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/subscriptions/me"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GetCurrentSubscription"))

	userIDStr, ok := appMiddleware.GetUserIDFromContext(ctx)
	if !ok || userIDStr == "" {
		l.ErrorContext(ctx, "User ID not found in context")
		span.SetStatus(codes.Error, "User ID not found in context")
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.ErrorContext(ctx, "Invalid user ID format", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format")
		return
	}

	snapshot, err := h.adminService.GetCurrent(ctx, userID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Error, "No current subscription")
			api.ErrorResponse(w, r, http.StatusNotFound, "No active subscription")
			return
		}
		l.ErrorContext(ctx, "Failed to get current subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get current subscription")
		writeServiceError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Current subscription retrieved")
	api.WriteJSONResponse(w, r, http.StatusOK, snapshot)
}

// GrantSubscription opens a period for a user without payment (admin only).
func (h *Handler) GrantSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SubscriptionHandler").Start(r.Context(), "GrantSubscription", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/users/{userID}/subscription"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "GrantSubscription"))

	userIDStr := chi.URLParam(r, "userID")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.WarnContext(ctx, "Invalid user ID format in URL path", slog.String("user_id_str", userIDStr), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format in URL")
		return
	}

	var body struct {
		PlanID uuid.UUID `json:"plan_id"`
	}
	if err := api.DecodeJSONBody(w, r, &body); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid request format: %s", err.Error()))
		return
	}
	if body.PlanID == uuid.Nil {
		span.SetStatus(codes.Error, "Missing plan id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "plan_id is required")
		return
	}

	snapshot, err := h.adminService.Grant(ctx, userID, body.PlanID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to grant subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Grant failed")
		writeServiceError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Subscription granted")
	api.WriteJSONResponse(w, r, http.StatusCreated, snapshot)
}

// UpdateSubscription partially updates a user's active period (admin only).
func (h *Handler) UpdateSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SubscriptionHandler").Start(r.Context(), "UpdateSubscription", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/users/{userID}/subscription"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdateSubscription"))

	userIDStr := chi.URLParam(r, "userID")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		l.WarnContext(ctx, "Invalid user ID format in URL path", slog.String("user_id_str", userIDStr), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid user ID format")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid user ID format in URL")
		return
	}

	var params types.UpdateSubscriptionParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid request format: %s", err.Error()))
		return
	}

	snapshot, err := h.adminService.Update(ctx, userID, params)
	if err != nil {
		l.ErrorContext(ctx, "Failed to update subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		writeServiceError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Subscription updated")
	api.WriteJSONResponse(w, r, http.StatusOK, snapshot)
}

// CancelSubscription closes a specific period row (admin only).
func (h *Handler) CancelSubscription(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("SubscriptionHandler").Start(r.Context(), "CancelSubscription", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/subscriptions/{subscriptionID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CancelSubscription"))

	subIDStr := chi.URLParam(r, "subscriptionID")
	subID, err := uuid.Parse(subIDStr)
	if err != nil {
		l.WarnContext(ctx, "Invalid subscription ID format in URL path", slog.String("subscription_id_str", subIDStr), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid subscription ID format")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid subscription ID format in URL")
		return
	}

	snapshot, err := h.adminService.Cancel(ctx, subID)
	if err != nil {
		l.ErrorContext(ctx, "Failed to cancel subscription", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Cancel failed")
		writeServiceError(w, r, err)
		return
	}

	span.SetStatus(codes.Ok, "Subscription cancelled")
	api.WriteJSONResponse(w, r, http.StatusOK, snapshot)
}
