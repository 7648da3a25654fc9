package plan

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/melodia-app/subscriptions/internal/api"
	"github.com/melodia-app/subscriptions/internal/types"
)

type Handler struct {
	planService Service
	logger      *slog.Logger
}

func NewPlanHandler(planService Service, logger *slog.Logger) *Handler {
	return &Handler{
		planService: planService,
		logger:      logger,
	}
}

// ListPlans returns the full subscription plan catalog.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanHandler").Start(r.Context(), "ListPlans", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/plans"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "ListPlans"))

	plans, err := h.planService.ListPlans(ctx)
	if err != nil {
		l.ErrorContext(ctx, "Failed to list plans", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to list plans")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve plans")
		return
	}

	span.SetStatus(codes.Ok, "Plans listed")
	api.WriteJSONResponse(w, r, http.StatusOK, plans)
}

// GetPlanByName returns a single catalog plan by its unique name.
func (h *Handler) GetPlanByName(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanHandler").Start(r.Context(), "GetPlanByName", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/plans/{name}"),
	))
	defer span.End()

	name := chi.URLParam(r, "name")
	l := h.logger.With(slog.String("handler", "GetPlanByName"), slog.String("planName", name))

	plan, err := h.planService.GetPlanByName(ctx, name)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			l.WarnContext(ctx, "Plan not found")
			span.SetStatus(codes.Error, "Plan not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Plan not found")
			return
		}
		l.ErrorContext(ctx, "Failed to get plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to get plan")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to retrieve plan")
		return
	}

	span.SetStatus(codes.Ok, "Plan retrieved")
	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}

// CreatePlan creates a new catalog plan (admin only).
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanHandler").Start(r.Context(), "CreatePlan", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/plans"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "CreatePlan"))

	var params types.CreatePlanParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid request format: %s", err.Error()))
		return
	}

	if params.Name == "" || params.PriceCents < 0 || params.DurationDays <= 0 {
		l.WarnContext(ctx, "Invalid plan parameters")
		span.SetStatus(codes.Error, "Invalid plan parameters")
		api.ErrorResponse(w, r, http.StatusBadRequest, "name, non-negative price_cents and positive duration_days are required")
		return
	}

	plan, err := h.planService.CreatePlan(ctx, params)
	if err != nil {
		if errors.Is(err, types.ErrConcurrencyConflict) {
			span.SetStatus(codes.Error, "Duplicate plan name")
			api.ErrorResponse(w, r, http.StatusConflict, "A plan with that name already exists")
			return
		}
		l.ErrorContext(ctx, "Failed to create plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to create plan")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to create plan")
		return
	}

	span.SetStatus(codes.Ok, "Plan created")
	api.WriteJSONResponse(w, r, http.StatusCreated, plan)
}

// UpdatePlan partially updates a catalog plan (admin only).
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlanHandler").Start(r.Context(), "UpdatePlan", trace.WithAttributes(
		semconv.HTTPRequestMethodKey.String(r.Method),
		semconv.HTTPRouteKey.String("/admin/plans/{planID}"),
	))
	defer span.End()

	l := h.logger.With(slog.String("handler", "UpdatePlan"))

	planIDStr := chi.URLParam(r, "planID")
	planID, err := uuid.Parse(planIDStr)
	if err != nil {
		l.WarnContext(ctx, "Invalid plan ID format", slog.String("plan_id_str", planIDStr), slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid plan ID format")
		api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid plan ID format in URL")
		return
	}

	var params types.UpdatePlanParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		l.WarnContext(ctx, "Failed to decode request body", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, fmt.Sprintf("Invalid request format: %s", err.Error()))
		return
	}

	plan, err := h.planService.UpdatePlan(ctx, planID, params)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			span.SetStatus(codes.Error, "Plan not found")
			api.ErrorResponse(w, r, http.StatusNotFound, "Plan not found")
			return
		}
		l.ErrorContext(ctx, "Failed to update plan", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Failed to update plan")
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Failed to update plan")
		return
	}

	span.SetStatus(codes.Ok, "Plan updated")
	api.WriteJSONResponse(w, r, http.StatusOK, plan)
}
