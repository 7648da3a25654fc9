package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appMiddleware "github.com/melodia-app/subscriptions/app/middleware"
	"github.com/melodia-app/subscriptions/internal/api/plan"
	"github.com/melodia-app/subscriptions/internal/api/subscription"
)

// Config contains dependencies needed for the router setup
type Config struct {
	PlanHandler         *plan.Handler
	SubscriptionHandler *subscription.Handler
	IdentityMiddleware  func(http.Handler) http.Handler
}

// SetupRouter initializes and configures the main application router.
// Server-wide middleware (logger, requestID, recoverer) are expected to be
// applied *before* mounting this router in main.go.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", appMiddleware.UserIDHeader, appMiddleware.RoleHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Heartbeat endpoint for the load balancer
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	r.Route("/api/v1", func(r chi.Router) {

		// --- Public catalog routes ---
		r.Group(func(r chi.Router) {
			r.Get("/plans", cfg.PlanHandler.ListPlans)
			r.Get("/plans/{name}", cfg.PlanHandler.GetPlanByName)
		})

		// --- Routes requiring a resolved identity ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.IdentityMiddleware)

			r.Post("/payments/confirm", cfg.SubscriptionHandler.ConfirmPayment)
			r.Get("/subscriptions/me", cfg.SubscriptionHandler.GetCurrentSubscription)
		})

		// --- Admin routes ---
		r.Group(func(r chi.Router) {
			r.Use(cfg.IdentityMiddleware)
			r.Use(appMiddleware.RequireRole("admin"))

			r.Post("/admin/plans", cfg.PlanHandler.CreatePlan)
			r.Put("/admin/plans/{planID}", cfg.PlanHandler.UpdatePlan)
			r.Post("/admin/users/{userID}/subscription", cfg.SubscriptionHandler.GrantSubscription)
			r.Put("/admin/users/{userID}/subscription", cfg.SubscriptionHandler.UpdateSubscription)
			r.Delete("/admin/subscriptions/{subscriptionID}", cfg.SubscriptionHandler.CancelSubscription)
		})
	})

	return r
}
