package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mmeshcher/laundryhub/internal/metrics"
	custommiddleware "github.com/mmeshcher/laundryhub/internal/middleware"
	"github.com/mmeshcher/laundryhub/internal/model"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(metrics.InstrumentHandler)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Recoverer(h.logger))
	r.Use(custommiddleware.CORS)
	r.Use(custommiddleware.GzipMiddleware)

	requireAdmin := custommiddleware.RequireRole(model.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		if h.rateLimiter != nil {
			r.Use(h.rateLimiter.Handler)
		}

		r.Route("/users", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/login/mfa", h.LoginMFA)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.Get("/me", h.Me)
				r.Post("/mfa/setup", h.SetupMFA)
				r.Post("/mfa/verify", h.VerifyMFA)

				r.With(requireAdmin).Get("/", h.ListUsers)
				r.With(requireAdmin).Delete("/{id}", h.DeleteUser)
				r.With(requireAdmin).Put("/{id}/role", h.UpdateUserRole)
			})
		})

		r.Route("/services", func(r chi.Router) {
			r.Get("/", h.ListServices)

			r.Group(func(r chi.Router) {
				r.Use(h.authMiddleware.Middleware)

				r.With(custommiddleware.RequireRole(model.RoleServiceProvider)).Post("/", h.CreateService)
				r.Put("/{id}", h.UpdateService)
				r.Delete("/{id}", h.DeleteService)
			})
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Get("/my", h.MyOrders)

			r.Group(func(r chi.Router) {
				r.Use(custommiddleware.RequireRole(model.RoleUser))

				r.Post("/", h.PlaceOrder)
				r.Post("/checkout", h.Checkout)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/", h.ListOrders)
				r.Put("/{id}", h.UpdateOrderStatus)
				r.Delete("/{id}", h.DeleteOrder)
			})
		})

		r.Route("/wallet", func(r chi.Router) {
			r.Use(h.authMiddleware.Middleware)

			r.Post("/request", h.RequestFunds)
			r.Get("/my-requests", h.MyFundRequests)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)

				r.Get("/all-requests", h.PendingFundRequests)
				r.Put("/approve/{id}", h.ApproveFundRequest)
				r.Put("/reject/{id}", h.RejectFundRequest)
			})
		})
	})

	if h.images != nil {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.images.Dir())))
		r.Handle("/uploads/*", fs)
	}

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", h.Health)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusNotFound, "Route not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
