/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind proxies
  3. requestLogger: Structured request log line per request (zerolog)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for the admin console frontend

ROUTE GROUPS:
  /api/bookings/*       Booking, item, total and installment operations
  /api/price-changes/*  Approval workflow for pending adjustments
  /healthz              Liveness probe

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
			r.Post("/{id}/confirm", h.ConfirmBooking)

			r.Post("/{id}/items", h.AddItem)
			r.Delete("/{id}/items/{itemID}", h.RemoveItem)
			r.Put("/{id}/items/{itemID}", h.ReplaceItem)
			r.Put("/{id}/items/{itemID}/price", h.SetItemPrice)

			r.Post("/{id}/discount", h.ApplyDiscount)
			r.Delete("/{id}/discount", h.ClearDiscount)
			r.Put("/{id}/total", h.SetManualTotal)

			r.Get("/{id}/due", h.GetDue)
			r.Post("/{id}/request-amount", h.SetRequestedAmount)
			r.Post("/{id}/payments", h.CollectPayment)
			r.Get("/{id}/payments", h.ListPayments)

			r.Get("/{id}/price-changes", h.ListPriceChanges)
		})

		r.Route("/price-changes", func(r chi.Router) {
			r.Post("/{id}/approve", h.ApprovePriceChange)
			r.Post("/{id}/reject", h.RejectPriceChange)
		})
	})

	return r
}

// requestLogger emits one structured line per completed request.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
