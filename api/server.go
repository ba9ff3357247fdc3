/*
server.go - HTTP router setup

PURPOSE:
  Wires the chi router: middleware stack, CORS for the admin UI, and the
  route table mapping URLs to handlers.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter builds the full route table over the given stores.
func NewRouter(stores Stores) http.Handler {
	h := NewHandler(stores)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/plans", func(r chi.Router) {
			r.Post("/preview", h.PreviewPlan)
			r.Post("/", h.CreatePlan)
			r.Get("/", h.ListPlans)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetPlan)
				r.Put("/", h.UpdatePlan)
				r.Post("/payments", h.ApplyPayment)
				r.Route("/installments/{number}", func(r chi.Router) {
					r.Post("/custom-amount", h.SetCustomAmount)
					r.Post("/reset", h.ResetCustomAmount)
				})
			})
		})

		r.Post("/proration/quote", h.QuoteProration)

		r.Route("/expenses", func(r chi.Router) {
			r.Route("/templates", func(r chi.Router) {
				r.Post("/", h.CreateTemplate)
				r.Get("/", h.ListTemplates)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.GetTemplate)
					r.Put("/", h.UpdateTemplate)
					r.Delete("/", h.DeactivateTemplate)
					r.Post("/generate", h.GenerateOccurrences)
				})
			})
			r.Get("/occurrences", h.ListOccurrences)
			r.Post("/occurrences/{id}/pay", h.PayOccurrence)
			r.Get("/dashboard", h.Dashboard)
		})

		r.Route("/institutions/{id}/rates", func(r chi.Router) {
			r.Get("/", h.GetRates)
			r.Put("/", h.SaveRates)
		})
	})

	return r
}
