package routes

import (
	"net/http"

	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/handlers"
	"github.com/Ayman-Nadim/SmartAqar-Full-Stack/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// SetupRoutes mounts the API on r. uploadsDir is served under /uploads/ when
// not empty.
func SetupRoutes(r chi.Router, h *handlers.Handler, uploadsDir string) {
	requireAuth := middleware.RequireAuth(h.Tokens, h.Users)
	bulk := middleware.BulkRateLimit()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/api/test", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Backend is working!"}`))
	})

	if uploadsDir != "" {
		fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploadsDir)))
		r.Handle("/uploads/*", fs)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/sync-confirmed", h.SyncConfirmedByToken)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/profile", h.Profile)

			r.Route("/properties", func(r chi.Router) {
				r.Get("/", h.ListProperties)
				r.Post("/", h.CreateProperty)
				r.Get("/stats/overview", h.PropertyStats)
				r.With(bulk).Post("/import", h.ImportProperties)
				r.Get("/{id}", h.GetProperty)
				r.Put("/{id}", h.UpdateProperty)
				r.Delete("/{id}", h.DeleteProperty)
			})

			r.Route("/prospects", func(r chi.Router) {
				r.Get("/", h.ListProspects)
				r.Post("/", h.CreateProspect)
				r.Get("/stats", h.ProspectStats)
				r.With(bulk).Post("/import", h.ImportProspects)
				r.Get("/{id}", h.GetProspect)
				r.Put("/{id}", h.UpdateProspect)
				r.Delete("/{id}", h.DeleteProspect)
				r.Patch("/{id}/status", h.UpdateProspectStatus)
				r.Post("/{id}/interactions", h.AddInteraction)
			})

			r.With(bulk).Post("/imports/preview", h.PreviewImport)

			r.Route("/campaigns", func(r chi.Router) {
				r.Get("/templates", h.ListTemplates)
				r.Get("/matches", h.GetMatches)
				r.With(bulk).Post("/matches/refresh", h.RefreshMatches)
				r.With(bulk).Post("/preview", h.PreviewCampaign)
			})
		})
	})

	// Profile and provider routes, kept outside /api/v1 for existing clients.
	r.Route("/user", func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/profile", h.GetUserProfile)
		r.Put("/profile", h.UpdateUserProfile)
		r.Get("/credit", h.GetCredit)
		r.Post("/link-confirmed", h.LinkConfirmed)
		r.Get("/sync-confirmed", h.SyncConfirmed)
	})

	// Realtime campaign dispatch
	r.With(requireAuth, bulk).Get("/ws/campaigns/dispatch", h.DispatchCampaign)
}
