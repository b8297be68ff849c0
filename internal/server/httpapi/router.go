package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter assembles the API routes with logging, recovery and CORS.
func NewRouter(h *Handler, log *zap.Logger, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(Recover(log))
	r.Use(Logging(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "OK",
			"timestamp": time.Now().UTC(),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/refresh", h.Refresh)
			r.Post("/logout", h.Logout)

			r.Group(func(r chi.Router) {
				r.Use(h.Authenticate)
				r.Get("/me", h.Me)
			})
		})

		r.Route("/items", func(r chi.Router) {
			r.Use(h.Authenticate)
			r.Get("/", h.ListItems)
			r.Get("/{id}", h.GetItem)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Post("/", h.CreateItem)
				r.Patch("/{id}", h.UpdateItem)
				r.Delete("/{id}", h.DeleteItem)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})

	return r
}
