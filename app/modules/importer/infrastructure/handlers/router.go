package importerhandlers

import (
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"

	importerjwt "github.com/combine-hq/combine-server/app/modules/importer/infrastructure/jwt"
)

// RegisterRoutes mounts the import API under /api. Every route sits behind
// CORS, the per-IP rate limit, and bearer-token authentication.
func RegisterRoutes(router chi.Router, h *ImportHandlers, provider importerjwt.Provider, allowedOrigins []string) {
	limiter := NewIPRateLimiter(rate.Limit(10), 20)

	router.Route("/api", func(r chi.Router) {
		r.Use(CORSMiddleware(allowedOrigins))
		r.Use(RateLimitMiddleware(limiter))
		r.Use(ActorMiddleware(provider))

		r.Route("/events/{eventID}/import", func(r chi.Router) {
			r.Post("/sessions", h.HandleStartSession)
			r.Post("/draft/resume", h.HandleResumeSession)
			r.Delete("/draft", h.HandleDiscardDraft)
			r.Get("/history", h.HandleHistory)
		})

		r.Route("/import/sessions/{sessionID}", func(r chi.Router) {
			r.Get("/", h.HandleGetSession)
			r.Delete("/", h.HandleCloseSession)
			r.Post("/source", h.HandleProvideSource)
			r.Post("/sheet", h.HandleSelectSheet)
			r.Post("/back", h.HandleBackToInput)

			r.Put("/mapping", h.HandleSetMapping)
			r.Put("/rows/{rowID}", h.HandleEditRow)
			r.Put("/rows/{rowID}/strategy", h.HandleSetRowStrategy)
			r.Put("/conflict-default", h.HandleSetConflictDefault)
			r.Post("/acknowledgements", h.HandleAcknowledge)

			r.Get("/preflight", h.HandlePreflight)
			r.Post("/submit", h.HandleSubmit)
			r.Post("/revert", h.HandleRevert)
		})
	})
}
