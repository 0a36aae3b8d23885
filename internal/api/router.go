package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/saga/internal/narrative"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *narrative.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/series", h.ListSeries)
	r.Post("/series", h.CreateSeries)

	r.Route("/series/{seriesID}", func(r chi.Router) {
		r.Get("/", h.GetSeries)
		r.Patch("/", h.UpdateSeries)
		r.Post("/archive", h.ArchiveSeries)

		r.Get("/books", h.ListBooks)
		r.Post("/books", h.CreateBook)
		r.Patch("/books/{bookID}", h.UpdateBook)

		r.Get("/characters", h.ListCharacters)
		r.Post("/characters", h.CreateCharacter)
		r.Patch("/characters/{characterID}", h.UpdateCharacter)

		r.Get("/world-elements", h.ListWorldElements)
		r.Post("/world-elements", h.CreateWorldElement)
		r.Post("/world-elements/{elementID}/deactivate", h.DeactivateWorldElement)

		r.Get("/arcs", h.ListArcs)
		r.Post("/arcs", h.CreateArc)
		r.Post("/arcs/{arcID}/transition", h.TransitionArc)
		r.Put("/arcs/{arcID}/completion", h.SetArcCompletion)

		r.Get("/canon-rules", h.ListCanonRules)
		r.Post("/canon-rules", h.CreateCanonRule)

		r.Get("/context", h.CompileContext)
		r.Post("/canon/evaluate", h.EvaluateCanon)
		r.Post("/canon/review", h.ReviewContent)
		r.Get("/overrides", h.ListOverrides)
		r.Get("/search", h.SearchSeries)
	})

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
