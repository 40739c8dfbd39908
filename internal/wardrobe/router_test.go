package wardrobe

import (
	"github.com/go-chi/chi/v5"
)

// newTestRouter mounts the handlers that read URL params, so tests can
// exercise them through real route matching.
func newTestRouter(h Handler) chi.Router {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Route("/fragrances/{id}", func(r chi.Router) {
			r.Get("/", h.GetFragrance)
			r.Patch("/favorite", h.SetFavorite)
			r.Delete("/", h.DeleteFragrance)
		})
		r.Delete("/layerings/{baseID}/{layerID}", h.DeleteSavedLayering)
	})
	return r
}
