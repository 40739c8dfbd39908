package server

import (
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"scentMateAi/internal/auth"
	"scentMateAi/internal/wardrobe"
)

// New constructs the HTTP server with routes and middleware.
func New(port string, authHandler auth.Handler, authMiddleware auth.Middleware, wardrobeHandler wardrobe.Handler) *http.Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	router.Route("/api", func(r chi.Router) {
		r.Use(authMiddleware.InjectUser)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.With(auth.RequireAuth).Get("/me", authHandler.Me)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth)

			r.Route("/fragrances", func(r chi.Router) {
				r.Get("/", wardrobeHandler.ListFragrances)
				r.Post("/", wardrobeHandler.CreateFragrance)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", wardrobeHandler.GetFragrance)
					r.Patch("/favorite", wardrobeHandler.SetFavorite)
					r.Delete("/", wardrobeHandler.DeleteFragrance)
				})
			})

			r.Route("/profile", func(r chi.Router) {
				r.Get("/", wardrobeHandler.GetTasteProfile)
				r.Post("/refresh", wardrobeHandler.RefreshTasteProfile)
			})

			r.Post("/recommend", wardrobeHandler.Recommend)

			r.Route("/layerings", func(r chi.Router) {
				r.Get("/", wardrobeHandler.ListSavedLayerings)
				r.Post("/", wardrobeHandler.SaveLayering)
				r.Post("/plan", wardrobeHandler.PlanLayerings)
				r.Delete("/{baseID}/{layerID}", wardrobeHandler.DeleteSavedLayering)
			})

			r.Post("/discover", wardrobeHandler.Discover)
			r.Post("/identify", wardrobeHandler.Identify)
			r.Get("/events", wardrobeHandler.StreamEvents)
		})
	})

	srv := &http.Server{
		Addr:        ":" + port,
		Handler:     router,
		ReadTimeout: 10 * time.Second,
		// SSE connections stay open; only cap the idle read side.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	log.Println("server ready on", srv.Addr)
	return srv
}
