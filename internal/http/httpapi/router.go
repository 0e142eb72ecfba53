// Package httpapi assembles the chi router.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"ashserver/internal/http/handlers"
	"ashserver/internal/infra/clerk"
	"ashserver/internal/middleware"
)

// Options carries the router's cross-cutting dependencies.
type Options struct {
	App             *handlers.App
	Verifier        clerk.SessionVerifier
	Logger          zerolog.Logger
	AllowedOrigins  []string
	CountryLookup   middleware.CountryLookup
	RateLimitPerMin int
	VideosDir       string
}

// NewRouter wires middleware and routes. Video artifacts are served
// statically under /videos/ so the embedded player snippets resolve.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		chimw.RealIP,
		chimw.Recoverer,
		middleware.RequestID,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
		middleware.I18N("en", opts.CountryLookup),
	)
	if opts.RateLimitPerMin > 0 {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute))
	}

	r.Get("/v1/healthz", opts.App.Health)

	fileServer := http.StripPrefix("/videos/", http.FileServer(http.Dir(opts.VideosDir)))
	r.Get("/videos/*", fileServer.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(opts.Verifier))
		r.Post("/chats", opts.App.ChatsCreate)
		r.Get("/userchats", opts.App.UserChats)
		r.Route("/chats/{id}", func(r chi.Router) {
			r.Get("/", opts.App.ChatByID)
			r.Post("/message", opts.App.ChatMessage)
			r.Get("/pdf", opts.App.ChatPDF)
		})
	})

	return r
}
