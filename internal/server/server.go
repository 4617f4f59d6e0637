// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"shareboard/internal/config"
	"shareboard/internal/domain/post"
	"shareboard/internal/domain/user"
	"shareboard/internal/server/handlers"
	"shareboard/internal/service/realtime"
)

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// NewServer creates a new HTTP server
func NewServer(
	cfg config.ServerConfig,
	postService post.Service,
	userStore user.Store,
	hub *realtime.Hub,
) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Create handler dependencies
	postHandler := handlers.NewPostHandler(postService, userStore)

	// Routes
	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		// API version
		r.Route("/v1", func(r chi.Router) {
			// Posts API
			r.Route("/posts", func(r chi.Router) {
				r.Post("/", postHandler.CreatePost)
				r.Get("/search", postHandler.SearchPosts)
				r.Get("/{id}", postHandler.GetPost)
				r.Patch("/{id}", postHandler.UpdatePost)
				r.Delete("/{id}", postHandler.DeletePost)

				// Membership
				r.Post("/{id}/membership", postHandler.JoinPost)
				r.Delete("/{id}/membership", postHandler.LeavePost)

				// Ownership
				r.Put("/{id}/ownership", postHandler.TransferOwnership)
			})
		})
	})

	// WebSocket endpoints for real-time communications
	router.Get("/ws/posts", handlers.PostEventsHandler(hub))
	router.Get("/ws/notifications", handlers.NotificationEventsHandler(hub))

	// Create HTTP server
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
