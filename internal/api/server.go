package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hanakhry/JARR/internal/ports"
)

// Server exposes the article resource over HTTP.
type Server struct {
	articles   ports.ArticleRepository
	feeds      ports.FeedRepository
	categories ports.CategoryRepository
	users      ports.UserRepository
	secret     []byte
	logger     *slog.Logger
}

// Deps wires the repositories and settings the server needs.
type Deps struct {
	Articles   ports.ArticleRepository
	Feeds      ports.FeedRepository
	Categories ports.CategoryRepository
	Users      ports.UserRepository
	JWTSecret  string
	Logger     *slog.Logger
}

// New builds the server.
func New(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		articles:   deps.Articles,
		feeds:      deps.Feeds,
		categories: deps.Categories,
		users:      deps.Users,
		secret:     []byte(deps.JWTSecret),
		logger:     logger,
	}
}

// Router assembles the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/articles", s.listArticles)
		r.Get("/articles/challenge", s.challengeArticles)
		r.Post("/articles", s.createArticleBatch)

		r.Post("/article", s.createArticle)
		r.Get("/article/{id}", s.getArticle)
		r.Put("/article/{id}", s.updateArticle)
		r.Delete("/article/{id}", s.deleteArticle)
	})

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("write response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int) {
	s.writeJSON(w, status, map[string]string{"error": statusString(status)})
}

func statusString(status int) string {
	return fmt.Sprintf("%d: %s", status, http.StatusText(status))
}
