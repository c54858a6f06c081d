// Package server provides the HTTP API for the chatbot.
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/finbot/internal/config"
	"github.com/hyperjump/finbot/internal/models"
)

// APIPrefix is the path under which every route is mounted a second time.
const APIPrefix = "/api/v1/chatbot"

// ChatResponder answers one chat message.
type ChatResponder interface {
	Answer(ctx context.Context, query, userID string) (*models.ChatResponse, error)
}

// Ingester ingests a batch of uploaded files.
type Ingester interface {
	Ingest(ctx context.Context, files []models.UploadFile, userID, source string) (*models.UploadResult, error)
}

// AdminService serves health, status and clear-all.
type AdminService interface {
	Health() *models.HealthResponse
	Authorize(key string) error
	ClearAll(ctx context.Context, key string) (*models.ClearResponse, error)
	Status(ctx context.Context) (*models.StatusResponse, error)
}

// WatchService manages inbox directories at runtime.
type WatchService interface {
	Directories() []string
	AddDirectory(path string, syncExisting bool) error
	RemoveDirectory(path string) error
}

// Server is the HTTP server for the chatbot API. Any collaborator may be
// missing; its routes then answer 503 (501 for watch).
type Server struct {
	responder ChatResponder
	ingester  Ingester
	admin     AdminService
	watch     WatchService

	config     *config.ServerConfig
	configPath string // watch directory changes are written here
	persistMu  sync.Mutex
	logger     *zap.Logger
	server     *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithResponder enables POST /chat.
func WithResponder(r ChatResponder) Option {
	return func(s *Server) { s.responder = r }
}

// WithIngester enables document uploads.
func WithIngester(i Ingester) Option {
	return func(s *Server) { s.ingester = i }
}

// WithAdmin enables clear-all and status.
func WithAdmin(a AdminService) Option {
	return func(s *Server) { s.admin = a }
}

// WithWatch enables the watch directory endpoints. When configPath is set,
// directory changes are saved back to the config file.
func WithWatch(w WatchService, configPath string) Option {
	return func(s *Server) {
		s.watch = w
		s.configPath = configPath
	}
}

// NewServer creates a server with the given settings and collaborators.
func NewServer(cfg *config.ServerConfig, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{config: cfg, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed handler with the middleware stack applied.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	if s.config.RequestTimeout > 0 {
		r.Use(middleware.Timeout(s.config.RequestTimeout))
	}
	r.Use(middleware.Compress(5))
	r.Use(s.corsHandler())

	s.routes(r)
	r.Route(APIPrefix, s.routes)
	return r
}

func (s *Server) routes(r chi.Router) {
	r.Post("/chat", s.handleChat)
	r.Post("/documents/upload-multiple", s.handleUploadMultiple)
	r.Delete("/documents/clear-all", s.handleClearAll)
	r.Get("/documents/status", s.handleStatus)
	r.Get("/health", s.handleHealth)

	r.Get("/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/watch/directories", s.handleWatchDirectoriesRemove)
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
