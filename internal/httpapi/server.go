// Package httpapi exposes the service over HTTP: auth, upload completion,
// document status, message history, and the streaming chat endpoint.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bull/pdfchat-server/internal/auth"
	"github.com/bull/pdfchat-server/internal/chat"
	"github.com/bull/pdfchat-server/internal/store"
)

// Answerer streams a grounded answer for a question about a document.
type Answerer interface {
	Answer(ctx context.Context, documentID, userID, question string) (chat.TokenStream, error)
}

// Ingestor runs the ingestion pipeline for a newly uploaded document.
type Ingestor interface {
	Ingest(ctx context.Context, doc *store.Document) error
}

// HealthChecker reports vector store liveness for the health endpoint.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Config holds the server's collaborators.
type Config struct {
	Users    *store.UserRepo
	Docs     *store.DocumentRepo
	Msgs     *store.MessageRepo
	Auth     *auth.Manager
	Answerer Answerer
	Ingestor Ingestor
	Health   HealthChecker
	Logger   *slog.Logger
}

// Server wires handlers onto a gin engine.
type Server struct {
	router   *gin.Engine
	users    *store.UserRepo
	docs     *store.DocumentRepo
	msgs     *store.MessageRepo
	auth     *auth.Manager
	answerer Answerer
	ingestor Ingestor
	health   HealthChecker
	logger   *slog.Logger

	// ingestAsync is disabled in tests so handlers can be asserted against
	// the pipeline's outcome synchronously.
	ingestAsync bool
}

// NewServer builds the router with all routes registered.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		router:      gin.New(),
		users:       cfg.Users,
		docs:        cfg.Docs,
		msgs:        cfg.Msgs,
		auth:        cfg.Auth,
		answerer:    cfg.Answerer,
		ingestor:    cfg.Ingestor,
		health:      cfg.Health,
		logger:      logger,
		ingestAsync: true,
	}

	s.router.Use(gin.Recovery())

	s.router.GET("/healthz", s.handleHealth)
	s.router.POST("/api/auth/register", s.handleRegister)
	s.router.POST("/api/auth/login", s.handleLogin)

	authed := s.router.Group("/api", auth.Middleware(cfg.Auth))
	{
		authed.POST("/uploads/complete", s.handleUploadComplete)
		authed.GET("/documents", s.handleListDocuments)
		authed.GET("/documents/:id", s.handleGetDocument)
		authed.GET("/documents/:id/messages", s.handleListMessages)
		authed.POST("/message", s.handleSendMessage)
	}

	return s
}

// Handler returns the root http.Handler for serving.
func (s *Server) Handler() http.Handler {
	return s.router
}
