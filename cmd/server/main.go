// Package main provides the HTTP server entry point.
package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/bull/pdfchat-server/internal/auth"
	"github.com/bull/pdfchat-server/internal/chat"
	"github.com/bull/pdfchat-server/internal/config"
	"github.com/bull/pdfchat-server/internal/embedding"
	"github.com/bull/pdfchat-server/internal/httpapi"
	"github.com/bull/pdfchat-server/internal/ingest"
	"github.com/bull/pdfchat-server/internal/pdftext"
	"github.com/bull/pdfchat-server/internal/store"
	"github.com/bull/pdfchat-server/internal/vectordb"
)

func main() {
	// Load .env file if present (local development), ignore if missing.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	users := store.NewUserRepo(db)
	docs := store.NewDocumentRepo(db)
	msgs := store.NewMessageRepo(db)

	vectors, err := vectordb.NewStore(cfg.QdrantHost, cfg.QdrantPort)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer vectors.Close()

	if err := vectors.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	openaiClient, err := embedding.NewClient(cfg.OpenAIAPIKey)
	if err != nil {
		log.Fatalf("failed to create OpenAI client: %v", err)
	}
	embedder := embedding.NewEmbedder(openaiClient, 0)

	pipeline := ingest.NewPipeline(
		ingest.NewHTTPFetcher(cfg.FetchTimeout),
		pdftext.NewExtractor(cfg.MaxPages),
		embedder,
		vectors,
		docs,
		logger,
	)

	generator := chat.NewGenerator(docs, msgs, embedder,
		vectors, chat.NewOpenAICompleter(openaiClient), logger)

	authManager, err := auth.NewManager(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("failed to create auth manager: %v", err)
	}

	api := httpapi.NewServer(httpapi.Config{
		Users:    users,
		Docs:     docs,
		Msgs:     msgs,
		Auth:     authManager,
		Answerer: generator,
		Ingestor: pipeline,
		Health:   vectors,
		Logger:   logger,
	})

	server := &http.Server{
		Addr:    "0.0.0.0:" + cfg.Port,
		Handler: api.Handler(),
	}

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}
