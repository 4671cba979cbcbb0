// Package main provides the pdfchat operations CLI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/pdfchat-server/internal/embedding"
	"github.com/bull/pdfchat-server/internal/ingest"
	"github.com/bull/pdfchat-server/internal/pdftext"
	"github.com/bull/pdfchat-server/internal/store"
	"github.com/bull/pdfchat-server/internal/vectordb"
)

var rootCmd = &cobra.Command{
	Use:   "pdfchat",
	Short: "Operations tool for the PDF chat service",
	Long:  "CLI tool for inspecting documents and re-running ingestion",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <document-id>",
	Short: "Re-run ingestion for a failed document",
	Long: `Re-runs the ingestion pipeline for an existing document.

This command:
1. Connects to Qdrant and verifies health
2. Looks up the document record
3. Resets the document to PROCESSING
4. Fetches, extracts, embeds, and stores the document again

Only documents in FAILED status are eligible.

Environment variables:
  DATABASE_PATH  SQLite database path (default: pdfchat.db)
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Print a document's ingestion status",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()
	documentID := args[0]

	// Get environment configuration
	databasePath := getEnv("DATABASE_PATH", "pdfchat.db")
	qdrantHost := getEnv("QDRANT_HOST", "localhost")
	qdrantPort := getEnvInt("QDRANT_PORT", 6334)
	maxPages := getEnvInt("MAX_PAGES", 5)

	// 1. Look up the document
	db, err := store.Open(databasePath)
	if err != nil {
		return fmt.Errorf("Failed to open database: %w", err)
	}
	docs := store.NewDocumentRepo(db)

	doc, err := docs.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("Failed to look up document: %w", err)
	}
	fmt.Printf("Document: %s (%s)\n", doc.Name, doc.ID)
	fmt.Printf("Status: %s\n", doc.Status)

	if doc.Status != store.StatusFailed {
		return fmt.Errorf("document is %s, only FAILED documents can be re-ingested", doc.Status)
	}

	// 2. Connect to Qdrant
	fmt.Printf("Connecting to Qdrant at %s:%d...\n", qdrantHost, qdrantPort)
	vectors, err := vectordb.NewStore(qdrantHost, qdrantPort)
	if err != nil {
		return fmt.Errorf("Failed to connect to Qdrant: %w", err)
	}
	defer vectors.Close()

	// 3. Check health
	if err := vectors.Health(ctx); err != nil {
		return fmt.Errorf("Qdrant health check failed: %w", err)
	}
	fmt.Println("Qdrant healthy")

	// 4. Ensure collection exists
	if err := vectors.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("Failed to ensure collection: %w", err)
	}

	// 5. Initialize embedding client
	openaiClient, err := embedding.NewClient(os.Getenv("OPENAI_API_KEY"))
	if err != nil {
		return fmt.Errorf("Failed to create OpenAI client: %w", err)
	}
	embedder := embedding.NewEmbedder(openaiClient, 0) // Use default batch size

	// 6. Reset the record before re-running so a crash mid-ingest leaves the
	// document PROCESSING rather than stale FAILED
	if err := docs.SetStatus(ctx, doc.ID, store.StatusProcessing); err != nil {
		return fmt.Errorf("Failed to reset status: %w", err)
	}

	// 7. Run the pipeline
	pipeline := ingest.NewPipeline(
		ingest.NewHTTPFetcher(0),
		pdftext.NewExtractor(maxPages),
		embedder,
		vectors,
		docs,
		slog.Default(),
	)

	fmt.Println()
	fmt.Println("Re-running ingestion...")
	if err := pipeline.Ingest(ctx, doc); err != nil {
		return fmt.Errorf("Ingestion failed: %w", err)
	}

	// 8. Print results
	count, err := vectors.CountChunks(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("Failed to count chunks: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Chunks: %d\n", count)
	fmt.Printf("  Duration: %s\n", time.Since(start).Round(time.Second))

	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	documentID := args[0]

	databasePath := getEnv("DATABASE_PATH", "pdfchat.db")

	db, err := store.Open(databasePath)
	if err != nil {
		return fmt.Errorf("Failed to open database: %w", err)
	}
	docs := store.NewDocumentRepo(db)

	doc, err := docs.Get(ctx, documentID)
	if err != nil {
		return fmt.Errorf("Failed to look up document: %w", err)
	}

	fmt.Printf("Document: %s\n", doc.ID)
	fmt.Printf("  Name: %s\n", doc.Name)
	fmt.Printf("  Owner: %s\n", doc.UserID)
	fmt.Printf("  Status: %s\n", doc.Status)
	fmt.Printf("  Uploaded: %s\n", doc.CreatedAt.Format(time.RFC3339))

	return nil
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
