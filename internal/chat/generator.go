// Package chat answers questions about a document with retrieval-augmented,
// streamed completions.
package chat

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/pdfchat-server/internal/store"
	"github.com/bull/pdfchat-server/internal/vectordb"
)

const (
	// RetrievalK is how many nearest chunks ground each answer.
	RetrievalK = 4

	// HistoryWindow is how many prior messages the prompt carries.
	HistoryWindow = 6
)

// Documents gates access: a document that is missing or owned by someone
// else yields store.ErrNotFound.
type Documents interface {
	GetOwned(ctx context.Context, id, userID string) (*store.Document, error)
}

// Messages persists and reads chat turns.
type Messages interface {
	Create(ctx context.Context, msg *store.Message) error
	RecentWindow(ctx context.Context, documentID string, limit int) ([]store.Message, error)
}

// Embedder embeds the question into the same space the chunks live in.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// Searcher retrieves the nearest chunks within one document's namespace.
type Searcher interface {
	SearchChunks(ctx context.Context, documentID string, vector []float32, limit int) ([]vectordb.ScoredChunk, error)
}

// Completer invokes the model in streaming mode.
type Completer interface {
	Complete(ctx context.Context, prompt Prompt) (TokenStream, error)
}

// Generator runs the query-time pipeline: ownership gate, persist question,
// retrieve, assemble, stream.
type Generator struct {
	docs      Documents
	msgs      Messages
	embedder  Embedder
	searcher  Searcher
	completer Completer
	logger    *slog.Logger
}

func NewGenerator(docs Documents, msgs Messages, embedder Embedder, searcher Searcher, completer Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		docs:      docs,
		msgs:      msgs,
		embedder:  embedder,
		searcher:  searcher,
		completer: completer,
		logger:    logger,
	}
}

// Answer streams the model's reply to question about the given document.
//
// The user's question is durably persisted before any retrieval or model
// call, so concurrent requests always see it in history. The returned stream
// persists the assistant's reply only when it completes naturally; an error
// or client abort mid-stream leaves no assistant row.
func (g *Generator) Answer(ctx context.Context, documentID, userID, question string) (TokenStream, error) {
	doc, err := g.docs.GetOwned(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc.Status != store.StatusSuccess {
		return nil, fmt.Errorf("%w: status %s", ErrNotReady, doc.Status)
	}

	userMsg := &store.Message{
		DocumentID:    documentID,
		UserID:        userID,
		Text:          question,
		IsUserMessage: true,
	}
	if err := g.msgs.Create(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("persist question: %w", err)
	}

	vector, err := g.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	hits, err := g.searcher.SearchChunks(ctx, documentID, vector, RetrievalK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	// The window holds prior turns; the question itself is already the
	// prompt's final section and must not appear twice.
	window, err := g.msgs.RecentWindow(ctx, documentID, HistoryWindow+1)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := priorWindow(window, userMsg.ID, HistoryWindow)

	prompt := BuildPrompt(history, hits, question)

	stream, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	g.logger.Debug("answer stream opened",
		"document", documentID,
		"chunks", len(hits),
		"history", len(history),
	)

	return newReconciler(ctx, stream, g.msgs, documentID, userID, g.logger), nil
}

// priorWindow drops the just-persisted question from the history window and
// trims to limit, keeping the most recent turns.
func priorWindow(window []store.Message, selfID string, limit int) []store.Message {
	out := make([]store.Message, 0, len(window))
	for _, msg := range window {
		if msg.ID == selfID {
			continue
		}
		out = append(out, msg)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
