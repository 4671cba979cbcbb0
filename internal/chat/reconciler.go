package chat

import (
	"context"
	"log/slog"
	"strings"

	"github.com/bull/pdfchat-server/internal/store"
)

// reconciler wraps a token stream, forwarding each fragment unchanged while
// accumulating the full text. When the underlying stream ends naturally it
// persists the accumulated text as the assistant's message, exactly once.
// A stream that errors or is aborted persists nothing: a strict prefix of
// the reply must never be written as if it were the reply.
//
// One reconciler exists per in-flight request and owns its buffer
// exclusively, which is what makes "at most one assistant message per
// completed stream" hold without locking.
type reconciler struct {
	inner      TokenStream
	msgs       Messages
	documentID string
	userID     string
	logger     *slog.Logger

	// persistCtx survives the request context: by the time the final token
	// has been delivered the client may already have hung up, and that must
	// not lose the completed reply.
	persistCtx context.Context

	acc       strings.Builder
	persisted bool
}

func newReconciler(ctx context.Context, inner TokenStream, msgs Messages, documentID, userID string, logger *slog.Logger) *reconciler {
	return &reconciler{
		inner:      inner,
		msgs:       msgs,
		documentID: documentID,
		userID:     userID,
		logger:     logger,
		persistCtx: context.WithoutCancel(ctx),
	}
}

func (r *reconciler) Next() bool {
	if r.inner.Next() {
		r.acc.WriteString(r.inner.Current())
		return true
	}

	// Stream exhausted. Err() == nil distinguishes natural completion from
	// an abort; only the former persists.
	if r.inner.Err() == nil && !r.persisted {
		r.persisted = true
		msg := &store.Message{
			DocumentID:    r.documentID,
			UserID:        r.userID,
			Text:          r.acc.String(),
			IsUserMessage: false,
		}
		if err := r.msgs.Create(r.persistCtx, msg); err != nil {
			// The tokens are already delivered; all we can do is record it.
			r.logger.Error("failed to persist assistant message",
				"document", r.documentID, "error", err)
		}
	}

	return false
}

func (r *reconciler) Current() string {
	return r.inner.Current()
}

func (r *reconciler) Err() error {
	return r.inner.Err()
}

func (r *reconciler) Close() error {
	return r.inner.Close()
}
