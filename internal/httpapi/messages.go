package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bull/pdfchat-server/internal/auth"
	"github.com/bull/pdfchat-server/internal/chat"
	"github.com/bull/pdfchat-server/internal/store"
)

type sendMessageBody struct {
	DocumentID string `json:"documentId" binding:"required"`
	Message    string `json:"message" binding:"required"`
}

// handleSendMessage streams the assistant's answer as a chunked plain-text
// body. Auth and ownership fail fast with JSON errors before the first byte
// of the stream; once streaming starts, an error can only end the body
// early.
func (s *Server) handleSendMessage(c *gin.Context) {
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentId and message are required"})
		return
	}

	userID := c.GetString(auth.ContextUserKey)

	stream, err := s.answerer.Answer(c.Request.Context(), body.DocumentID, userID, body.Message)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		case errors.Is(err, chat.ErrNotReady):
			c.JSON(http.StatusConflict, gin.H{"error": "document is still processing or failed to process"})
		default:
			s.logger.Error("failed to answer", "document", body.DocumentID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate answer"})
		}
		return
	}
	defer stream.Close()

	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Content-Type-Options", "nosniff")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	for stream.Next() {
		if _, err := c.Writer.WriteString(stream.Current()); err != nil {
			// Client hung up; the reconciler sees the aborted stream and
			// skips persistence.
			break
		}
		c.Writer.Flush()
	}

	if err := stream.Err(); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("stream ended with error", "document", body.DocumentID, "error", err)
	}
}
