package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/bull/pdfchat-server/internal/auth"
	"github.com/bull/pdfchat-server/internal/store"
)

// uploadCompleteBody is the payload the upload collaborator posts once a
// file has landed in storage.
type uploadCompleteBody struct {
	Key  string `json:"key" binding:"required"`
	Name string `json:"name" binding:"required"`
	URL  string `json:"url" binding:"required,url"`
}

// handleUploadComplete creates the document record in PROCESSING and kicks
// off ingestion in the background. The response returns immediately; the
// client polls the document's status.
func (s *Server) handleUploadComplete(c *gin.Context) {
	var body uploadCompleteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key, name and url are required"})
		return
	}

	userID := c.GetString(auth.ContextUserKey)
	doc := &store.Document{
		ID:     uuid.New().String(),
		UserID: userID,
		Key:    body.Key,
		Name:   body.Name,
		URL:    body.URL,
		Status: store.StatusProcessing,
	}

	if err := s.docs.Create(c.Request.Context(), doc); err != nil {
		s.logger.Error("failed to create document", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create document"})
		return
	}

	// The pipeline owns the outcome from here; it records SUCCESS or FAILED
	// and the error return is already logged inside.
	if s.ingestAsync {
		go func() { _ = s.ingestor.Ingest(context.Background(), doc) }()
	} else {
		_ = s.ingestor.Ingest(context.Background(), doc)
	}

	c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(c *gin.Context) {
	userID := c.GetString(auth.ContextUserKey)

	docs, err := s.docs.ListOwned(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error("failed to list documents", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list documents"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"documents": docs})
}

func (s *Server) handleGetDocument(c *gin.Context) {
	userID := c.GetString(auth.ContextUserKey)

	doc, err := s.docs.GetOwned(c.Request.Context(), c.Param("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to get document", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get document"})
		return
	}

	c.JSON(http.StatusOK, doc)
}

const (
	defaultMessagePageSize = 10
	maxMessagePageSize     = 100
)

func (s *Server) handleListMessages(c *gin.Context) {
	userID := c.GetString(auth.ContextUserKey)
	documentID := c.Param("id")

	// Ownership gate before any message read.
	if _, err := s.docs.GetOwned(c.Request.Context(), documentID, userID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
			return
		}
		s.logger.Error("failed to check document", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	limit := defaultMessagePageSize
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= maxMessagePageSize {
			limit = n
		}
	}

	msgs, next, err := s.msgs.ListPage(c.Request.Context(), documentID, userID, limit, c.Query("cursor"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid cursor"})
		return
	}
	if err != nil {
		s.logger.Error("failed to list messages", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": msgs, "nextCursor": next})
}
