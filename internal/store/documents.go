package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

// DocumentRepo persists document records. All reads are scoped to the owning
// user; a document owned by someone else is indistinguishable from a missing
// one.
type DocumentRepo struct {
	db *gorm.DB
}

func NewDocumentRepo(db *gorm.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Create inserts a new document record. Status starts as PROCESSING.
func (r *DocumentRepo) Create(ctx context.Context, doc *Document) error {
	if doc.Status == "" {
		doc.Status = StatusProcessing
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(doc).Error
}

// GetOwned fetches a document by id, scoped to the owning user.
func (r *DocumentRepo) GetOwned(ctx context.Context, id, userID string) (*Document, error) {
	var doc Document
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Get fetches a document by id without an ownership scope. Used by the
// ingestion pipeline, which is not acting on behalf of a request.
func (r *DocumentRepo) Get(ctx context.Context, id string) (*Document, error) {
	var doc Document
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// ListOwned returns the user's documents, newest first.
func (r *DocumentRepo) ListOwned(ctx context.Context, userID string) ([]Document, error) {
	var docs []Document
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&docs).Error
	return docs, err
}

// SetStatus writes the document's ingestion status. It is the single write
// path for status and is idempotent: the row is addressed by id and the
// update touches only the status column.
func (r *DocumentRepo) SetStatus(ctx context.Context, id string, status UploadStatus) error {
	res := r.db.WithContext(ctx).
		Model(&Document{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
