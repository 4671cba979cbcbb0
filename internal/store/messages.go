package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageRepo persists chat messages.
type MessageRepo struct {
	db *gorm.DB
}

func NewMessageRepo(db *gorm.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Create inserts a message, assigning id and timestamp if unset.
func (r *MessageRepo) Create(ctx context.Context, msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).Create(msg).Error
}

// RecentWindow returns the last limit messages of a document ordered
// oldest-first, the shape prompt assembly needs.
func (r *MessageRepo) RecentWindow(ctx context.Context, documentID string, limit int) ([]Message, error) {
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	// Reverse into chronological order.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// ListPage returns one page of a document's messages newest-first, scoped to
// the owning user. cursor is the id of the last message of the previous page;
// empty means start from the newest. nextCursor is empty on the final page.
func (r *MessageRepo) ListPage(ctx context.Context, documentID, userID string, limit int, cursor string) ([]Message, string, error) {
	q := r.db.WithContext(ctx).
		Where("document_id = ? AND user_id = ?", documentID, userID).
		Order("created_at DESC, id DESC")

	if cursor != "" {
		var pivot Message
		err := r.db.WithContext(ctx).
			Where("id = ? AND document_id = ?", cursor, documentID).
			First(&pivot).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrNotFound
		}
		if err != nil {
			return nil, "", err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)",
			pivot.CreatedAt, pivot.CreatedAt, pivot.ID)
	}

	// Fetch one extra row to know whether another page exists.
	var msgs []Message
	if err := q.Limit(limit + 1).Find(&msgs).Error; err != nil {
		return nil, "", err
	}

	next := ""
	if len(msgs) > limit {
		msgs = msgs[:limit]
		next = msgs[len(msgs)-1].ID
	}
	return msgs, next, nil
}

// CountForDocument reports how many messages a document holds.
func (r *MessageRepo) CountForDocument(ctx context.Context, documentID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&Message{}).
		Where("document_id = ?", documentID).
		Count(&n).Error
	return n, err
}
