package store

import "time"

// UploadStatus tracks a document through its ingestion lifecycle.
// PROCESSING is set when the document record is created; the ingestion
// pipeline moves it to exactly one of SUCCESS or FAILED. A run never reverts
// a terminal state; only an operator re-ingesting a FAILED document resets it.
type UploadStatus string

const (
	StatusProcessing UploadStatus = "PROCESSING"
	StatusSuccess    UploadStatus = "SUCCESS"
	StatusFailed     UploadStatus = "FAILED"
)

// User is a registered account. Every document and message belongs to one.
type User struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex" json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Document is an uploaded PDF. Its ID doubles as the vector-store namespace
// holding the document's chunks, so concurrent ingestions of different
// documents never collide.
type Document struct {
	ID        string       `gorm:"primaryKey" json:"id"`
	UserID    string       `gorm:"index" json:"userId"`
	Key       string       `json:"key"`
	URL       string       `json:"url"`
	Name      string       `json:"name"`
	Status    UploadStatus `json:"status"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Message is one chat turn within a document. Messages are totally ordered
// per document by (created_at, id).
type Message struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	DocumentID    string    `gorm:"index" json:"documentId"`
	UserID        string    `gorm:"index" json:"userId"`
	Text          string    `json:"text"`
	IsUserMessage bool      `json:"isUserMessage"`
	CreatedAt     time.Time `json:"createdAt"`
}
