package domain

import (
	"strings"
	"time"
)

const (
	MaxMessageLen    = 2000
	MaxPageSize      = 100
	DefaultPageSize  = 50
	MaxBackfillBatch = 200
)

// Message is an append-only chat line scoped to a room.
type Message struct {
	ID        string    `json:"id"`
	RoomID    RoomID    `json:"room_id"`
	SenderID  UserID    `json:"sender_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateContent enforces the non-empty and length bounds on chat text.
// Length is counted in characters, not bytes.
func ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return Validation("message content is empty")
	}
	if len([]rune(content)) > MaxMessageLen {
		return Validation("message content exceeds 2000 characters")
	}
	return nil
}

// ClampPageSize bounds a requested page size to [1, MaxPageSize].
func ClampPageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}
