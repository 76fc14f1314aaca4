package domain

import (
	"strings"
	"time"
)

const (
	MaxRoomTitleLen        = 120
	DefaultMaxParticipants = 50
)

type (
	RoomID   string
	RoomType string
)

const (
	RoomPublic  RoomType = "public"
	RoomPrivate RoomType = "private"
)

func (t RoomType) Valid() bool {
	return t == RoomPublic || t == RoomPrivate
}

// Room is a bounded audio session. HostID is fixed at creation and
// IsActive=false is terminal.
type Room struct {
	ID              RoomID    `json:"id"`
	Title           string    `json:"title"`
	HostID          UserID    `json:"host_id"`
	Type            RoomType  `json:"type"`
	IsActive        bool      `json:"is_active"`
	MaxParticipants int       `json:"max_participants"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewRoom validates the user supplied fields and returns an active room
// without an id; the service assigns one before persisting.
func NewRoom(hostID UserID, title string, typ RoomType, maxParticipants int) (*Room, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, Validation("title is required")
	}
	if len([]rune(title)) > MaxRoomTitleLen {
		return nil, Validation("title too long")
	}
	if typ == "" {
		typ = RoomPublic
	}
	if !typ.Valid() {
		return nil, Validation("type must be public or private")
	}
	if hostID == "" {
		return nil, Validation("host id is required")
	}
	if maxParticipants <= 0 {
		maxParticipants = DefaultMaxParticipants
	}
	return &Room{
		Title:           title,
		HostID:          hostID,
		Type:            typ,
		IsActive:        true,
		MaxParticipants: maxParticipants,
	}, nil
}

// RoomSummary is a room enriched with its live connected count.
type RoomSummary struct {
	Room
	ParticipantCount int `json:"participant_count"`
}
