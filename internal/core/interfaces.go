package core

import (
	"context"
	"time"

	"github.com/dkeye/voicerooms/internal/domain"
)

// RoomRepository is typed CRUD over rooms. Implementations return
// domain.ErrNotFound for missing rows.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, id domain.RoomID) (*domain.Room, error)
	ListActiveRooms(ctx context.Context) ([]domain.Room, error)
	// DeactivateRoom flips is_active to false. It reports false when the
	// room was already inactive.
	DeactivateRoom(ctx context.Context, id domain.RoomID) (bool, error)
}

// ParticipantRepository owns participant rows keyed by (room, user).
// UpsertParticipant must converge concurrent writers onto one row.
type ParticipantRepository interface {
	UpsertParticipant(ctx context.Context, p *domain.Participant) error
	GetParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.Participant, error)
	ListConnected(ctx context.Context, roomID domain.RoomID) ([]domain.Participant, error)
	CountConnected(ctx context.Context, roomID domain.RoomID) (int, error)
	CountConnectedByRoom(ctx context.Context, ids []domain.RoomID) (map[domain.RoomID]int, error)
	UpdateRole(ctx context.Context, roomID domain.RoomID, userID domain.UserID, role domain.Role, micEnabled bool) error
	// MarkDisconnected only touches the row while it is bound to socketID.
	MarkDisconnected(ctx context.Context, roomID domain.RoomID, userID domain.UserID, socketID string, at time.Time) (bool, error)
	DeleteParticipant(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (bool, error)
	// DeleteIfDisconnected removes the row only if is_connected is false.
	DeleteIfDisconnected(ctx context.Context, roomID domain.RoomID, userID domain.UserID) (bool, error)
	DeleteAllParticipants(ctx context.Context, roomID domain.RoomID) (int, error)
}

// MessageCursor is a keyset position: rows strictly older than it are returned.
type MessageCursor struct {
	CreatedAt time.Time
	ID        string
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, m *domain.Message) error
	// ListMessagesBefore returns up to limit rows newest first.
	ListMessagesBefore(ctx context.Context, roomID domain.RoomID, cursor *MessageCursor, limit int) ([]domain.Message, error)
	// ListMessagesAfter returns up to limit rows strictly after since, oldest first.
	ListMessagesAfter(ctx context.Context, roomID domain.RoomID, since time.Time, limit int) ([]domain.Message, error)
}

// ProfileStore resolves display data. Missing users are simply absent from the map.
type ProfileStore interface {
	Profiles(ctx context.Context, ids []domain.UserID) (map[domain.UserID]domain.Profile, error)
}

// Store bundles the persistence collaborators.
type Store interface {
	RoomRepository
	ParticipantRepository
	MessageRepository
	ProfileStore
	Close()
}
