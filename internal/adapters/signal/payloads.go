package signal

import (
	"time"

	"github.com/dkeye/voicerooms/internal/domain"
)

type createRoomPayload struct {
	Title string          `json:"title" validate:"required,max=120"`
	Type  domain.RoomType `json:"type" validate:"omitempty,oneof=public private"`
}

type roomPayload struct {
	RoomID domain.RoomID `json:"roomId" validate:"required,max=64"`
}

type targetPayload struct {
	RoomID   domain.RoomID `json:"roomId" validate:"required,max=64"`
	TargetID domain.UserID `json:"targetId" validate:"required,max=128"`
	Role     string        `json:"role,omitempty"`
}

type messagePayload struct {
	RoomID  domain.RoomID `json:"roomId" validate:"required,max=64"`
	Content string        `json:"content" validate:"required,max=2000"`
}

type restorePayload struct {
	RoomID        domain.RoomID `json:"roomId" validate:"required,max=64"`
	LastMessageAt *time.Time    `json:"lastMessageAt,omitempty"`
}
