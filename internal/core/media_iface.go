package core

import (
	"context"
	"time"

	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/pion/webrtc/v4"
)

// Capabilities scope a media grant. Subscribe is always true for participants.
type Capabilities struct {
	CanPublish   bool `json:"can_publish"`
	CanSubscribe bool `json:"can_subscribe"`
}

// CapabilitiesFor derives publish rights strictly from the role.
func CapabilitiesFor(role domain.Role) Capabilities {
	return Capabilities{CanPublish: role.CanPublish(), CanSubscribe: true}
}

// MediaGrant is the credential a client presents to the media transport.
type MediaGrant struct {
	Token        string             `json:"token"`
	URL          string             `json:"url,omitempty"`
	RoomID       domain.RoomID      `json:"room_id"`
	Identity     domain.UserID      `json:"identity"`
	CanPublish   bool               `json:"can_publish"`
	CanSubscribe bool               `json:"can_subscribe"`
	ExpiresAt    time.Time          `json:"expires_at"`
	ICEServers   []webrtc.ICEServer `json:"ice_servers,omitempty"`
}

// GrantIssuer is the boundary call to the external media transport.
// It holds no per-room state.
type GrantIssuer interface {
	IssueGrant(ctx context.Context, userID domain.UserID, roomID domain.RoomID, caps Capabilities) (*MediaGrant, error)
}
