package domain

import "time"

// Participant binds a user to a room. The (RoomID, UserID) pair is unique.
// No transport or lifecycle logic here.
type Participant struct {
	RoomID         RoomID     `json:"room_id"`
	UserID         UserID     `json:"user_id"`
	Role           Role       `json:"role"`
	MicEnabled     bool       `json:"mic_enabled"`
	SocketID       string     `json:"-"`
	IsConnected    bool       `json:"is_connected"`
	JoinedAt       time.Time  `json:"joined_at"`
	DisconnectedAt *time.Time `json:"disconnected_at,omitempty"`
}

// NewParticipant builds the row for a first join. The designated host
// gets the host role with an open mic, everybody else starts as a listener.
func NewParticipant(room *Room, userID UserID, socketID string, now time.Time) *Participant {
	role := RoleListener
	if userID == room.HostID {
		role = RoleHost
	}
	return &Participant{
		RoomID:      room.ID,
		UserID:      userID,
		Role:        role,
		MicEnabled:  role == RoleHost,
		SocketID:    socketID,
		IsConnected: true,
		JoinedAt:    now,
	}
}

// Reconnect rebinds an existing row to a new connection. A recorded host
// found in a lower role is restored to host with mic on.
func (p *Participant) Reconnect(room *Room, socketID string) {
	if p.UserID == room.HostID && p.Role != RoleHost {
		p.Role = RoleHost
		p.MicEnabled = true
	}
	p.SocketID = socketID
	p.IsConnected = true
	p.DisconnectedAt = nil
}

// ParticipantView is a connected participant enriched with profile data.
type ParticipantView struct {
	Participant
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
