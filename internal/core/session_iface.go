package core

import "github.com/dkeye/voicerooms/internal/domain"

// SessionID identifies one live transport connection. It is what
// participant rows store as socket_id.
type SessionID string

// Session binds an authenticated user to its transport endpoint.
type Session struct {
	SID    SessionID
	UserID domain.UserID
	Signal SignalConnection
}
