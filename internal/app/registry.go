package app

import (
	"context"
	"sync"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Session core.Session
	Rooms   map[domain.RoomID]struct{}
	Cancel  context.CancelFunc
}

// Registry tracks the connections attached to this instance and which
// rooms each of them is bound to. It is delivery bookkeeping only; the
// persistence layer stays the source of truth for participants.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
	}
}

type RegSnap struct {
	SID     core.SessionID
	Session core.Session
}

func (r *Registry) BindSignal(sess core.Session, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sess.SID] = &sessionEntry{
		Session: sess,
		Rooms:   make(map[domain.RoomID]struct{}),
		Cancel:  cancel,
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sess.SID)).Str("user_id", string(sess.UserID)).Msg("bound signal")
}

// Unbind forgets the connection and returns the rooms it was bound to.
func (r *Registry) Unbind(sid core.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	delete(r.sessions, sid)
	rooms := make([]domain.RoomID, 0, len(e.Rooms))
	for id := range e.Rooms {
		rooms = append(rooms, id)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("rooms", len(rooms)).Msg("unbind session")
	return rooms
}

func (r *Registry) GetSession(sid core.SessionID) (core.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return core.Session{}, false
}

func (r *Registry) JoinRoom(sid core.SessionID, roomID domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	e.Rooms[roomID] = struct{}{}
	log.Debug().Str("module", "app.registry").Str("sid", string(sid)).Str("room_id", string(roomID)).Msg("joined room")
	return true
}

func (r *Registry) LeaveRoom(sid core.SessionID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[sid]; ok {
		delete(e.Rooms, roomID)
	}
}

func (r *Registry) InRoom(sid core.SessionID, roomID domain.RoomID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	_, in := e.Rooms[roomID]
	return in
}

// DropUserFromRoom unbinds every local connection of userID from roomID.
func (r *Registry) DropUserFromRoom(userID domain.UserID, roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sessions {
		if e.Session.UserID == userID {
			delete(e.Rooms, roomID)
		}
	}
}

// DropRoom unbinds all local connections from roomID.
func (r *Registry) DropRoom(roomID domain.RoomID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.sessions {
		delete(e.Rooms, roomID)
	}
}

func (r *Registry) MembersOfRoom(roomID domain.RoomID) []RegSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegSnap, 0)
	for sid, e := range r.sessions {
		if _, ok := e.Rooms[roomID]; ok {
			out = append(out, RegSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

func (r *Registry) SessionsOfUser(userID domain.UserID) []RegSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []RegSnap
	for sid, e := range r.sessions {
		if e.Session.UserID == userID {
			out = append(out, RegSnap{SID: sid, Session: e.Session})
		}
	}
	return out
}

func (r *Registry) All() []RegSnap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RegSnap, 0, len(r.sessions))
	for sid, e := range r.sessions {
		out = append(out, RegSnap{SID: sid, Session: e.Session})
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Cancel stops the connection's pumps; the read pump then runs teardown.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}
