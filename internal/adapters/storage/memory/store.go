// Package memory keeps rooms, participants and messages in process
// memory. It backs single node deployments and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dkeye/voicerooms/internal/core"
	"github.com/dkeye/voicerooms/internal/domain"
)

type participantKey struct {
	room domain.RoomID
	user domain.UserID
}

type Store struct {
	mu           sync.RWMutex
	rooms        map[domain.RoomID]domain.Room
	participants map[participantKey]domain.Participant
	messages     map[domain.RoomID][]domain.Message
	profiles     map[domain.UserID]domain.Profile
}

var _ core.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		rooms:        make(map[domain.RoomID]domain.Room),
		participants: make(map[participantKey]domain.Participant),
		messages:     make(map[domain.RoomID][]domain.Message),
		profiles:     make(map[domain.UserID]domain.Profile),
	}
}

func (s *Store) Close() {}

func (s *Store) CreateRoom(_ context.Context, room *domain.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.ID]; ok {
		return domain.ErrConflict
	}
	s.rooms[room.ID] = *room
	return nil
}

func (s *Store) GetRoom(_ context.Context, id domain.RoomID) (*domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &r, nil
}

// ListActiveRooms returns active rooms newest first.
func (s *Store) ListActiveRooms(_ context.Context) ([]domain.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.IsActive {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeactivateRoom(_ context.Context, id domain.RoomID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if !r.IsActive {
		return false, nil
	}
	r.IsActive = false
	s.rooms[id] = r
	return true, nil
}

// UpsertParticipant replaces the (room, user) row. joined_at of an
// existing row is kept.
func (s *Store) UpsertParticipant(_ context.Context, p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[p.RoomID]; !ok {
		return domain.ErrNotFound
	}
	k := participantKey{p.RoomID, p.UserID}
	row := *p
	if prev, ok := s.participants[k]; ok {
		row.JoinedAt = prev.JoinedAt
	}
	s.participants[k] = row
	return nil
}

func (s *Store) GetParticipant(_ context.Context, roomID domain.RoomID, userID domain.UserID) (*domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantKey{roomID, userID}]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

// ListConnected returns connected rows in join order.
func (s *Store) ListConnected(_ context.Context, roomID domain.RoomID) ([]domain.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Participant
	for k, p := range s.participants {
		if k.room == roomID && p.IsConnected {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].JoinedAt.Equal(out[j].JoinedAt) {
			return out[i].UserID < out[j].UserID
		}
		return out[i].JoinedAt.Before(out[j].JoinedAt)
	})
	return out, nil
}

func (s *Store) CountConnected(_ context.Context, roomID domain.RoomID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for k, p := range s.participants {
		if k.room == roomID && p.IsConnected {
			n++
		}
	}
	return n, nil
}

func (s *Store) CountConnectedByRoom(_ context.Context, ids []domain.RoomID) (map[domain.RoomID]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.RoomID]int, len(ids))
	for _, id := range ids {
		out[id] = 0
	}
	for k, p := range s.participants {
		if _, want := out[k.room]; want && p.IsConnected {
			out[k.room]++
		}
	}
	return out, nil
}

func (s *Store) UpdateRole(_ context.Context, roomID domain.RoomID, userID domain.UserID, role domain.Role, micEnabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := participantKey{roomID, userID}
	p, ok := s.participants[k]
	if !ok {
		return domain.ErrNotFound
	}
	p.Role = role
	p.MicEnabled = micEnabled
	s.participants[k] = p
	return nil
}

func (s *Store) MarkDisconnected(_ context.Context, roomID domain.RoomID, userID domain.UserID, socketID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := participantKey{roomID, userID}
	p, ok := s.participants[k]
	if !ok || p.SocketID != socketID || !p.IsConnected {
		return false, nil
	}
	p.IsConnected = false
	p.DisconnectedAt = &at
	s.participants[k] = p
	return true, nil
}

func (s *Store) DeleteParticipant(_ context.Context, roomID domain.RoomID, userID domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := participantKey{roomID, userID}
	if _, ok := s.participants[k]; !ok {
		return false, nil
	}
	delete(s.participants, k)
	return true, nil
}

func (s *Store) DeleteIfDisconnected(_ context.Context, roomID domain.RoomID, userID domain.UserID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := participantKey{roomID, userID}
	p, ok := s.participants[k]
	if !ok || p.IsConnected {
		return false, nil
	}
	delete(s.participants, k)
	return true, nil
}

func (s *Store) DeleteAllParticipants(_ context.Context, roomID domain.RoomID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k := range s.participants {
		if k.room == roomID {
			delete(s.participants, k)
			n++
		}
	}
	return n, nil
}

func (s *Store) CreateMessage(_ context.Context, m *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[m.RoomID]; !ok {
		return domain.ErrNotFound
	}
	s.messages[m.RoomID] = append(s.messages[m.RoomID], *m)
	return nil
}

// newer orders by (created_at, id) descending.
func newer(a, b domain.Message) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (s *Store) ListMessagesBefore(_ context.Context, roomID domain.RoomID, cursor *core.MessageCursor, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Message
	for _, m := range s.messages[roomID] {
		if cursor != nil && !newer(domain.Message{CreatedAt: cursor.CreatedAt, ID: cursor.ID}, m) {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ListMessagesAfter(_ context.Context, roomID domain.RoomID, since time.Time, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Message
	for _, m := range s.messages[roomID] {
		if m.CreatedAt.After(since) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return newer(out[j], out[i]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SetProfile seeds display data for a user.
func (s *Store) SetProfile(p domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
}

func (s *Store) Profiles(_ context.Context, ids []domain.UserID) (map[domain.UserID]domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.UserID]domain.Profile, len(ids))
	for _, id := range ids {
		if p, ok := s.profiles[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}
